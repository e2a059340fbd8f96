package main

import (
	"context"
	"strings"
	"testing"

	"github.com/pgsync/pgsync/internal/introspect"
	"github.com/pgsync/pgsync/internal/plan"
	"github.com/pgsync/pgsync/testutil"
)

func TestSyncAgainstRealDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ci := testutil.SetupPostgresContainer(ctx, t)
	defer ci.Terminate(ctx, t)

	ci.ExecStatements(ctx, t,
		"CREATE SCHEMA app",
		"CREATE SCHEMA prod",
		`CREATE TABLE app.users (
			id integer GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			email text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
		"CREATE UNIQUE INDEX users_email_idx ON app.users (lower(email))",
		`CREATE TABLE app.orders (
			id bigint PRIMARY KEY,
			user_id integer NOT NULL REFERENCES app.users (id) ON DELETE CASCADE
		)`,
		`CREATE FUNCTION app.touch() RETURNS trigger LANGUAGE plpgsql AS $$
		BEGIN
			NEW.created_at = now();
			RETURN NEW;
		END $$`,
		`CREATE TRIGGER users_touch BEFORE UPDATE ON app.users
			FOR EACH ROW EXECUTE FUNCTION app.touch()`,
		// prod lags behind: users exists without email, orders is absent
		"CREATE TABLE prod.users (id integer GENERATED ALWAYS AS IDENTITY PRIMARY KEY)",
		"CREATE TABLE prod.retired (id integer PRIMARY KEY)",
	)

	planner := plan.NewSync(
		introspect.NewService(ci.Conn, "app"),
		introspect.NewService(ci.Conn, "prod"),
		plan.Config{},
	)
	result, err := planner.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(result.Artifacts) != 1 || result.Artifacts[0].Name != "alter.sql" {
		t.Fatalf("expected alter.sql, got %+v", result.Artifacts)
	}
	script := result.Artifacts[0].Content

	checks := []string{
		`ALTER TABLE "prod"."users" ADD COLUMN "email" TEXT NOT NULL;`,
		`CREATE TABLE "prod"."orders"`,
		`FOREIGN KEY ("user_id") REFERENCES "prod"."users" ("id") ON DELETE CASCADE;`,
		`CREATE UNIQUE INDEX "users_email_idx"`,
		"CREATE TRIGGER users_touch",
		`RENAME TO "retired_dropped_`,
	}
	for _, want := range checks {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
	if strings.Contains(script, "DROP TABLE") {
		t.Errorf("script must never drop a table:\n%s", script)
	}

	if result.Summary.Created == 0 || result.Summary.Dropped == 0 {
		t.Errorf("unexpected summary: %+v", result.Summary)
	}
}

func TestExportAgainstRealDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ci := testutil.SetupPostgresContainer(ctx, t)
	defer ci.Terminate(ctx, t)

	ci.ExecStatements(ctx, t,
		"CREATE SCHEMA app",
		"CREATE SEQUENCE app.batch_seq INCREMENT BY 5 START WITH 100",
		`CREATE TABLE app.jobs (
			id bigint PRIMARY KEY DEFAULT nextval('app.batch_seq'),
			payload text,
			labels text[]
		)`,
	)

	planner := plan.NewExport(introspect.NewService(ci.Conn, "app"), plan.Config{})
	result, err := planner.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	byName := map[string]string{}
	for _, a := range result.Artifacts {
		byName[a.Name] = a.Content
	}

	schemaSQL, ok := byName["schema.sql"]
	if !ok {
		t.Fatalf("schema.sql missing from %+v", result.Artifacts)
	}
	if !strings.Contains(schemaSQL, `CREATE SEQUENCE IF NOT EXISTS "app"."batch_seq"`) {
		t.Errorf("sequence missing:\n%s", schemaSQL)
	}
	if !strings.Contains(schemaSQL, "INCREMENT BY 5") {
		t.Errorf("non-default increment missing:\n%s", schemaSQL)
	}
	if !strings.Contains(schemaSQL, `CREATE TABLE "app"."jobs"`) {
		t.Errorf("table missing:\n%s", schemaSQL)
	}
	if !strings.Contains(schemaSQL, `"labels" TEXT[]`) {
		t.Errorf("array column should render its element type:\n%s", schemaSQL)
	}

	seqPos := strings.Index(schemaSQL, `CREATE SEQUENCE IF NOT EXISTS "app"."batch_seq"`)
	tablePos := strings.Index(schemaSQL, `CREATE TABLE "app"."jobs"`)
	if seqPos > tablePos {
		t.Errorf("sequence must be created before the table drawing from it:\n%s", schemaSQL)
	}
}
