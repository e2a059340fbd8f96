package plan

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pgsync/pgsync/internal/introspect"
)

// fakeIntrospector serves a canned catalog snapshot from memory.
type fakeIntrospector struct {
	schema      string
	exists      bool
	available   []string
	tables      []introspect.TableRow
	columns     map[string][]introspect.ColumnRow
	constraints map[string][]introspect.ConstraintRow
	indexes     map[string][]introspect.IndexRow
	sequences   []introspect.SequenceRow
	functions   []introspect.FunctionRow
	triggers    []introspect.TriggerRow
	tablesErr   error
}

func (f *fakeIntrospector) SchemaName() string { return f.schema }

func (f *fakeIntrospector) SchemaExists(ctx context.Context) (bool, error) { return f.exists, nil }

func (f *fakeIntrospector) AvailableSchemas(ctx context.Context) ([]string, error) {
	return f.available, nil
}

func (f *fakeIntrospector) Tables(ctx context.Context) ([]introspect.TableRow, error) {
	return f.tables, f.tablesErr
}

func (f *fakeIntrospector) Columns(ctx context.Context, table string) ([]introspect.ColumnRow, error) {
	return f.columns[table], nil
}

func (f *fakeIntrospector) Constraints(ctx context.Context, table string) ([]introspect.ConstraintRow, error) {
	return f.constraints[table], nil
}

func (f *fakeIntrospector) Indexes(ctx context.Context, table string) ([]introspect.IndexRow, error) {
	return f.indexes[table], nil
}

func (f *fakeIntrospector) Sequences(ctx context.Context) ([]introspect.SequenceRow, error) {
	return f.sequences, nil
}

func (f *fakeIntrospector) Functions(ctx context.Context) ([]introspect.FunctionRow, error) {
	return f.functions, nil
}

func (f *fakeIntrospector) Triggers(ctx context.Context) ([]introspect.TriggerRow, error) {
	return f.triggers, nil
}

func strPtr(s string) *string { return &s }

// sourceFixture is a small but complete schema: two tables linked by a
// foreign key, an owned sequence, a function and a trigger.
func sourceFixture() *fakeIntrospector {
	return &fakeIntrospector{
		schema: "app",
		exists: true,
		tables: []introspect.TableRow{
			{Name: "orders"},
			{Name: "users", Comment: strPtr("accounts")},
		},
		columns: map[string][]introspect.ColumnRow{
			"users": {
				{Name: "id", Ordinal: 1, DataType: "integer", Nullable: false,
					Default: strPtr("nextval('app.users_id_seq'::regclass)")},
				{Name: "email", Ordinal: 2, DataType: "text", Nullable: false},
			},
			"orders": {
				{Name: "id", Ordinal: 1, DataType: "bigint", Nullable: false},
				{Name: "user_id", Ordinal: 2, DataType: "integer", Nullable: false},
			},
		},
		constraints: map[string][]introspect.ConstraintRow{
			"users": {
				{Name: "users_pkey", Kind: "PRIMARY KEY", ColumnNames: "id"},
			},
			"orders": {
				{Name: "orders_pkey", Kind: "PRIMARY KEY", ColumnNames: "id"},
				{Name: "fk_orders_user", Kind: "FOREIGN KEY", ColumnNames: "user_id",
					ForeignTable: strPtr("users"), ForeignColumn: strPtr("id")},
			},
		},
		indexes: map[string][]introspect.IndexRow{
			"users": {
				{Name: "users_email_idx", TableName: "users", SchemaName: "app", IsUnique: true,
					Definition: "CREATE UNIQUE INDEX users_email_idx ON app.users USING btree (lower(email))"},
			},
		},
		sequences: []introspect.SequenceRow{
			{Name: "users_id_seq", DataType: "integer", StartValue: "1", MinValue: "1",
				MaxValue: "2147483647", Increment: "1"},
		},
		functions: []introspect.FunctionRow{
			{Name: "touch", Kind: "f", Definition: strPtr("CREATE OR REPLACE FUNCTION app.touch() RETURNS trigger LANGUAGE plpgsql AS $$ BEGIN NEW.updated_at = now(); RETURN NEW; END $$")},
		},
		triggers: []introspect.TriggerRow{
			{Name: "users_touch", TableName: "users", Event: "UPDATE", Timing: "BEFORE",
				ActionStatement: "EXECUTE FUNCTION touch()",
				Definition:      "CREATE TRIGGER users_touch BEFORE UPDATE ON app.users FOR EACH ROW EXECUTE FUNCTION app.touch()"},
		},
	}
}

func emptyTarget() *fakeIntrospector {
	return &fakeIntrospector{schema: "prod", exists: true}
}

func fixedConfig() Config {
	return Config{Now: func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }}
}

func TestSyncAgainstEmptyTarget(t *testing.T) {
	planner := NewSync(sourceFixture(), emptyTarget(), fixedConfig())
	result, err := planner.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(result.Artifacts) != 1 || result.Artifacts[0].Name != "alter.sql" {
		t.Fatalf("expected single alter.sql artifact, got %+v", result.Artifacts)
	}
	script := result.Artifacts[0].Content

	checks := []string{
		"SCHEMA SYNCHRONIZATION: app -> prod",
		`CREATE SEQUENCE IF NOT EXISTS "prod"."users_id_seq"`,
		`CREATE TABLE "prod"."users"`,
		`CREATE TABLE "prod"."orders"`,
		`DEFAULT nextval('prod.users_id_seq'::regclass)`,
		`ADD CONSTRAINT "fk_orders_user" FOREIGN KEY ("user_id") REFERENCES "prod"."users" ("id");`,
		`CREATE UNIQUE INDEX "users_email_idx"`,
		"CREATE OR REPLACE FUNCTION prod.touch()",
		"CREATE TRIGGER users_touch BEFORE UPDATE ON prod.users",
		"END OF SCRIPT",
	}
	for _, want := range checks {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}

	// The foreign key forces users ahead of orders.
	if strings.Index(script, `CREATE TABLE "prod"."users"`) > strings.Index(script, `CREATE TABLE "prod"."orders"`) {
		t.Errorf("dependency order violated:\n%s", script)
	}

	if result.Summary.Created == 0 {
		t.Errorf("expected created operations, got %+v", result.Summary)
	}
}

func TestSyncIdenticalSchemasGeneratesNoOperations(t *testing.T) {
	source := sourceFixture()
	target := sourceFixture()
	target.schema = "app" // same structure, same name: qualifier rewrites are no-ops

	planner := NewSync(source, target, fixedConfig())
	result, err := planner.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if s := result.Summary; s.Created != 0 || s.Dropped != 0 || s.Updated != 0 {
		t.Errorf("identical schemas must produce zero operations: %+v\n%s",
			s, result.Artifacts[0].Content)
	}
}

func TestSyncSchemaOnlySkipsProcsAndTriggers(t *testing.T) {
	cfg := fixedConfig()
	cfg.SchemaOnly = true
	planner := NewSync(sourceFixture(), emptyTarget(), cfg)
	result, err := planner.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	script := result.Artifacts[0].Content
	if strings.Contains(script, "FUNCTION prod.touch") || strings.Contains(script, "CREATE TRIGGER") {
		t.Errorf("schema-only run leaked procs or triggers:\n%s", script)
	}
	if !strings.Contains(script, `CREATE TABLE "prod"."users"`) {
		t.Errorf("schema-only run missing tables:\n%s", script)
	}
}

func TestExportSplitsArtifactsByKind(t *testing.T) {
	planner := NewExport(sourceFixture(), fixedConfig())
	result, err := planner.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(result.Artifacts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(result.Artifacts))
	}
	byName := map[string]string{}
	for _, a := range result.Artifacts {
		byName[a.Name] = a.Content
	}

	if !strings.Contains(byName["schema.sql"], `CREATE TABLE "app"."users"`) {
		t.Errorf("schema.sql missing tables:\n%s", byName["schema.sql"])
	}
	if !strings.Contains(byName["procs.sql"], "FUNCTION app.touch") {
		t.Errorf("procs.sql missing function:\n%s", byName["procs.sql"])
	}
	if !strings.Contains(byName["triggers.sql"], "CREATE TRIGGER users_touch") {
		t.Errorf("triggers.sql missing trigger:\n%s", byName["triggers.sql"])
	}
	if strings.Contains(byName["schema.sql"], "CREATE TRIGGER") {
		t.Errorf("trigger leaked into schema.sql")
	}
}

func TestOwnedSequencesEmittedBeforeStandaloneOnes(t *testing.T) {
	source := sourceFixture()
	// The catalog lists sequences alphabetically, which would put the
	// standalone one ahead of the table-owned one.
	source.sequences = append([]introspect.SequenceRow{
		{Name: "audit_seq", DataType: "bigint", StartValue: "1", MinValue: "1",
			MaxValue: "9223372036854775807", Increment: "1"},
	}, source.sequences...)

	planner := NewExport(source, fixedConfig())
	result, err := planner.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	schemaSQL := result.Artifacts[0].Content
	ownedPos := strings.Index(schemaSQL, `"app"."users_id_seq"`)
	standalonePos := strings.Index(schemaSQL, `"app"."audit_seq"`)
	if ownedPos < 0 || standalonePos < 0 {
		t.Fatalf("both sequences must be emitted:\n%s", schemaSQL)
	}
	if ownedPos > standalonePos {
		t.Errorf("table-owned sequence must precede standalone ones:\n%s", schemaSQL)
	}
	if ownedPos > strings.Index(schemaSQL, `CREATE TABLE "app"."users"`) {
		t.Errorf("owned sequence must precede its table:\n%s", schemaSQL)
	}
}

func TestExportProcsOnly(t *testing.T) {
	cfg := fixedConfig()
	cfg.ProcsOnly = true
	planner := NewExport(sourceFixture(), cfg)
	result, err := planner.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].Name != "procs.sql" {
		t.Fatalf("expected only procs.sql, got %+v", result.Artifacts)
	}
}

func TestExecuteFailsWhenSourceSchemaMissing(t *testing.T) {
	source := sourceFixture()
	source.exists = false
	source.available = []string{"public", "app_v2"}

	planner := NewSync(source, emptyTarget(), fixedConfig())
	_, err := planner.Execute(context.Background())
	if err == nil {
		t.Fatal("expected error for missing source schema")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if !strings.Contains(verr.Error(), "app_v2") {
		t.Errorf("error must list available schemas: %v", verr)
	}
}

func TestExecuteFailsWhenSourceSchemaEmpty(t *testing.T) {
	source := &fakeIntrospector{schema: "app", exists: true}
	planner := NewSync(source, emptyTarget(), fixedConfig())
	_, err := planner.Execute(context.Background())
	if err == nil {
		t.Fatal("expected error for empty source schema")
	}
	if !strings.Contains(err.Error(), "no tables") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecuteAllowsEmptyTargetSchema(t *testing.T) {
	planner := NewSync(sourceFixture(), emptyTarget(), fixedConfig())
	if _, err := planner.Execute(context.Background()); err != nil {
		t.Fatalf("an empty but existing target schema is a normal first run: %v", err)
	}
}

func TestExecutePropagatesIntrospectionErrors(t *testing.T) {
	source := sourceFixture()
	source.tablesErr = errors.New("connection reset")

	planner := NewSync(source, emptyTarget(), fixedConfig())
	_, err := planner.Execute(context.Background())
	if err == nil {
		t.Fatal("expected introspection error to be fatal")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("cause lost: %v", err)
	}
}
