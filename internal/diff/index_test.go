package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pgsync/pgsync/internal/introspect"
	"github.com/pgsync/pgsync/internal/ir"
)

func TestBuildCreateIndex(t *testing.T) {
	tests := []struct {
		name     string
		index    *ir.Index
		expected string
	}{
		{
			name: "plain columns quoted",
			index: &ir.Index{
				Name: "idx_users_name", Table: "users", Schema: "app",
				Columns: []string{"last_name", "firstName"}, Method: "btree",
			},
			expected: `CREATE INDEX "idx_users_name" ON "public"."users" ("last_name", "firstName");`,
		},
		{
			name: "unique with expression kept verbatim",
			index: &ir.Index{
				Name: "users_email_idx", Table: "users", Schema: "app",
				Columns: []string{"lower(email)", "id"}, IsUnique: true, Method: "btree",
			},
			expected: `CREATE UNIQUE INDEX "users_email_idx" ON "public"."users" (lower(email), "id");`,
		},
		{
			name: "gin index states its method",
			index: &ir.Index{
				Name: "idx_docs_tags", Table: "docs", Schema: "app",
				Columns: []string{"tags"}, Method: "gin",
			},
			expected: `CREATE INDEX "idx_docs_tags" ON "public"."docs" USING gin ("tags");`,
		},
		{
			name: "partial index",
			index: &ir.Index{
				Name: "idx_live_users", Table: "users", Schema: "app",
				Columns: []string{"email"}, Method: "btree", Predicate: "deleted_at IS NULL",
			},
			expected: `CREATE INDEX "idx_live_users" ON "public"."users" ("email") WHERE deleted_at IS NULL;`,
		},
		{
			name: "reserved word column quoted once",
			index: &ir.Index{
				Name: "orders_order_idx", Table: "orders", Schema: "app",
				Columns: []string{"order"}, Method: "btree",
			},
			expected: `CREATE INDEX "orders_order_idx" ON "public"."orders" ("order");`,
		},
		{
			name: "cast expression kept verbatim",
			index: &ir.Index{
				Name: "idx_cast", Table: "t", Schema: "app",
				Columns: []string{"(value)::text"}, Method: "btree",
			},
			expected: `CREATE INDEX "idx_cast" ON "public"."t" ((value)::text);`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildCreateIndex(tt.index, testOptions()); got != tt.expected {
				t.Errorf("BuildCreateIndex = %s\nwant %s", got, tt.expected)
			}
		})
	}
}

func TestBuildCreateIndexFromIntrospectedDefinition(t *testing.T) {
	// pg_get_indexdef quotes reserved column names; the round trip must not
	// double the quoting.
	row := introspect.IndexRow{
		Name: "orders_order_idx", TableName: "orders", SchemaName: "app",
		Definition: `CREATE INDEX orders_order_idx ON app.orders USING btree ("order")`,
	}
	idx, err := ir.ConvertIndex(row)
	if err != nil {
		t.Fatalf("ConvertIndex: %v", err)
	}
	got := BuildCreateIndex(idx, testOptions())
	want := `CREATE INDEX "orders_order_idx" ON "public"."orders" ("order");`
	if got != want {
		t.Errorf("BuildCreateIndex = %s\nwant %s", got, want)
	}
}

func TestIsComplexExpression(t *testing.T) {
	tests := []struct {
		entry    string
		expected bool
	}{
		{"email", false},
		{"createdAt", false},
		{"lower(email)", true},
		{"(value)::text", true},
		{"COALESCE(a, b)", true},
		{"first_name || last_name", true},
	}
	for _, tt := range tests {
		if got := isComplexExpression(tt.entry); got != tt.expected {
			t.Errorf("isComplexExpression(%q) = %v, want %v", tt.entry, got, tt.expected)
		}
	}
}

func TestEmittableIndexesFiltersPrimaryAndShadowed(t *testing.T) {
	indexes := []*ir.Index{
		{Name: "users_pkey", Schema: "app", Table: "users", IsPrimary: true},
		{Name: "users_email_key", Schema: "app", Table: "users", IsUnique: true},
		{Name: "idx_users_name", Schema: "app", Table: "users"},
		{Name: "idx_users_name", Schema: "app", Table: "users"}, // duplicate row
	}
	constraints := []*ir.Constraint{
		{Name: "users_email_key", Type: ir.ConstraintTypeUnique, Columns: []string{"email"}},
	}

	out := emittableIndexes(indexes, constraints)
	if len(out) != 1 || out[0].Name != "idx_users_name" {
		names := make([]string, len(out))
		for i, idx := range out {
			names[i] = idx.Name
		}
		t.Errorf("expected only idx_users_name, got %v", names)
	}
}

func TestDiffIndexesRenamesInsteadOfDropping(t *testing.T) {
	w := NewScriptWriter()
	source := &ir.Table{Name: "users"}
	target := &ir.Table{
		Name: "users",
		Indexes: []*ir.Index{
			{Name: "idx_stale", Schema: "public", Table: "users", Columns: []string{"a"}, Method: "btree"},
		},
	}

	diffIndexes(w, "users", source, target, testOptions())

	script := w.String()
	backup := fmt.Sprintf("idx_stale_dropped_%d", fixedClock.UnixMilli())
	if !strings.Contains(script, fmt.Sprintf(`ALTER INDEX "public"."idx_stale" RENAME TO "%s";`, backup)) {
		t.Errorf("expected rename-then-flag:\n%s", script)
	}
	if strings.Contains(script, "DROP INDEX") {
		t.Errorf("indexes must never be dropped directly:\n%s", script)
	}
	if s := w.Summary(); s.Dropped != 1 || s.Manual != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestDiffIndexesReplacesChangedIndex(t *testing.T) {
	w := NewScriptWriter()
	source := &ir.Table{
		Name: "users",
		Indexes: []*ir.Index{
			{Name: "idx_email", Schema: "app", Table: "users", Columns: []string{"email"}, IsUnique: true, Method: "btree"},
		},
	}
	target := &ir.Table{
		Name: "users",
		Indexes: []*ir.Index{
			{Name: "idx_email", Schema: "public", Table: "users", Columns: []string{"email"}, Method: "btree"},
		},
	}

	diffIndexes(w, "users", source, target, testOptions())

	script := w.String()
	backup := fmt.Sprintf("idx_email_old_%d", fixedClock.UnixMilli())
	if !strings.Contains(script, fmt.Sprintf(`RENAME TO "%s";`, backup)) {
		t.Errorf("expected backup rename before replacement:\n%s", script)
	}
	if !strings.Contains(script, `CREATE UNIQUE INDEX "idx_email"`) {
		t.Errorf("expected replacement index:\n%s", script)
	}
	if s := w.Summary(); s.Updated != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
}
