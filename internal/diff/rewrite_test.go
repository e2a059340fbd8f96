package diff

import "testing"

func TestRewriteSequenceDefault(t *testing.T) {
	tests := []struct {
		name     string
		def      string
		expected string
	}{
		{
			name:     "bare schema qualifier",
			def:      "nextval('app.users_id_seq'::regclass)",
			expected: "nextval('staging.users_id_seq'::regclass)",
		},
		{
			name:     "quoted schema qualifier",
			def:      `nextval('"app".users_id_seq'::regclass)`,
			expected: `nextval('"staging".users_id_seq'::regclass)`,
		},
		{
			name:     "unqualified sequence untouched",
			def:      "nextval('users_id_seq'::regclass)",
			expected: "nextval('users_id_seq'::regclass)",
		},
		{
			name:     "non-sequence default untouched",
			def:      "now()",
			expected: "now()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RewriteSequenceDefault(tt.def, "app", "staging"); got != tt.expected {
				t.Errorf("RewriteSequenceDefault = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRewriteSequenceDefaultSameSchemaNoop(t *testing.T) {
	def := "nextval('app.users_id_seq'::regclass)"
	if got := RewriteSequenceDefault(def, "app", "app"); got != def {
		t.Errorf("same-schema rewrite must be a no-op, got %q", got)
	}
}

func TestRewriteSchemaQualifier(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "bare qualifier in function body",
			text:     "CREATE FUNCTION app.audit() RETURNS trigger AS $$ INSERT INTO app.log VALUES (1); $$",
			expected: "CREATE FUNCTION staging.audit() RETURNS trigger AS $$ INSERT INTO staging.log VALUES (1); $$",
		},
		{
			name:     "quoted qualifier",
			text:     `CREATE TRIGGER t BEFORE INSERT ON "app"."users" FOR EACH ROW EXECUTE FUNCTION "app".audit()`,
			expected: `CREATE TRIGGER t BEFORE INSERT ON "staging"."users" FOR EACH ROW EXECUTE FUNCTION "staging".audit()`,
		},
		{
			name:     "substring schema name not rewritten",
			text:     "SELECT myapp.f()",
			expected: "SELECT myapp.f()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RewriteSchemaQualifier(tt.text, "app", "staging"); got != tt.expected {
				t.Errorf("RewriteSchemaQualifier = %q, want %q", got, tt.expected)
			}
		})
	}
}
