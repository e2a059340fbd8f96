package util

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "users", `"users"`},
		{"camelCase", "createdAt", `"createdAt"`},
		{"reserved word", "order", `"order"`},
		{"embedded quote doubled", `weird"name`, `"weird""name"`},
		{"spaces preserved", "my column", `"my column"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteIdentifier(tt.input); got != tt.expected {
				t.Errorf("QuoteIdentifier(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestQualifyName(t *testing.T) {
	if got := QualifyName("public", "users"); got != `"public"."users"` {
		t.Errorf("QualifyName = %s, want %q", got, `"public"."users"`)
	}
	if got := QualifyName(`sch"ema`, "t"); got != `"sch""ema"."t"` {
		t.Errorf("QualifyName with embedded quote = %s", got)
	}
}

func TestQuoteLiteral(t *testing.T) {
	if got := QuoteLiteral("it's"); got != `'it''s'` {
		t.Errorf("QuoteLiteral(%q) = %s, want %s", "it's", got, `'it''s'`)
	}
}
