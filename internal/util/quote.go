package util

import (
	"github.com/lib/pq"
)

// QuoteIdentifier wraps an identifier in double quotes, doubling any interior
// double quote. Quoting is unconditional so reserved words and mixed-case
// names never leak into generated DDL unescaped.
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// QualifyName returns the quoted schema-qualified form "schema"."name".
func QualifyName(schema, name string) string {
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(name)
}

// QuoteLiteral escapes a string for embedding as a SQL string literal.
func QuoteLiteral(s string) string {
	return pq.QuoteLiteral(s)
}
