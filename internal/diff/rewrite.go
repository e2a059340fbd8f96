package diff

import (
	"regexp"
	"strings"
)

// RewriteSequenceDefault rewrites the schema segment of a
// nextval('<schema>.<seq>'::regclass) default expression from sourceSchema
// to targetSchema, leaving the sequence name untouched. Defaults that do
// not reference a sequence pass through unchanged.
func RewriteSequenceDefault(def, sourceSchema, targetSchema string) string {
	if sourceSchema == targetSchema || !strings.Contains(def, "nextval(") {
		return def
	}
	re := regexp.MustCompile(`(nextval\(')("?)` + regexp.QuoteMeta(sourceSchema) + `("?)\.`)
	return re.ReplaceAllString(def, "${1}${2}"+targetSchema+"${3}.")
}

// RewriteSchemaQualifier substitutes schema-qualified references in opaque
// definition text (function and trigger bodies reconstructed by the
// database). Both quoted and bare qualifiers are rewritten; nothing else in
// the text is interpreted.
func RewriteSchemaQualifier(text, sourceSchema, targetSchema string) string {
	if sourceSchema == targetSchema || text == "" {
		return text
	}
	quoted := regexp.MustCompile(`"` + regexp.QuoteMeta(sourceSchema) + `"\.`)
	text = quoted.ReplaceAllString(text, `"`+targetSchema+`".`)
	bare := regexp.MustCompile(`\b` + regexp.QuoteMeta(sourceSchema) + `\.`)
	return bare.ReplaceAllString(text, targetSchema+".")
}
