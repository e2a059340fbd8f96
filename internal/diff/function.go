package diff

import (
	"strings"

	"github.com/pgsync/pgsync/internal/ir"
)

// functionKey matches functions across schemas by name and kind so a
// function and a procedure sharing a name never alias each other.
func functionKey(f *ir.Function) string {
	return f.Kind + ":" + f.Name
}

// functionsEqual compares two functions by their reconstructed definition
// text, schema qualifiers normalized out of the comparison.
func functionsEqual(old, new *ir.Function, opts Options) bool {
	oldDef := RewriteSchemaQualifier(old.Definition, opts.TargetSchema, opts.SourceSchema)
	return strings.TrimSpace(oldDef) == strings.TrimSpace(new.Definition)
}

// DiffFunctions emits function and procedure operations. Definitions are
// opaque text from pg_get_functiondef; the only transformation applied is
// the schema-qualifier substitution. Functions cannot be renamed without
// their argument signature, which introspection does not carry here, so
// drops and replacements degrade to review markers instead of guessing.
func DiffFunctions(w *ScriptWriter, source, target []*ir.Function, opts Options) {
	targetByKey := make(map[string]*ir.Function, len(target))
	for _, f := range target {
		targetByKey[functionKey(f)] = f
	}
	sourceByKey := make(map[string]*ir.Function, len(source))
	for _, f := range source {
		sourceByKey[functionKey(f)] = f
	}

	for _, f := range source {
		existing, ok := targetByKey[functionKey(f)]
		switch {
		case !ok:
			if f.Definition == "" {
				w.WriteTODO("definition of %s %q could not be reconstructed; create it manually", functionKindName(f.Kind), f.Name)
				w.BlankLine()
				continue
			}
			w.WriteComment("%s %q is missing from the target schema", functionKindName(f.Kind), f.Name)
			w.WriteStatement(terminate(RewriteSchemaQualifier(f.Definition, opts.SourceSchema, opts.TargetSchema)))
			w.noteCreate()
			w.BlankLine()
		case !functionsEqual(existing, f, opts):
			if f.Definition == "" {
				w.WriteTODO("definition of %s %q could not be reconstructed; update it manually", functionKindName(f.Kind), f.Name)
				w.BlankLine()
				continue
			}
			w.WriteComment("%s %q differs; the definition below replaces it in place", functionKindName(f.Kind), f.Name)
			w.WriteTODO("review the previous definition of %q before applying", f.Name)
			w.WriteStatement(terminate(RewriteSchemaQualifier(f.Definition, opts.SourceSchema, opts.TargetSchema)))
			w.noteUpdate()
			w.BlankLine()
		}
	}

	for _, f := range target {
		if _, ok := sourceByKey[functionKey(f)]; ok {
			continue
		}
		w.WriteComment("%s %q exists only in the target schema", functionKindName(f.Kind), f.Name)
		w.WriteTODO("manually drop %s %q after confirming nothing depends on it", functionKindName(f.Kind), f.Name)
		w.noteDrop()
		w.BlankLine()
	}
}

func functionKindName(kind string) string {
	if kind == "p" {
		return "procedure"
	}
	return "function"
}

// terminate ensures a statement ends with a semicolon.
func terminate(stmt string) string {
	stmt = strings.TrimRight(stmt, " \t\n")
	if !strings.HasSuffix(stmt, ";") {
		stmt += ";"
	}
	return stmt
}
