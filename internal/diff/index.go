package diff

import (
	"fmt"
	"strings"

	"github.com/pgsync/pgsync/internal/ir"
	"github.com/pgsync/pgsync/internal/util"
)

// complexExpressionMarkers are the pieces of syntax that mark an index
// column entry as an expression rather than a bare identifier. Expressions
// are embedded verbatim; identifiers get quoted.
var complexExpressionMarkers = []string{
	"(", "::", "COALESCE", "CASE", "||", "+", "-", "*", "/",
}

// isComplexExpression reports whether an index column entry is an
// expression rather than a plain identifier.
func isComplexExpression(entry string) bool {
	upper := strings.ToUpper(entry)
	for _, marker := range complexExpressionMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// BuildCreateIndex renders a CREATE INDEX statement for the target schema.
func BuildCreateIndex(idx *ir.Index, opts Options) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.IsUnique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	b.WriteString(util.QuoteIdentifier(idx.Name))
	b.WriteString(" ON ")
	b.WriteString(util.QualifyName(opts.TargetSchema, idx.Table))
	if idx.Method != "" && idx.Method != "btree" {
		b.WriteString(" USING ")
		b.WriteString(idx.Method)
	}
	b.WriteString(" (")
	for i, col := range idx.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		if isComplexExpression(col) {
			b.WriteString(col)
		} else {
			b.WriteString(util.QuoteIdentifier(col))
		}
	}
	b.WriteString(")")
	if idx.Predicate != "" {
		b.WriteString(" WHERE ")
		b.WriteString(idx.Predicate)
	}
	b.WriteString(";")
	return b.String()
}

// indexesEqual compares two indexes field by field.
func indexesEqual(old, new *ir.Index) bool {
	if old.Name != new.Name || old.Table != new.Table {
		return false
	}
	if old.IsUnique != new.IsUnique || old.Method != new.Method || old.Predicate != new.Predicate {
		return false
	}
	if len(old.Columns) != len(new.Columns) {
		return false
	}
	for i := range old.Columns {
		if old.Columns[i] != new.Columns[i] {
			return false
		}
	}
	return true
}

// emittableIndexes filters out primary key indexes and indexes shadowed by
// a same-named unique constraint, deduplicating by schema-qualified name.
func emittableIndexes(indexes []*ir.Index, constraints []*ir.Constraint) []*ir.Index {
	uniqueConstraintNames := make(map[string]bool)
	for _, c := range constraints {
		if c.Type == ir.ConstraintTypeUnique {
			uniqueConstraintNames[c.Name] = true
		}
	}

	seen := make(map[string]bool)
	var out []*ir.Index
	for _, idx := range indexes {
		if idx.IsPrimary || uniqueConstraintNames[idx.Name] {
			continue
		}
		key := idx.Schema + "." + idx.Name
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, idx)
	}
	return out
}

// diffIndexes emits index operations for a table present in both schemas.
func diffIndexes(w *ScriptWriter, table string, source, target *ir.Table, opts Options) {
	sourceIndexes := emittableIndexes(source.Indexes, source.Constraints)
	targetIndexes := emittableIndexes(target.Indexes, target.Constraints)

	targetByName := make(map[string]*ir.Index, len(targetIndexes))
	for _, idx := range targetIndexes {
		targetByName[idx.Name] = idx
	}
	sourceByName := make(map[string]*ir.Index, len(sourceIndexes))
	for _, idx := range sourceIndexes {
		sourceByName[idx.Name] = idx
	}

	for _, idx := range sourceIndexes {
		existing, ok := targetByName[idx.Name]
		switch {
		case !ok:
			w.WriteComment("index %q is missing from table %q", idx.Name, table)
			w.WriteStatement(BuildCreateIndex(idx, opts))
			w.noteCreate()
			w.BlankLine()
		case !indexesEqual(existing, idx):
			backup := opts.backupName(idx.Name)
			w.WriteComment("index %q on table %q differs; the current index is renamed to %q before the new one is created", idx.Name, table, backup)
			w.WriteStatement(fmt.Sprintf("ALTER INDEX %s RENAME TO %s;",
				util.QualifyName(opts.TargetSchema, idx.Name), util.QuoteIdentifier(backup)))
			w.WriteStatement(BuildCreateIndex(idx, opts))
			w.WriteTODO("manually drop index %q after confirming the replacement", backup)
			w.noteUpdate()
			w.BlankLine()
		}
	}

	for _, idx := range targetIndexes {
		if _, ok := sourceByName[idx.Name]; ok {
			continue
		}
		backup := opts.droppedName(idx.Name)
		w.WriteComment("index %q of table %q exists only in the target schema", idx.Name, table)
		w.WriteStatement(fmt.Sprintf("ALTER INDEX %s RENAME TO %s;",
			util.QualifyName(opts.TargetSchema, idx.Name), util.QuoteIdentifier(backup)))
		w.WriteTODO("manually drop index %q after confirming it is unused", backup)
		w.noteDrop()
		w.BlankLine()
	}
}
