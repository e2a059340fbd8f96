package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pgsync/pgsync/internal/ir"
	"github.com/pgsync/pgsync/internal/util"
)

// WriteCreateTable renders a full CREATE TABLE block: header comment, the
// table body with columns in ordinal order, the constraint block and the
// index block. NOT NULL constraints are folded into column definitions and
// self-referencing foreign keys are left to a later pass so the table
// exists before it references itself.
func WriteCreateTable(w *ScriptWriter, t *ir.Table, opts Options) {
	w.WriteComment("Table: %s", t.Name)

	t.SortColumns()
	var lines []string
	for _, col := range t.Columns {
		lines = append(lines, "  "+BuildColumnDef(col, opts))
	}

	w.WriteStatement(fmt.Sprintf("CREATE TABLE %s (\n%s\n);",
		util.QualifyName(opts.TargetSchema, t.Name), strings.Join(lines, ",\n")))

	if t.Comment != nil && *t.Comment != "" {
		w.WriteStatement(fmt.Sprintf("COMMENT ON TABLE %s IS %s;",
			util.QualifyName(opts.TargetSchema, t.Name), util.QuoteLiteral(*t.Comment)))
	}
	for _, col := range t.Columns {
		writeColumnComment(w, t.Name, col, opts)
	}

	for _, c := range tableConstraints(t) {
		w.WriteStatement(BuildAddConstraint(c, t.Name, opts))
	}

	for _, idx := range emittableIndexes(t.Indexes, t.Constraints) {
		w.WriteStatement(BuildCreateIndex(idx, opts))
	}
}

// tableConstraints returns the constraints to emit alongside CREATE TABLE,
// deduplicated by name, excluding NOT NULL and self-referencing foreign
// keys.
func tableConstraints(t *ir.Table) []*ir.Constraint {
	seen := make(map[string]bool)
	var out []*ir.Constraint
	for _, c := range t.Constraints {
		if c.Type == ir.ConstraintTypeNotNull || c.SelfReferencing(t.Name) {
			continue
		}
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out
}

// DiffTables emits table operations. Source tables are expected in
// dependency order (see SortTablesByDependencies); a table present in both
// schemas is diffed sub-entity by sub-entity, never dropped and recreated.
// The returned slice holds the tables that were created, for the
// self-referencing constraint post-pass.
func DiffTables(w *ScriptWriter, source, target []*ir.Table, opts Options) []*ir.Table {
	targetByName := make(map[string]*ir.Table, len(target))
	for _, t := range target {
		targetByName[t.Name] = t
	}
	sourceByName := make(map[string]*ir.Table, len(source))
	for _, t := range source {
		sourceByName[t.Name] = t
	}

	var created []*ir.Table
	for _, t := range source {
		existing, ok := targetByName[t.Name]
		if !ok {
			WriteCreateTable(w, t, opts)
			created = append(created, t)
			w.noteCreate()
			w.BlankLine()
			continue
		}
		diffColumns(w, t.Name, t.Columns, existing.Columns, opts)
		diffConstraints(w, t.Name, t.Constraints, existing.Constraints, opts)
		diffIndexes(w, t.Name, t, existing, opts)
	}

	dropped := make([]*ir.Table, 0)
	for _, t := range target {
		if _, ok := sourceByName[t.Name]; !ok {
			dropped = append(dropped, t)
		}
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i].Name < dropped[j].Name })

	for _, t := range dropped {
		backup := opts.droppedName(t.Name)
		w.WriteComment("table %q exists only in the target schema", t.Name)
		w.WriteStatement(fmt.Sprintf("ALTER TABLE %s RENAME TO %s;",
			util.QualifyName(opts.TargetSchema, t.Name), util.QuoteIdentifier(backup)))
		w.WriteTODO("manually drop table %q after confirming its data is not needed", backup)
		w.noteDrop()
		w.BlankLine()
	}

	return created
}

// WriteSelfReferencingConstraints emits the deferred self-referencing
// foreign keys of freshly created tables.
func WriteSelfReferencingConstraints(w *ScriptWriter, tables []*ir.Table, opts Options) {
	refs := ExtractSelfReferencingConstraints(tables)
	if len(refs) == 0 {
		return
	}
	for _, ref := range refs {
		w.WriteComment("self-referencing constraint %q deferred until table %q exists", ref.Constraint.Name, ref.Table)
		w.WriteStatement(BuildAddConstraint(ref.Constraint, ref.Table, opts))
		w.noteCreate()
		w.BlankLine()
	}
}
