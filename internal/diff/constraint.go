package diff

import (
	"fmt"
	"strings"

	"github.com/pgsync/pgsync/internal/ir"
	"github.com/pgsync/pgsync/internal/util"
)

// BuildAddConstraint renders an ALTER TABLE ... ADD CONSTRAINT statement,
// or a TODO comment line when the definition is too incomplete to generate
// safely. It never guesses a missing foreign key reference.
func BuildAddConstraint(c *ir.Constraint, table string, opts Options) string {
	prefix := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s",
		util.QualifyName(opts.TargetSchema, table), util.QuoteIdentifier(c.Name))

	switch c.Type {
	case ir.ConstraintTypePrimaryKey, ir.ConstraintTypeUnique:
		return fmt.Sprintf("%s %s (%s)%s;", prefix, c.Type, quoteColumnList(c.Columns), deferrableClause(c))

	case ir.ConstraintTypeForeignKey:
		if c.Reference == nil || c.Reference.Table == "" {
			return fmt.Sprintf("-- TODO: foreign key %q on table %q has no reference information; add it manually", c.Name, table)
		}
		var b strings.Builder
		b.WriteString(prefix)
		b.WriteString(fmt.Sprintf(" FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteColumnList(c.Columns),
			util.QualifyName(opts.TargetSchema, c.Reference.Table),
			util.QuoteIdentifier(c.Reference.Column)))
		if c.OnDelete != "" && c.OnDelete != ir.ActionNoAction {
			b.WriteString(" ON DELETE ")
			b.WriteString(string(c.OnDelete))
		}
		if c.OnUpdate != "" && c.OnUpdate != ir.ActionNoAction {
			b.WriteString(" ON UPDATE ")
			b.WriteString(string(c.OnUpdate))
		}
		b.WriteString(deferrableClause(c))
		b.WriteString(";")
		return b.String()

	case ir.ConstraintTypeCheck:
		clause := "/* condition unavailable */ true"
		if c.CheckClause != nil && *c.CheckClause != "" {
			clause = *c.CheckClause
		}
		return fmt.Sprintf("%s CHECK (%s);", prefix, strings.TrimSpace(clause))

	default:
		return fmt.Sprintf("-- TODO: Unsupported constraint type %q for constraint %q on table %q", c.Type, c.Name, table)
	}
}

// constraintsEqual compares two constraints field by field.
func constraintsEqual(old, new *ir.Constraint) bool {
	if old.Name != new.Name || old.Type != new.Type {
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
	if (old.Reference == nil) != (new.Reference == nil) {
		return false
	}
	if old.Reference != nil && *old.Reference != *new.Reference {
		return false
	}
	if old.OnDelete != new.OnDelete || old.OnUpdate != new.OnUpdate {
		return false
	}
	if !stringPtrEqual(old.CheckClause, new.CheckClause) {
		return false
	}
	if old.Deferrable != new.Deferrable || old.InitiallyDeferred != new.InitiallyDeferred {
		return false
	}
	return true
}

// diffConstraints emits constraint operations for a table present in both
// schemas. Constraints hold no data, so drops are direct rather than
// rename-then-flag.
func diffConstraints(w *ScriptWriter, table string, source, target []*ir.Constraint, opts Options) {
	targetByName := make(map[string]*ir.Constraint, len(target))
	for _, c := range target {
		targetByName[c.Name] = c
	}
	sourceByName := make(map[string]*ir.Constraint, len(source))
	for _, c := range source {
		sourceByName[c.Name] = c
	}

	qualifiedTable := util.QualifyName(opts.TargetSchema, table)

	for _, c := range source {
		if c.Type == ir.ConstraintTypeNotNull {
			continue // folded into the column's nullable flag
		}
		existing, ok := targetByName[c.Name]
		switch {
		case !ok:
			w.WriteComment("constraint %q is missing from table %q", c.Name, table)
			w.WriteStatement(BuildAddConstraint(c, table, opts))
			w.noteCreate()
			w.BlankLine()
		case !constraintsEqual(existing, c):
			backup := opts.backupName(c.Name)
			w.WriteComment("constraint %q on table %q differs; the current constraint is renamed to %q before the new definition is added", c.Name, table, backup)
			w.WriteStatement(fmt.Sprintf("ALTER TABLE %s RENAME CONSTRAINT %s TO %s;",
				qualifiedTable, util.QuoteIdentifier(c.Name), util.QuoteIdentifier(backup)))
			w.WriteStatement(BuildAddConstraint(c, table, opts))
			w.WriteTODO("manually drop constraint %q after confirming the replacement", backup)
			w.noteUpdate()
			w.BlankLine()
		}
	}

	for _, c := range target {
		if c.Type == ir.ConstraintTypeNotNull {
			continue
		}
		if _, ok := sourceByName[c.Name]; ok {
			continue
		}
		w.WriteComment("constraint %q of table %q exists only in the target schema", c.Name, table)
		w.WriteStatement(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;",
			qualifiedTable, util.QuoteIdentifier(c.Name)))
		w.noteDrop()
		w.BlankLine()
	}
}

func deferrableClause(c *ir.Constraint) string {
	if !c.Deferrable {
		return ""
	}
	if c.InitiallyDeferred {
		return " DEFERRABLE INITIALLY DEFERRED"
	}
	return " DEFERRABLE"
}

func quoteColumnList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = util.QuoteIdentifier(col)
	}
	return strings.Join(quoted, ", ")
}
