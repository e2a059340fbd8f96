package diff

import (
	"fmt"
	"strings"

	"github.com/pgsync/pgsync/internal/ir"
	"github.com/pgsync/pgsync/internal/util"
)

// BuildColumnDef renders one column definition line for embedding in a
// CREATE TABLE body or an ADD COLUMN statement. No trailing semicolon.
func BuildColumnDef(col *ir.Column, opts Options) string {
	var b strings.Builder
	b.WriteString(util.QuoteIdentifier(col.Name))
	b.WriteString(" ")
	b.WriteString(columnType(col))

	switch {
	case col.IsGenerated:
		b.WriteString(" GENERATED ALWAYS AS (")
		b.WriteString(col.GenerationExpression)
		b.WriteString(") STORED")
	case col.IsIdentity:
		generation := col.IdentityGeneration
		if generation == "" {
			generation = "BY DEFAULT"
		}
		b.WriteString(fmt.Sprintf(" GENERATED %s AS IDENTITY", generation))
	}

	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}

	// Identity and generated columns carry no standalone DEFAULT.
	if col.Default != nil && !col.IsIdentity && !col.IsGenerated {
		def := RewriteSequenceDefault(*col.Default, opts.SourceSchema, opts.TargetSchema)
		b.WriteString(" DEFAULT ")
		b.WriteString(def)
	}

	return b.String()
}

// columnType renders the declared type with its length or precision/scale
// suffix when present. Built-in type names are uppercased; qualified or
// quoted names (enums, domains) keep their catalog spelling.
func columnType(col *ir.Column) string {
	t := col.DataType
	if !strings.ContainsAny(t, `."`) {
		t = strings.ToUpper(t)
	}
	if col.MaxLength != nil {
		return fmt.Sprintf("%s(%d)", t, *col.MaxLength)
	}
	if strings.EqualFold(col.DataType, "numeric") && col.Precision != nil {
		if col.Scale != nil && *col.Scale != 0 {
			return fmt.Sprintf("%s(%d,%d)", t, *col.Precision, *col.Scale)
		}
		return fmt.Sprintf("%s(%d)", t, *col.Precision)
	}
	return t
}

// columnsEqual compares two columns field by field. Ordinal position and
// comments are excluded: neither can be changed in place without a table
// rewrite, and flagging them would churn every reordered table.
func columnsEqual(old, new *ir.Column) bool {
	if old.Name != new.Name {
		return false
	}
	if old.DataType != new.DataType {
		return false
	}
	if old.Nullable != new.Nullable {
		return false
	}
	if !stringPtrEqual(old.Default, new.Default) {
		return false
	}
	if !intPtrEqual(old.MaxLength, new.MaxLength) {
		return false
	}
	if !intPtrEqual(old.Precision, new.Precision) {
		return false
	}
	if !intPtrEqual(old.Scale, new.Scale) {
		return false
	}
	if old.IsIdentity != new.IsIdentity || old.IdentityGeneration != new.IdentityGeneration {
		return false
	}
	if old.IsGenerated != new.IsGenerated || old.GenerationExpression != new.GenerationExpression {
		return false
	}
	return true
}

// diffColumns emits column operations for a table present in both schemas.
// source is the desired state, target the current one.
func diffColumns(w *ScriptWriter, table string, source, target []*ir.Column, opts Options) {
	targetByName := make(map[string]*ir.Column, len(target))
	for _, col := range target {
		targetByName[col.Name] = col
	}
	sourceByName := make(map[string]*ir.Column, len(source))
	for _, col := range source {
		sourceByName[col.Name] = col
	}

	qualifiedTable := util.QualifyName(opts.TargetSchema, table)

	for _, col := range source {
		existing, ok := targetByName[col.Name]
		switch {
		case !ok:
			w.WriteComment("column %q is missing from table %q", col.Name, table)
			w.WriteStatement(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;",
				qualifiedTable, BuildColumnDef(col, opts)))
			writeColumnComment(w, table, col, opts)
			w.noteCreate()
			w.BlankLine()
		case !columnsEqual(existing, col):
			backup := opts.backupName(col.Name)
			w.WriteComment("column %q of table %q differs; the current column is renamed to %q before the new definition is added", col.Name, table, backup)
			w.WriteStatement(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;",
				qualifiedTable, util.QuoteIdentifier(col.Name), util.QuoteIdentifier(backup)))
			w.WriteStatement(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;",
				qualifiedTable, BuildColumnDef(col, opts)))
			w.WriteTODO("migrate data from %q to %q and drop the backup column after confirming", backup, col.Name)
			w.noteUpdate()
			w.BlankLine()
		}
	}

	for _, col := range target {
		if _, ok := sourceByName[col.Name]; ok {
			continue
		}
		backup := opts.droppedName(col.Name)
		w.WriteComment("column %q of table %q exists only in the target schema", col.Name, table)
		w.WriteStatement(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;",
			qualifiedTable, util.QuoteIdentifier(col.Name), util.QuoteIdentifier(backup)))
		w.WriteTODO("manually drop column %q after confirming its data is not needed", backup)
		w.noteDrop()
		w.BlankLine()
	}
}

func writeColumnComment(w *ScriptWriter, table string, col *ir.Column, opts Options) {
	if col.Comment == nil || *col.Comment == "" {
		return
	}
	w.WriteStatement(fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s;",
		util.QualifyName(opts.TargetSchema, table),
		util.QuoteIdentifier(col.Name),
		util.QuoteLiteral(*col.Comment)))
}

func stringPtrEqual(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func intPtrEqual(a, b *int) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
