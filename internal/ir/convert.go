package ir

import (
	"fmt"
	"strings"

	"github.com/pgsync/pgsync/internal/introspect"
)

// Converters turn raw introspection rows into normalized definitions. They
// are pure: no I/O, no mutation of their input. Optional fields map to nil
// or zero values; a structurally invalid row (empty name, bad ordinal) is
// the only thing that produces an error.

// ConvertColumn normalizes one column row.
func ConvertColumn(row introspect.ColumnRow) (*Column, error) {
	if row.Name == "" {
		return nil, fmt.Errorf("column row has empty name")
	}
	if row.Ordinal < 1 {
		return nil, fmt.Errorf("column %q has invalid ordinal position %d", row.Name, row.Ordinal)
	}

	col := &Column{
		Name:       row.Name,
		Ordinal:    row.Ordinal,
		DataType:   row.DataType,
		Nullable:   row.Nullable,
		Default:    row.Default,
		MaxLength:  row.MaxLength,
		Precision:  row.Precision,
		Scale:      row.Scale,
		IsIdentity: row.IsIdentity,
		Comment:    row.Comment,
	}
	if row.IdentityGeneration != nil {
		col.IdentityGeneration = *row.IdentityGeneration
	}
	if row.IsGenerated {
		col.IsGenerated = true
		if row.GenerationExpression != nil {
			col.GenerationExpression = *row.GenerationExpression
		}
	}
	return col, nil
}

// ConvertConstraint normalizes one constraint row. The comma-joined column
// list is split with surrounding whitespace trimmed. The foreign key
// reference is populated if and only if the row carries a foreign table.
func ConvertConstraint(row introspect.ConstraintRow) (*Constraint, error) {
	if row.Name == "" {
		return nil, fmt.Errorf("constraint row has empty name")
	}

	c := &Constraint{
		Name:              row.Name,
		Type:              ConstraintType(row.Kind),
		Columns:           splitColumnList(row.ColumnNames),
		CheckClause:       row.CheckClause,
		Deferrable:        row.Deferrable,
		InitiallyDeferred: row.InitiallyDeferred,
	}
	if row.ForeignTable != nil {
		ref := &ForeignKeyRef{Table: *row.ForeignTable}
		if row.ForeignColumn != nil {
			ref.Column = *row.ForeignColumn
		}
		c.Reference = ref
	}
	if row.OnDelete != nil {
		c.OnDelete = ReferentialAction(*row.OnDelete)
	}
	if row.OnUpdate != nil {
		c.OnUpdate = ReferentialAction(*row.OnUpdate)
	}
	return c, nil
}

// ConvertIndex normalizes one index row, extracting the column list, access
// method and partial predicate from the pg_get_indexdef text.
func ConvertIndex(row introspect.IndexRow) (*Index, error) {
	if row.Name == "" {
		return nil, fmt.Errorf("index row has empty name")
	}

	idx := &Index{
		Name:      row.Name,
		Table:     row.TableName,
		Schema:    row.SchemaName,
		IsUnique:  row.IsUnique,
		IsPrimary: row.IsPrimary,
		Method:    "btree",
	}
	if m := extractIndexMethod(row.Definition); m != "" {
		idx.Method = m
	}
	idx.Columns = ExtractIndexColumns(row.Definition)
	idx.Predicate = extractIndexPredicate(row.Definition)
	return idx, nil
}

// ConvertSequence normalizes one sequence row.
func ConvertSequence(row introspect.SequenceRow, schema string) (*Sequence, error) {
	if row.Name == "" {
		return nil, fmt.Errorf("sequence row has empty name")
	}
	return &Sequence{
		Name:       row.Name,
		Schema:     schema,
		DataType:   row.DataType,
		StartValue: row.StartValue,
		MinValue:   row.MinValue,
		MaxValue:   row.MaxValue,
		Increment:  row.Increment,
		Cycle:      row.Cycle,
		Comment:    row.Comment,
	}, nil
}

// ConvertTable normalizes one table row. Sub-entities are attached by the
// loader after their own conversions.
func ConvertTable(row introspect.TableRow, schema string) (*Table, error) {
	if row.Name == "" {
		return nil, fmt.Errorf("table row has empty name")
	}
	return &Table{
		Name:    row.Name,
		Schema:  schema,
		Comment: row.Comment,
	}, nil
}

// ConvertFunction normalizes one function row. A missing definition is kept
// as empty text; the builder downgrades it to a TODO comment rather than
// failing the run.
func ConvertFunction(row introspect.FunctionRow, schema string) (*Function, error) {
	if row.Name == "" {
		return nil, fmt.Errorf("function row has empty name")
	}
	f := &Function{
		Name:    row.Name,
		Schema:  schema,
		Kind:    row.Kind,
		Comment: row.Comment,
	}
	if row.Definition != nil {
		f.Definition = *row.Definition
	}
	return f, nil
}

// ConvertTrigger normalizes one trigger row.
func ConvertTrigger(row introspect.TriggerRow, schema string) (*Trigger, error) {
	if row.Name == "" {
		return nil, fmt.Errorf("trigger row has empty name")
	}
	if row.TableName == "" {
		return nil, fmt.Errorf("trigger %q has no owning table", row.Name)
	}
	return &Trigger{
		Name:            row.Name,
		Table:           row.TableName,
		Schema:          schema,
		Event:           row.Event,
		Timing:          row.Timing,
		ActionStatement: row.ActionStatement,
		Condition:       row.Condition,
		Definition:      row.Definition,
		Comment:         row.Comment,
	}, nil
}

// splitColumnList splits a comma-joined column list, trimming whitespace
// around each name. An empty input yields an empty list, not [""].
func splitColumnList(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
