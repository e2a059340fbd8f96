// Package ir holds the normalized, in-memory representation of schema
// entities. Definitions are derived fresh from an introspection snapshot on
// every run, are read-only once built, and carry exactly the structure the
// diff engines compare field by field.
package ir

import "sort"

// ConstraintType classifies a table constraint.
type ConstraintType string

const (
	ConstraintTypePrimaryKey ConstraintType = "PRIMARY KEY"
	ConstraintTypeForeignKey ConstraintType = "FOREIGN KEY"
	ConstraintTypeUnique     ConstraintType = "UNIQUE"
	ConstraintTypeCheck      ConstraintType = "CHECK"
	ConstraintTypeNotNull    ConstraintType = "NOT NULL"
)

// ReferentialAction is a foreign key ON DELETE / ON UPDATE rule.
type ReferentialAction string

const (
	ActionCascade    ReferentialAction = "CASCADE"
	ActionSetNull    ReferentialAction = "SET NULL"
	ActionSetDefault ReferentialAction = "SET DEFAULT"
	ActionRestrict   ReferentialAction = "RESTRICT"
	ActionNoAction   ReferentialAction = "NO ACTION"
)

// Column is a normalized table column.
type Column struct {
	Name                 string
	Ordinal              int
	DataType             string
	Nullable             bool
	Default              *string
	MaxLength            *int
	Precision            *int
	Scale                *int
	IsIdentity           bool
	IdentityGeneration   string // "ALWAYS", "BY DEFAULT" or ""
	IsGenerated          bool
	GenerationExpression string
	Comment              *string
}

// ForeignKeyRef is the referenced side of a foreign key constraint.
type ForeignKeyRef struct {
	Table  string
	Column string
}

// Constraint is a normalized table constraint.
type Constraint struct {
	Name              string
	Type              ConstraintType
	Columns           []string
	Reference         *ForeignKeyRef
	OnDelete          ReferentialAction
	OnUpdate          ReferentialAction
	CheckClause       *string
	Deferrable        bool
	InitiallyDeferred bool
}

// SelfReferencing reports whether the constraint is a foreign key pointing
// back at its own table.
func (c *Constraint) SelfReferencing(owningTable string) bool {
	return c.Type == ConstraintTypeForeignKey && c.Reference != nil && c.Reference.Table == owningTable
}

// Index is a normalized index. Columns holds either bare identifiers or
// opaque expression strings taken from pg_get_indexdef.
type Index struct {
	Name      string
	Table     string
	Schema    string
	Columns   []string
	IsUnique  bool
	IsPrimary bool
	Method    string // access method, "btree" when unspecified
	Predicate string // partial index WHERE clause, "" when absent
}

// Sequence is a normalized sequence. Bounds stay as exact catalog text so
// 64-bit values round-trip without loss.
type Sequence struct {
	Name       string
	Schema     string
	DataType   string
	StartValue string
	MinValue   string
	MaxValue   string
	Increment  string
	Cycle      bool
	Comment    *string
}

// Table is a normalized table with its owned sub-entities.
type Table struct {
	Name        string
	Schema      string
	Columns     []*Column
	Constraints []*Constraint
	Indexes     []*Index
	Sequences   []*Sequence // sequences feeding this table's column defaults
	Comment     *string
}

// SortColumns orders the table's columns by ordinal position. Rendering
// always calls this first so introspection return order never leaks into
// the generated DDL.
func (t *Table) SortColumns() {
	sort.SliceStable(t.Columns, func(i, j int) bool {
		return t.Columns[i].Ordinal < t.Columns[j].Ordinal
	})
}

// Function is a normalized function or procedure. The definition is opaque
// text from pg_get_functiondef; only name and kind participate in matching.
type Function struct {
	Name       string
	Schema     string
	Kind       string // "f" function, "p" procedure
	Definition string // "" when the database could not reconstruct it
	Comment    *string
}

// Trigger is a normalized trigger. The definition is opaque text from
// pg_get_triggerdef; event, timing and table participate in matching.
type Trigger struct {
	Name            string
	Table           string
	Schema          string
	Event           string
	Timing          string
	ActionStatement string
	Condition       *string
	Definition      string
	Comment         *string
}

// Schema is one side of a comparison: every normalized entity of a named
// schema, fetched in a single snapshot.
type Schema struct {
	Name      string
	Tables    []*Table
	Sequences []*Sequence
	Functions []*Function
	Triggers  []*Trigger
}

// Table returns the named table, or nil when absent.
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}
