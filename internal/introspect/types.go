package introspect

// TableRow is one row from the table listing query.
type TableRow struct {
	Name    string
	Comment *string
}

// ColumnRow is one row from the column listing query. Optional catalog
// fields come back as nil pointers rather than zero values so the converter
// can tell "absent" from "empty".
type ColumnRow struct {
	Name                 string
	Ordinal              int
	DataType             string
	Nullable             bool
	Default              *string
	MaxLength            *int
	Precision            *int
	Scale                *int
	IsIdentity           bool
	IdentityGeneration   *string
	IsGenerated          bool
	GenerationExpression *string
	Comment              *string
}

// ConstraintRow is one row from the constraint listing query. ColumnNames
// is comma-joined in key order; the converter splits it.
type ConstraintRow struct {
	Name              string
	Kind              string
	ColumnNames       string
	ForeignTable      *string
	ForeignColumn     *string
	OnDelete          *string
	OnUpdate          *string
	CheckClause       *string
	Deferrable        bool
	InitiallyDeferred bool
}

// IndexRow is one row from the index listing query. Definition is the full
// pg_get_indexdef text; column extraction happens later.
type IndexRow struct {
	Name       string
	TableName  string
	SchemaName string
	Definition string
	IsUnique   bool
	IsPrimary  bool
}

// SequenceRow is one row from the sequence listing query. Bounds are kept
// as their exact catalog text.
type SequenceRow struct {
	Name       string
	DataType   string
	StartValue string
	MinValue   string
	MaxValue   string
	Increment  string
	Cycle      bool
	Comment    *string
}

// FunctionRow is one row from the function listing query. Kind is the
// pg_proc.prokind letter: "f" for functions, "p" for procedures.
type FunctionRow struct {
	Name       string
	Kind       string
	Definition *string
	Comment    *string
}

// TriggerRow is one row from the trigger listing query.
type TriggerRow struct {
	Name            string
	TableName       string
	Event           string
	Timing          string
	ActionStatement string
	Condition       *string
	Definition      string
	Comment         *string
}
