// Package introspect reads schema structure from the PostgreSQL catalog
// views. It returns flat row records; normalization into comparable
// definitions happens in the ir package.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Service runs parameterized catalog queries against one schema of one
// database connection. It holds no state beyond the connection and the
// schema name, and never retries: a failed query is fatal for the run.
type Service struct {
	db     *sql.DB
	schema string
}

// NewService creates an introspection service for the given schema.
func NewService(db *sql.DB, schema string) *Service {
	if schema == "" {
		schema = "public"
	}
	return &Service{db: db, schema: schema}
}

// SchemaName returns the schema this service reads from.
func (s *Service) SchemaName() string {
	return s.schema
}

// SchemaExists reports whether the schema is present in the database.
func (s *Service) SchemaExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		s.schema).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check schema %q: %w", s.schema, err)
	}
	return exists, nil
}

// AvailableSchemas lists user-visible schemas, for validation error messages.
func (s *Service) AvailableSchemas(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema name: %w", err)
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

// Tables lists base tables in the schema with their comments.
func (s *Service) Tables(ctx context.Context) ([]TableRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.table_name,
		       obj_description(c.oid, 'pg_class')
		FROM information_schema.tables t
		LEFT JOIN pg_class c ON c.relname = t.table_name
		LEFT JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = t.table_schema
		WHERE t.table_schema = $1
		  AND t.table_type = 'BASE TABLE'
		ORDER BY t.table_name`, s.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables in %q: %w", s.schema, err)
	}
	defer rows.Close()

	var tables []TableRow
	for rows.Next() {
		var t TableRow
		var comment sql.NullString
		if err := rows.Scan(&t.Name, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		t.Comment = nullableString(comment)
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// Columns lists all columns of one table, ordered by ordinal position.
// data_type reports arrays as 'ARRAY' and enums and domains as
// 'USER-DEFINED', so those fall back to format_type for the real name.
func (s *Service) Columns(ctx context.Context, table string) ([]ColumnRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.column_name,
		       c.ordinal_position,
		       CASE WHEN c.data_type IN ('ARRAY', 'USER-DEFINED')
		            THEN format_type(a.atttypid, a.atttypmod)
		            ELSE c.data_type
		       END,
		       c.is_nullable = 'YES',
		       c.column_default,
		       c.character_maximum_length,
		       c.numeric_precision,
		       c.numeric_scale,
		       c.is_identity = 'YES',
		       c.identity_generation,
		       c.is_generated = 'ALWAYS',
		       c.generation_expression,
		       col_description(pgc.oid, c.ordinal_position)
		FROM information_schema.columns c
		JOIN pg_class pgc ON pgc.relname = c.table_name
		JOIN pg_namespace n ON n.oid = pgc.relnamespace AND n.nspname = c.table_schema
		JOIN pg_attribute a ON a.attrelid = pgc.oid AND a.attname = c.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, s.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %q.%q: %w", s.schema, table, err)
	}
	defer rows.Close()

	var columns []ColumnRow
	for rows.Next() {
		var (
			c                  ColumnRow
			def                sql.NullString
			maxLen, prec, scl  sql.NullInt64
			identityGen        sql.NullString
			generationExpr     sql.NullString
			comment            sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Ordinal, &c.DataType, &c.Nullable,
			&def, &maxLen, &prec, &scl,
			&c.IsIdentity, &identityGen, &c.IsGenerated, &generationExpr,
			&comment); err != nil {
			return nil, fmt.Errorf("failed to scan column row for %q: %w", table, err)
		}
		c.Default = nullableString(def)
		c.MaxLength = nullableInt(maxLen)
		c.Precision = nullableInt(prec)
		c.Scale = nullableInt(scl)
		c.IdentityGeneration = nullableString(identityGen)
		c.GenerationExpression = nullableString(generationExpr)
		c.Comment = nullableString(comment)
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

// Constraints lists all constraints of one table. Column lists come back as
// a single comma-joined string ordered by key position.
func (s *Service) Constraints(ctx context.Context, table string) ([]ConstraintRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tc.constraint_name,
		       tc.constraint_type,
		       COALESCE(cols.column_names, ''),
		       fk.foreign_table_name,
		       fk.foreign_column_name,
		       rc.delete_rule,
		       rc.update_rule,
		       cc.check_clause,
		       tc.is_deferrable = 'YES',
		       tc.initially_deferred = 'YES'
		FROM information_schema.table_constraints tc
		LEFT JOIN LATERAL (
			SELECT string_agg(kcu.column_name, ',' ORDER BY kcu.ordinal_position) AS column_names
			FROM information_schema.key_column_usage kcu
			WHERE kcu.constraint_schema = tc.constraint_schema
			  AND kcu.constraint_name = tc.constraint_name
		) cols ON true
		LEFT JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = tc.constraint_schema
			AND rc.constraint_name = tc.constraint_name
		LEFT JOIN LATERAL (
			SELECT ccu.table_name AS foreign_table_name,
			       ccu.column_name AS foreign_column_name
			FROM information_schema.constraint_column_usage ccu
			WHERE tc.constraint_type = 'FOREIGN KEY'
			  AND ccu.constraint_schema = tc.constraint_schema
			  AND ccu.constraint_name = tc.constraint_name
			LIMIT 1
		) fk ON true
		LEFT JOIN information_schema.check_constraints cc
			ON cc.constraint_schema = tc.constraint_schema
			AND cc.constraint_name = tc.constraint_name
		WHERE tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name`, s.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query constraints of %q.%q: %w", s.schema, table, err)
	}
	defer rows.Close()

	var constraints []ConstraintRow
	for rows.Next() {
		var (
			c                              ConstraintRow
			foreignTable, foreignColumn    sql.NullString
			deleteRule, updateRule, clause sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Kind, &c.ColumnNames,
			&foreignTable, &foreignColumn, &deleteRule, &updateRule, &clause,
			&c.Deferrable, &c.InitiallyDeferred); err != nil {
			return nil, fmt.Errorf("failed to scan constraint row for %q: %w", table, err)
		}
		c.ForeignTable = nullableString(foreignTable)
		c.ForeignColumn = nullableString(foreignColumn)
		c.OnDelete = nullableString(deleteRule)
		c.OnUpdate = nullableString(updateRule)
		c.CheckClause = nullableString(clause)
		if isSyntheticNotNullCheck(c) {
			continue
		}
		constraints = append(constraints, c)
	}
	return constraints, rows.Err()
}

// syntheticNotNullNameRe matches the constraint names PostgreSQL invents for
// NOT NULL columns in information_schema, e.g. "16487_3_not_null". The
// numbers embed the table OID, so they never line up across databases.
var syntheticNotNullNameRe = regexp.MustCompile(`^\d+(_\d+)+_not_null$`)

// bareNotNullClauseRe matches a check clause that is nothing but a single
// column IS NOT NULL test, with or without wrapping parens.
var bareNotNullClauseRe = regexp.MustCompile(`(?i)^\(*\s*("([^"]|"")+"|[a-zA-Z_][a-zA-Z0-9_$]*)\s+IS NOT NULL\s*\)*$`)

// isSyntheticNotNullCheck reports whether a CHECK row is one of the
// constraints information_schema synthesizes for plain NOT NULL columns.
// Those are already represented through column nullability, and their
// generated names would otherwise show up as differences on every run.
func isSyntheticNotNullCheck(c ConstraintRow) bool {
	if c.Kind != "CHECK" {
		return false
	}
	if syntheticNotNullNameRe.MatchString(c.Name) {
		return true
	}
	return c.CheckClause != nil && bareNotNullClauseRe.MatchString(strings.TrimSpace(*c.CheckClause))
}

// Indexes lists all indexes of one table with their reconstructed
// definitions from pg_get_indexdef.
func (s *Service) Indexes(ctx context.Context, table string) ([]IndexRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.relname,
		       t.relname,
		       n.nspname,
		       pg_get_indexdef(i.oid),
		       ix.indisunique,
		       ix.indisprimary
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = $1 AND t.relname = $2
		ORDER BY i.relname`, s.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes of %q.%q: %w", s.schema, table, err)
	}
	defer rows.Close()

	var indexes []IndexRow
	for rows.Next() {
		var idx IndexRow
		if err := rows.Scan(&idx.Name, &idx.TableName, &idx.SchemaName,
			&idx.Definition, &idx.IsUnique, &idx.IsPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan index row for %q: %w", table, err)
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// Sequences lists all sequences in the schema. Numeric bounds are scanned
// as text so 64-bit values survive untouched.
func (s *Service) Sequences(ctx context.Context) ([]SequenceRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq.sequence_name,
		       seq.data_type,
		       seq.start_value::text,
		       seq.minimum_value::text,
		       seq.maximum_value::text,
		       seq.increment::text,
		       seq.cycle_option = 'YES',
		       obj_description(c.oid, 'pg_class')
		FROM information_schema.sequences seq
		LEFT JOIN pg_class c ON c.relname = seq.sequence_name AND c.relkind = 'S'
		LEFT JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = seq.sequence_schema
		WHERE seq.sequence_schema = $1
		ORDER BY seq.sequence_name`, s.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query sequences in %q: %w", s.schema, err)
	}
	defer rows.Close()

	var sequences []SequenceRow
	for rows.Next() {
		var seq SequenceRow
		var comment sql.NullString
		if err := rows.Scan(&seq.Name, &seq.DataType, &seq.StartValue,
			&seq.MinValue, &seq.MaxValue, &seq.Increment, &seq.Cycle, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan sequence row: %w", err)
		}
		seq.Comment = nullableString(comment)
		sequences = append(sequences, seq)
	}
	return sequences, rows.Err()
}

// Functions lists functions and procedures with their full definitions from
// pg_get_functiondef. Aggregates are excluded since their definitions cannot
// be reconstructed that way.
func (s *Service) Functions(ctx context.Context) ([]FunctionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.proname,
		       p.prokind::text,
		       pg_get_functiondef(p.oid),
		       obj_description(p.oid, 'pg_proc')
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = $1
		  AND p.prokind IN ('f', 'p')
		ORDER BY p.proname`, s.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query functions in %q: %w", s.schema, err)
	}
	defer rows.Close()

	var functions []FunctionRow
	for rows.Next() {
		var f FunctionRow
		var definition, comment sql.NullString
		if err := rows.Scan(&f.Name, &f.Kind, &definition, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan function row: %w", err)
		}
		f.Definition = nullableString(definition)
		f.Comment = nullableString(comment)
		functions = append(functions, f)
	}
	return functions, rows.Err()
}

// Triggers lists user triggers with both the event metadata from
// information_schema and the full definition from pg_get_triggerdef.
// Multi-event triggers come back as one row with events joined by " OR ".
func (s *Service) Triggers(ctx context.Context) ([]TriggerRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tg.trigger_name,
		       tg.event_object_table,
		       string_agg(tg.event_manipulation, ' OR ' ORDER BY tg.event_manipulation),
		       tg.action_timing,
		       tg.action_statement,
		       tg.action_condition
		FROM information_schema.triggers tg
		WHERE tg.trigger_schema = $1
		GROUP BY tg.trigger_name, tg.event_object_table, tg.action_timing,
		         tg.action_statement, tg.action_condition
		ORDER BY tg.event_object_table, tg.trigger_name`, s.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers in %q: %w", s.schema, err)
	}
	defer rows.Close()

	var triggers []TriggerRow
	for rows.Next() {
		var t TriggerRow
		var condition sql.NullString
		if err := rows.Scan(&t.Name, &t.TableName, &t.Event, &t.Timing,
			&t.ActionStatement, &condition); err != nil {
			return nil, fmt.Errorf("failed to scan trigger row: %w", err)
		}
		t.Condition = nullableString(condition)
		triggers = append(triggers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	defs, err := s.triggerDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range triggers {
		key := triggers[i].TableName + "." + triggers[i].Name
		if d, ok := defs[key]; ok {
			triggers[i].Definition = d.definition
			triggers[i].Comment = d.comment
		}
	}
	return triggers, nil
}

type triggerDef struct {
	definition string
	comment    *string
}

func (s *Service) triggerDefinitions(ctx context.Context) (map[string]triggerDef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.tgname,
		       c.relname,
		       pg_get_triggerdef(t.oid),
		       obj_description(t.oid, 'pg_trigger')
		FROM pg_trigger t
		JOIN pg_class c ON c.oid = t.tgrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND NOT t.tgisinternal`, s.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger definitions in %q: %w", s.schema, err)
	}
	defer rows.Close()

	defs := make(map[string]triggerDef)
	for rows.Next() {
		var name, table, definition string
		var comment sql.NullString
		if err := rows.Scan(&name, &table, &definition, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan trigger definition row: %w", err)
		}
		defs[table+"."+name] = triggerDef{definition: definition, comment: nullableString(comment)}
	}
	return defs, rows.Err()
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
