package plan

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pgsync/pgsync/internal/ir"
)

// tableFetchConcurrency bounds how many tables have their details fetched
// at once. Each table's columns, constraints and indexes are independent.
const tableFetchConcurrency = 8

// loadSchema takes a full snapshot of one schema and normalizes it. All
// fetches complete before the function returns, so diff engines never see a
// partially loaded pair.
func loadSchema(ctx context.Context, intr Introspector) (*ir.Schema, error) {
	schema := &ir.Schema{Name: intr.SchemaName()}

	tableRows, err := intr.Tables(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]*ir.Table, len(tableRows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tableFetchConcurrency)
	for i, row := range tableRows {
		g.Go(func() error {
			table, err := loadTable(gctx, intr, row.Name, row.Comment)
			if err != nil {
				return err
			}
			tables[i] = table
			return nil
		})
	}

	var (
		sequences []*ir.Sequence
		functions []*ir.Function
		triggers  []*ir.Trigger
	)
	g.Go(func() error {
		rows, err := intr.Sequences(gctx)
		if err != nil {
			return err
		}
		converted := make([]*ir.Sequence, 0, len(rows))
		for _, row := range rows {
			seq, err := ir.ConvertSequence(row, schema.Name)
			if err != nil {
				return err
			}
			converted = append(converted, seq)
		}
		sequences = converted
		return nil
	})
	g.Go(func() error {
		rows, err := intr.Functions(gctx)
		if err != nil {
			return err
		}
		converted := make([]*ir.Function, 0, len(rows))
		for _, row := range rows {
			fn, err := ir.ConvertFunction(row, schema.Name)
			if err != nil {
				return err
			}
			converted = append(converted, fn)
		}
		functions = converted
		return nil
	})
	g.Go(func() error {
		rows, err := intr.Triggers(gctx)
		if err != nil {
			return err
		}
		converted := make([]*ir.Trigger, 0, len(rows))
		for _, row := range rows {
			tg, err := ir.ConvertTrigger(row, schema.Name)
			if err != nil {
				return err
			}
			converted = append(converted, tg)
		}
		triggers = converted
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	schema.Tables = tables
	schema.Sequences = sequences
	schema.Functions = functions
	schema.Triggers = triggers
	attachOwnedSequences(schema)
	return schema, nil
}

// loadTable fetches and converts one table's columns, constraints and
// indexes.
func loadTable(ctx context.Context, intr Introspector, name string, comment *string) (*ir.Table, error) {
	table := &ir.Table{Name: name, Schema: intr.SchemaName(), Comment: comment}

	columnRows, err := intr.Columns(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, row := range columnRows {
		col, err := ir.ConvertColumn(row)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		table.Columns = append(table.Columns, col)
	}
	table.SortColumns()

	constraintRows, err := intr.Constraints(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, row := range constraintRows {
		c, err := ir.ConvertConstraint(row)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		table.Constraints = append(table.Constraints, c)
	}

	indexRows, err := intr.Indexes(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, row := range indexRows {
		idx, err := ir.ConvertIndex(row)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		table.Indexes = append(table.Indexes, idx)
	}

	return table, nil
}

var nextvalSequenceRe = regexp.MustCompile(`nextval\('(?:"?[^'".]+"?\.)?"?([^'".]+)"?'`)

// attachOwnedSequences links each schema sequence to the tables whose
// column defaults draw from it, so export mode can emit a table's sequences
// ahead of the table itself.
func attachOwnedSequences(schema *ir.Schema) {
	byName := make(map[string]*ir.Sequence, len(schema.Sequences))
	for _, seq := range schema.Sequences {
		byName[seq.Name] = seq
	}
	for _, table := range schema.Tables {
		for _, col := range table.Columns {
			if col.Default == nil || !strings.Contains(*col.Default, "nextval(") {
				continue
			}
			m := nextvalSequenceRe.FindStringSubmatch(*col.Default)
			if m == nil {
				continue
			}
			if seq, ok := byName[m[1]]; ok {
				table.Sequences = append(table.Sequences, seq)
			}
		}
	}
}
