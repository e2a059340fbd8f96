// Package plan orchestrates a comparison run: it owns the two
// introspection collaborators, sequences the per-entity diff engines in
// dependency-safe phase order and assembles the final script artifacts.
package plan

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgsync/pgsync/internal/diff"
	"github.com/pgsync/pgsync/internal/ir"
	"github.com/pgsync/pgsync/internal/introspect"
	"github.com/pgsync/pgsync/internal/logger"
	"github.com/pgsync/pgsync/internal/version"
)

// Introspector is the read-only catalog surface the planner needs from each
// schema. internal/introspect.Service satisfies it; tests supply fakes.
type Introspector interface {
	SchemaName() string
	SchemaExists(ctx context.Context) (bool, error)
	AvailableSchemas(ctx context.Context) ([]string, error)
	Tables(ctx context.Context) ([]introspect.TableRow, error)
	Columns(ctx context.Context, table string) ([]introspect.ColumnRow, error)
	Constraints(ctx context.Context, table string) ([]introspect.ConstraintRow, error)
	Indexes(ctx context.Context, table string) ([]introspect.IndexRow, error)
	Sequences(ctx context.Context) ([]introspect.SequenceRow, error)
	Functions(ctx context.Context) ([]introspect.FunctionRow, error)
	Triggers(ctx context.Context) ([]introspect.TriggerRow, error)
}

// Config controls which parts of the script a run produces. The three
// only-flags filter output; they are never combined destructively.
type Config struct {
	SchemaOnly   bool
	ProcsOnly    bool
	TriggersOnly bool
	// Now supplies timestamps for script headers and backup-name suffixes.
	// Nil means time.Now.
	Now func() time.Time
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Artifact is one named output script.
type Artifact struct {
	Name    string
	Content string
}

// Result is the outcome of a run: the ordered artifacts plus operation
// counts for the post-run summary.
type Result struct {
	Artifacts []Artifact
	Summary   diff.Summary
}

// Planner runs one comparison. A nil target means export mode: the source
// schema is rendered as a full creation script.
type Planner struct {
	source Introspector
	target Introspector
	cfg    Config
}

// NewSync creates a planner that diffs source against target and produces
// a single alter script.
func NewSync(source, target Introspector, cfg Config) *Planner {
	return &Planner{source: source, target: target, cfg: cfg}
}

// NewExport creates a planner that renders the source schema as creation
// scripts split by object kind.
func NewExport(source Introspector, cfg Config) *Planner {
	return &Planner{source: source, cfg: cfg}
}

// Execute runs validation, takes a fresh snapshot of both schemas and
// generates the script artifacts. Introspection failures are fatal; gaps in
// individual definitions degrade to TODO comments inside the script.
func (p *Planner) Execute(ctx context.Context) (*Result, error) {
	log := logger.Get()

	if err := p.validate(ctx); err != nil {
		return nil, err
	}

	var sourceSchema, targetSchema *ir.Schema
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := loadSchema(gctx, p.source)
		if err != nil {
			return fmt.Errorf("failed to load source schema %q: %w", p.source.SchemaName(), err)
		}
		sourceSchema = s
		return nil
	})
	if p.target != nil {
		g.Go(func() error {
			s, err := loadSchema(gctx, p.target)
			if err != nil {
				return fmt.Errorf("failed to load target schema %q: %w", p.target.SchemaName(), err)
			}
			targetSchema = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug("schemas loaded",
		"source", sourceSchema.Name,
		"source_tables", len(sourceSchema.Tables))

	if p.target == nil {
		return p.export(sourceSchema)
	}
	return p.sync(sourceSchema, targetSchema)
}

// sync produces the single alter.sql artifact for the two-schema mode.
func (p *Planner) sync(source, target *ir.Schema) (*Result, error) {
	opts := diff.Options{
		SourceSchema: source.Name,
		TargetSchema: target.Name,
		Now:          p.cfg.Now,
	}

	w := diff.NewScriptWriter()
	p.writeHeader(w, fmt.Sprintf("SCHEMA SYNCHRONIZATION: %s -> %s", source.Name, target.Name))

	includeSchema := !p.cfg.ProcsOnly && !p.cfg.TriggersOnly
	includeProcs := !p.cfg.SchemaOnly && !p.cfg.TriggersOnly
	includeTriggers := !p.cfg.SchemaOnly && !p.cfg.ProcsOnly

	if includeSchema {
		sorted, cycles := diff.SortTablesByDependencies(source.Tables)

		w.WriteBanner("SEQUENCES")
		diff.DiffSequences(w, sequencesInEmitOrder(source, sorted), target.Sequences, opts)

		w.WriteBanner("TABLES")
		writeCycleWarnings(w, cycles)
		created := diff.DiffTables(w, sorted, target.Tables, opts)

		if refs := diff.ExtractSelfReferencingConstraints(created); len(refs) > 0 {
			w.WriteBanner("SELF-REFERENCING CONSTRAINTS")
			diff.WriteSelfReferencingConstraints(w, created, opts)
		}
	}
	if includeProcs {
		w.WriteBanner("FUNCTIONS")
		diff.DiffFunctions(w, source.Functions, target.Functions, opts)
	}
	if includeTriggers {
		w.WriteBanner("TRIGGERS")
		diff.DiffTriggers(w, source.Triggers, target.Triggers, opts)
	}

	p.writeFooter(w)
	return &Result{
		Artifacts: []Artifact{{Name: "alter.sql", Content: w.String()}},
		Summary:   w.Summary(),
	}, nil
}

// export renders the source schema against an empty target, split into
// schema.sql, procs.sql and triggers.sql artifacts.
func (p *Planner) export(source *ir.Schema) (*Result, error) {
	opts := diff.Options{
		SourceSchema: source.Name,
		TargetSchema: source.Name,
		Now:          p.cfg.Now,
	}

	result := &Result{}

	if !p.cfg.ProcsOnly && !p.cfg.TriggersOnly {
		w := diff.NewScriptWriter()
		p.writeHeader(w, fmt.Sprintf("SCHEMA CREATION: %s", source.Name))

		sorted, cycles := diff.SortTablesByDependencies(source.Tables)

		w.WriteBanner("SEQUENCES")
		diff.DiffSequences(w, sequencesInEmitOrder(source, sorted), nil, opts)

		w.WriteBanner("TABLES")
		writeCycleWarnings(w, cycles)
		created := diff.DiffTables(w, sorted, nil, opts)

		if refs := diff.ExtractSelfReferencingConstraints(created); len(refs) > 0 {
			w.WriteBanner("SELF-REFERENCING CONSTRAINTS")
			diff.WriteSelfReferencingConstraints(w, created, opts)
		}

		p.writeFooter(w)
		result.Artifacts = append(result.Artifacts, Artifact{Name: "schema.sql", Content: w.String()})
		result.Summary.Add(w.Summary())
	}

	if !p.cfg.SchemaOnly && !p.cfg.TriggersOnly {
		w := diff.NewScriptWriter()
		p.writeHeader(w, fmt.Sprintf("FUNCTIONS AND PROCEDURES: %s", source.Name))
		diff.DiffFunctions(w, source.Functions, nil, opts)
		p.writeFooter(w)
		result.Artifacts = append(result.Artifacts, Artifact{Name: "procs.sql", Content: w.String()})
		result.Summary.Add(w.Summary())
	}

	if !p.cfg.SchemaOnly && !p.cfg.ProcsOnly {
		w := diff.NewScriptWriter()
		p.writeHeader(w, fmt.Sprintf("TRIGGERS: %s", source.Name))
		diff.DiffTriggers(w, source.Triggers, nil, opts)
		p.writeFooter(w)
		result.Artifacts = append(result.Artifacts, Artifact{Name: "triggers.sql", Content: w.String()})
		result.Summary.Add(w.Summary())
	}

	return result, nil
}

func (p *Planner) writeHeader(w *diff.ScriptWriter, title string) {
	w.WriteBanner(title)
	w.WriteComment("Generated by pgsync v%s on %s", version.Version(), p.cfg.now().Format(time.RFC3339))
	w.WriteComment("Review every TODO marker before applying this script.")
	w.BlankLine()
}

func (p *Planner) writeFooter(w *diff.ScriptWriter) {
	w.WriteBanner("END OF SCRIPT")
}

// sequencesInEmitOrder orders the schema's sequences so that table-owned
// ones come first, following the table dependency order, with the remaining
// standalone sequences appended. Tables then never draw from a sequence the
// script has not created yet.
func sequencesInEmitOrder(source *ir.Schema, tables []*ir.Table) []*ir.Sequence {
	out := diff.ExtractOwnedSequences(tables)
	seen := make(map[string]bool, len(out))
	for _, seq := range out {
		seen[seq.Name] = true
	}
	for _, seq := range source.Sequences {
		if !seen[seq.Name] {
			out = append(out, seq)
		}
	}
	return out
}

func writeCycleWarnings(w *diff.ScriptWriter, cycles []string) {
	for _, table := range cycles {
		w.WriteComment("circular foreign key dependency involving table %q; constraint ordering may need manual adjustment", table)
	}
	if len(cycles) > 0 {
		w.BlankLine()
	}
}
