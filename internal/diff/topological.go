package diff

import (
	"sort"

	"github.com/pgsync/pgsync/internal/ir"
)

// SortTablesByDependencies orders tables so that a table referenced by a
// foreign key comes before the table referencing it. Kahn's algorithm with
// deterministic tie-breaking; a genuine cycle is broken by falling back to
// insertion order, and every table involved is reported so the caller can
// emit a warning comment. Cycles never cause non-termination.
func SortTablesByDependencies(tables []*ir.Table) ([]*ir.Table, []string) {
	if len(tables) <= 1 {
		return tables, nil
	}

	tableByName := make(map[string]*ir.Table, len(tables))
	var insertionOrder []string
	for _, t := range tables {
		tableByName[t.Name] = t
		insertionOrder = append(insertionOrder, t.Name)
	}

	inDegree := make(map[string]int, len(tables))
	adjacent := make(map[string][]string, len(tables))
	for name := range tableByName {
		inDegree[name] = 0
	}

	// Edge referenced -> referencing for every non-self foreign key.
	for name, t := range tableByName {
		for _, c := range t.Constraints {
			if c.Type != ir.ConstraintTypeForeignKey || c.Reference == nil {
				continue
			}
			ref := c.Reference.Table
			if ref == name {
				continue // self-references are handled in a post-pass
			}
			if _, ok := tableByName[ref]; !ok {
				continue
			}
			adjacent[ref] = append(adjacent[ref], name)
			inDegree[name]++
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var (
		result        []*ir.Table
		cycleBreaks   []string
		processed     = make(map[string]bool, len(tables))
	)
	for len(result) < len(tables) {
		if len(queue) == 0 {
			// Cycle: pick the next unprocessed table in insertion order.
			for _, name := range insertionOrder {
				if !processed[name] {
					queue = append(queue, name)
					cycleBreaks = append(cycleBreaks, name)
					break
				}
			}
		}

		name := queue[0]
		queue = queue[1:]
		if processed[name] {
			continue
		}
		processed[name] = true
		result = append(result, tableByName[name])

		var ready []string
		for _, next := range adjacent[name] {
			inDegree[next]--
			if inDegree[next] == 0 && !processed[next] {
				ready = append(ready, next)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	return result, cycleBreaks
}

// SelfReference pairs a deferred constraint with its owning table.
type SelfReference struct {
	Table      string
	Constraint *ir.Constraint
}

// ExtractSelfReferencingConstraints returns every foreign key that points
// back at its own table, in table order.
func ExtractSelfReferencingConstraints(tables []*ir.Table) []SelfReference {
	var refs []SelfReference
	for _, t := range tables {
		for _, c := range t.Constraints {
			if c.SelfReferencing(t.Name) {
				refs = append(refs, SelfReference{Table: t.Name, Constraint: c})
			}
		}
	}
	return refs
}

// ExtractOwnedSequences collects every table-owned sequence, deduplicated
// by name, for emission before any table is created.
func ExtractOwnedSequences(tables []*ir.Table) []*ir.Sequence {
	seen := make(map[string]bool)
	var out []*ir.Sequence
	for _, t := range tables {
		for _, seq := range t.Sequences {
			if seen[seq.Name] {
				continue
			}
			seen[seq.Name] = true
			out = append(out, seq)
		}
	}
	return out
}
