package diff

import (
	"fmt"
	"strings"

	"github.com/pgsync/pgsync/internal/ir"
	"github.com/pgsync/pgsync/internal/util"
)

// PostgreSQL defaults for bigint sequences. Clauses matching these are
// omitted to keep generated scripts minimal.
const (
	defaultSequenceType      = "bigint"
	defaultSequenceStart     = "1"
	defaultSequenceIncrement = "1"
	defaultSequenceMin       = "1"
	defaultSequenceMax       = "9223372036854775807"
)

// BuildCreateSequence renders a CREATE SEQUENCE statement. The cycle clause
// is always stated explicitly so re-running the script is unambiguous.
func BuildCreateSequence(seq *ir.Sequence, opts Options) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s",
		util.QualifyName(opts.TargetSchema, seq.Name)))

	if seq.DataType != "" && seq.DataType != defaultSequenceType {
		parts = append(parts, "AS "+seq.DataType)
	}
	if seq.Increment != "" && seq.Increment != defaultSequenceIncrement {
		parts = append(parts, "INCREMENT BY "+seq.Increment)
	}
	if seq.MinValue != "" && seq.MinValue != defaultSequenceMin {
		parts = append(parts, "MINVALUE "+seq.MinValue)
	}
	if seq.MaxValue != "" && seq.MaxValue != defaultSequenceMax {
		parts = append(parts, "MAXVALUE "+seq.MaxValue)
	}
	if seq.StartValue != "" && seq.StartValue != defaultSequenceStart {
		parts = append(parts, "START WITH "+seq.StartValue)
	}
	if seq.Cycle {
		parts = append(parts, "CYCLE")
	} else {
		parts = append(parts, "NO CYCLE")
	}

	return strings.Join(parts, " ") + ";"
}

// sequencesEqual compares two sequences field by field.
func sequencesEqual(old, new *ir.Sequence) bool {
	if old.Name != new.Name || old.DataType != new.DataType {
		return false
	}
	if old.StartValue != new.StartValue || old.Increment != new.Increment {
		return false
	}
	if old.MinValue != new.MinValue || old.MaxValue != new.MaxValue {
		return false
	}
	return old.Cycle == new.Cycle
}

// DiffSequences emits sequence operations. A sequence present only in the
// target is never renamed or dropped automatically: its current value may
// still matter, so it is flagged as a manual-drop candidate instead.
func DiffSequences(w *ScriptWriter, source, target []*ir.Sequence, opts Options) {
	targetByName := make(map[string]*ir.Sequence, len(target))
	for _, seq := range target {
		targetByName[seq.Name] = seq
	}
	sourceByName := make(map[string]*ir.Sequence, len(source))
	for _, seq := range source {
		sourceByName[seq.Name] = seq
	}

	for _, seq := range source {
		existing, ok := targetByName[seq.Name]
		switch {
		case !ok:
			w.WriteComment("sequence %q is missing from the target schema", seq.Name)
			w.WriteStatement(BuildCreateSequence(seq, opts))
			writeSequenceComment(w, seq, opts)
			w.noteCreate()
			w.BlankLine()
		case !sequencesEqual(existing, seq):
			backup := opts.backupName(seq.Name)
			w.WriteComment("sequence %q differs; the current sequence is renamed to %q before the new one is created", seq.Name, backup)
			w.WriteStatement(fmt.Sprintf("ALTER SEQUENCE %s RENAME TO %s;",
				util.QualifyName(opts.TargetSchema, seq.Name), util.QuoteIdentifier(backup)))
			w.WriteStatement(BuildCreateSequence(seq, opts))
			w.WriteTODO("verify the replacement of sequence %q and drop %q after confirming", seq.Name, backup)
			w.noteUpdate()
			w.BlankLine()
		}
	}

	for _, seq := range target {
		if _, ok := sourceByName[seq.Name]; ok {
			continue
		}
		w.WriteComment("sequence %q exists only in the target schema", seq.Name)
		w.WriteTODO("manually rename or drop sequence %q after confirming nothing depends on it", seq.Name)
		w.noteDrop()
		w.BlankLine()
	}
}

func writeSequenceComment(w *ScriptWriter, seq *ir.Sequence, opts Options) {
	if seq.Comment == nil || *seq.Comment == "" {
		return
	}
	w.WriteStatement(fmt.Sprintf("COMMENT ON SEQUENCE %s IS %s;",
		util.QualifyName(opts.TargetSchema, seq.Name), util.QuoteLiteral(*seq.Comment)))
}
