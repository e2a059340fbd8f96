package diff

import (
	"fmt"

	"github.com/pgsync/pgsync/internal/ir"
	"github.com/pgsync/pgsync/internal/util"
)

// triggerKey matches triggers across schemas by owning table and name.
func triggerKey(t *ir.Trigger) string {
	return t.Table + ":" + t.Name
}

// triggersEqual compares the matching metadata and the reconstructed
// definition, schema qualifiers normalized out of the comparison.
func triggersEqual(old, new *ir.Trigger, opts Options) bool {
	if old.Event != new.Event || old.Timing != new.Timing {
		return false
	}
	if old.ActionStatement != new.ActionStatement {
		return false
	}
	if !stringPtrEqual(old.Condition, new.Condition) {
		return false
	}
	oldDef := RewriteSchemaQualifier(old.Definition, opts.TargetSchema, opts.SourceSchema)
	return oldDef == new.Definition
}

// DiffTriggers emits trigger operations. Trigger definitions are opaque
// pg_get_triggerdef text with schema qualifiers substituted.
func DiffTriggers(w *ScriptWriter, source, target []*ir.Trigger, opts Options) {
	targetByKey := make(map[string]*ir.Trigger, len(target))
	for _, t := range target {
		targetByKey[triggerKey(t)] = t
	}
	sourceByKey := make(map[string]*ir.Trigger, len(source))
	for _, t := range source {
		sourceByKey[triggerKey(t)] = t
	}

	for _, t := range source {
		existing, ok := targetByKey[triggerKey(t)]
		switch {
		case !ok:
			if t.Definition == "" {
				w.WriteTODO("definition of trigger %q on table %q could not be reconstructed; create it manually", t.Name, t.Table)
				w.BlankLine()
				continue
			}
			w.WriteComment("trigger %q on table %q is missing from the target schema", t.Name, t.Table)
			w.WriteStatement(terminate(RewriteSchemaQualifier(t.Definition, opts.SourceSchema, opts.TargetSchema)))
			w.noteCreate()
			w.BlankLine()
		case !triggersEqual(existing, t, opts):
			backup := opts.backupName(t.Name)
			w.WriteComment("trigger %q on table %q differs; the current trigger is renamed to %q before the new one is created", t.Name, t.Table, backup)
			w.WriteStatement(fmt.Sprintf("ALTER TRIGGER %s ON %s RENAME TO %s;",
				util.QuoteIdentifier(t.Name),
				util.QualifyName(opts.TargetSchema, t.Table),
				util.QuoteIdentifier(backup)))
			w.WriteStatement(terminate(RewriteSchemaQualifier(t.Definition, opts.SourceSchema, opts.TargetSchema)))
			w.WriteTODO("manually drop trigger %q after confirming the replacement", backup)
			w.noteUpdate()
			w.BlankLine()
		}
	}

	for _, t := range target {
		if _, ok := sourceByKey[triggerKey(t)]; ok {
			continue
		}
		backup := opts.droppedName(t.Name)
		w.WriteComment("trigger %q on table %q exists only in the target schema", t.Name, t.Table)
		w.WriteStatement(fmt.Sprintf("ALTER TRIGGER %s ON %s RENAME TO %s;",
			util.QuoteIdentifier(t.Name),
			util.QualifyName(opts.TargetSchema, t.Table),
			util.QuoteIdentifier(backup)))
		w.WriteTODO("manually drop trigger %q after confirming it is unused", backup)
		w.noteDrop()
		w.BlankLine()
	}
}
