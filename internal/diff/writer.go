package diff

import (
	"fmt"
	"strings"
)

const bannerLine = "-- ============================================================"

// ScriptWriter accumulates the generated script. Every line is either a
// "--" comment or a terminated SQL statement; engines separate blocks with
// blank lines for readability.
type ScriptWriter struct {
	out     strings.Builder
	summary Summary
}

// NewScriptWriter creates an empty script writer.
func NewScriptWriter() *ScriptWriter {
	return &ScriptWriter{}
}

// WriteBanner writes a labeled section banner.
func (w *ScriptWriter) WriteBanner(title string) {
	w.out.WriteString(bannerLine + "\n")
	w.out.WriteString("-- " + title + "\n")
	w.out.WriteString(bannerLine + "\n\n")
}

// WriteComment writes a single "--" comment line.
func (w *ScriptWriter) WriteComment(format string, args ...any) {
	w.out.WriteString("-- " + fmt.Sprintf(format, args...) + "\n")
}

// WriteTODO writes a manual-review marker and counts it in the summary.
func (w *ScriptWriter) WriteTODO(format string, args ...any) {
	w.out.WriteString("-- TODO: " + fmt.Sprintf(format, args...) + "\n")
	w.summary.Manual++
}

// WriteStatement writes one terminated SQL statement.
func (w *ScriptWriter) WriteStatement(stmt string) {
	w.out.WriteString(stmt)
	if !strings.HasSuffix(stmt, "\n") {
		w.out.WriteString("\n")
	}
}

// BlankLine separates blocks.
func (w *ScriptWriter) BlankLine() {
	w.out.WriteString("\n")
}

// Len returns the number of bytes written so far.
func (w *ScriptWriter) Len() int {
	return w.out.Len()
}

// Summary returns the operation counts accumulated so far.
func (w *ScriptWriter) Summary() Summary {
	return w.summary
}

// String returns the script text.
func (w *ScriptWriter) String() string {
	return w.out.String()
}

func (w *ScriptWriter) noteCreate() { w.summary.Created++ }
func (w *ScriptWriter) noteDrop()   { w.summary.Dropped++ }
func (w *ScriptWriter) noteUpdate() { w.summary.Updated++ }
