// Package diff compares normalized schema definitions and synthesizes the
// DDL that transforms the target schema's structure into the source's.
// Destructive operations are never emitted directly: objects that would be
// dropped are renamed with a timestamped suffix and flagged for manual
// review. Constraints are the one exception since they hold no data.
package diff

import (
	"fmt"
	"time"
)

// Options carries the comparison context shared by every engine.
type Options struct {
	// SourceSchema is the schema whose structure is the desired state.
	SourceSchema string
	// TargetSchema is the schema the generated script will be applied to.
	TargetSchema string
	// Now supplies the wall clock for backup-name suffixes. Tests inject a
	// fixed clock; production leaves it nil and gets time.Now.
	Now func() time.Time
}

func (o Options) timestamp() int64 {
	if o.Now != nil {
		return o.Now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

// droppedName returns the backup name for an object leaving the schema.
func (o Options) droppedName(name string) string {
	return fmt.Sprintf("%s_dropped_%d", name, o.timestamp())
}

// backupName returns the backup name for an object being replaced.
func (o Options) backupName(name string) string {
	return fmt.Sprintf("%s_old_%d", name, o.timestamp())
}

// Summary counts what a run generated, for the post-run report.
type Summary struct {
	Created int
	Dropped int
	Updated int
	Manual  int // TODO markers requiring human follow-up
}

// Add accumulates another summary into this one.
func (s *Summary) Add(other Summary) {
	s.Created += other.Created
	s.Dropped += other.Dropped
	s.Updated += other.Updated
	s.Manual += other.Manual
}
