package plan

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// maxIdentifierLength is PostgreSQL's NAMEDATALEN-1 limit.
const maxIdentifierLength = 63

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]*$`)

// ValidationError is a pre-flight failure raised before any diff work
// begins. It carries enough context for the CLI layer to print an
// actionable message.
type ValidationError struct {
	Field            string
	Value            string
	Reason           string
	Suggestion       string
	AvailableSchemas []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid %s %q: %s", e.Field, e.Value, e.Reason)
	if e.Suggestion != "" {
		b.WriteString("; " + e.Suggestion)
	}
	if len(e.AvailableSchemas) > 0 {
		b.WriteString(" (available schemas: " + strings.Join(e.AvailableSchemas, ", ") + ")")
	}
	return b.String()
}

// validateSchemaName checks shape only; existence is checked against the
// database separately.
func validateSchemaName(field, name string) error {
	if name == "" {
		return &ValidationError{
			Field:      field,
			Value:      name,
			Reason:     "schema name is empty",
			Suggestion: "pass a schema name or set the corresponding flag",
		}
	}
	if len(name) > maxIdentifierLength {
		return &ValidationError{
			Field:  field,
			Value:  name,
			Reason: fmt.Sprintf("schema name exceeds %d characters", maxIdentifierLength),
		}
	}
	if !identifierRe.MatchString(name) {
		return &ValidationError{
			Field:      field,
			Value:      name,
			Reason:     "schema name is not a valid identifier",
			Suggestion: "use letters, digits, underscores and $, starting with a letter or underscore",
		}
	}
	return nil
}

// validate runs all pre-flight checks. The source schema must exist and
// hold at least one table; the target schema (sync mode) must exist but may
// be empty, since aligning a fresh schema is a normal first run.
func (p *Planner) validate(ctx context.Context) error {
	if err := validateSchemaName("source schema", p.source.SchemaName()); err != nil {
		return err
	}
	if err := p.checkSchemaExists(ctx, "source schema", p.source); err != nil {
		return err
	}

	tables, err := p.source.Tables(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables of source schema %q: %w", p.source.SchemaName(), err)
	}
	if len(tables) == 0 {
		return &ValidationError{
			Field:      "source schema",
			Value:      p.source.SchemaName(),
			Reason:     "schema contains no tables",
			Suggestion: "check the schema name and connection",
		}
	}

	if p.target != nil {
		if err := validateSchemaName("target schema", p.target.SchemaName()); err != nil {
			return err
		}
		if err := p.checkSchemaExists(ctx, "target schema", p.target); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) checkSchemaExists(ctx context.Context, field string, intr Introspector) error {
	exists, err := intr.SchemaExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check %s %q: %w", field, intr.SchemaName(), err)
	}
	if exists {
		return nil
	}
	available, err := intr.AvailableSchemas(ctx)
	if err != nil {
		available = nil
	}
	return &ValidationError{
		Field:            field,
		Value:            intr.SchemaName(),
		Reason:           "schema does not exist",
		AvailableSchemas: available,
	}
}
