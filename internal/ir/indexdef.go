package ir

import (
	"strings"
)

// Helpers for picking apart pg_get_indexdef output, e.g.
//
//	CREATE UNIQUE INDEX users_email_idx ON public.users USING btree (lower(email), id) WHERE (deleted_at IS NULL)
//
// The column list may contain function calls with their own commas, so the
// scan tracks parenthesis depth and quote state instead of splitting naively.

// ExtractIndexColumns returns the top-level column entries of an index
// definition. Plain quoted identifiers are unquoted so callers see the bare
// column name; expressions keep their exact text.
func ExtractIndexColumns(indexDef string) []string {
	open := indexColumnListStart(indexDef)
	if open < 0 {
		return nil
	}

	var (
		columns  []string
		current  strings.Builder
		depth    int
		inQuote  rune // 0 when outside quotes, otherwise the active quote char
	)
	for _, r := range indexDef[open+1:] {
		if inQuote != 0 {
			current.WriteRune(r)
			if r == inQuote {
				inQuote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			inQuote = r
			current.WriteRune(r)
		case '(':
			depth++
			current.WriteRune(r)
		case ')':
			if depth == 0 {
				// closing paren of the column list
				if col := cleanIndexColumn(current.String()); col != "" {
					columns = append(columns, col)
				}
				return columns
			}
			depth--
			current.WriteRune(r)
		case ',':
			if depth == 0 {
				if col := cleanIndexColumn(current.String()); col != "" {
					columns = append(columns, col)
				}
				current.Reset()
			} else {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}
	// unbalanced definition: return what was collected
	if col := cleanIndexColumn(current.String()); col != "" {
		columns = append(columns, col)
	}
	return columns
}

// cleanIndexColumn trims an extracted entry and, when the whole entry is one
// double-quoted identifier, unquotes it. pg_get_indexdef quotes reserved and
// mixed-case column names, and keeping the quotes would make the entry look
// like part of the name.
func cleanIndexColumn(entry string) string {
	entry = strings.TrimSpace(entry)
	if len(entry) < 2 || entry[0] != '"' || entry[len(entry)-1] != '"' {
		return entry
	}
	inner := entry[1 : len(entry)-1]
	var name strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '"' {
			if i+1 >= len(inner) || inner[i+1] != '"' {
				// interior quote that is not an escape: not a plain identifier
				return entry
			}
			i++
		}
		name.WriteByte(inner[i])
	}
	return name.String()
}

// indexColumnListStart finds the opening paren of the column list, which is
// the first top-level paren after the table reference (and after USING when
// present).
func indexColumnListStart(indexDef string) int {
	search := indexDef
	offset := 0
	if i := strings.Index(search, " USING "); i >= 0 {
		offset = i + len(" USING ")
		search = search[offset:]
	}
	j := strings.Index(search, "(")
	if j < 0 {
		return -1
	}
	return offset + j
}

// extractIndexMethod returns the access method named in the USING clause,
// or "" when the definition has none.
func extractIndexMethod(indexDef string) string {
	i := strings.Index(indexDef, " USING ")
	if i < 0 {
		return ""
	}
	rest := indexDef[i+len(" USING "):]
	j := strings.IndexAny(rest, " (")
	if j < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:j])
}

// extractIndexPredicate returns the partial-index predicate following the
// top-level WHERE keyword, without its wrapping parens.
func extractIndexPredicate(indexDef string) string {
	i := strings.LastIndex(indexDef, " WHERE ")
	if i < 0 {
		return ""
	}
	pred := strings.TrimSpace(indexDef[i+len(" WHERE "):])
	if strings.HasPrefix(pred, "(") && strings.HasSuffix(pred, ")") && balancedWithoutOuter(pred) {
		pred = strings.TrimSpace(pred[1 : len(pred)-1])
	}
	return pred
}

// balancedWithoutOuter reports whether the outermost parens of s wrap the
// whole string, i.e. stripping them leaves balanced text.
func balancedWithoutOuter(s string) bool {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}
