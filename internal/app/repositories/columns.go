package repositories

import "strings"

// prefixed rewrites a comma-separated column list with a table alias,
// e.g. prefixed("id, name", "c.") => "c.id, c.name".
func prefixed(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
