package catalog

import "strings"

// CanonicalName trims, collapses inner whitespace and uppercases a catalog label.
func CanonicalName(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}
