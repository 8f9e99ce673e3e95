// Package enums holds the string-backed states persisted on orders, products
// and outbox rows.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parse matches raw case-insensitively against the known values of T.
func parse[T ~string](kind, raw string, known []T) (T, error) {
	want := strings.ToLower(strings.TrimSpace(raw))
	if i := slices.IndexFunc(known, func(v T) bool { return string(v) == want }); i >= 0 {
		return known[i], nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
