package env

import (
	"os"
	"strings"
)

const prefix = "MERCHDROP_"

// Get resolves key from the namespaced variable first (MERCHDROP_<key>), then
// the bare name, then fallback.
func Get(key, fallback string) string {
	key = strings.TrimPrefix(key, prefix)
	for _, name := range []string{prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
