package catalog

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases value and collapses every run of non-alphanumerics into
// a single hyphen.
func Slugify(value string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(value), "-")
	return strings.Trim(slug, "-")
}

func collisionSuffix(externalID string) string {
	suffix := Slugify(externalID)
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return suffix
}
