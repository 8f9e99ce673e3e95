package variants

import (
	"sort"
	"strings"

	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
)

var canonicalSizes = []string{"XXS", "XS", "S", "M", "L", "XL", "2XL", "3XL", "4XL", "5XL"}

var sizeAliases = map[string]string{
	"2XS":     "XXS",
	"XXL":     "2XL",
	"XXXL":    "3XL",
	"XXXXL":   "4XL",
	"XXXXXL":  "5XL",
	"SMALL":   "S",
	"MEDIUM":  "M",
	"LARGE":   "L",
	"X-LARGE": "XL",
}

var sizeRank = func() map[string]int {
	ranks := make(map[string]int, len(canonicalSizes))
	for i, size := range canonicalSizes {
		ranks[size] = i
	}
	return ranks
}()

// Options is the selector data for one product: colors in first-seen order,
// sizes small to large, and every variant by canonical key.
type Options struct {
	Colors []string
	Sizes  []string
	ByKey  map[string]models.Variant
}

// Lookup returns the variant for a size/color pair.
func (o Options) Lookup(size, color string) (models.Variant, bool) {
	v, ok := o.ByKey[Key(size, color)]
	return v, ok
}

// Organize builds selector data from a product's variant rows. When two rows
// share a canonical key the first one wins.
func Organize(rows []models.Variant) Options {
	out := Options{ByKey: make(map[string]models.Variant, len(rows))}
	seenColor := map[string]bool{}
	seenSize := map[string]bool{}

	for _, row := range rows {
		size := fallback(row.Size, DefaultSize)
		color := fallback(row.Color, DefaultColor)
		if !seenColor[color] {
			seenColor[color] = true
			out.Colors = append(out.Colors, color)
		}
		if !seenSize[size] {
			seenSize[size] = true
			out.Sizes = append(out.Sizes, size)
		}
		key := Key(size, color)
		if _, exists := out.ByKey[key]; !exists {
			out.ByKey[key] = row
		}
	}

	SortSizes(out.Sizes)
	return out
}

// SortSizes orders sizes XXS..5XL, then unknown sizes alphabetically.
func SortSizes(sizes []string) {
	sort.SliceStable(sizes, func(i, j int) bool {
		ri, iKnown := rankOf(sizes[i])
		rj, jKnown := rankOf(sizes[j])
		switch {
		case iKnown && jKnown:
			if ri != rj {
				return ri < rj
			}
			return sizes[i] < sizes[j]
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return strings.ToLower(sizes[i]) < strings.ToLower(sizes[j])
		}
	})
}

func rankOf(size string) (int, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(size))
	if alias, ok := sizeAliases[normalized]; ok {
		normalized = alias
	}
	rank, ok := sizeRank[normalized]
	return rank, ok
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
