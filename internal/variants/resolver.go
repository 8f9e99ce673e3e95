package variants

import (
	"regexp"
	"strings"

	"github.com/angelmondragon/merchdrop-backend/pkg/printify"
)

const (
	DefaultSize  = "One Size"
	DefaultColor = "Default"
)

var (
	sizeNameRe  = regexp.MustCompile(`(?i)size`)
	colorNameRe = regexp.MustCompile(`(?i)colou?r`)
)

// Resolved is the canonical reading of a provider variant. Size and Color are
// never empty.
type Resolved struct {
	Size         string
	Color        string
	OptionValues map[string]string
}

// Key returns the canonical lookup key for the pair.
func (r Resolved) Key() string {
	return Key(r.Size, r.Color)
}

// Partial is what a single strategy managed to resolve.
type Partial struct {
	Size         string
	Color        string
	OptionValues map[string]string
}

func (p Partial) complete() bool {
	return p.Size != "" && p.Color != ""
}

// Strategy resolves as much of a variant as it can. ok reports whether both
// size and color were found.
type Strategy func(v printify.Variant, schema []printify.Option) (Partial, bool)

// Strategies are tried in this order; later strategies only fill gaps.
var Strategies = []Strategy{ResolveStructured, ResolvePositional, ResolveTitle}

// Key builds the "{size}|{color}" lookup key.
func Key(size, color string) string {
	return size + "|" + color
}

// Resolve runs every strategy until size and color are known, then applies
// the "One Size" / "Default" fallbacks.
func Resolve(v printify.Variant, schema []printify.Option) Resolved {
	out := Resolved{OptionValues: map[string]string{}}
	for _, strategy := range Strategies {
		partial, _ := strategy(v, schema)
		if out.Size == "" {
			out.Size = partial.Size
		}
		if out.Color == "" {
			out.Color = partial.Color
		}
		for name, value := range partial.OptionValues {
			if _, exists := out.OptionValues[name]; !exists {
				out.OptionValues[name] = value
			}
		}
		if out.Size != "" && out.Color != "" {
			break
		}
	}
	if out.Size == "" {
		out.Size = DefaultSize
	}
	if out.Color == "" {
		out.Color = DefaultColor
	}
	return out
}

// ResolveStructured looks every selected option id up in the schema.
func ResolveStructured(v printify.Variant, schema []printify.Option) (Partial, bool) {
	type entry struct {
		group string
		title string
	}
	lookup := map[int]entry{}
	for _, group := range schema {
		for _, value := range group.Values {
			lookup[value.ID] = entry{group: group.Name, title: strings.TrimSpace(value.Title)}
		}
	}

	values := map[string]string{}
	for _, id := range v.Options {
		if found, ok := lookup[id]; ok {
			values[found.group] = found.title
		}
	}

	out := Partial{OptionValues: values}
	if group, ok := findGroup(schema, "size", sizeNameRe); ok {
		out.Size = values[group.Name]
	}
	if group, ok := findGroup(schema, "color", colorNameRe); ok {
		out.Color = values[group.Name]
	}
	return out, out.complete()
}

// ResolvePositional pairs the i-th selected option id with the i-th group.
func ResolvePositional(v printify.Variant, schema []printify.Option) (Partial, bool) {
	out := Partial{OptionValues: map[string]string{}}
	for idx, id := range v.Options {
		if idx >= len(schema) {
			break
		}
		group := schema[idx]
		for _, value := range group.Values {
			if value.ID != id {
				continue
			}
			title := strings.TrimSpace(value.Title)
			out.OptionValues[group.Name] = title
			if out.Size == "" && isGroup(group, "size", sizeNameRe) {
				out.Size = title
			}
			if out.Color == "" && isGroup(group, "color", colorNameRe) {
				out.Color = title
			}
			break
		}
	}
	return out, out.complete()
}

// ResolveTitle reads "Size / Color" titles. Anything other than exactly two
// non-empty segments is left unresolved.
func ResolveTitle(v printify.Variant, _ []printify.Option) (Partial, bool) {
	var parts []string
	for _, part := range strings.Split(v.Title, "/") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) != 2 {
		return Partial{}, false
	}
	out := Partial{Size: parts[0], Color: parts[1]}
	return out, true
}

func findGroup(schema []printify.Option, typ string, nameRe *regexp.Regexp) (printify.Option, bool) {
	for _, group := range schema {
		if strings.EqualFold(group.Type, typ) {
			return group, true
		}
	}
	for _, group := range schema {
		if nameRe.MatchString(group.Name) {
			return group, true
		}
	}
	return printify.Option{}, false
}

func isGroup(group printify.Option, typ string, nameRe *regexp.Regexp) bool {
	return strings.EqualFold(group.Type, typ) || nameRe.MatchString(group.Name)
}
