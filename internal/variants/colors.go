package variants

import "strings"

const defaultColorHex = "#808080"

var colorHex = map[string]string{
	"black":         "#000000",
	"white":         "#FFFFFF",
	"navy":          "#001f3f",
	"royal":         "#0074D9",
	"sky":           "#87CEEB",
	"red":           "#FF4136",
	"maroon":        "#85144b",
	"pink":          "#FFB6C1",
	"pink lemonade": "#FFB3D9",
	"forest green":  "#228B22",
	"lime":          "#32CD32",
	"yellow":        "#FFEB3B",
	"yellow haze":   "#F4E87C",
	"mustard":       "#FFDB58",
	"orange":        "#FF851B",
	"daisy":         "#FFEB3B",
	"purple":        "#B10DC9",
	"lavender":      "#E6E6FA",
	"brown":         "#8B4513",
	"cocoa":         "#6F4E37",
	"sand":          "#C2B280",
	"heather grey":  "#B0B0B0",
	"grey":          "#808080",
	"gray":          "#808080",
	"charcoal":      "#36454F",
	"ash":           "#B2BEB5",
}

// ColorHex returns a swatch color for a color name, grey when unknown.
func ColorHex(name string) string {
	if hex, ok := colorHex[strings.ToLower(strings.TrimSpace(name))]; ok {
		return hex
	}
	return defaultColorHex
}
