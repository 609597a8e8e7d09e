package roster

import "strings"

// Color is a display color a person is drawn in.
type Color struct {
	ID  string
	Hex string
}

// Palette holds the colors handed out to roster members, in assignment order.
var Palette = []Color{
	{ID: "coral", Hex: "#FF6F61"},
	{ID: "amber", Hex: "#FFB300"},
	{ID: "lime", Hex: "#9CCC65"},
	{ID: "teal", Hex: "#26A69A"},
	{ID: "sky", Hex: "#29B6F6"},
	{ID: "indigo", Hex: "#5C6BC0"},
	{ID: "violet", Hex: "#AB47BC"},
	{ID: "rose", Hex: "#EC407A"},
	{ID: "olive", Hex: "#827717"},
	{ID: "copper", Hex: "#B87333"},
}

// FallbackPalette colors people who are not on the roster. Its muted tones
// never overlap with Palette so unknown names are recognisable at a glance.
var FallbackPalette = []Color{
	{ID: "ash", Hex: "#9E9E9E"},
	{ID: "stone", Hex: "#8D8574"},
	{ID: "slate", Hex: "#708090"},
	{ID: "moss", Hex: "#8A9A5B"},
	{ID: "clay", Hex: "#A0785A"},
	{ID: "dusk", Hex: "#7B6D8D"},
}

// PaletteColor looks up a roster color by id.
func PaletteColor(id string) (Color, bool) {
	for _, c := range Palette {
		if c.ID == id {
			return c, true
		}
	}
	return Color{}, false
}

// charSum is the deterministic hash behind every hashed color choice.
func charSum(s string) int {
	sum := 0
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		sum += int(r)
	}
	return sum
}

// HashColor picks a color from palette by the character sum of name.
func HashColor(name string, palette []Color) Color {
	if len(palette) == 0 {
		return Color{}
	}
	return palette[charSum(name)%len(palette)]
}
