package model

import (
	"fmt"
	"math"
	"sort"
)

// Inventory aggregates paint colors and text styles used across a crawled
// file. It is a derived summary computed after the crawl completes.
//
// Design decision: We build the inventory from the NodeMap rather than
// accumulating during the crawl because:
// 1. The crawl stays a pure traversal concern
// 2. The inventory can be recomputed from a stored snapshot
// 3. Deterministic ordering is easier over a finished map
type Inventory struct {
	// Colors lists solid fill and stroke colors with usage counts,
	// ordered by count descending, then hex ascending.
	Colors []ColorUsage `json:"colors,omitempty"`

	// TextStyles lists typography combinations with usage counts,
	// ordered by count descending, then label ascending.
	TextStyles []TextStyleUsage `json:"text_styles,omitempty"`
}

// ColorUsage is one solid color and how many nodes use it.
type ColorUsage struct {
	// Hex is the color in "#RRGGBB" form.
	Hex string `json:"hex"`

	// Count is the number of nodes referencing the color.
	Count int `json:"count"`
}

// TextStyleUsage is one typography combination and how many text nodes use it.
type TextStyleUsage struct {
	// Family is the font family name.
	Family string `json:"family"`

	// Size is the font size in pixels.
	Size float64 `json:"size"`

	// Weight is the font weight (400, 700, ...). Zero when unknown.
	Weight float64 `json:"weight,omitempty"`

	// Count is the number of text nodes using the style.
	Count int `json:"count"`
}

// Label returns a short human-readable form such as "Inter 14px (700)".
func (t TextStyleUsage) Label() string {
	if t.Weight > 0 {
		return fmt.Sprintf("%s %gpx (%g)", t.Family, t.Size, t.Weight)
	}
	return fmt.Sprintf("%s %gpx", t.Family, t.Size)
}

// BuildInventory computes the color and typography inventory for a crawl
// result. Nodes without paint or text attributes contribute nothing.
func BuildInventory(nodes NodeMap) *Inventory {
	colorCounts := make(map[string]int)
	styleCounts := make(map[TextStyleUsage]int)

	for _, node := range nodes {
		for _, hex := range nodePaintColors(node) {
			colorCounts[hex]++
		}
		if style, ok := nodeTextStyle(node); ok {
			styleCounts[style]++
		}
	}

	inv := &Inventory{}
	for hex, count := range colorCounts {
		inv.Colors = append(inv.Colors, ColorUsage{Hex: hex, Count: count})
	}
	sort.Slice(inv.Colors, func(i, j int) bool {
		if inv.Colors[i].Count != inv.Colors[j].Count {
			return inv.Colors[i].Count > inv.Colors[j].Count
		}
		return inv.Colors[i].Hex < inv.Colors[j].Hex
	})

	for style, count := range styleCounts {
		style.Count = count
		inv.TextStyles = append(inv.TextStyles, style)
	}
	sort.Slice(inv.TextStyles, func(i, j int) bool {
		if inv.TextStyles[i].Count != inv.TextStyles[j].Count {
			return inv.TextStyles[i].Count > inv.TextStyles[j].Count
		}
		return inv.TextStyles[i].Label() < inv.TextStyles[j].Label()
	})

	return inv
}

// nodePaintColors extracts the solid colors from a node's fills and strokes.
// Duplicate colors within one node are counted once.
func nodePaintColors(node *NormalizedNode) []string {
	seen := make(map[string]bool)
	var colors []string
	for _, attr := range []string{"fills", "strokes"} {
		paints, ok := node.Known[attr].([]any)
		if !ok {
			continue
		}
		for _, p := range paints {
			paint, ok := p.(map[string]any)
			if !ok {
				continue
			}
			hex, ok := SolidPaintHex(paint)
			if !ok || seen[hex] {
				continue
			}
			seen[hex] = true
			colors = append(colors, hex)
		}
	}
	return colors
}

// SolidPaintHex converts a solid paint document into "#RRGGBB" form.
// Invisible paints and non-solid paint types (gradients, images) report
// ok = false.
func SolidPaintHex(paint map[string]any) (string, bool) {
	if t, _ := paint["type"].(string); t != "SOLID" {
		return "", false
	}
	if visible, ok := paint["visible"].(bool); ok && !visible {
		return "", false
	}
	color, ok := paint["color"].(map[string]any)
	if !ok {
		return "", false
	}
	r, rok := colorChannel(color["r"])
	g, gok := colorChannel(color["g"])
	b, bok := colorChannel(color["b"])
	if !rok || !gok || !bok {
		return "", false
	}
	return fmt.Sprintf("#%02X%02X%02X", r, g, b), true
}

// colorChannel converts a 0.0-1.0 channel value to 0-255.
func colorChannel(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return int(math.Round(f * 255)), true
}

// nodeTextStyle extracts the typography of a TEXT node, if present.
func nodeTextStyle(node *NormalizedNode) (TextStyleUsage, bool) {
	if node.Kind != KindText {
		return TextStyleUsage{}, false
	}
	style, ok := node.Known["style"].(map[string]any)
	if !ok {
		return TextStyleUsage{}, false
	}
	family, _ := style["fontFamily"].(string)
	size, _ := style["fontSize"].(float64)
	if family == "" || size == 0 {
		return TextStyleUsage{}, false
	}
	weight, _ := style["fontWeight"].(float64)
	return TextStyleUsage{Family: family, Size: size, Weight: weight}, true
}
