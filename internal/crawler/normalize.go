package crawler

import (
	"fmt"
	"sort"

	"github.com/srares76/figmaFeeder/internal/model"
)

// bannedGeometryAttrs are raw vector-geometry payloads that are never
// stored, regardless of the allow-list. They are large, opaque to reports,
// and reproducible from the source file on demand.
var bannedGeometryAttrs = map[string]bool{
	"fillGeometry":   true,
	"strokeGeometry": true,
	"vectorPaths":    true,
	"vectorNetwork":  true,
}

// knownAttrs is the fixed allow-list of attributes kept in
// NormalizedNode.Known: node identity plus everything relevant to layout,
// paint, and text. Anything else (minus children and banned geometry)
// lands in Other.
var knownAttrs = map[string]bool{
	// Identity
	"id":      true,
	"name":    true,
	"type":    true,
	"visible": true,

	// Layout
	"layoutMode":            true,
	"layoutWrap":            true,
	"layoutAlign":           true,
	"layoutGrow":            true,
	"itemSpacing":           true,
	"counterAxisSpacing":    true,
	"paddingLeft":           true,
	"paddingRight":          true,
	"paddingTop":            true,
	"paddingBottom":         true,
	"primaryAxisSizingMode": true,
	"counterAxisSizingMode": true,
	"primaryAxisAlignItems": true,
	"counterAxisAlignItems": true,

	// Paint
	"fills":                 true,
	"strokes":               true,
	"strokeWeight":          true,
	"strokeAlign":           true,
	"cornerRadius":          true,
	"rectangleCornerRadii":  true,
	"opacity":               true,
	"blendMode":             true,
	"effects":               true,
	"backgroundColor":       true,

	// Text
	"characters":              true,
	"style":                   true,
	"characterStyleOverrides": true,
}

// Normalize converts one raw node document into the closed record stored
// by the crawler. It is a pure function: no I/O, no failure modes; missing
// or malformed fields are treated as absent.
func Normalize(raw model.RawNode) *model.NormalizedNode {
	node := &model.NormalizedNode{
		ID:   raw.ID(),
		Name: raw.Name(),
		Kind: model.NodeKind(raw.Type()),
	}

	for key, value := range raw {
		switch {
		case key == "children":
			// Represented through ChildIDs.
		case bannedGeometryAttrs[key]:
			// Dropped unconditionally.
		case knownAttrs[key]:
			if node.Known == nil {
				node.Known = make(map[string]any)
			}
			node.Known[key] = value
		default:
			if node.Other == nil {
				node.Other = make(map[string]any)
			}
			node.Other[key] = value
		}
	}

	// Visible children only, in document order. The API never repeats a
	// child within one parent, but the dedup is cheap to keep explicit.
	inChildren := make(map[model.NodeID]bool)
	for _, child := range raw.Children() {
		if !child.Visible() {
			continue
		}
		id := child.ID()
		if id == "" || inChildren[id] {
			continue
		}
		inChildren[id] = true
		node.ChildIDs = append(node.ChildIDs, id)
	}

	node.Hints = presentationHints(raw)
	return node
}

// presentationHints derives best-effort, human-oriented notes from a node's
// layout, spacing, and paint attributes. The result is duplicate-free and
// sorted; a node with no applicable attributes yields an empty list.
func presentationHints(raw model.RawNode) []string {
	set := make(map[string]bool)

	add := func(hint string) {
		set[hint] = true
	}

	if mode, ok := raw["layoutMode"].(string); ok {
		switch mode {
		case "HORIZONTAL":
			add("auto-layout: horizontal")
		case "VERTICAL":
			add("auto-layout: vertical")
		}
	}

	if gap, ok := number(raw["itemSpacing"]); ok && gap > 0 {
		add(fmt.Sprintf("gap: %gpx", gap))
	}

	if hint, ok := paddingHint(raw); ok {
		add(hint)
	}

	if radius, ok := number(raw["cornerRadius"]); ok && radius > 0 {
		add(fmt.Sprintf("radius: %gpx", radius))
	}

	if opacity, ok := number(raw["opacity"]); ok && opacity < 1 {
		add(fmt.Sprintf("opacity: %g%%", opacity*100))
	}

	for _, hex := range paintHints(raw["fills"]) {
		add("fill: " + hex)
	}
	for _, hex := range paintHints(raw["strokes"]) {
		add("stroke: " + hex)
	}

	if style, ok := raw["style"].(map[string]any); ok {
		family, _ := style["fontFamily"].(string)
		size, sizeOK := number(style["fontSize"])
		if family != "" && sizeOK {
			add(fmt.Sprintf("text: %s %gpx", family, size))
		}
	}

	if len(set) == 0 {
		return nil
	}
	hints := make([]string, 0, len(set))
	for hint := range set {
		hints = append(hints, hint)
	}
	sort.Strings(hints)
	return hints
}

// paddingHint summarizes the four padding attributes when any is non-zero.
func paddingHint(raw model.RawNode) (string, bool) {
	top, _ := number(raw["paddingTop"])
	right, _ := number(raw["paddingRight"])
	bottom, _ := number(raw["paddingBottom"])
	left, _ := number(raw["paddingLeft"])

	if top == 0 && right == 0 && bottom == 0 && left == 0 {
		return "", false
	}
	if top == right && right == bottom && bottom == left {
		return fmt.Sprintf("padding: %gpx", top), true
	}
	return fmt.Sprintf("padding: %g/%g/%g/%gpx", top, right, bottom, left), true
}

// paintHints extracts the solid colors from a fills/strokes attribute.
func paintHints(attr any) []string {
	paints, ok := attr.([]any)
	if !ok {
		return nil
	}
	var hexes []string
	for _, p := range paints {
		paint, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if hex, ok := model.SolidPaintHex(paint); ok {
			hexes = append(hexes, hex)
		}
	}
	return hexes
}

// number converts a JSON-decoded numeric attribute.
func number(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}
