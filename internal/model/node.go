package model

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"
)

// NodeID is the opaque identifier of one node within a Figma file.
// IDs are unique inside a single file and are used as the join key for
// deduplication, parent/child edges, and the crawl result map.
type NodeID string

// RawNode is one node document exactly as the API returned it: an open
// attribute set decoded from JSON. The crawler never stores RawNodes;
// they exist only between a fetch and normalization.
//
// Design decision: We keep the raw document as a map rather than decoding
// into a struct because the Figma node schema is open-ended and varies per
// node kind. The closed view lives in NormalizedNode; RawNode only needs
// the handful of accessors below.
type RawNode map[string]any

// ID returns the node's identifier, or "" if the document has none.
func (r RawNode) ID() NodeID {
	if s, ok := r["id"].(string); ok {
		return NodeID(s)
	}
	return ""
}

// Name returns the node's name, or "" if absent.
func (r RawNode) Name() string {
	if s, ok := r["name"].(string); ok {
		return s
	}
	return ""
}

// Type returns the node's kind string (e.g. "FRAME", "TEXT"), or "" if absent.
func (r RawNode) Type() string {
	if s, ok := r["type"].(string); ok {
		return s
	}
	return ""
}

// Visible reports whether the node is visible. The API omits the flag for
// visible nodes, so an absent or malformed value counts as visible.
func (r RawNode) Visible() bool {
	if v, ok := r["visible"].(bool); ok {
		return v
	}
	return true
}

// Children returns the node's child stubs in document order.
// When a node is fetched with depth 1, each entry carries at least the
// child's id and visibility flag; full detail comes from the child's own
// fetch. Malformed entries are skipped.
func (r RawNode) Children() []RawNode {
	list, ok := r["children"].([]any)
	if !ok {
		return nil
	}
	children := make([]RawNode, 0, len(list))
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			children = append(children, RawNode(m))
		}
	}
	return children
}

// NodeKind is the closed set of Figma node kinds the feeder understands.
// Unknown kinds are preserved verbatim so new API node types degrade
// gracefully instead of failing.
type NodeKind string

// Node kinds as reported by the Figma API.
const (
	KindDocument         NodeKind = "DOCUMENT"
	KindCanvas           NodeKind = "CANVAS"
	KindFrame            NodeKind = "FRAME"
	KindGroup            NodeKind = "GROUP"
	KindSection          NodeKind = "SECTION"
	KindComponent        NodeKind = "COMPONENT"
	KindComponentSet     NodeKind = "COMPONENT_SET"
	KindInstance         NodeKind = "INSTANCE"
	KindText             NodeKind = "TEXT"
	KindVector           NodeKind = "VECTOR"
	KindBooleanOperation NodeKind = "BOOLEAN_OPERATION"
	KindRectangle        NodeKind = "RECTANGLE"
	KindEllipse          NodeKind = "ELLIPSE"
	KindPolygon          NodeKind = "POLYGON"
	KindStar             NodeKind = "STAR"
	KindLine             NodeKind = "LINE"
	KindSlice            NodeKind = "SLICE"
)

// IsContainer reports whether nodes of this kind usually hold children
// that are interesting to a reader (used for report indentation choices,
// not for traversal - traversal always follows ChildIDs).
func (k NodeKind) IsContainer() bool {
	switch k {
	case KindDocument, KindCanvas, KindFrame, KindGroup, KindSection,
		KindComponent, KindComponentSet, KindInstance:
		return true
	default:
		return false
	}
}

// NormalizedNode is the derived, immutable per-node record produced by the
// normalizer and stored in the crawl result map.
//
// Invariant: Known and Other are disjoint, and their union (plus the
// children attribute) equals the original raw document's attributes minus
// the banned geometry payloads, which are dropped unconditionally.
type NormalizedNode struct {
	// ID is the node identifier within the file.
	ID NodeID `json:"id"`

	// Name is the layer name as authored in Figma.
	Name string `json:"name"`

	// Kind is the node kind (FRAME, TEXT, ...).
	Kind NodeKind `json:"kind"`

	// ChildIDs lists the node's visible children in document order.
	// Duplicates are impossible within one parent.
	ChildIDs []NodeID `json:"child_ids,omitempty"`

	// Known holds the attributes on the fixed allow-list relevant to
	// layout, paint, and text.
	Known map[string]any `json:"known,omitempty"`

	// Other holds every attribute that is neither allow-listed nor the
	// children list. Nothing is dropped here except banned geometry.
	Other map[string]any `json:"other,omitempty"`

	// Hints are derived, human-oriented presentation notes
	// (auto-layout direction, spacing, fills, typography). The list is
	// duplicate-free and sorted; order carries no meaning.
	Hints []string `json:"hints,omitempty"`
}

// Digest returns a stable SHA3-256 digest of the node's content, used for
// change detection between feed snapshots. Map attributes are serialized
// with sorted keys so the digest is deterministic.
func (n *NormalizedNode) Digest() string {
	h := sha3.New256()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", n.ID, n.Name, n.Kind)
	for _, id := range n.ChildIDs {
		fmt.Fprintf(h, "%s,", id)
	}
	writeSortedMap(h, n.Known)
	writeSortedMap(h, n.Other)
	for _, hint := range n.Hints {
		fmt.Fprintf(h, "%s\x00", hint)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeSortedMap writes a map's entries to the hash in key order.
// JSON encoding per value keeps nested structures deterministic enough
// for change detection (encoding/json sorts map keys).
func writeSortedMap(h interface{ Write([]byte) (int, error) }, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data, err := json.Marshal(m[k])
		if err != nil {
			// Unmarshalable values still contribute their key.
			data = []byte("?")
		}
		fmt.Fprintf(h, "%s=%s\x00", k, data)
	}
}

// NodeMap is the result of one completed crawl: every visible node that was
// reachable from the root, keyed by ID. Tree shape is reconstructed through
// ChildIDs, not map order.
//
// Invariant: after a successful crawl, every ID referenced by some node's
// ChildIDs is present in the map. A failed crawl yields no map at all.
type NodeMap map[NodeID]*NormalizedNode

// Walk visits nodes depth-first starting at root, calling fn with each
// node and its depth. Children missing from the map are skipped; the
// crawler guarantees they cannot exist after a successful crawl, and
// report writers handle pruned children on their own.
func (m NodeMap) Walk(root NodeID, fn func(n *NormalizedNode, depth int)) {
	m.walk(root, 0, fn)
}

func (m NodeMap) walk(id NodeID, depth int, fn func(n *NormalizedNode, depth int)) {
	node, ok := m[id]
	if !ok {
		return
	}
	fn(node, depth)
	for _, child := range node.ChildIDs {
		m.walk(child, depth+1, fn)
	}
}

// KindCounts returns how many stored nodes exist per kind.
func (m NodeMap) KindCounts() map[NodeKind]int {
	counts := make(map[NodeKind]int)
	for _, n := range m {
		counts[n.Kind]++
	}
	return counts
}
