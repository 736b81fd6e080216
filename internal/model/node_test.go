package model

import (
	"testing"
)

func TestRawNodeAccessors(t *testing.T) {
	t.Parallel()

	raw := RawNode{
		"id":   "1:2",
		"name": "Header",
		"type": "FRAME",
		"children": []any{
			map[string]any{"id": "2:1", "visible": true},
			"not a node",
			map[string]any{"id": "2:2", "visible": false},
		},
	}

	if raw.ID() != "1:2" {
		t.Errorf("ID() = %q", raw.ID())
	}
	if raw.Name() != "Header" {
		t.Errorf("Name() = %q", raw.Name())
	}
	if raw.Type() != "FRAME" {
		t.Errorf("Type() = %q", raw.Type())
	}
	if children := raw.Children(); len(children) != 2 {
		t.Errorf("Children() returned %d entries, want 2", len(children))
	}
}

func TestRawNodeVisible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  RawNode
		want bool
	}{
		{name: "absent flag counts as visible", raw: RawNode{"id": "1:1"}, want: true},
		{name: "explicit true", raw: RawNode{"visible": true}, want: true},
		{name: "explicit false", raw: RawNode{"visible": false}, want: false},
		{name: "malformed flag counts as visible", raw: RawNode{"visible": "no"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.raw.Visible(); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNodeKindIsContainer(t *testing.T) {
	t.Parallel()

	if !KindFrame.IsContainer() {
		t.Error("expected FRAME to be a container")
	}
	if !KindCanvas.IsContainer() {
		t.Error("expected CANVAS to be a container")
	}
	if KindText.IsContainer() {
		t.Error("expected TEXT not to be a container")
	}
	if NodeKind("WIDGET").IsContainer() {
		t.Error("expected unknown kinds not to be containers")
	}
}

func TestNodeDigest(t *testing.T) {
	t.Parallel()

	base := func() *NormalizedNode {
		return &NormalizedNode{
			ID:       "1:1",
			Name:     "Card",
			Kind:     KindFrame,
			ChildIDs: []NodeID{"2:1", "2:2"},
			Known:    map[string]any{"opacity": 0.5, "layoutMode": "VERTICAL"},
			Other:    map[string]any{"pluginData": "x"},
			Hints:    []string{"auto-layout vertical"},
		}
	}

	t.Run("deterministic across calls", func(t *testing.T) {
		t.Parallel()
		if base().Digest() != base().Digest() {
			t.Error("expected identical nodes to share a digest")
		}
	})

	t.Run("attribute change alters the digest", func(t *testing.T) {
		t.Parallel()
		changed := base()
		changed.Known["opacity"] = 1.0
		if base().Digest() == changed.Digest() {
			t.Error("expected an attribute change to alter the digest")
		}
	})

	t.Run("child order alters the digest", func(t *testing.T) {
		t.Parallel()
		reordered := base()
		reordered.ChildIDs = []NodeID{"2:2", "2:1"}
		if base().Digest() == reordered.Digest() {
			t.Error("expected child order to alter the digest")
		}
	})
}

func TestNodeMapWalk(t *testing.T) {
	t.Parallel()

	nodes := NodeMap{
		"0:0": {ID: "0:0", Kind: KindDocument, ChildIDs: []NodeID{"1:1", "1:9"}},
		"1:1": {ID: "1:1", Kind: KindCanvas, ChildIDs: []NodeID{"2:1"}},
		"2:1": {ID: "2:1", Kind: KindFrame},
	}

	var visited []NodeID
	var depths []int
	nodes.Walk("0:0", func(n *NormalizedNode, depth int) {
		visited = append(visited, n.ID)
		depths = append(depths, depth)
	})

	// 1:9 is referenced but absent from the map; the walk skips it.
	want := []NodeID{"0:0", "1:1", "2:1"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i, id := range want {
		if visited[i] != id {
			t.Errorf("visited[%d] = %s, want %s", i, visited[i], id)
		}
	}
	if depths[0] != 0 || depths[1] != 1 || depths[2] != 2 {
		t.Errorf("unexpected depths %v", depths)
	}
}

func TestNodeMapKindCounts(t *testing.T) {
	t.Parallel()

	nodes := NodeMap{
		"1:1": {ID: "1:1", Kind: KindFrame},
		"1:2": {ID: "1:2", Kind: KindFrame},
		"1:3": {ID: "1:3", Kind: KindText},
	}

	counts := nodes.KindCounts()
	if counts[KindFrame] != 2 {
		t.Errorf("FRAME count = %d, want 2", counts[KindFrame])
	}
	if counts[KindText] != 1 {
		t.Errorf("TEXT count = %d, want 1", counts[KindText])
	}
}
