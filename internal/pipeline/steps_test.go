package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/srares76/figmaFeeder/internal/database"
	"github.com/srares76/figmaFeeder/internal/figma"
	"github.com/srares76/figmaFeeder/internal/model"
)

// fileServer serves a tiny Figma file: a document root with one visible
// frame. Node documents are keyed by id and returned for whatever ids the
// crawler requests.
func fileServer(t *testing.T) *httptest.Server {
	t.Helper()

	docs := map[string]map[string]any{
		"0:0": {
			"id":   "0:0",
			"name": "Document",
			"type": "DOCUMENT",
			"children": []any{
				map[string]any{"id": "1:1", "type": "CANVAS"},
			},
		},
		"1:1": {
			"id":   "1:1",
			"name": "Home",
			"type": "CANVAS",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/files/key1", func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"name":     "Test File",
			"version":  "7",
			"document": map[string]any{"id": "0:0", "name": "Document", "type": "DOCUMENT"},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	})
	mux.HandleFunc("GET /v1/files/key1/nodes", func(w http.ResponseWriter, r *http.Request) {
		nodes := make(map[string]any)
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if doc, ok := docs[id]; ok {
				nodes[id] = map[string]any{"document": doc}
			}
		}
		if err := json.NewEncoder(w).Encode(map[string]any{"nodes": nodes}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCrawlStep(t *testing.T) {
	t.Parallel()

	server := fileServer(t)
	client, err := figma.NewClient("figd_test",
		figma.WithBaseURL(server.URL),
		figma.WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	step := NewCrawlStep(client, WithCrawlLogger(testLogger()))
	if step.Name() != "crawl" {
		t.Errorf("Name = %q, want crawl", step.Name())
	}

	report := model.NewFeedReport("key1")
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("crawl step failed: %v", err)
	}

	if report.FileName != "Test File" || report.FileVersion != "7" {
		t.Errorf("metadata not applied: name=%q version=%q", report.FileName, report.FileVersion)
	}
	if report.RootID != "0:0" {
		t.Errorf("RootID = %q, want 0:0", report.RootID)
	}
	if report.NodeCount() != 2 {
		t.Errorf("NodeCount = %d, want 2", report.NodeCount())
	}
	if report.BatchesDispatched == 0 {
		t.Error("expected batches to be recorded")
	}
}

func TestCrawlStepExplicitRoot(t *testing.T) {
	t.Parallel()

	server := fileServer(t)
	client, err := figma.NewClient("figd_test",
		figma.WithBaseURL(server.URL),
		figma.WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	step := NewCrawlStep(client,
		WithCrawlRoot("1:1"),
		WithCrawlLogger(testLogger()),
	)

	report := model.NewFeedReport("key1")
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("crawl step failed: %v", err)
	}

	if report.RootID != "1:1" {
		t.Errorf("RootID = %q, want the explicit root", report.RootID)
	}
	if report.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want just the subtree root", report.NodeCount())
	}
}

func TestInventoryStep(t *testing.T) {
	t.Parallel()

	step := NewInventoryStep(testLogger())
	if step.Name() != "inventory" {
		t.Errorf("Name = %q, want inventory", step.Name())
	}

	report := model.NewFeedReport("key1")
	report.Nodes = model.NodeMap{
		"2:1": &model.NormalizedNode{
			ID:   "2:1",
			Kind: model.KindFrame,
			Known: map[string]any{
				"fills": []any{map[string]any{
					"type":  "SOLID",
					"color": map[string]any{"r": 0.0, "g": 0.0, "b": 1.0},
				}},
			},
		},
	}

	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("inventory step failed: %v", err)
	}
	if report.Inventory == nil {
		t.Fatal("expected an inventory")
	}
	if len(report.Inventory.Colors) != 1 || report.Inventory.Colors[0].Hex != "#0000FF" {
		t.Errorf("unexpected colors: %+v", report.Inventory.Colors)
	}
}

func TestSnapshotStep(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	step := NewSnapshotStep(db, testLogger())
	if step.Name() != "snapshot" {
		t.Errorf("Name = %q, want snapshot", step.Name())
	}

	t.Run("saves completed feeds", func(t *testing.T) {
		report := model.NewFeedReport("key1")
		report.RootID = "0:0"
		report.Nodes = model.NodeMap{
			"0:0": &model.NormalizedNode{ID: "0:0", Name: "Document", Kind: model.KindDocument},
		}

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("snapshot step failed: %v", err)
		}

		saved, err := db.GetLatestFeed(context.Background(), "key1")
		if err != nil {
			t.Fatalf("failed to read back snapshot: %v", err)
		}
		if saved == nil || saved.NodeCount() != 1 {
			t.Errorf("unexpected snapshot: %+v", saved)
		}
	})

	t.Run("skips feeds without nodes", func(t *testing.T) {
		report := model.NewFeedReport("key2")

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("snapshot step failed: %v", err)
		}

		saved, err := db.GetLatestFeed(context.Background(), "key2")
		if err != nil {
			t.Fatalf("failed to query snapshot: %v", err)
		}
		if saved != nil {
			t.Error("expected no snapshot for a failed feed")
		}
	})
}
