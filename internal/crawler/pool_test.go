package crawler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/srares76/figmaFeeder/internal/model"
)

func TestRunBatches(t *testing.T) {
	t.Parallel()

	t.Run("every batch settles and results keep input order", func(t *testing.T) {
		t.Parallel()

		batches := [][]model.NodeID{{"a"}, {"b"}, {"c"}}
		results := runBatches(context.Background(), batches, 2, func(_ context.Context, ids []model.NodeID) (map[model.NodeID]model.RawNode, error) {
			return map[model.NodeID]model.RawNode{ids[0]: {"id": string(ids[0])}}, nil
		})

		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		for i, r := range results {
			if r.err != nil {
				t.Errorf("batch %d failed: %v", i, r.err)
			}
			if r.ids[0] != batches[i][0] {
				t.Errorf("result %d holds batch %v, want %v", i, r.ids, batches[i])
			}
		}
	})

	t.Run("concurrency never exceeds the limit", func(t *testing.T) {
		t.Parallel()

		const limit = 3
		var running, peak atomic.Int32
		var mu sync.Mutex

		batches := make([][]model.NodeID, 10)
		for i := range batches {
			batches[i] = []model.NodeID{model.NodeID(rune('a' + i))}
		}

		gate := make(chan struct{})
		started := make(chan struct{}, len(batches))

		go func() {
			// Release workers once the first wave has had a chance
			// to saturate the limit.
			for range limit {
				<-started
			}
			close(gate)
		}()

		runBatches(context.Background(), batches, limit, func(_ context.Context, _ []model.NodeID) (map[model.NodeID]model.RawNode, error) {
			n := running.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			started <- struct{}{}
			<-gate
			running.Add(-1)
			return nil, nil
		})

		if p := peak.Load(); p > limit {
			t.Errorf("observed %d concurrent batches, limit is %d", p, limit)
		}
	})

	t.Run("one failure does not stop the others", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("batch b failed")
		batches := [][]model.NodeID{{"a"}, {"b"}, {"c"}}

		var completed atomic.Int32
		results := runBatches(context.Background(), batches, 1, func(_ context.Context, ids []model.NodeID) (map[model.NodeID]model.RawNode, error) {
			completed.Add(1)
			if ids[0] == "b" {
				return nil, wantErr
			}
			return map[model.NodeID]model.RawNode{}, nil
		})

		if got := completed.Load(); got != 3 {
			t.Errorf("expected all 3 batches to run, got %d", got)
		}
		if err := firstError(results); !errors.Is(err, wantErr) {
			t.Errorf("firstError = %v, want %v", err, wantErr)
		}
		if results[0].err != nil || results[2].err != nil {
			t.Error("sibling batches must settle successfully")
		}
	})

	t.Run("firstError follows dispatch order", func(t *testing.T) {
		t.Parallel()

		errFirst := errors.New("first")
		errSecond := errors.New("second")
		results := []batchResult{
			{err: nil},
			{err: errFirst},
			{err: errSecond},
		}
		if err := firstError(results); !errors.Is(err, errFirst) {
			t.Errorf("firstError = %v, want %v", err, errFirst)
		}
	})

	t.Run("no batches yields no results", func(t *testing.T) {
		t.Parallel()

		results := runBatches(context.Background(), nil, 4, func(_ context.Context, _ []model.NodeID) (map[model.NodeID]model.RawNode, error) {
			t.Error("fetch must not be called")
			return nil, nil
		})
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})
}
