package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/srares76/figmaFeeder/internal/model"
)

// namedStep records which file key it ran for.
type namedStep struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (s *namedStep) Do(_ context.Context, report *model.FeedReport) error {
	s.mu.Lock()
	s.keys = append(s.keys, report.FileKey)
	s.mu.Unlock()
	return s.err
}

func (s *namedStep) Name() string { return "named" }

func TestProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("feeds every file and keeps order", func(t *testing.T) {
		t.Parallel()

		step := &namedStep{}
		bp := NewBatchProcessor(func(string) *Pipeline {
			p := New(WithLogger(testLogger()))
			p.AddStep(step)
			return p
		}, WithBatchLogger(testLogger()))

		keys := []string{"alpha", "beta", "gamma"}
		reports, err := bp.ProcessBatch(context.Background(), keys)
		if err != nil {
			t.Fatalf("batch failed: %v", err)
		}

		if len(reports) != 3 {
			t.Fatalf("expected 3 reports, got %d", len(reports))
		}
		for i, key := range keys {
			if reports[i] == nil || reports[i].FileKey != key {
				t.Errorf("reports[%d] = %+v, want key %q", i, reports[i], key)
			}
		}
		if len(step.keys) != 3 {
			t.Errorf("expected 3 executions, got %d", len(step.keys))
		}
	})

	t.Run("a failing feed does not stop the others", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(key string) *Pipeline {
			p := New(WithLogger(testLogger()))
			if key == "bad" {
				p.AddStep(&namedStep{err: errors.New("feed failed")})
			} else {
				p.AddStep(&namedStep{})
			}
			return p
		}, WithBatchLogger(testLogger()))

		reports, err := bp.ProcessBatch(context.Background(), []string{"good", "bad", "also-good"})
		if err != nil {
			t.Fatalf("batch failed: %v", err)
		}

		if reports[1].Succeeded() {
			t.Error("expected the failing feed's report to carry its error")
		}
		if !reports[0].Succeeded() || !reports[2].Succeeded() {
			t.Error("expected the other feeds to succeed")
		}
	})

	t.Run("respects the concurrency limit", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		gate := make(chan struct{})

		step := &gateStep{running: &running, peak: &peak, gate: gate}
		bp := NewBatchProcessor(func(string) *Pipeline {
			p := New(WithLogger(testLogger()))
			p.AddStep(step)
			return p
		}, WithBatchLogger(testLogger()), WithBatchConcurrency(2))

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = bp.ProcessBatch(context.Background(), []string{"a", "b", "c", "d"})
		}()

		close(gate)
		<-done

		if got := peak.Load(); got > 2 {
			t.Errorf("peak concurrency = %d, want at most 2", got)
		}
	})
}

// gateStep tracks concurrent executions and waits on a gate channel.
type gateStep struct {
	running *atomic.Int32
	peak    *atomic.Int32
	gate    chan struct{}
}

func (s *gateStep) Do(context.Context, *model.FeedReport) error {
	n := s.running.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-s.gate
	s.running.Add(-1)
	return nil
}

func (s *gateStep) Name() string { return "gate" }

func TestProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(func(string) *Pipeline {
		p := New(WithLogger(testLogger()))
		p.AddStep(&namedStep{})
		return p
	}, WithBatchLogger(testLogger()))

	var mu sync.Mutex
	got := make(map[int]string)

	err := bp.ProcessBatchWithCallback(context.Background(), []string{"one", "two"},
		func(report *model.FeedReport, index int) {
			mu.Lock()
			got[index] = report.FileKey
			mu.Unlock()
		})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if got[0] != "one" || got[1] != "two" {
		t.Errorf("unexpected callback results: %v", got)
	}
}
