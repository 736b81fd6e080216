package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/srares76/figmaFeeder/internal/model"
)

// mockStep records its executions and optionally fails.
type mockStep struct {
	name     string
	err      error
	executed int
	onDo     func(report *model.FeedReport)
}

func (m *mockStep) Do(_ context.Context, report *model.FeedReport) error {
	m.executed++
	if m.onDo != nil {
		m.onDo(report)
	}
	return m.err
}

func (m *mockStep) Name() string {
	return m.name
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		first := &mockStep{name: "first", onDo: func(*model.FeedReport) { order = append(order, "first") }}
		second := &mockStep{name: "second", onDo: func(*model.FeedReport) { order = append(order, "second") }}

		p := New(WithLogger(testLogger()))
		p.AddSteps(first, second)

		report := model.NewFeedReport("key1")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("unexpected execution order: %v", order)
		}
		if len(report.PerformedSteps) != 2 {
			t.Errorf("PerformedSteps = %v, want both steps recorded", report.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		failure := errors.New("crawl failed")
		failing := &mockStep{name: "failing", err: failure}
		after := &mockStep{name: "after"}

		p := New(WithLogger(testLogger()))
		p.AddSteps(failing, after)

		report := model.NewFeedReport("key1")
		err := p.Execute(context.Background(), report)
		if !errors.Is(err, failure) {
			t.Errorf("Execute() = %v, want %v", err, failure)
		}
		if after.executed != 0 {
			t.Error("expected later steps to be skipped after a failure")
		}
		if report.Error == nil || report.ErrorMessage == "" {
			t.Error("expected the failure to be recorded in the report")
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "failing", err: errors.New("snapshot failed")}
		after := &mockStep{name: "after"}

		p := New(WithLogger(testLogger()), WithContinueOnError(true))
		p.AddSteps(failing, after)

		report := model.NewFeedReport("key1")
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if after.executed != 1 {
			t.Error("expected later steps to run despite the failure")
		}
		if report.ErrorMessage == "" {
			t.Error("expected the failure to be recorded in the report")
		}
	})

	t.Run("respects cancellation between steps", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		first := &mockStep{name: "first", onDo: func(*model.FeedReport) { cancel() }}
		second := &mockStep{name: "second"}

		p := New(WithLogger(testLogger()))
		p.AddSteps(first, second)

		err := p.Execute(ctx, model.NewFeedReport("key1"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() = %v, want context.Canceled", err)
		}
		if second.executed != 0 {
			t.Error("expected no steps to run after cancellation")
		}
	})
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New(WithLogger(testLogger()))
	if p.StepCount() != 0 {
		t.Errorf("StepCount = %d, want 0", p.StepCount())
	}

	p.AddStep(&mockStep{name: "crawl"})
	p.AddStep(&mockStep{name: "inventory"})

	names := p.StepNames()
	if len(names) != 2 || names[0] != "crawl" || names[1] != "inventory" {
		t.Errorf("StepNames = %v", names)
	}
	if p.StepCount() != 2 {
		t.Errorf("StepCount = %d, want 2", p.StepCount())
	}
}
