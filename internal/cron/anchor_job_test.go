package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ignaciomazza/ofistur-billing/internal/anchor"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

type fakeAnchorRunner struct {
	lastParams anchor.RunParams
	summary    anchor.RunSummary
	err        error
	calls      int
}

func (f *fakeAnchorRunner) Run(_ context.Context, params anchor.RunParams) (anchor.RunSummary, error) {
	f.calls++
	f.lastParams = params
	return f.summary, f.err
}

func TestAnchorRunJobUsesCurrentDay(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	runner := &fakeAnchorRunner{summary: anchor.RunSummary{CyclesCreated: 2}}
	job := newAnchorRunJob(t, runner)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if runner.calls != 1 {
		t.Fatalf("expected runner called once, got %d", runner.calls)
	}
	if !runner.lastParams.AnchorDate.Equal(now) {
		t.Fatalf("expected anchor date %s, got %s", now, runner.lastParams.AnchorDate)
	}
}

func TestAnchorRunJobPropagatesErrors(t *testing.T) {
	runner := &fakeAnchorRunner{err: errors.New("boom")}
	job := newAnchorRunJob(t, runner)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newAnchorRunJob(t *testing.T, runner *fakeAnchorRunner) *anchorRunJob {
	t.Helper()
	jobIface, err := NewAnchorRunJob(AnchorRunJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Runner: runner,
	})
	if err != nil {
		t.Fatalf("NewAnchorRunJob: %v", err)
	}
	job, ok := jobIface.(*anchorRunJob)
	if !ok {
		t.Fatalf("expected anchorRunJob, got %T", jobIface)
	}
	return job
}
