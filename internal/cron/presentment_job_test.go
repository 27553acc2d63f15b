package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/ignaciomazza/ofistur-billing/internal/presentment"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

type fakePresentmentBuilder struct {
	prepareErr  error
	exportErr   error
	prepares    int
	exports     int
	prepareRes  presentment.PrepareResult
	exportedRes presentment.ExportResult
}

func (f *fakePresentmentBuilder) Prepare(context.Context, presentment.PrepareParams) (presentment.PrepareResult, error) {
	f.prepares++
	return f.prepareRes, f.prepareErr
}

func (f *fakePresentmentBuilder) ExportPending(context.Context, presentment.ExportParams) (presentment.ExportResult, error) {
	f.exports++
	return f.exportedRes, f.exportErr
}

func TestPresentmentJobPreparesThenExports(t *testing.T) {
	builder := &fakePresentmentBuilder{}
	job := newPresentmentJob(t, builder)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if builder.prepares != 1 || builder.exports != 1 {
		t.Fatalf("expected one prepare and one export, got %d/%d", builder.prepares, builder.exports)
	}
}

func TestPresentmentJobExportsEvenWhenPrepareFails(t *testing.T) {
	builder := &fakePresentmentBuilder{prepareErr: errors.New("boom")}
	job := newPresentmentJob(t, builder)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if builder.exports != 1 {
		t.Fatalf("expected export to run despite prepare failure, ran %d", builder.exports)
	}
}

func newPresentmentJob(t *testing.T, builder *fakePresentmentBuilder) *presentmentJob {
	t.Helper()
	jobIface, err := NewPresentmentJob(PresentmentJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Builder: builder,
	})
	if err != nil {
		t.Fatalf("NewPresentmentJob: %v", err)
	}
	job, ok := jobIface.(*presentmentJob)
	if !ok {
		t.Fatalf("expected presentmentJob, got %T", jobIface)
	}
	return job
}
