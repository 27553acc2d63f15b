package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

type fakeFiscalRetrier struct {
	lastLimit int
	issued    int
	err       error
}

func (f *fakeFiscalRetrier) RetryFailed(_ context.Context, limit int) (int, error) {
	f.lastLimit = limit
	return f.issued, f.err
}

func TestFiscalRetryJobAppliesDefaultLimit(t *testing.T) {
	retrier := &fakeFiscalRetrier{issued: 3}
	jobIface, err := NewFiscalRetryJob(FiscalRetryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Issuer: retrier,
	})
	if err != nil {
		t.Fatalf("NewFiscalRetryJob: %v", err)
	}

	if err := jobIface.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if retrier.lastLimit != defaultFiscalRetryLimit {
		t.Fatalf("expected limit %d, got %d", defaultFiscalRetryLimit, retrier.lastLimit)
	}
}

func TestFiscalRetryJobPropagatesErrors(t *testing.T) {
	retrier := &fakeFiscalRetrier{err: errors.New("boom")}
	jobIface, err := NewFiscalRetryJob(FiscalRetryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Issuer: retrier,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("NewFiscalRetryJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
