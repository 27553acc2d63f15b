package cron

import (
	"context"
	"fmt"

	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

const defaultFiscalRetryLimit = 100

// FiscalRetryJobParams configures the stuck-document retry job.
type FiscalRetryJobParams struct {
	Logger *logger.Logger
	Issuer fiscalRetrier
	Limit  int
}

type fiscalRetrier interface {
	RetryFailed(ctx context.Context, limit int) (int, error)
}

// NewFiscalRetryJob constructs the fiscal retry cron job.
func NewFiscalRetryJob(params FiscalRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Issuer == nil {
		return nil, fmt.Errorf("fiscal issuer required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultFiscalRetryLimit
	}
	return &fiscalRetryJob{
		logg:   params.Logger,
		issuer: params.Issuer,
		limit:  limit,
	}, nil
}

type fiscalRetryJob struct {
	logg   *logger.Logger
	issuer fiscalRetrier
	limit  int
}

func (j *fiscalRetryJob) Name() string { return "fiscal-retry" }

func (j *fiscalRetryJob) Run(ctx context.Context) error {
	issued, err := j.issuer.RetryFailed(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("fiscal retry: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"issued": issued})
	j.logg.Info(logCtx, "fiscal retry complete")
	return nil
}
