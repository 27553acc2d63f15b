package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/ignaciomazza/ofistur-billing/internal/presentment"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

// PresentmentJobParams configures the daily bank presentment job.
type PresentmentJobParams struct {
	Logger  *logger.Logger
	Builder presentmentBuilder
}

type presentmentBuilder interface {
	Prepare(ctx context.Context, params presentment.PrepareParams) (presentment.PrepareResult, error)
	ExportPending(ctx context.Context, params presentment.ExportParams) (presentment.ExportResult, error)
}

// NewPresentmentJob constructs the presentment cron job. It prepares the
// outbound batch for the business day and then exports anything READY,
// including batches left behind by earlier failed exports.
func NewPresentmentJob(params PresentmentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Builder == nil {
		return nil, fmt.Errorf("presentment builder required")
	}
	return &presentmentJob{
		logg:    params.Logger,
		builder: params.Builder,
		now:     time.Now,
	}, nil
}

type presentmentJob struct {
	logg    *logger.Logger
	builder presentmentBuilder
	now     func() time.Time
}

func (j *presentmentJob) Name() string { return "presentment" }

func (j *presentmentJob) Run(ctx context.Context) error {
	var errs []error

	prepared, err := j.builder.Prepare(ctx, presentment.PrepareParams{
		BusinessDate: j.now().UTC(),
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("prepare presentment: %w", err))
	} else {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"no_op":        prepared.NoOp,
			"record_count": prepared.RecordCount,
			"total_ars":    prepared.TotalAmountARS.StringFixed(2),
		})
		j.logg.Info(logCtx, "presentment prepare complete")
	}

	exported, err := j.builder.ExportPending(ctx, presentment.ExportParams{})
	if err != nil {
		errs = append(errs, fmt.Errorf("export presentment: %w", err))
	} else {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"no_op":            exported.NoOp,
			"batches_exported": exported.BatchesExported,
		})
		j.logg.Info(logCtx, "presentment export complete")
	}

	return multierr.Combine(errs...)
}
