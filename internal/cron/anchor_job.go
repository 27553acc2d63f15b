package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ignaciomazza/ofistur-billing/internal/anchor"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

// AnchorRunJobParams configures the daily anchor billing job.
type AnchorRunJobParams struct {
	Logger       *logger.Logger
	Runner       anchorRunner
	AllowStaleFx bool
}

type anchorRunner interface {
	Run(ctx context.Context, params anchor.RunParams) (anchor.RunSummary, error)
}

// NewAnchorRunJob constructs the anchor billing cron job.
func NewAnchorRunJob(params AnchorRunJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("anchor runner required")
	}
	return &anchorRunJob{
		logg:         params.Logger,
		runner:       params.Runner,
		allowStaleFx: params.AllowStaleFx,
		now:          time.Now,
	}, nil
}

type anchorRunJob struct {
	logg         *logger.Logger
	runner       anchorRunner
	allowStaleFx bool
	now          func() time.Time
}

func (j *anchorRunJob) Name() string { return "anchor-run" }

func (j *anchorRunJob) Run(ctx context.Context) error {
	today := j.now().UTC()
	summary, err := j.runner.Run(ctx, anchor.RunParams{
		AnchorDate:   today,
		AllowStaleFx: j.allowStaleFx,
	})
	if err != nil {
		return fmt.Errorf("anchor run: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cycles_created":   summary.CyclesCreated,
		"charges_created":  summary.ChargesCreated,
		"attempts_created": summary.AttemptsCreated,
		"skipped":          summary.Skipped,
		"errors":           len(summary.Errors),
	})
	j.logg.Info(logCtx, "anchor run job complete")
	return nil
}
