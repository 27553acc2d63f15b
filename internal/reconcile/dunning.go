package reconcile

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

// PaidNotification carries the settled-collection facts the dunning
// subsystem reacts to.
type PaidNotification struct {
	ChargeID  uuid.UUID
	AttemptID uuid.UUID
	AmountARS decimal.Decimal
	SourceRef string
	Closure   ClosureResult
}

// RejectedNotification carries a declined-collection outcome.
type RejectedNotification struct {
	ChargeID   uuid.UUID
	AttemptID  uuid.UUID
	AttemptNo  int
	ResultCode string
	Reason     string
}

// DunningHook is the boundary to the dunning subsystem. The engine calls it
// after the reconciliation transaction commits; hook failures are logged,
// never propagated into billing state.
type DunningHook interface {
	OnAttemptPaid(ctx context.Context, n PaidNotification) error
	OnAttemptRejected(ctx context.Context, n RejectedNotification) error
}

// LogDunningHook is the default no-op hook. It only records the notification.
type LogDunningHook struct {
	logg *logger.Logger
}

// NewLogDunningHook returns the logging hook.
func NewLogDunningHook(logg *logger.Logger) *LogDunningHook {
	return &LogDunningHook{logg: logg}
}

func (h *LogDunningHook) OnAttemptPaid(ctx context.Context, n PaidNotification) error {
	if h.logg != nil {
		h.logg.Info(h.logg.WithFields(ctx, map[string]any{
			"charge_id":  n.ChargeID.String(),
			"attempt_id": n.AttemptID.String(),
			"amount_ars": n.AmountARS.StringFixed(2),
		}), "dunning notified: attempt paid")
	}
	return nil
}

func (h *LogDunningHook) OnAttemptRejected(ctx context.Context, n RejectedNotification) error {
	if h.logg != nil {
		h.logg.Info(h.logg.WithFields(ctx, map[string]any{
			"charge_id":   n.ChargeID.String(),
			"attempt_id":  n.AttemptID.String(),
			"result_code": n.ResultCode,
			"reason":      n.Reason,
		}), "dunning notified: attempt rejected")
	}
	return nil
}
