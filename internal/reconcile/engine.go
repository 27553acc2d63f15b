// Package reconcile owns the single choke point through which a charge is
// closed as paid, whatever channel collected it.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/internal/billing"
	"github.com/ignaciomazza/ofistur-billing/pkg/db"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
	"github.com/ignaciomazza/ofistur-billing/pkg/errors"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

// ClosePaidInput describes one settled collection.
type ClosePaidInput struct {
	ChargeID    uuid.UUID
	AttemptID   *uuid.UUID
	AmountARS   decimal.Decimal
	PaidAt      time.Time
	SourceRef   string
	Channel     enums.CollectionChannel
	ActorUserID *uuid.UUID
}

// ClosureResult reports what the closure did.
type ClosureResult struct {
	AlreadyPaid      bool
	Closed           bool
	CanceledAttempts int64
	PaidViaChannel   enums.CollectionChannel
}

// Engine applies the paid transition exactly once per charge.
type Engine struct {
	client  *db.Client
	billing billing.Repository
	logg    *logger.Logger
}

// NewEngine builds the reconciliation engine.
func NewEngine(client *db.Client, billingRepo billing.Repository, logg *logger.Logger) *Engine {
	return &Engine{client: client, billing: billingRepo, logg: logg}
}

// CloseChargeAsPaidTx closes a charge inside the caller's transaction:
// charge -> PAID with paid fields and reconciliation MATCHED, open sibling
// attempts -> CANCELED, cycle -> PAID, exactly one charge_paid event. An
// already-paid charge short-circuits with AlreadyPaid and no mutation.
func (e *Engine) CloseChargeAsPaidTx(ctx context.Context, tx *gorm.DB, in ClosePaidInput) (ClosureResult, error) {
	repo := e.billing.WithTx(tx)

	charge, err := repo.GetCharge(ctx, in.ChargeID)
	if err != nil {
		return ClosureResult{}, errors.Wrap(errors.CodeInternal, err,
			fmt.Sprintf("charge %s not found during paid closure", in.ChargeID))
	}

	if charge.Status == enums.ChargeStatusPaid {
		return ClosureResult{AlreadyPaid: true, PaidViaChannel: in.Channel}, nil
	}

	now := time.Now().UTC()
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}
	currency := "ARS"
	sourceRef := in.SourceRef

	charge.Status = enums.ChargeStatusPaid
	charge.ReconciliationStatus = enums.ReconciliationStatusMatched
	charge.AmountARSPaid = decimal.NewNullDecimal(in.AmountARS)
	charge.PaidAt = &paidAt
	charge.PaidCurrency = &currency
	if sourceRef != "" {
		charge.PaidReference = &sourceRef
	}
	if err := repo.UpdateCharge(ctx, charge); err != nil {
		return ClosureResult{}, err
	}

	exceptID := uuid.Nil
	if in.AttemptID != nil {
		exceptID = *in.AttemptID
	}
	canceled, err := repo.CancelOpenAttempts(ctx, charge.ID, exceptID, now)
	if err != nil {
		return ClosureResult{}, err
	}

	if err := repo.UpdateCycleStatus(ctx, charge.CycleID, enums.CycleStatusPaid); err != nil {
		return ClosureResult{}, err
	}

	payload, err := json.Marshal(map[string]any{
		"charge_id":  charge.ID,
		"amount_ars": in.AmountARS.StringFixed(2),
		"paid_at":    paidAt.Format(time.RFC3339),
		"source_ref": in.SourceRef,
		"channel":    in.Channel.String(),
	})
	if err != nil {
		return ClosureResult{}, err
	}
	chargeID := charge.ID
	event := &models.BillingEvent{
		ID:          uuid.New(),
		AgencyID:    charge.AgencyID,
		Type:        enums.BillingEventChargePaid,
		ChargeID:    &chargeID,
		ActorUserID: in.ActorUserID,
		Payload:     payload,
	}
	if err := repo.CreateEvent(ctx, event); err != nil {
		return ClosureResult{}, err
	}

	if e.logg != nil {
		e.logg.Info(e.logg.WithFields(ctx, map[string]any{
			"charge_id":         charge.ID.String(),
			"agency_id":         charge.AgencyID.String(),
			"canceled_attempts": canceled,
		}), "charge closed as paid")
	}

	return ClosureResult{
		Closed:           true,
		CanceledAttempts: canceled,
		PaidViaChannel:   in.Channel,
	}, nil
}

// CloseChargeAsPaid wraps the closure in its own transaction for channels
// that do not run inside a batch import.
func (e *Engine) CloseChargeAsPaid(ctx context.Context, in ClosePaidInput) (ClosureResult, error) {
	var result ClosureResult
	err := e.client.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		result, txErr = e.CloseChargeAsPaidTx(ctx, tx, in)
		return txErr
	})
	if err != nil {
		return ClosureResult{}, err
	}
	return result, nil
}
