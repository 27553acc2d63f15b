// Package anchor materializes billing cycles: for every active subscription
// whose anchor date has arrived it freezes a cycle, creates the charge and
// schedules the collection attempts.
package anchor

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/internal/billing"
	"github.com/ignaciomazza/ofistur-billing/internal/counters"
	"github.com/ignaciomazza/ofistur-billing/internal/fx"
	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/db"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

// maxAnchorDay keeps every anchor valid in the shortest month.
const maxAnchorDay = 28

// RunParams configures one anchor run.
type RunParams struct {
	AnchorDate   time.Time
	AllowStaleFx bool
	ActorUserID  *uuid.UUID
}

// SubscriptionError is a per-subscription failure collected into the summary.
type SubscriptionError struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	Reason         string    `json:"reason"`
}

// RunSummary reports what one run materialized.
type RunSummary struct {
	CyclesCreated   int                 `json:"cycles_created"`
	ChargesCreated  int                 `json:"charges_created"`
	AttemptsCreated int                 `json:"attempts_created"`
	Skipped         int                 `json:"skipped"`
	Errors          []SubscriptionError `json:"errors,omitempty"`
}

// Runner drives anchor-date billing.
type Runner struct {
	client   *db.Client
	billing  billing.Repository
	counters counters.Service
	fx       *fx.Resolver
	cfg      config.BillingConfig
	logg     *logger.Logger
}

// NewRunner builds the anchor runner.
func NewRunner(client *db.Client, billingRepo billing.Repository, counterSvc counters.Service, resolver *fx.Resolver, cfg config.BillingConfig, logg *logger.Logger) *Runner {
	return &Runner{
		client:   client,
		billing:  billingRepo,
		counters: counterSvc,
		fx:       resolver,
		cfg:      cfg,
		logg:     logg,
	}
}

type subscriptionOutcome struct {
	cycleCreated    bool
	chargeCreated   bool
	attemptsCreated int
	skipped         bool
	warning         string
}

// Run processes every due subscription sequentially, each inside its own
// transaction, and never aborts the run on a per-subscription failure.
func (r *Runner) Run(ctx context.Context, params RunParams) (RunSummary, error) {
	day := dateOnly(params.AnchorDate)
	if params.AnchorDate.IsZero() {
		day = dateOnly(time.Now().UTC())
	}

	subs, err := r.billing.ListDueSubscriptions(ctx, day)
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{}
	for i := range subs {
		sub := subs[i]
		anchor, due := r.anchorFor(&sub, day)
		if !due {
			summary.Skipped++
			continue
		}

		outcome, err := r.processSubscription(ctx, &sub, anchor, params)
		if err != nil {
			summary.Errors = append(summary.Errors, SubscriptionError{
				SubscriptionID: sub.ID,
				Reason:         err.Error(),
			})
			if r.logg != nil {
				r.logg.Error(r.logg.WithAgencyID(ctx, sub.AgencyID.String()),
					"anchor run failed for subscription", err)
			}
			continue
		}
		if outcome.skipped {
			summary.Skipped++
			continue
		}
		if outcome.cycleCreated {
			summary.CyclesCreated++
		}
		if outcome.chargeCreated {
			summary.ChargesCreated++
		}
		summary.AttemptsCreated += outcome.attemptsCreated
		if outcome.warning != "" {
			summary.Errors = append(summary.Errors, SubscriptionError{
				SubscriptionID: sub.ID,
				Reason:         outcome.warning,
			})
		}
	}

	if r.logg != nil {
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"anchor_date":      day.Format("2006-01-02"),
			"cycles_created":   summary.CyclesCreated,
			"charges_created":  summary.ChargesCreated,
			"attempts_created": summary.AttemptsCreated,
			"skipped":          summary.Skipped,
			"errors":           len(summary.Errors),
		}), "anchor run finished")
	}
	return summary, nil
}

// anchorFor resolves the anchor date for a subscription: the stored next
// anchor, or the first anchor derived from its anchor day.
func (r *Runner) anchorFor(sub *models.Subscription, day time.Time) (time.Time, bool) {
	if sub.NextAnchorDate != nil {
		anchor := dateOnly(*sub.NextAnchorDate)
		return anchor, !anchor.After(day)
	}
	anchorDay := sub.AnchorDay
	if anchorDay < 1 {
		anchorDay = 1
	}
	if anchorDay > maxAnchorDay {
		anchorDay = maxAnchorDay
	}
	anchor := time.Date(day.Year(), day.Month(), anchorDay, 0, 0, 0, 0, time.UTC)
	return anchor, !anchor.After(day)
}

func (r *Runner) processSubscription(ctx context.Context, sub *models.Subscription, anchor time.Time, params RunParams) (subscriptionOutcome, error) {
	var outcome subscriptionOutcome

	// An existing cycle short-circuits the whole subscription for this run.
	if _, err := r.billing.FindCycle(ctx, sub.ID, anchor); err == nil {
		return subscriptionOutcome{skipped: true}, nil
	} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return outcome, err
	}

	resolution, err := r.fx.Resolve(ctx, enums.FxRateTypeUSDARS, anchor, params.AllowStaleFx)
	if err != nil {
		return outcome, err
	}

	method, err := r.billing.DefaultPaymentMethod(ctx, sub.ID)
	if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return outcome, err
	}
	eligible := method != nil && err == nil && method.EligibleForDebit()

	amountUSD := sub.PlanPriceUSD
	if eligible && sub.DebitDiscountPct.IsPositive() {
		factor := decimal.NewFromInt(100).Sub(sub.DebitDiscountPct)
		amountUSD = amountUSD.Mul(factor).Div(decimal.NewFromInt(100)).Round(2)
	}
	amountARS := amountUSD.Mul(resolution.Rate).Round(2)

	txErr := r.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.billing.WithTx(tx)

		cycle := &models.BillingCycle{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			AgencyID:       sub.AgencyID,
			AnchorDate:     anchor,
			PeriodStart:    anchor,
			PeriodEnd:      anchor.AddDate(0, 1, 0).AddDate(0, 0, -1),
			Status:         enums.CycleStatusFrozen,
			FxRate:         resolution.Rate,
			AmountUSD:      amountUSD,
			AmountARS:      amountARS,
		}
		created, err := repo.InsertCycle(ctx, cycle)
		if err != nil {
			return err
		}
		if !created {
			// Concurrent run materialized this anchor first.
			outcome.skipped = true
			return nil
		}
		outcome.cycleCreated = true

		number, err := r.counters.Next(ctx, tx, sub.AgencyID, counters.KeyChargeNumber)
		if err != nil {
			return err
		}

		charge := &models.Charge{
			ID:                   uuid.New(),
			CycleID:              cycle.ID,
			SubscriptionID:       sub.ID,
			AgencyID:             sub.AgencyID,
			Number:               number,
			AmountUSDDue:         amountUSD,
			AmountARSDue:         amountARS,
			DueDate:              anchor,
			Status:               enums.ChargeStatusReady,
			ReconciliationStatus: enums.ReconciliationStatusPending,
			IdempotencyKey:       idempotencyKey(sub.ID, anchor),
		}
		if eligible {
			methodID := method.ID
			charge.PaymentMethodID = &methodID
		}
		chargeCreated, err := repo.InsertCharge(ctx, charge)
		if err != nil {
			return err
		}
		if !chargeCreated {
			existing, err := repo.FindChargeByIdempotencyKey(ctx, sub.AgencyID, charge.IdempotencyKey)
			if err != nil {
				return err
			}
			charge = existing
		}
		outcome.chargeCreated = chargeCreated

		if chargeCreated && eligible {
			for n := 1; n <= r.cfg.AttemptCount; n++ {
				scheduled := anchor.AddDate(0, 0, (n-1)*r.cfg.AttemptOffsetDays)
				methodID := method.ID
				attempt := &models.CollectionAttempt{
					ID:              uuid.New(),
					ChargeID:        charge.ID,
					AgencyID:        sub.AgencyID,
					AttemptNo:       n,
					Channel:         enums.CollectionChannelDirectDebit,
					Status:          enums.AttemptStatusPending,
					PaymentMethodID: &methodID,
					AmountARS:       amountARS,
					ExternalRef:     externalRef(charge.ID, n),
					ScheduledFor:    &scheduled,
				}
				if err := repo.CreateAttempt(ctx, attempt); err != nil {
					return err
				}
				outcome.attemptsCreated++
			}
		}
		if chargeCreated && !eligible {
			outcome.warning = "no eligible payment method, charge created without attempts"
		}

		return repo.AdvanceAnchor(ctx, sub.ID, anchor.AddDate(0, 1, 0))
	})
	if txErr != nil {
		return subscriptionOutcome{}, txErr
	}
	return outcome, nil
}

func idempotencyKey(subscriptionID uuid.UUID, anchor time.Time) string {
	return fmt.Sprintf("sub:%s:anchor:%s", subscriptionID, anchor.Format("2006-01-02"))
}

// externalRef derives the unique reference presented to the bank for one
// attempt. Deterministic per (charge, attempt number).
func externalRef(chargeID uuid.UUID, attemptNo int) string {
	compact := strings.ToUpper(strings.ReplaceAll(chargeID.String(), "-", ""))
	return fmt.Sprintf("OF%s%02d", compact[:12], attemptNo)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
