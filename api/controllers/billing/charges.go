package billing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignaciomazza/ofistur-billing/api/responses"
	"github.com/ignaciomazza/ofistur-billing/api/validators"
	billingrepo "github.com/ignaciomazza/ofistur-billing/internal/billing"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
	pkgerrors "github.com/ignaciomazza/ofistur-billing/pkg/errors"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
	"github.com/ignaciomazza/ofistur-billing/pkg/pagination"
)

// ChargesLister pages through the charge ledger.
type ChargesLister interface {
	ListCharges(ctx context.Context, filter billingrepo.ChargeFilter, params pagination.Params) ([]models.Charge, string, error)
}

type chargeView struct {
	ID                   string          `json:"id"`
	AgencyID             string          `json:"agency_id"`
	SubscriptionID       string          `json:"subscription_id"`
	Number               int64           `json:"number"`
	AmountUSDDue         decimal.Decimal `json:"amount_usd_due"`
	AmountARSDue         decimal.Decimal `json:"amount_ars_due"`
	AmountARSPaid        *string         `json:"amount_ars_paid,omitempty"`
	DueDate              time.Time       `json:"due_date"`
	Status               string          `json:"status"`
	ReconciliationStatus string          `json:"reconciliation_status"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

type chargesResponse struct {
	Charges []chargeView `json:"charges"`
	Cursor  string       `json:"cursor"`
}

// ListCharges pages the charge ledger, optionally filtered by agency,
// status and reconciliation status.
func ListCharges(lister ChargesLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if lister == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing repository unavailable"))
			return
		}

		query := r.URL.Query()
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var filter billingrepo.ChargeFilter
		if raw := strings.TrimSpace(query.Get("agency_id")); raw != "" {
			agencyID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "agency_id must be a uuid"))
				return
			}
			filter.AgencyID = &agencyID
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, parseErr := enums.ParseChargeStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(query.Get("reconciliation_status")); raw != "" {
			recon, parseErr := enums.ParseReconciliationStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid reconciliation_status"))
				return
			}
			filter.ReconciliationStatus = &recon
		}

		charges, cursor, err := lister.ListCharges(ctx, filter, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(query.Get("cursor")),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := chargesResponse{
			Charges: make([]chargeView, len(charges)),
			Cursor:  cursor,
		}
		for i, charge := range charges {
			payload.Charges[i] = toChargeView(charge)
		}
		responses.WriteSuccess(w, payload)
	}
}

func toChargeView(c models.Charge) chargeView {
	view := chargeView{
		ID:                   c.ID.String(),
		AgencyID:             c.AgencyID.String(),
		SubscriptionID:       c.SubscriptionID.String(),
		Number:               c.Number,
		AmountUSDDue:         c.AmountUSDDue,
		AmountARSDue:         c.AmountARSDue,
		DueDate:              c.DueDate,
		Status:               string(c.Status),
		ReconciliationStatus: string(c.ReconciliationStatus),
		PaidAt:               c.PaidAt,
		CreatedAt:            c.CreatedAt.UTC(),
	}
	if c.AmountARSPaid.Valid {
		paid := c.AmountARSPaid.Decimal.StringFixed(2)
		view.AmountARSPaid = &paid
	}
	return view
}
