// Package billing exposes the collections engine over HTTP: anchor runs,
// presentment batches, response imports and the charge ledger.
package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/ignaciomazza/ofistur-billing/api/responses"
	"github.com/ignaciomazza/ofistur-billing/api/validators"
	"github.com/ignaciomazza/ofistur-billing/internal/anchor"
	pkgerrors "github.com/ignaciomazza/ofistur-billing/pkg/errors"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

const dateLayout = "2006-01-02"

// AnchorRunner drives anchor-date billing.
type AnchorRunner interface {
	Run(ctx context.Context, params anchor.RunParams) (anchor.RunSummary, error)
}

type anchorRunRequest struct {
	AnchorDate   string `json:"anchor_date,omitempty"`
	AllowStaleFx bool   `json:"allow_stale_fx,omitempty"`
}

// AnchorRun triggers one anchor billing run. Re-running for the same date is
// a no-op: existing cycles and charges are never duplicated.
func AnchorRun(runner AnchorRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if runner == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "anchor runner unavailable"))
			return
		}

		var req anchorRunRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		params := anchor.RunParams{AllowStaleFx: req.AllowStaleFx}
		if req.AnchorDate != "" {
			day, err := time.Parse(dateLayout, req.AnchorDate)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "anchor_date must be yyyy-mm-dd"))
				return
			}
			params.AnchorDate = day
		}

		summary, err := runner.Run(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
