package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/ignaciomazza/ofistur-billing/api/responses"
	"github.com/ignaciomazza/ofistur-billing/api/validators"
	"github.com/ignaciomazza/ofistur-billing/internal/presentment"
	pkgerrors "github.com/ignaciomazza/ofistur-billing/pkg/errors"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

// PresentmentBuilder prepares and exports outbound bank batches.
type PresentmentBuilder interface {
	Prepare(ctx context.Context, params presentment.PrepareParams) (presentment.PrepareResult, error)
	ExportPending(ctx context.Context, params presentment.ExportParams) (presentment.ExportResult, error)
}

type presentmentPrepareRequest struct {
	BusinessDate string `json:"business_date,omitempty"`
	Adapter      string `json:"adapter,omitempty"`
	DryRun       bool   `json:"dry_run,omitempty"`
}

// PresentmentPrepare builds the outbound debit batch for a business date.
func PresentmentPrepare(builder PresentmentBuilder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if builder == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "presentment builder unavailable"))
			return
		}

		var req presentmentPrepareRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		params := presentment.PrepareParams{
			AdapterName: req.Adapter,
			DryRun:      req.DryRun,
		}
		if req.BusinessDate != "" {
			day, err := time.Parse(dateLayout, req.BusinessDate)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "business_date must be yyyy-mm-dd"))
				return
			}
			params.BusinessDate = day
		}

		result, err := builder.Prepare(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type presentmentExportRequest struct {
	Adapter string `json:"adapter,omitempty"`
}

// PresentmentExport hands READY batches to the bank channel.
func PresentmentExport(builder PresentmentBuilder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if builder == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "presentment builder unavailable"))
			return
		}

		var req presentmentExportRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		result, err := builder.ExportPending(ctx, presentment.ExportParams{AdapterName: req.Adapter})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
