package billing

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignaciomazza/ofistur-billing/api/responses"
	"github.com/ignaciomazza/ofistur-billing/api/validators"
	"github.com/ignaciomazza/ofistur-billing/internal/respimport"
	pkgerrors "github.com/ignaciomazza/ofistur-billing/pkg/errors"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

// maxResponseFileBytes caps one uploaded bank response file.
const maxResponseFileBytes = 16 << 20

// ResponseImporter applies an inbound bank response batch.
type ResponseImporter interface {
	Import(ctx context.Context, params respimport.ImportParams) (respimport.ImportResult, error)
}

// ImportResponses ingests the bank's response file for an outbound batch.
// The file travels as the "file" part of a multipart form. Re-uploading the
// same content reports already_imported without touching any state.
func ImportResponses(importer ResponseImporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if importer == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "response importer unavailable"))
			return
		}

		batchID, err := uuid.Parse(chi.URLParam(r, "batchId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "batchId must be a uuid"))
			return
		}

		if err := r.ParseMultipartForm(maxResponseFileBytes); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "expected multipart form with a file part"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "missing file part"))
			return
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, maxResponseFileBytes+1))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading uploaded file"))
			return
		}
		if len(content) > maxResponseFileBytes {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "response file too large"))
			return
		}
		if len(content) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "response file is empty"))
			return
		}

		result, err := importer.Import(ctx, respimport.ImportParams{
			OutboundBatchID: batchID,
			FileName:        validators.SanitizeString(header.Filename, 128),
			Content:         content,
			ContentType:     header.Header.Get("Content-Type"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
