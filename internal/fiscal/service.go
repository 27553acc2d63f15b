// Package fiscal issues tax-authority documents for paid charges. The issuer
// is a collaborator of the reconciliation flow, never a gate on it.
package fiscal

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/internal/billing"
	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
)

// IssueResult is what the tax authority returns on a successful issuance.
type IssueResult struct {
	Reference string
	CAE       string
	CAEDue    time.Time
}

// IssuerClient is the boundary to the tax authority (AFIP-style WS).
type IssuerClient interface {
	Issue(ctx context.Context, charge *models.Charge, docType enums.FiscalDocType) (IssueResult, error)
}

// Issuer upserts fiscal documents for charges.
type Issuer struct {
	repo    Repository
	billing billing.Repository
	issuer  IssuerClient
	cfg     config.FiscalConfig
	logg    *logger.Logger
}

// NewIssuer builds the fiscal issuer. In MOCK mode a fabricated client is
// used regardless of the one provided.
func NewIssuer(repo Repository, billingRepo billing.Repository, issuerClient IssuerClient, cfg config.FiscalConfig, logg *logger.Logger) *Issuer {
	if cfg.IsMock() || issuerClient == nil {
		issuerClient = NewMockClient()
	}
	return &Issuer{
		repo:    repo,
		billing: billingRepo,
		issuer:  issuerClient,
		cfg:     cfg,
		logg:    logg,
	}
}

// EnsureDocument returns the existing (charge, doc type) document or attempts
// issuance. A failed attempt leaves the document FAILED with the retry count
// bumped; the retry job picks it up later.
func (i *Issuer) EnsureDocument(ctx context.Context, chargeID uuid.UUID, docType enums.FiscalDocType) (*models.FiscalDocument, error) {
	existing, err := i.repo.Find(ctx, chargeID, docType)
	if err == nil {
		if existing.Status == enums.FiscalDocStatusIssued {
			return existing, nil
		}
		return i.retry(ctx, existing)
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	charge, err := i.billing.GetCharge(ctx, chargeID)
	if err != nil {
		return nil, fmt.Errorf("loading charge %s for fiscal issuance: %w", chargeID, err)
	}

	doc := &models.FiscalDocument{
		ID:       uuid.New(),
		ChargeID: chargeID,
		AgencyID: charge.AgencyID,
		DocType:  docType,
		Status:   enums.FiscalDocStatusPending,
	}
	if err := i.repo.Create(ctx, doc); err != nil {
		// Concurrent issuance for the same pair: surface the winner.
		if existing, findErr := i.repo.Find(ctx, chargeID, docType); findErr == nil {
			return existing, nil
		}
		return nil, err
	}

	return i.attempt(ctx, doc, charge)
}

// RetryFailed re-attempts documents stuck PENDING/FAILED, bounded by the
// configured retry ceiling. Returns how many were issued.
func (i *Issuer) RetryFailed(ctx context.Context, limit int) (int, error) {
	docs, err := i.repo.ListRetryable(ctx, i.cfg.MaxRetries, limit)
	if err != nil {
		return 0, err
	}
	issued := 0
	for idx := range docs {
		doc, err := i.retry(ctx, &docs[idx])
		if err != nil {
			continue
		}
		if doc.Status == enums.FiscalDocStatusIssued {
			issued++
		}
	}
	return issued, nil
}

func (i *Issuer) retry(ctx context.Context, doc *models.FiscalDocument) (*models.FiscalDocument, error) {
	charge, err := i.billing.GetCharge(ctx, doc.ChargeID)
	if err != nil {
		return nil, err
	}
	return i.attempt(ctx, doc, charge)
}

func (i *Issuer) attempt(ctx context.Context, doc *models.FiscalDocument, charge *models.Charge) (*models.FiscalDocument, error) {
	result, err := i.issuer.Issue(ctx, charge, doc.DocType)
	if err != nil {
		doc.Status = enums.FiscalDocStatusFailed
		doc.RetryCount++
		msg := err.Error()
		doc.LastError = &msg
		if updateErr := i.repo.Update(ctx, doc); updateErr != nil {
			return nil, updateErr
		}
		if i.logg != nil {
			i.logg.Warn(i.logg.WithFields(ctx, map[string]any{
				"charge_id":   doc.ChargeID.String(),
				"doc_type":    doc.DocType.String(),
				"retry_count": doc.RetryCount,
			}), "fiscal issuance failed")
		}
		return doc, nil
	}

	doc.Status = enums.FiscalDocStatusIssued
	doc.IssuerReference = &result.Reference
	doc.CAE = &result.CAE
	caeDue := result.CAEDue
	doc.CAEDue = &caeDue
	doc.LastError = nil
	if err := i.repo.Update(ctx, doc); err != nil {
		return nil, err
	}

	if i.logg != nil {
		i.logg.Info(i.logg.WithFields(ctx, map[string]any{
			"charge_id": doc.ChargeID.String(),
			"doc_type":  doc.DocType.String(),
			"cae":       result.CAE,
		}), "fiscal document issued")
	}
	return doc, nil
}
