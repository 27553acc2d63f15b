// Package respimport ingests the bank's response file for an outbound
// presentment batch and applies each row's outcome exactly once.
package respimport

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/internal/bankfile"
	"github.com/ignaciomazza/ofistur-billing/internal/batches"
	"github.com/ignaciomazza/ofistur-billing/internal/billing"
	"github.com/ignaciomazza/ofistur-billing/internal/fiscal"
	"github.com/ignaciomazza/ofistur-billing/internal/reconcile"
	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/db"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
	"github.com/ignaciomazza/ofistur-billing/pkg/errors"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
	"github.com/ignaciomazza/ofistur-billing/pkg/storage"
)

// ImportParams describes one uploaded response file.
type ImportParams struct {
	OutboundBatchID uuid.UUID
	FileName        string
	Content         []byte
	ContentType     string
	ActorUserID     *uuid.UUID
}

// Summary counts the per-row outcomes of one import.
type Summary struct {
	Matched      int `json:"matched"`
	Paid         int `json:"paid"`
	Rejected     int `json:"rejected"`
	Errors       int `json:"errors"`
	FiscalIssued int `json:"fiscal_issued"`
}

// ImportResult reports the import, flagging idempotent re-uploads.
type ImportResult struct {
	AlreadyImported bool      `json:"already_imported"`
	BatchID         uuid.UUID `json:"batch_id"`
	Summary         Summary   `json:"summary"`
}

// Importer parses, matches and applies inbound response batches.
type Importer struct {
	client    *db.Client
	billing   billing.Repository
	batches   batches.Repository
	engine    *reconcile.Engine
	fiscal    *fiscal.Issuer
	registry  *bankfile.Registry
	store     storage.Store
	dunning   reconcile.DunningHook
	fiscalCfg config.FiscalConfig
	logg      *logger.Logger
}

// NewImporter builds the response importer.
func NewImporter(client *db.Client, billingRepo billing.Repository, batchRepo batches.Repository, engine *reconcile.Engine, issuer *fiscal.Issuer, registry *bankfile.Registry, store storage.Store, dunning reconcile.DunningHook, fiscalCfg config.FiscalConfig, logg *logger.Logger) *Importer {
	return &Importer{
		client:    client,
		billing:   billingRepo,
		batches:   batchRepo,
		engine:    engine,
		fiscal:    issuer,
		registry:  registry,
		store:     store,
		dunning:   dunning,
		fiscalCfg: fiscalCfg,
		logg:      logg,
	}
}

type paidRow struct {
	charge  *models.Charge
	attempt *models.CollectionAttempt
	row     bankfile.ResponseRow
	closure reconcile.ClosureResult
}

type rejectedRow struct {
	charge  *models.Charge
	attempt *models.CollectionAttempt
	row     bankfile.ResponseRow
}

// Import applies the response file to the outbound batch's attempts. A
// re-upload of already-processed content (matched by hash, or by adapter +
// record count + total amount for the same outbound batch) returns
// AlreadyImported without touching any state. A structural mismatch aborts
// with ADAPTER_MISMATCH and persists nothing.
func (i *Importer) Import(ctx context.Context, params ImportParams) (ImportResult, error) {
	outbound, err := i.batches.Get(ctx, params.OutboundBatchID)
	if err != nil {
		return ImportResult{}, errors.Wrap(errors.CodeNotFound, err,
			fmt.Sprintf("outbound batch %s not found", params.OutboundBatchID))
	}
	if outbound.Direction != enums.BatchDirectionOutbound {
		return ImportResult{}, errors.New(errors.CodeValidation,
			"responses can only be imported against an outbound batch")
	}

	sha := storage.SHA256Hex(params.Content)
	if existing, err := i.batches.FindInboundBySHA(ctx, outbound.ID, sha); err == nil {
		return alreadyImported(existing), nil
	} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return ImportResult{}, err
	}

	adapter, err := i.registry.Get(outbound.AdapterName)
	if err != nil {
		return ImportResult{}, err
	}
	file, err := bankfile.ParseResponse(adapter, params.Content)
	if err != nil {
		return ImportResult{}, err
	}

	if existing, err := i.batches.FindInboundByTotals(ctx, outbound.ID, outbound.AdapterName, len(file.Rows), file.Trailer.TotalAmount); err == nil {
		if i.logg != nil {
			i.logg.Warn(i.logg.WithBatchID(ctx, existing.ID.String()),
				"inbound batch matched by record count and total amount with a different content hash")
		}
		return alreadyImported(existing), nil
	} else if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return ImportResult{}, err
	}

	var (
		summary  Summary
		inbound  *models.FileBatch
		paid     []paidRow
		rejected []rejectedRow
	)

	err = i.client.WithTx(ctx, func(tx *gorm.DB) error {
		batchRepo := i.batches.WithTx(tx)
		billingRepo := i.billing.WithTx(tx)

		businessDate := file.Header.BusinessDate
		if businessDate.IsZero() {
			businessDate = outbound.BusinessDate
		}
		parentID := outbound.ID
		storageKey := fmt.Sprintf("batches/inbound/%s/%s-%s",
			businessDate.Format("2006-01-02"), uuid.NewString()[:8], safeFileName(params.FileName))

		inbound = &models.FileBatch{
			ID:             uuid.New(),
			Direction:      enums.BatchDirectionInbound,
			ParentBatchID:  &parentID,
			AdapterName:    outbound.AdapterName,
			AdapterVersion: adapter.Version(),
			BusinessDate:   businessDate,
			Sequence:       file.Header.Sequence,
			StorageKey:     storageKey,
			ContentSHA256:  sha,
			RecordCount:    len(file.Rows),
			TotalAmountARS: file.Trailer.TotalAmount,
			Status:         enums.BatchStatusCreated,
			CreatedByID:    params.ActorUserID,
		}
		if err := batchRepo.Create(ctx, inbound); err != nil {
			return err
		}

		for _, row := range file.Rows {
			outcome, err := i.applyRow(ctx, tx, batchRepo, billingRepo, outbound, inbound, row, params.ActorUserID)
			if err != nil {
				return err
			}
			if outcome.matched {
				summary.Matched++
			}
			switch {
			case outcome.paid != nil:
				summary.Paid++
				paid = append(paid, *outcome.paid)
			case outcome.rejected != nil:
				summary.Rejected++
				rejected = append(rejected, *outcome.rejected)
			default:
				summary.Errors++
			}
		}

		inbound.PaidCount = summary.Paid
		inbound.RejectedCount = summary.Rejected
		inbound.ErrorCount = summary.Errors
		inbound.Status = enums.BatchStatusImported
		if err := batchRepo.Update(ctx, inbound); err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]any{
			"batch_id":          inbound.ID,
			"outbound_batch_id": outbound.ID,
			"paid":              summary.Paid,
			"rejected":          summary.Rejected,
			"errors":            summary.Errors,
		})
		if err != nil {
			return err
		}
		if err := billingRepo.CreateEvent(ctx, &models.BillingEvent{
			ID:          uuid.New(),
			AgencyID:    uuid.Nil,
			Type:        enums.BillingEventBatchImported,
			ActorUserID: params.ActorUserID,
			Payload:     payload,
		}); err != nil {
			return err
		}

		return i.store.UploadBatchFile(ctx, storageKey, params.Content)
	})
	if err != nil {
		// A concurrent upload of the same content can slip past the probe
		// above; the unique content hash settles the race.
		if db.IsUniqueViolation(err, "") {
			if existing, lookupErr := i.batches.FindInboundBySHA(ctx, outbound.ID, sha); lookupErr == nil {
				return alreadyImported(existing), nil
			}
		}
		return ImportResult{}, err
	}

	summary.FiscalIssued = i.runFiscal(ctx, paid)
	i.notifyDunning(ctx, paid, rejected)

	if i.logg != nil {
		i.logg.Info(i.logg.WithFields(ctx, map[string]any{
			"batch_id": inbound.ID.String(),
			"paid":     summary.Paid,
			"rejected": summary.Rejected,
			"errors":   summary.Errors,
		}), "response batch imported")
	}

	return ImportResult{BatchID: inbound.ID, Summary: summary}, nil
}

type rowOutcome struct {
	matched  bool
	paid     *paidRow
	rejected *rejectedRow
}

// applyRow resolves one response row to its outbound attempt and applies the
// transition. Row-level failures are recorded as ERROR items, never fatal.
func (i *Importer) applyRow(ctx context.Context, tx *gorm.DB, batchRepo batches.Repository, billingRepo billing.Repository, outbound, inbound *models.FileBatch, row bankfile.ResponseRow, actorUserID *uuid.UUID) (rowOutcome, error) {
	now := time.Now().UTC()

	item := &models.FileBatchItem{
		ID:          uuid.New(),
		BatchID:     inbound.ID,
		LineNo:      row.Ordinal,
		ExternalRef: row.ExternalRef,
		RowSHA256:   storage.SHA256Hex([]byte(row.Raw)),
		AmountARS:   row.SettledAmount,
		Status:      enums.BatchItemStatusError,
	}
	if row.ResultCode != "" {
		code := row.ResultCode
		item.ResponseCode = &code
	}
	if row.ResultMessage != "" {
		msg := row.ResultMessage
		item.ResponseMessage = &msg
	}

	recordError := func(message string) (rowOutcome, error) {
		if item.ResponseMessage == nil {
			item.ResponseMessage = &message
		}
		return rowOutcome{}, batchRepo.CreateItem(ctx, item)
	}

	if row.ParseError != "" {
		return recordError(row.ParseError)
	}

	outboundItem, err := batchRepo.FindItemByExternalRef(ctx, outbound.ID, row.ExternalRef)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return recordError("external reference not present in outbound batch")
	}
	if err != nil {
		return rowOutcome{}, err
	}

	attempt, err := billingRepo.FindAttemptByExternalRef(ctx, row.ExternalRef)
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return recordError("attempt not found for external reference")
	}
	if err != nil {
		return rowOutcome{}, err
	}

	attemptID := attempt.ID
	item.AttemptID = &attemptID
	chargeID := attempt.ChargeID
	item.ChargeID = &chargeID

	rawPayload, err := json.Marshal(map[string]string{"raw": row.Raw})
	if err != nil {
		return rowOutcome{}, err
	}

	adapter, err := i.registry.Get(outbound.AdapterName)
	if err != nil {
		return rowOutcome{}, err
	}

	outcome := rowOutcome{matched: true}
	stale := false
	switch adapter.Outcome(row.ResultCode) {
	case bankfile.OutcomePaid:
		applyResult(attempt, row, enums.AttemptStatusPaid, now, rawPayload)
		if err := billingRepo.UpdateAttempt(ctx, attempt); err != nil {
			return rowOutcome{}, err
		}
		closure, err := i.engine.CloseChargeAsPaidTx(ctx, tx, reconcile.ClosePaidInput{
			ChargeID:    attempt.ChargeID,
			AttemptID:   &attemptID,
			AmountARS:   row.SettledAmount,
			PaidAt:      settledAtOr(row, now),
			SourceRef:   row.OperationID,
			Channel:     enums.CollectionChannelDirectDebit,
			ActorUserID: actorUserID,
		})
		if err != nil {
			return rowOutcome{}, err
		}
		charge, err := billingRepo.GetCharge(ctx, attempt.ChargeID)
		if err != nil {
			return rowOutcome{}, err
		}
		item.Status = enums.BatchItemStatusPaid
		outcome.paid = &paidRow{charge: charge, attempt: attempt, row: row, closure: closure}

	case bankfile.OutcomeRejected:
		charge, err := billingRepo.GetCharge(ctx, attempt.ChargeID)
		if err != nil {
			return rowOutcome{}, err
		}
		if charge.Status == enums.ChargeStatusPaid {
			// A late duplicate row must never reopen a settled charge.
			msg := "rejection received for an already paid charge"
			item.ResponseMessage = &msg
			stale = true
			break
		}
		applyResult(attempt, row, enums.AttemptStatusRejected, now, rawPayload)
		if err := billingRepo.UpdateAttempt(ctx, attempt); err != nil {
			return rowOutcome{}, err
		}
		if charge.Status == enums.ChargeStatusReady {
			charge.Status = enums.ChargeStatusPastDue
		}
		charge.ReconciliationStatus = enums.ReconciliationStatusUnmatched
		if err := billingRepo.UpdateCharge(ctx, charge); err != nil {
			return rowOutcome{}, err
		}
		payload, err := json.Marshal(map[string]any{
			"charge_id":   charge.ID,
			"attempt_no":  attempt.AttemptNo,
			"result_code": row.ResultCode,
			"reason":      row.ResultMessage,
		})
		if err != nil {
			return rowOutcome{}, err
		}
		eventChargeID := charge.ID
		if err := billingRepo.CreateEvent(ctx, &models.BillingEvent{
			ID:          uuid.New(),
			AgencyID:    charge.AgencyID,
			Type:        enums.BillingEventChargePastDue,
			ChargeID:    &eventChargeID,
			ActorUserID: actorUserID,
			Payload:     payload,
		}); err != nil {
			return rowOutcome{}, err
		}
		item.Status = enums.BatchItemStatusRejected
		outcome.rejected = &rejectedRow{charge: charge, attempt: attempt, row: row}

	default:
		charge, err := billingRepo.GetCharge(ctx, attempt.ChargeID)
		if err != nil {
			return rowOutcome{}, err
		}
		if charge.Status == enums.ChargeStatusPaid {
			// A late duplicate row must never reopen a settled charge.
			stale = true
			break
		}
		applyResult(attempt, row, enums.AttemptStatusFailed, now, rawPayload)
		if err := billingRepo.UpdateAttempt(ctx, attempt); err != nil {
			return rowOutcome{}, err
		}
		// Charge status is untouched: an error row must never pay or close.
		charge.ReconciliationStatus = enums.ReconciliationStatusError
		if err := billingRepo.UpdateCharge(ctx, charge); err != nil {
			return rowOutcome{}, err
		}
	}

	// Mirror the outcome on the outbound presentment row, unless the row is
	// a stale duplicate for a charge that already settled.
	if !stale {
		outboundItem.Status = item.Status
		outboundItem.ResponseCode = item.ResponseCode
		outboundItem.ResponseMessage = item.ResponseMessage
		if err := batchRepo.UpdateItem(ctx, outboundItem); err != nil {
			return rowOutcome{}, err
		}
	}

	if err := batchRepo.CreateItem(ctx, item); err != nil {
		return rowOutcome{}, err
	}
	return outcome, nil
}

func applyResult(attempt *models.CollectionAttempt, row bankfile.ResponseRow, status enums.AttemptStatus, now time.Time, rawPayload json.RawMessage) {
	attempt.Status = status
	attempt.ProcessedAt = &now
	code := row.ResultCode
	attempt.ResultCode = &code
	if row.ResultMessage != "" {
		msg := row.ResultMessage
		attempt.ResultMessage = &msg
	}
	if row.TraceID != "" {
		trace := row.TraceID
		attempt.ProcessorTrace = &trace
	}
	attempt.SettledAt = row.SettledAt
	attempt.RawPayload = rawPayload
}

func settledAtOr(row bankfile.ResponseRow, fallback time.Time) time.Time {
	if row.SettledAt != nil {
		return *row.SettledAt
	}
	return fallback
}

// runFiscal issues one document per paid charge when autorun is enabled.
// Issuance failures stay on the retry queue; they never unwind an import.
func (i *Importer) runFiscal(ctx context.Context, paid []paidRow) int {
	if !i.fiscalCfg.Autorun || i.fiscal == nil {
		return 0
	}
	issued := 0
	for _, p := range paid {
		doc, err := i.fiscal.EnsureDocument(ctx, p.charge.ID, enums.FiscalDocTypeFacturaB)
		if err != nil {
			if i.logg != nil {
				i.logg.Error(ctx, "fiscal autorun failed for charge", err)
			}
			continue
		}
		if doc.Status == enums.FiscalDocStatusIssued {
			issued++
		}
	}
	return issued
}

func (i *Importer) notifyDunning(ctx context.Context, paid []paidRow, rejected []rejectedRow) {
	if i.dunning == nil {
		return
	}
	for _, p := range paid {
		if err := i.dunning.OnAttemptPaid(ctx, reconcile.PaidNotification{
			ChargeID:  p.charge.ID,
			AttemptID: p.attempt.ID,
			AmountARS: p.row.SettledAmount,
			SourceRef: p.row.OperationID,
			Closure:   p.closure,
		}); err != nil && i.logg != nil {
			i.logg.Warn(ctx, "dunning paid hook failed")
		}
	}
	for _, r := range rejected {
		if err := i.dunning.OnAttemptRejected(ctx, reconcile.RejectedNotification{
			ChargeID:   r.charge.ID,
			AttemptID:  r.attempt.ID,
			AttemptNo:  r.attempt.AttemptNo,
			ResultCode: r.row.ResultCode,
			Reason:     r.row.ResultMessage,
		}); err != nil && i.logg != nil {
			i.logg.Warn(ctx, "dunning rejected hook failed")
		}
	}
}

func alreadyImported(batch *models.FileBatch) ImportResult {
	return ImportResult{
		AlreadyImported: true,
		BatchID:         batch.ID,
		Summary: Summary{
			Matched:  batch.PaidCount + batch.RejectedCount,
			Paid:     batch.PaidCount,
			Rejected: batch.RejectedCount,
			Errors:   batch.ErrorCount,
		},
	}
}

func safeFileName(name string) string {
	if name == "" {
		return "response.txt"
	}
	cleaned := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			cleaned = append(cleaned, r)
		default:
			cleaned = append(cleaned, '_')
		}
	}
	return string(cleaned)
}
