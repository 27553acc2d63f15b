// Package presentment turns due collection attempts into outbound bank
// batches: one business date + adapter = one file.
package presentment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ignaciomazza/ofistur-billing/internal/bankfile"
	"github.com/ignaciomazza/ofistur-billing/internal/batches"
	"github.com/ignaciomazza/ofistur-billing/internal/billing"
	"github.com/ignaciomazza/ofistur-billing/internal/counters"
	"github.com/ignaciomazza/ofistur-billing/pkg/config"
	"github.com/ignaciomazza/ofistur-billing/pkg/db"
	"github.com/ignaciomazza/ofistur-billing/pkg/db/models"
	"github.com/ignaciomazza/ofistur-billing/pkg/enums"
	"github.com/ignaciomazza/ofistur-billing/pkg/logger"
	"github.com/ignaciomazza/ofistur-billing/pkg/storage"
)

// PrepareParams configures one presentment build.
type PrepareParams struct {
	BusinessDate time.Time
	AdapterName  string
	DryRun       bool
	ActorUserID  *uuid.UUID
}

// PrepareResult reports the built (or already existing) batch.
type PrepareResult struct {
	NoOp           bool            `json:"no_op"`
	BatchID        uuid.UUID       `json:"batch_id,omitempty"`
	RecordCount    int             `json:"record_count"`
	TotalAmountARS decimal.Decimal `json:"total_amount_ars"`
	StorageKey     string          `json:"storage_key,omitempty"`
}

// ExportParams configures the export pass.
type ExportParams struct {
	AdapterName string
	ActorUserID *uuid.UUID
}

// ExportResult reports how many READY batches moved to EXPORTED.
type ExportResult struct {
	NoOp            bool `json:"no_op"`
	BatchesExported int  `json:"batches_exported"`
}

// Builder groups due attempts into outbound files.
type Builder struct {
	client   *db.Client
	billing  billing.Repository
	batches  batches.Repository
	counters counters.Service
	registry *bankfile.Registry
	store    storage.Store
	cfg      config.BankConfig
	logg     *logger.Logger
}

// NewBuilder builds the presentment builder.
func NewBuilder(client *db.Client, billingRepo billing.Repository, batchRepo batches.Repository, counterSvc counters.Service, registry *bankfile.Registry, store storage.Store, cfg config.BankConfig, logg *logger.Logger) *Builder {
	return &Builder{
		client:   client,
		billing:  billingRepo,
		batches:  batchRepo,
		counters: counterSvc,
		registry: registry,
		store:    store,
		cfg:      cfg,
		logg:     logg,
	}
}

// Prepare selects the due PENDING/SCHEDULED attempts, renders them through
// the adapter and persists one READY outbound batch with its items, flipping
// the attempts to PROCESSING. With nothing due it reports the existing batch
// for the date as a no-op. DryRun renders and reports without persisting.
func (b *Builder) Prepare(ctx context.Context, params PrepareParams) (PrepareResult, error) {
	adapterName := params.AdapterName
	if adapterName == "" {
		adapterName = b.cfg.AdapterName
	}
	adapter, err := b.registry.Get(adapterName)
	if err != nil {
		return PrepareResult{}, err
	}

	day := dateOnly(params.BusinessDate)
	if params.BusinessDate.IsZero() {
		day = dateOnly(time.Now().UTC())
	}

	attempts, err := b.billing.ListSchedulableAttempts(ctx, day)
	if err != nil {
		return PrepareResult{}, err
	}
	if len(attempts) == 0 {
		result := PrepareResult{NoOp: true, TotalAmountARS: decimal.Zero}
		if existing, err := b.batches.FindLatestOutbound(ctx, adapterName, day); err == nil {
			result.BatchID = existing.ID
			result.RecordCount = existing.RecordCount
			result.TotalAmountARS = existing.TotalAmountARS
			result.StorageKey = existing.StorageKey
		}
		return result, nil
	}

	type presentLine struct {
		row     bankfile.OutboundRow
		attempt *models.CollectionAttempt
	}
	lines := make([]presentLine, 0, len(attempts))
	rows := make([]bankfile.OutboundRow, 0, len(attempts))
	total := decimal.Zero
	for i := range attempts {
		attempt := &attempts[i]
		if attempt.PaymentMethodID == nil {
			continue
		}
		method, err := b.billing.GetPaymentMethod(ctx, *attempt.PaymentMethodID)
		if err != nil {
			return PrepareResult{}, fmt.Errorf("loading payment method for attempt %s: %w", attempt.ID, err)
		}
		row := bankfile.OutboundRow{
			Ordinal:     len(rows) + 1,
			ExternalRef: attempt.ExternalRef,
			AmountARS:   attempt.AmountARS,
			HolderName:  method.HolderName,
			HolderTaxID: method.HolderTaxID,
			MaskedCBU:   method.MaskedCBU,
		}
		rows = append(rows, row)
		lines = append(lines, presentLine{row: row, attempt: attempt})
		total = total.Add(attempt.AmountARS)
	}
	if len(rows) == 0 {
		return PrepareResult{NoOp: true, TotalAmountARS: decimal.Zero}, nil
	}

	if params.DryRun {
		bankfile.RenderOutbound(adapter, bankfile.Header{BusinessDate: day}, rows)
		return PrepareResult{
			RecordCount:    len(rows),
			TotalAmountARS: total,
		}, nil
	}

	var result PrepareResult
	err = b.client.WithTx(ctx, func(tx *gorm.DB) error {
		batchRepo := b.batches.WithTx(tx)
		billingRepo := b.billing.WithTx(tx)

		seq, err := b.counters.Next(ctx, tx, uuid.Nil, counters.KeyPresentmentSequence)
		if err != nil {
			return err
		}

		content := bankfile.RenderOutbound(adapter, bankfile.Header{
			Sequence:     seq,
			BusinessDate: day,
		}, rows)
		sha := storage.SHA256Hex(content)
		storageKey := fmt.Sprintf("batches/outbound/%s/%06d-%s.txt",
			day.Format("2006-01-02"), seq, adapterName)

		batch := &models.FileBatch{
			ID:             uuid.New(),
			Direction:      enums.BatchDirectionOutbound,
			AdapterName:    adapterName,
			AdapterVersion: adapter.Version(),
			BusinessDate:   day,
			Sequence:       seq,
			StorageKey:     storageKey,
			ContentSHA256:  sha,
			RecordCount:    len(rows),
			TotalAmountARS: total,
			Status:         enums.BatchStatusReady,
			CreatedByID:    params.ActorUserID,
		}
		if err := batchRepo.Create(ctx, batch); err != nil {
			return err
		}

		for i := range lines {
			row := lines[i].row
			attempt := lines[i].attempt
			chargeID := attempt.ChargeID
			attemptID := attempt.ID
			item := &models.FileBatchItem{
				ID:          uuid.New(),
				BatchID:     batch.ID,
				AttemptID:   &attemptID,
				ChargeID:    &chargeID,
				LineNo:      row.Ordinal,
				ExternalRef: row.ExternalRef,
				RowSHA256:   storage.SHA256Hex([]byte(adapter.RenderOutboundRow(row))),
				AmountARS:   row.AmountARS,
				Status:      enums.BatchItemStatusPending,
			}
			if err := batchRepo.CreateItem(ctx, item); err != nil {
				return err
			}

			attempt.Status = enums.AttemptStatusProcessing
			if err := billingRepo.UpdateAttempt(ctx, attempt); err != nil {
				return err
			}
		}

		if err := b.store.UploadBatchFile(ctx, storageKey, content); err != nil {
			return fmt.Errorf("uploading presentment file: %w", err)
		}

		result = PrepareResult{
			BatchID:        batch.ID,
			RecordCount:    len(rows),
			TotalAmountARS: total,
			StorageKey:     storageKey,
		}
		return nil
	})
	if err != nil {
		return PrepareResult{}, err
	}

	if b.logg != nil {
		b.logg.Info(b.logg.WithBatchID(ctx, result.BatchID.String()), "presentment batch prepared")
	}
	return result, nil
}

// ExportPending flips READY outbound batches to EXPORTED. Idempotent: with
// nothing READY it reports a no-op.
func (b *Builder) ExportPending(ctx context.Context, params ExportParams) (ExportResult, error) {
	adapterName := params.AdapterName
	if adapterName == "" {
		adapterName = b.cfg.AdapterName
	}

	ready, err := b.batches.ListOutboundByStatus(ctx, adapterName, enums.BatchStatusReady)
	if err != nil {
		return ExportResult{}, err
	}
	if len(ready) == 0 {
		return ExportResult{NoOp: true}, nil
	}

	exported := 0
	for i := range ready {
		batch := &ready[i]
		err := b.client.WithTx(ctx, func(tx *gorm.DB) error {
			batchRepo := b.batches.WithTx(tx)
			billingRepo := b.billing.WithTx(tx)

			batch.Status = enums.BatchStatusExported
			if err := batchRepo.Update(ctx, batch); err != nil {
				return err
			}

			payload, err := json.Marshal(map[string]any{
				"batch_id":         batch.ID,
				"adapter":          batch.AdapterName,
				"record_count":     batch.RecordCount,
				"total_amount_ars": batch.TotalAmountARS.StringFixed(2),
			})
			if err != nil {
				return err
			}
			return billingRepo.CreateEvent(ctx, &models.BillingEvent{
				ID:          uuid.New(),
				AgencyID:    uuid.Nil,
				Type:        enums.BillingEventBatchExported,
				ActorUserID: params.ActorUserID,
				Payload:     payload,
			})
		})
		if err != nil {
			return ExportResult{}, err
		}
		exported++
	}

	return ExportResult{BatchesExported: exported}, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
