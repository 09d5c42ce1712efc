package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stocksync-service/internal/model"
	"stocksync-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InventoryAPI is the slice of the storefront client the engine needs.
// pkg/external.Client satisfies it; tests substitute a fake.
type InventoryAPI interface {
	GetLevel(ctx context.Context, itemID, locationID int64) (int, error)
	SetLevel(ctx context.Context, itemID, locationID int64, available int) (int, error)
	AdjustLevel(ctx context.Context, itemID, locationID int64, delta int, reason string) (int, error)
}

// Service is the inventory synchronization engine. All dependencies are
// injected; there is no package-level client state.
type Service struct {
	db  *gorm.DB
	api InventoryAPI
	log *zap.Logger

	// Fixed pause between external calls during a pull-all run
	pullDelay time.Duration
}

// NewService creates the sync engine
func NewService(db *gorm.DB, api InventoryAPI, log *zap.Logger, pullDelay time.Duration) *Service {
	return &Service{
		db:        db,
		api:       api,
		log:       log,
		pullDelay: pullDelay,
	}
}

// ApplyExternalLevel fans one storefront stock level out to every linked
// product and updates each ledger row to the reported quantity. The
// storefront is the source of truth for its own channel, so the reported
// value wins over whatever the ledger holds (last write wins). Returns the
// product ids that were updated and the ones skipped because sync is
// disabled, plus the ones whose row write failed.
func (s *Service) ApplyExternalLevel(ctx context.Context, itemID int64, available int, webhookID string) (updated, skipped, failed []uint, err error) {
	// Stock levels are never negative on the storefront side; a negative
	// value means a broken sender and must not reach the ledger.
	if available < 0 {
		s.log.Warn("Rejecting negative stock level from storefront",
			zap.Int64("external_item_id", itemID),
			zap.Int("available", available),
			zap.String("webhook_id", webhookID))
		return nil, nil, nil, ErrNegativeLevel
	}

	var records []model.InventoryRecord
	if err := s.db.WithContext(ctx).Where("external_item_id = ?", itemID).Find(&records).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve linked products: %w", err)
	}

	updated = []uint{}
	skipped = []uint{}
	failed = []uint{}

	for i := range records {
		record := &records[i]

		if !record.SyncEnabled {
			s.log.Info("Skipping product with sync disabled",
				zap.Uint("product_id", record.ProductID),
				zap.Int64("external_item_id", itemID))
			skipped = append(skipped, record.ProductID)
			continue
		}

		delta := available - record.ChannelStock()
		now := time.Now()

		record.SetChannelStock(available)
		record.LastSyncedAt = &now
		record.SyncError = nil

		if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
			s.log.Error("Failed to update inventory record from webhook",
				zap.Uint("product_id", record.ProductID),
				zap.Error(err))
			s.markApplyFailure(ctx, record.ProductID, err)
			failed = append(failed, record.ProductID)
			continue
		}
		s.warnBelowReserved(record)

		if delta != 0 {
			entry := &model.SyncLogEntry{
				ProductID:        record.ProductID,
				Action:           model.ActionSyncFromExternal,
				Source:           model.SourceWebhook,
				TotalChange:      delta,
				SyncedToExternal: true,
			}
			if record.StockMode == model.StockModeSplit {
				entry.B2CChange = delta
			}
			s.snapshot(entry, record)
			s.reference(entry, webhookID, "webhook")
			s.appendLog(ctx, entry)
		}

		updated = append(updated, record.ProductID)
	}

	return updated, skipped, failed, nil
}

// PushToExternal sends the product's current channel stock to the
// storefront as an absolute set. Callers on best-effort paths ignore the
// returned error; the sync_error persisted here is corrected by the next
// reconciliation pass.
func (s *Service) PushToExternal(ctx context.Context, productID uint, source model.SyncSource) error {
	record, err := s.findRecord(ctx, productID)
	if err != nil {
		return err
	}
	if !record.Linked() {
		return ErrNotLinked
	}
	if !record.SyncEnabled {
		return ErrSyncDisabled
	}

	target := record.ChannelStock()
	_, apiErr := s.api.SetLevel(ctx, *record.ExternalItemID, *record.ExternalLocationID, target)

	entry := &model.SyncLogEntry{
		ProductID: record.ProductID,
		Action:    model.ActionSyncToExternal,
		Source:    source,
	}
	s.snapshot(entry, record)

	if apiErr != nil {
		s.persistSyncError(ctx, record, apiErr)
		msg := apiErr.Error()
		entry.SyncError = &msg
		s.appendLog(ctx, entry)
		prometheus.RecordSyncOperation("push", "failed")
		return apiErr
	}

	now := time.Now()
	record.LastSyncedAt = &now
	record.SyncError = nil
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		s.log.Error("Failed to record successful push",
			zap.Uint("product_id", productID),
			zap.Error(err))
	}

	entry.SyncedToExternal = true
	s.appendLog(ctx, entry)
	prometheus.RecordSyncOperation("push", "success")

	s.log.Info("Pushed stock level to storefront",
		zap.Uint("product_id", productID),
		zap.Int("available", target),
		zap.String("source", string(source)))
	return nil
}

// TransferDirection names the two manual B2B<->B2C transfer directions
type TransferDirection string

const (
	TransferToB2C TransferDirection = "b2b_to_b2c"
	TransferToB2B TransferDirection = "b2c_to_b2b"
)

// Transfer moves quantity between the B2B and B2C pools of a split-mode
// product, then pushes the new channel value to the storefront best-effort.
func (s *Service) Transfer(ctx context.Context, productID uint, quantity int, direction TransferDirection) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	record, err := s.findRecord(ctx, productID)
	if err != nil {
		return err
	}
	if record.StockMode != model.StockModeSplit {
		return ErrUnsupportedMode
	}

	var b2bChange, b2cChange int
	switch direction {
	case TransferToB2C:
		if record.B2BStock < quantity {
			return ErrInsufficientStock
		}
		b2bChange, b2cChange = -quantity, quantity
	case TransferToB2B:
		if record.B2CStock < quantity {
			return ErrInsufficientStock
		}
		b2bChange, b2cChange = quantity, -quantity
	default:
		return fmt.Errorf("unknown transfer direction %q", direction)
	}

	record.B2BStock += b2bChange
	record.B2CStock += b2cChange
	record.TotalStock = record.B2BStock + record.B2CStock

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		prometheus.RecordSyncOperation("transfer", "failed")
		return fmt.Errorf("failed to save transfer: %w", err)
	}

	entry := &model.SyncLogEntry{
		ProductID: record.ProductID,
		Action:    model.ActionTransfer,
		Source:    model.SourceManual,
		B2BChange: b2bChange,
		B2CChange: b2cChange,
	}
	s.snapshot(entry, record)
	s.appendLog(ctx, entry)
	prometheus.RecordSyncOperation("transfer", "success")

	s.log.Info("Transferred stock between channels",
		zap.Uint("product_id", productID),
		zap.Int("quantity", quantity),
		zap.String("direction", string(direction)))

	// The B2C-visible number changed, so push it out. Failure here is
	// corrected by reconciliation, not by the transfer caller.
	if record.Linked() && record.SyncEnabled {
		if err := s.PushToExternal(ctx, productID, model.SourceManual); err != nil {
			s.log.Warn("Post-transfer push failed, reconciliation will correct",
				zap.Uint("product_id", productID),
				zap.Error(err))
		}
	}

	return nil
}

// Linkage carries the storefront identifiers set by the admin link action
type Linkage struct {
	ItemID     int64
	VariantID  *int64
	ProductID  *int64
	LocationID int64
	Enable     bool
}

// Link associates a product with a storefront inventory item and location
func (s *Service) Link(ctx context.Context, productID uint, linkage Linkage) error {
	record, err := s.findRecord(ctx, productID)
	if err != nil {
		return err
	}

	record.ExternalItemID = &linkage.ItemID
	record.ExternalVariantID = linkage.VariantID
	record.ExternalProductID = linkage.ProductID
	record.ExternalLocationID = &linkage.LocationID
	record.SyncEnabled = linkage.Enable
	record.SyncError = nil

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to link product: %w", err)
	}

	s.log.Info("Linked product to storefront inventory item",
		zap.Uint("product_id", productID),
		zap.Int64("external_item_id", linkage.ItemID),
		zap.Int64("external_location_id", linkage.LocationID),
		zap.Bool("sync_enabled", linkage.Enable))
	return nil
}

// Unlink clears the storefront linkage and disables sync. Stock numbers are
// preserved; records are never hard-deleted.
func (s *Service) Unlink(ctx context.Context, productID uint) error {
	record, err := s.findRecord(ctx, productID)
	if err != nil {
		return err
	}

	record.ExternalItemID = nil
	record.ExternalVariantID = nil
	record.ExternalProductID = nil
	record.ExternalLocationID = nil
	record.SyncEnabled = false
	record.SyncError = nil

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to unlink product: %w", err)
	}

	s.log.Info("Unlinked product from storefront inventory",
		zap.Uint("product_id", productID))
	return nil
}

// CreateRecord registers the ledger row for a newly catalogued product.
// Records start unlinked with sync disabled; an admin link action wires
// them to the storefront later.
func (s *Service) CreateRecord(ctx context.Context, record *model.InventoryRecord) error {
	if record.ProductID == 0 {
		return fmt.Errorf("product_id is required")
	}

	switch record.StockMode {
	case "":
		record.StockMode = model.StockModeSplit
	case model.StockModeSplit, model.StockModeUnified:
	default:
		return fmt.Errorf("unknown stock mode %q", record.StockMode)
	}

	if record.B2BStock < 0 || record.B2CStock < 0 || record.TotalStock < 0 || record.ReservedStock < 0 {
		return fmt.Errorf("stock numbers must be non-negative")
	}
	if record.StockMode == model.StockModeSplit {
		record.TotalStock = record.B2BStock + record.B2CStock
	}
	if record.ReservedStock > record.TotalStock {
		return fmt.Errorf("reserved stock exceeds total stock")
	}

	record.ExternalItemID = nil
	record.ExternalVariantID = nil
	record.ExternalProductID = nil
	record.ExternalLocationID = nil
	record.SyncEnabled = false
	record.SyncError = nil
	record.LastSyncedAt = nil

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create inventory record: %w", err)
	}

	s.log.Info("Created inventory record",
		zap.Uint("product_id", record.ProductID),
		zap.String("stock_mode", string(record.StockMode)))
	return nil
}

// GetRecord returns the ledger row for one product
func (s *Service) GetRecord(ctx context.Context, productID uint) (*model.InventoryRecord, error) {
	return s.findRecord(ctx, productID)
}

// ListLogs returns the audit trail for one product, newest first
func (s *Service) ListLogs(ctx context.Context, productID uint, page, pageSize int) ([]model.SyncLogEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.SyncLogEntry{}).
		Where("product_id = ?", productID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.SyncLogEntry
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	return entries, total, err
}

func (s *Service) findRecord(ctx context.Context, productID uint) (*model.InventoryRecord, error) {
	var record model.InventoryRecord
	err := s.db.WithContext(ctx).First(&record, "product_id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load inventory record: %w", err)
	}
	return &record, nil
}

func (s *Service) persistSyncError(ctx context.Context, record *model.InventoryRecord, cause error) {
	msg := cause.Error()
	record.SyncError = &msg
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		s.log.Error("Failed to persist sync error",
			zap.Uint("product_id", record.ProductID),
			zap.Error(err))
	}
}

// markApplyFailure records a per-product failure after the in-memory record
// diverged from the row, so only the sync_error column is written.
func (s *Service) markApplyFailure(ctx context.Context, productID uint, cause error) {
	prometheus.RecordSyncOperation("apply", "failed")
	if err := s.db.WithContext(ctx).Model(&model.InventoryRecord{}).
		Where("product_id = ?", productID).
		Update("sync_error", cause.Error()).Error; err != nil {
		s.log.Error("Failed to persist sync error",
			zap.Uint("product_id", productID),
			zap.Error(err))
	}
}

// warnBelowReserved flags a mutation that left less stock on hand than is
// reserved. The written value still stands; operators resolve the oversell.
func (s *Service) warnBelowReserved(record *model.InventoryRecord) {
	if record.ReservedStock > record.TotalStock {
		s.log.Warn("Stock fell below reserved quantity",
			zap.Uint("product_id", record.ProductID),
			zap.Int("total_stock", record.TotalStock),
			zap.Int("reserved_stock", record.ReservedStock))
	}
}

func (s *Service) snapshot(entry *model.SyncLogEntry, record *model.InventoryRecord) {
	entry.TotalStockAfter = record.TotalStock
	entry.B2BStockAfter = record.B2BStock
	entry.B2CStockAfter = record.B2CStock
}

func (s *Service) reference(entry *model.SyncLogEntry, id, refType string) {
	if id == "" {
		return
	}
	entry.ReferenceID = &id
	entry.ReferenceType = &refType
}

// appendLog writes an audit entry best-effort. The audit trail must never
// block or fail the primary mutation.
func (s *Service) appendLog(ctx context.Context, entry *model.SyncLogEntry) {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.log.Error("Failed to append sync log entry",
			zap.Uint("product_id", entry.ProductID),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
}
