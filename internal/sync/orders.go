package sync

import (
	"context"
	"fmt"
	"time"

	"stocksync-service/internal/model"
	"stocksync-service/prometheus"

	"go.uber.org/zap"
)

// OrderItem is one product line in a deduct or restore request
type OrderItem struct {
	ProductID   uint
	Quantity    int
	Reason      string
	ReferenceID string
}

// ItemResult is the per-product outcome of a deduct or restore
type ItemResult struct {
	ProductID   uint   `json:"product_id"`
	Success     bool   `json:"success"`
	NewQuantity *int   `json:"new_quantity,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CheckItem is one product line in a pre-flight stock check
type CheckItem struct {
	ProductID         uint
	RequestedQuantity int
}

// CheckResult is the per-product outcome of a stock check
type CheckResult struct {
	ProductID  uint   `json:"product_id"`
	Available  int    `json:"available"`
	Requested  int    `json:"requested"`
	Sufficient bool   `json:"sufficient"`
	Error      string `json:"error,omitempty"`
}

// Deduct removes stock for a placed order, item by item. The storefront is
// adjusted with a relative delta before the ledger is written so concurrent
// storefront sales are never clobbered. There is no cross-item atomicity:
// when any item fails the caller must invoke Restore on the items that
// succeeded before abandoning the order. The second return value is true
// only if every item succeeded.
func (s *Service) Deduct(ctx context.Context, items []OrderItem) ([]ItemResult, bool) {
	return s.adjustAll(ctx, items, model.ActionDeduct)
}

// Restore returns stock for a voided or cancelled order. Also used as the
// compensating action for partial Deduct failures.
func (s *Service) Restore(ctx context.Context, items []OrderItem) ([]ItemResult, bool) {
	return s.adjustAll(ctx, items, model.ActionRestore)
}

func (s *Service) adjustAll(ctx context.Context, items []OrderItem, action model.SyncAction) ([]ItemResult, bool) {
	results := make([]ItemResult, 0, len(items))
	allOK := true

	for _, item := range items {
		result := s.adjustOne(ctx, item, action)
		if !result.Success {
			allOK = false
		}
		results = append(results, result)
	}

	return results, allOK
}

func (s *Service) adjustOne(ctx context.Context, item OrderItem, action model.SyncAction) ItemResult {
	operation := string(action)
	fail := func(err error) ItemResult {
		prometheus.RecordSyncOperation(operation, "failed")
		return ItemResult{ProductID: item.ProductID, Error: err.Error()}
	}

	if item.Quantity <= 0 {
		return fail(ErrInvalidQuantity)
	}

	record, err := s.findRecord(ctx, item.ProductID)
	if err != nil {
		return fail(err)
	}
	if !record.Linked() {
		return fail(ErrNotLinked)
	}

	delta := item.Quantity
	if action == model.ActionDeduct {
		if !record.CanDeduct(item.Quantity) {
			return fail(fmt.Errorf("%w: requested %d, channel stock %d",
				ErrInsufficientStock, item.Quantity, record.ChannelStock()))
		}
		delta = -item.Quantity
	}

	reason := item.Reason
	if reason == "" {
		if action == model.ActionDeduct {
			reason = "b2b_order"
		} else {
			reason = "b2b_order_restore"
		}
	}

	// Relative adjustment against the storefront first. On failure the
	// ledger stays untouched and the caller must compensate or retry.
	if _, err := s.api.AdjustLevel(ctx, *record.ExternalItemID, *record.ExternalLocationID, delta, reason); err != nil {
		s.persistSyncError(ctx, record, err)
		s.log.Error("Storefront adjustment failed",
			zap.Uint("product_id", item.ProductID),
			zap.String("action", operation),
			zap.Int("delta", delta),
			zap.Error(err))
		return fail(err)
	}

	now := time.Now()
	record.SetChannelStock(record.ChannelStock() + delta)
	record.LastSyncedAt = &now
	record.SyncError = nil

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		// The storefront is already adjusted; surface the failure so the
		// caller compensates, and leave it to reconciliation to converge.
		s.log.Error("Ledger update failed after storefront adjustment",
			zap.Uint("product_id", item.ProductID),
			zap.String("action", operation),
			zap.Error(err))
		return fail(fmt.Errorf("ledger update failed: %w", err))
	}
	s.warnBelowReserved(record)

	entry := &model.SyncLogEntry{
		ProductID:        record.ProductID,
		Action:           action,
		Source:           model.SourceOrder,
		TotalChange:      delta,
		SyncedToExternal: true,
	}
	if record.StockMode == model.StockModeSplit {
		entry.B2CChange = delta
	}
	s.snapshot(entry, record)
	s.reference(entry, item.ReferenceID, "order")
	s.appendLog(ctx, entry)

	prometheus.RecordSyncOperation(operation, "success")
	s.log.Info("Adjusted stock for order",
		zap.Uint("product_id", item.ProductID),
		zap.String("action", operation),
		zap.Int("delta", delta),
		zap.Int("channel_stock", record.ChannelStock()))

	newQty := record.ChannelStock()
	return ItemResult{ProductID: item.ProductID, Success: true, NewQuantity: &newQty}
}

// CheckStock answers the pre-flight sufficiency question for the order
// creation path. It deliberately bypasses the ledger and asks the
// storefront directly: the ledger may be stale between webhook deliveries
// and order-time correctness matters more than latency here.
func (s *Service) CheckStock(ctx context.Context, items []CheckItem) []CheckResult {
	results := make([]CheckResult, 0, len(items))

	for _, item := range items {
		result := CheckResult{ProductID: item.ProductID, Requested: item.RequestedQuantity}

		record, err := s.findRecord(ctx, item.ProductID)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		if !record.Linked() {
			result.Error = ErrNotLinked.Error()
			results = append(results, result)
			continue
		}

		available, err := s.api.GetLevel(ctx, *record.ExternalItemID, *record.ExternalLocationID)
		if err != nil {
			s.log.Warn("Stock check query failed",
				zap.Uint("product_id", item.ProductID),
				zap.Error(err))
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		result.Available = available
		result.Sufficient = available >= item.RequestedQuantity
		results = append(results, result)
	}

	return results
}
