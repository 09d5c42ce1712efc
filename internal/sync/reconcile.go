package sync

import (
	"context"
	"time"

	"stocksync-service/internal/model"
	"stocksync-service/pkg/cache"
	"stocksync-service/prometheus"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PullSummary reports the outcome of one pull-all reconciliation run
type PullSummary struct {
	Checked   int `json:"checked"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// PullAll walks every sync-enabled linked product, asks the storefront for
// its authoritative level and overwrites the ledger where it drifted
// (external wins). External calls are serialized with a fixed delay to
// honor the storefront's documented rate limit. One product failing does
// not abort the rest of the run.
func (s *Service) PullAll(ctx context.Context) (PullSummary, error) {
	var summary PullSummary

	var records []model.InventoryRecord
	err := s.db.WithContext(ctx).
		Where("sync_enabled = ? AND external_item_id IS NOT NULL AND external_location_id IS NOT NULL", true).
		Order("product_id").
		Find(&records).Error
	if err != nil {
		prometheus.RecordReconcileRun("failed")
		return summary, err
	}

	s.log.Info("Starting pull-all reconciliation", zap.Int("products", len(records)))

	for i := range records {
		if i > 0 {
			select {
			case <-ctx.Done():
				prometheus.RecordReconcileRun("cancelled")
				return summary, ctx.Err()
			case <-time.After(s.pullDelay):
			}
		}

		record := &records[i]
		summary.Checked++

		available, err := s.api.GetLevel(ctx, *record.ExternalItemID, *record.ExternalLocationID)
		if err != nil {
			s.persistSyncError(ctx, record, err)
			s.log.Warn("Reconciliation query failed for product",
				zap.Uint("product_id", record.ProductID),
				zap.Error(err))
			summary.Failed++
			continue
		}

		if available < 0 {
			s.persistSyncError(ctx, record, ErrNegativeLevel)
			s.log.Warn("Ignoring negative stock level from storefront",
				zap.Uint("product_id", record.ProductID),
				zap.Int("available", available))
			summary.Failed++
			continue
		}

		delta := available - record.ChannelStock()
		if delta == 0 {
			summary.Unchanged++
			continue
		}

		now := time.Now()
		record.SetChannelStock(available)
		record.LastSyncedAt = &now
		record.SyncError = nil

		if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
			s.log.Error("Failed to write reconciled stock level",
				zap.Uint("product_id", record.ProductID),
				zap.Error(err))
			summary.Failed++
			continue
		}
		s.warnBelowReserved(record)

		entry := &model.SyncLogEntry{
			ProductID:        record.ProductID,
			Action:           model.ActionSyncFromExternal,
			Source:           model.SourceCron,
			TotalChange:      delta,
			SyncedToExternal: true,
		}
		if record.StockMode == model.StockModeSplit {
			entry.B2CChange = delta
		}
		s.snapshot(entry, record)
		s.appendLog(ctx, entry)

		prometheus.RecordDriftCorrection()
		summary.Updated++

		s.log.Info("Corrected ledger drift",
			zap.Uint("product_id", record.ProductID),
			zap.Int("delta", delta),
			zap.Int("available", available))
	}

	prometheus.RecordReconcileRun("completed")
	s.log.Info("Pull-all reconciliation finished",
		zap.Int("checked", summary.Checked),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

const reconcileLockKey = "stocksync:reconcile:lock"

// Reconciler runs PullAll on a fixed interval. When redis is configured,
// a lock ensures only one replica reconciles at a time; the TTL bounds a
// crashed holder.
type Reconciler struct {
	svc      *Service
	locks    *cache.RedisClient
	interval time.Duration
	log      *zap.Logger
}

// NewReconciler creates the periodic reconciliation job. locks may be nil
// when redis is not configured; the job then runs unguarded.
func NewReconciler(svc *Service, locks *cache.RedisClient, interval time.Duration, log *zap.Logger) *Reconciler {
	return &Reconciler{
		svc:      svc,
		locks:    locks,
		interval: interval,
		log:      log,
	}
}

// Run blocks until ctx is cancelled, reconciling once per interval
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("Reconciliation job started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Reconciliation job stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single guarded reconciliation pass
func (r *Reconciler) RunOnce(ctx context.Context) {
	if r.locks != nil {
		token := uuid.New().String()
		acquired, err := r.locks.AcquireLock(ctx, reconcileLockKey, token, r.interval)
		if err != nil {
			r.log.Error("Failed to acquire reconciliation lock", zap.Error(err))
			return
		}
		if !acquired {
			r.log.Info("Reconciliation already running elsewhere, skipping")
			return
		}
		defer func() {
			if err := r.locks.ReleaseLock(ctx, reconcileLockKey, token); err != nil {
				r.log.Error("Failed to release reconciliation lock", zap.Error(err))
			}
		}()
	}

	if _, err := r.svc.PullAll(ctx); err != nil {
		r.log.Error("Reconciliation run failed", zap.Error(err))
	}
}
