package sync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"stocksync-service/internal/model"
	"stocksync-service/pkg/external"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.InventoryRecord{},
		&model.SyncLogEntry{},
		&model.WebhookEventRecord{},
	))
	return db
}

type levelKey struct {
	item, location int64
}

// fakeAPI is an in-memory InventoryAPI double
type fakeAPI struct {
	levels      map[levelKey]int
	getErr      error
	setErr      error
	adjustErr   error
	getCalls    int
	setCalls    int
	adjustCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{levels: make(map[levelKey]int)}
}

func (f *fakeAPI) GetLevel(_ context.Context, itemID, locationID int64) (int, error) {
	f.getCalls++
	if f.getErr != nil {
		return 0, f.getErr
	}
	level, ok := f.levels[levelKey{itemID, locationID}]
	if !ok {
		return 0, external.ErrNotFound
	}
	return level, nil
}

func (f *fakeAPI) SetLevel(_ context.Context, itemID, locationID int64, available int) (int, error) {
	f.setCalls++
	if f.setErr != nil {
		return 0, f.setErr
	}
	f.levels[levelKey{itemID, locationID}] = available
	return available, nil
}

func (f *fakeAPI) AdjustLevel(_ context.Context, itemID, locationID int64, delta int, _ string) (int, error) {
	f.adjustCalls++
	if f.adjustErr != nil {
		return 0, f.adjustErr
	}
	f.levels[levelKey{itemID, locationID}] += delta
	return f.levels[levelKey{itemID, locationID}], nil
}

func newTestService(t *testing.T) (*Service, *fakeAPI, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	api := newFakeAPI()
	return NewService(db, api, zap.NewNop(), 0), api, db
}

func int64ptr(v int64) *int64 { return &v }

func seedRecord(t *testing.T, db *gorm.DB, record model.InventoryRecord) {
	t.Helper()
	require.NoError(t, db.Create(&record).Error)
}

func linkedSplitRecord(productID uint, itemID int64, b2b, b2c int) model.InventoryRecord {
	return model.InventoryRecord{
		ProductID:          productID,
		StockMode:          model.StockModeSplit,
		B2BStock:           b2b,
		B2CStock:           b2c,
		TotalStock:         b2b + b2c,
		ExternalItemID:     int64ptr(itemID),
		ExternalLocationID: int64ptr(77),
		SyncEnabled:        true,
	}
}

func loadRecord(t *testing.T, db *gorm.DB, productID uint) model.InventoryRecord {
	t.Helper()
	var record model.InventoryRecord
	require.NoError(t, db.First(&record, "product_id = ?", productID).Error)
	return record
}

func countLogs(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.SyncLogEntry{}).Count(&count).Error)
	return count
}

func assertSplitInvariant(t *testing.T, record model.InventoryRecord) {
	t.Helper()
	assert.Equal(t, record.TotalStock, record.B2BStock+record.B2CStock, "b2b + b2c must equal total")
	assert.GreaterOrEqual(t, record.TotalStock, 0)
	assert.GreaterOrEqual(t, record.B2BStock, 0)
	assert.GreaterOrEqual(t, record.B2CStock, 0)
}

func TestApplyExternalLevelFanOut(t *testing.T) {
	svc, _, db := newTestService(t)

	// Two products backed by the same storefront item, e.g. regional SKUs
	seedRecord(t, db, linkedSplitRecord(1, 500, 10, 20))
	seedRecord(t, db, linkedSplitRecord(2, 500, 0, 35))

	updated, skipped, failed, err := svc.ApplyExternalLevel(context.Background(), 500, 42, "wh-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2}, updated)
	assert.Empty(t, skipped)
	assert.Empty(t, failed)

	a := loadRecord(t, db, 1)
	b := loadRecord(t, db, 2)
	assert.Equal(t, 42, a.B2CStock)
	assert.Equal(t, 42, b.B2CStock)
	assert.Equal(t, 10, a.B2BStock, "b2b pool untouched by channel update")
	assertSplitInvariant(t, a)
	assertSplitInvariant(t, b)

	var entries []model.SyncLogEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, model.ActionSyncFromExternal, entry.Action)
		assert.Equal(t, model.SourceWebhook, entry.Source)
		require.NotNil(t, entry.ReferenceID)
		assert.Equal(t, "wh-1", *entry.ReferenceID)
	}
}

func TestApplyExternalLevelSkipsSyncDisabled(t *testing.T) {
	svc, _, db := newTestService(t)

	enabled := linkedSplitRecord(1, 500, 0, 10)
	disabled := linkedSplitRecord(2, 500, 0, 10)
	disabled.SyncEnabled = false
	seedRecord(t, db, enabled)
	seedRecord(t, db, disabled)

	updated, skipped, _, err := svc.ApplyExternalLevel(context.Background(), 500, 25, "wh-2")
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, updated)
	assert.Equal(t, []uint{2}, skipped)

	assert.Equal(t, 10, loadRecord(t, db, 2).B2CStock, "disabled record must not change")
}

func TestApplyExternalLevelUnifiedMode(t *testing.T) {
	svc, _, db := newTestService(t)

	record := model.InventoryRecord{
		ProductID:          1,
		StockMode:          model.StockModeUnified,
		TotalStock:         100,
		ExternalItemID:     int64ptr(500),
		ExternalLocationID: int64ptr(77),
		SyncEnabled:        true,
	}
	seedRecord(t, db, record)

	_, _, _, err := svc.ApplyExternalLevel(context.Background(), 500, 60, "wh-3")
	require.NoError(t, err)

	got := loadRecord(t, db, 1)
	assert.Equal(t, 60, got.TotalStock)
}

func TestApplyExternalLevelLastWriteWins(t *testing.T) {
	svc, _, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 5, 50))

	_, _, _, err := svc.ApplyExternalLevel(context.Background(), 500, 30, "wh-a")
	require.NoError(t, err)
	_, _, _, err = svc.ApplyExternalLevel(context.Background(), 500, 70, "wh-b")
	require.NoError(t, err)

	assert.Equal(t, 70, loadRecord(t, db, 1).B2CStock)
}

func TestApplyExternalLevelRejectsNegative(t *testing.T) {
	svc, _, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 5, 20))

	_, _, _, err := svc.ApplyExternalLevel(context.Background(), 500, -5, "wh-neg")
	assert.ErrorIs(t, err, ErrNegativeLevel)

	record := loadRecord(t, db, 1)
	assert.Equal(t, 20, record.B2CStock, "negative value must never reach the ledger")
	assertSplitInvariant(t, record)
	assert.EqualValues(t, 0, countLogs(t, db))
}

func TestApplyExternalLevelBelowReservedWarns(t *testing.T) {
	db := openTestDB(t)
	core, logs := observer.New(zap.WarnLevel)
	svc := NewService(db, newFakeAPI(), zap.New(core), 0)

	record := linkedSplitRecord(1, 500, 0, 20)
	record.ReservedStock = 10
	seedRecord(t, db, record)

	_, _, _, err := svc.ApplyExternalLevel(context.Background(), 500, 3, "wh-res")
	require.NoError(t, err)

	// External wins even below the reserved bound, but the breach is logged
	got := loadRecord(t, db, 1)
	assert.Equal(t, 3, got.TotalStock)
	assert.Equal(t, 1, logs.FilterMessage("Stock fell below reserved quantity").Len())
}

func TestApplyExternalLevelReportsFailedRows(t *testing.T) {
	svc, _, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 0, 10))
	seedRecord(t, db, linkedSplitRecord(2, 500, 0, 10))

	require.NoError(t, db.Callback().Update().Before("gorm:update").
		Register("refuse_product_two", func(tx *gorm.DB) {
			if rec, ok := tx.Statement.Dest.(*model.InventoryRecord); ok && rec.ProductID == 2 {
				tx.AddError(errors.New("write refused"))
			}
		}))

	updated, skipped, failed, err := svc.ApplyExternalLevel(context.Background(), 500, 30, "wh-f")
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, updated)
	assert.Empty(t, skipped)
	assert.Equal(t, []uint{2}, failed, "a write failure is not a skip")

	record := loadRecord(t, db, 2)
	require.NotNil(t, record.SyncError)
	assert.Contains(t, *record.SyncError, "write refused")
}

func TestDeductSuccess(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 10, 20))
	api.levels[levelKey{500, 77}] = 20

	results, ok := svc.Deduct(context.Background(), []OrderItem{
		{ProductID: 1, Quantity: 5, ReferenceID: "order-9"},
	})
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	require.NotNil(t, results[0].NewQuantity)
	assert.Equal(t, 15, *results[0].NewQuantity)

	record := loadRecord(t, db, 1)
	assert.Equal(t, 15, record.B2CStock)
	assert.Equal(t, 25, record.TotalStock)
	assertSplitInvariant(t, record)

	assert.Equal(t, 15, api.levels[levelKey{500, 77}], "external adjusted by relative delta")

	var entry model.SyncLogEntry
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, model.ActionDeduct, entry.Action)
	assert.Equal(t, model.SourceOrder, entry.Source)
	assert.Equal(t, -5, entry.TotalChange)
	assert.Equal(t, -5, entry.B2CChange)
	assert.Equal(t, 0, entry.B2BChange)
	assert.Equal(t, 15, entry.B2CStockAfter)
	assert.True(t, entry.SyncedToExternal)
	require.NotNil(t, entry.ReferenceID)
	assert.Equal(t, "order-9", *entry.ReferenceID)
}

func TestDeductInsufficientStockRejected(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 100, 3))

	results, ok := svc.Deduct(context.Background(), []OrderItem{{ProductID: 1, Quantity: 5}})
	assert.False(t, ok)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, ErrInsufficientStock.Error())

	assert.Equal(t, 0, api.adjustCalls, "no external call for a rejected item")
	record := loadRecord(t, db, 1)
	assert.Equal(t, 3, record.B2CStock, "ledger untouched")
	assert.EqualValues(t, 0, countLogs(t, db))
}

func TestDeductPartialFailure(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 0, 20))
	unlinked := model.InventoryRecord{ProductID: 2, StockMode: model.StockModeSplit, B2CStock: 20, TotalStock: 20}
	seedRecord(t, db, unlinked)
	api.levels[levelKey{500, 77}] = 20

	results, ok := svc.Deduct(context.Background(), []OrderItem{
		{ProductID: 1, Quantity: 5},
		{ProductID: 2, Quantity: 5},
	})
	assert.False(t, ok, "overall success requires every item")
	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, ErrNotLinked.Error())

	// P1 already reflects the deduction; compensation is the caller's job
	assert.Equal(t, 15, loadRecord(t, db, 1).B2CStock)
	assert.Equal(t, 20, loadRecord(t, db, 2).B2CStock)
}

func TestDeductExternalFailure(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 0, 20))
	api.adjustErr = external.ErrTransient

	results, ok := svc.Deduct(context.Background(), []OrderItem{{ProductID: 1, Quantity: 5}})
	assert.False(t, ok)
	assert.False(t, results[0].Success)

	record := loadRecord(t, db, 1)
	assert.Equal(t, 20, record.B2CStock, "ledger untouched on external failure")
	require.NotNil(t, record.SyncError)
	assert.EqualValues(t, 0, countLogs(t, db))
}

func TestRestoreCompensatesDeduct(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 0, 20))
	api.levels[levelKey{500, 77}] = 20

	_, ok := svc.Deduct(context.Background(), []OrderItem{{ProductID: 1, Quantity: 5, ReferenceID: "order-1"}})
	require.True(t, ok)
	_, ok = svc.Restore(context.Background(), []OrderItem{{ProductID: 1, Quantity: 5, ReferenceID: "order-1"}})
	require.True(t, ok)

	record := loadRecord(t, db, 1)
	assert.Equal(t, 20, record.B2CStock)
	assertSplitInvariant(t, record)
	assert.Equal(t, 20, api.levels[levelKey{500, 77}])

	var entries []model.SyncLogEntry
	require.NoError(t, db.Order("id").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionDeduct, entries[0].Action)
	assert.Equal(t, model.ActionRestore, entries[1].Action)
	assert.Equal(t, 5, entries[1].TotalChange)
}

func TestDeductRejectsNonPositiveQuantity(t *testing.T) {
	svc, _, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 0, 20))

	results, ok := svc.Deduct(context.Background(), []OrderItem{{ProductID: 1, Quantity: 0}})
	assert.False(t, ok)
	assert.Contains(t, results[0].Error, ErrInvalidQuantity.Error())
}

func TestTransferBetweenChannels(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 30, 10))

	require.NoError(t, svc.Transfer(context.Background(), 1, 8, TransferToB2C))

	record := loadRecord(t, db, 1)
	assert.Equal(t, 22, record.B2BStock)
	assert.Equal(t, 18, record.B2CStock)
	assert.Equal(t, 40, record.TotalStock, "transfer never changes total")
	assertSplitInvariant(t, record)

	// Channel value was pushed out after the transfer
	assert.Equal(t, 18, api.levels[levelKey{500, 77}])

	var entries []model.SyncLogEntry
	require.NoError(t, db.Where("action = ?", model.ActionTransfer).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, -8, entries[0].B2BChange)
	assert.Equal(t, 8, entries[0].B2CChange)
	assert.Equal(t, 0, entries[0].TotalChange)
}

func TestTransferInsufficientSourcePool(t *testing.T) {
	svc, _, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 2, 10))

	err := svc.Transfer(context.Background(), 1, 5, TransferToB2C)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assertSplitInvariant(t, loadRecord(t, db, 1))
}

func TestTransferRejectedInUnifiedMode(t *testing.T) {
	svc, _, db := newTestService(t)
	seedRecord(t, db, model.InventoryRecord{ProductID: 1, StockMode: model.StockModeUnified, TotalStock: 50})

	err := svc.Transfer(context.Background(), 1, 5, TransferToB2C)
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestPushToExternal(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 5, 33))

	require.NoError(t, svc.PushToExternal(context.Background(), 1, model.SourceManual))
	assert.Equal(t, 33, api.levels[levelKey{500, 77}])

	record := loadRecord(t, db, 1)
	assert.NotNil(t, record.LastSyncedAt)
	assert.Nil(t, record.SyncError)

	var entry model.SyncLogEntry
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, model.ActionSyncToExternal, entry.Action)
	assert.Equal(t, model.SourceManual, entry.Source)
	assert.True(t, entry.SyncedToExternal)
}

func TestPushToExternalFailureRecordsSyncError(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 5, 33))
	api.setErr = external.ErrTransient

	err := svc.PushToExternal(context.Background(), 1, model.SourceManual)
	require.Error(t, err)

	record := loadRecord(t, db, 1)
	require.NotNil(t, record.SyncError)
	assert.Equal(t, 33, record.B2CStock, "ledger stock unchanged by failed push")

	var entry model.SyncLogEntry
	require.NoError(t, db.First(&entry).Error)
	assert.False(t, entry.SyncedToExternal)
	assert.NotNil(t, entry.SyncError)
}

func TestPushToExternalUnlinked(t *testing.T) {
	svc, _, db := newTestService(t)
	seedRecord(t, db, model.InventoryRecord{ProductID: 1, StockMode: model.StockModeSplit})

	err := svc.PushToExternal(context.Background(), 1, model.SourceManual)
	assert.ErrorIs(t, err, ErrNotLinked)
}

func TestCheckStock(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 0, 99))
	seedRecord(t, db, model.InventoryRecord{ProductID: 2, StockMode: model.StockModeSplit})
	// Ledger says 99 but the storefront is authoritative for the check
	api.levels[levelKey{500, 77}] = 7

	results := svc.CheckStock(context.Background(), []CheckItem{
		{ProductID: 1, RequestedQuantity: 5},
		{ProductID: 1, RequestedQuantity: 10},
		{ProductID: 2, RequestedQuantity: 1},
		{ProductID: 3, RequestedQuantity: 1},
	})
	require.Len(t, results, 4)

	assert.True(t, results[0].Sufficient)
	assert.Equal(t, 7, results[0].Available)

	assert.False(t, results[1].Sufficient)

	assert.False(t, results[2].Sufficient)
	assert.Contains(t, results[2].Error, ErrNotLinked.Error())

	assert.Contains(t, results[3].Error, ErrRecordNotFound.Error())
}

func TestPullAllConvergence(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 0, 50))
	api.levels[levelKey{500, 77}] = 80

	summary, err := svc.PullAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Updated)

	record := loadRecord(t, db, 1)
	assert.Equal(t, 80, record.B2CStock, "external wins")
	assertSplitInvariant(t, record)

	var entries []model.SyncLogEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, model.SourceCron, entries[0].Source)
	assert.Equal(t, 30, entries[0].TotalChange)

	// Second run with no external change: zero mutations
	summary, err = svc.PullAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 1, summary.Unchanged)
	assert.EqualValues(t, 1, countLogs(t, db))
}

func TestPullAllContinuesPastFailures(t *testing.T) {
	svc, api, db := newTestService(t)
	// Item 400 is unknown to the fake, so GetLevel fails for product 1
	seedRecord(t, db, linkedSplitRecord(1, 400, 0, 10))
	seedRecord(t, db, linkedSplitRecord(2, 500, 0, 10))
	api.levels[levelKey{500, 77}] = 60

	summary, err := svc.PullAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Updated)

	failed := loadRecord(t, db, 1)
	require.NotNil(t, failed.SyncError)
	assert.Equal(t, 60, loadRecord(t, db, 2).B2CStock)
}

func TestPullAllRejectsNegativeLevel(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 0, 20))
	api.levels[levelKey{500, 77}] = -3

	summary, err := svc.PullAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Updated)

	record := loadRecord(t, db, 1)
	assert.Equal(t, 20, record.B2CStock, "negative value must never reach the ledger")
	assertSplitInvariant(t, record)
	require.NotNil(t, record.SyncError)
	assert.Contains(t, *record.SyncError, ErrNegativeLevel.Error())
	assert.EqualValues(t, 0, countLogs(t, db))
}

func TestPullAllSkipsDisabledAndUnlinked(t *testing.T) {
	svc, api, _ := newTestService(t)
	db := svc.db

	disabled := linkedSplitRecord(1, 500, 0, 10)
	disabled.SyncEnabled = false
	seedRecord(t, db, disabled)
	seedRecord(t, db, model.InventoryRecord{ProductID: 2, StockMode: model.StockModeSplit, SyncEnabled: true})
	api.levels[levelKey{500, 77}] = 60

	summary, err := svc.PullAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Checked)
	assert.Equal(t, 0, api.getCalls)
}

func TestCreateRecordDerivesTotalInSplitMode(t *testing.T) {
	svc, _, db := newTestService(t)

	record := model.InventoryRecord{ProductID: 1, B2BStock: 10, B2CStock: 15}
	require.NoError(t, svc.CreateRecord(context.Background(), &record))

	got := loadRecord(t, db, 1)
	assert.Equal(t, model.StockModeSplit, got.StockMode)
	assert.Equal(t, 25, got.TotalStock)
	assert.False(t, got.SyncEnabled, "new records start with sync disabled")
	assert.Nil(t, got.ExternalItemID)
}

func TestCreateRecordRejectsNegativeStock(t *testing.T) {
	svc, _, _ := newTestService(t)

	record := model.InventoryRecord{ProductID: 1, B2BStock: -1}
	err := svc.CreateRecord(context.Background(), &record)
	require.Error(t, err)
}

func TestLinkAndUnlinkPreserveStock(t *testing.T) {
	svc, _, db := newTestService(t)
	seedRecord(t, db, model.InventoryRecord{ProductID: 1, StockMode: model.StockModeSplit, B2BStock: 4, B2CStock: 6, TotalStock: 10})

	require.NoError(t, svc.Link(context.Background(), 1, Linkage{ItemID: 500, LocationID: 77, Enable: true}))

	record := loadRecord(t, db, 1)
	assert.True(t, record.Linked())
	assert.True(t, record.SyncEnabled)

	require.NoError(t, svc.Unlink(context.Background(), 1))

	record = loadRecord(t, db, 1)
	assert.False(t, record.Linked())
	assert.False(t, record.SyncEnabled)
	assert.Equal(t, 10, record.TotalStock, "unlink preserves stock numbers")
}

func TestListLogsNewestFirst(t *testing.T) {
	svc, api, db := newTestService(t)
	seedRecord(t, db, linkedSplitRecord(1, 500, 0, 20))
	api.levels[levelKey{500, 77}] = 20

	_, ok := svc.Deduct(context.Background(), []OrderItem{{ProductID: 1, Quantity: 2}})
	require.True(t, ok)
	_, ok = svc.Restore(context.Background(), []OrderItem{{ProductID: 1, Quantity: 2}})
	require.True(t, ok)

	entries, total, err := svc.ListLogs(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionRestore, entries[0].Action)
}

func TestFindRecordNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetRecord(context.Background(), 404)
	assert.True(t, errors.Is(err, ErrRecordNotFound))
}
