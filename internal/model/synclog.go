package model

import "time"

// SyncAction identifies the kind of stock mutation a log entry records
type SyncAction string

const (
	ActionSyncToExternal   SyncAction = "sync_to_external"
	ActionSyncFromExternal SyncAction = "sync_from_external"
	ActionTransfer         SyncAction = "transfer"
	ActionDeduct           SyncAction = "deduct"
	ActionRestore          SyncAction = "restore"
)

// SyncSource identifies which actor triggered a stock mutation
type SyncSource string

const (
	SourceWebhook SyncSource = "webhook"
	SourceOrder   SyncSource = "order"
	SourceCron    SyncSource = "cron"
	SourceManual  SyncSource = "manual"
)

// SyncLogEntry is the append-only audit trail of stock mutations. Rows are
// never updated after insert; the post-mutation snapshot makes the history
// replayable without point-in-time queries on inventory_records.
type SyncLogEntry struct {
	ID        uint       `json:"id" gorm:"primarykey"`
	ProductID uint       `json:"product_id" gorm:"index;not null"`
	Action    SyncAction `json:"action" gorm:"type:varchar(30);not null"`
	Source    SyncSource `json:"source" gorm:"type:varchar(20);not null"`

	// Signed deltas applied by this mutation
	TotalChange int `json:"total_change" gorm:"not null;default:0"`
	B2BChange   int `json:"b2b_change" gorm:"not null;default:0"`
	B2CChange   int `json:"b2c_change" gorm:"not null;default:0"`

	// Snapshot of the record after the mutation
	TotalStockAfter int `json:"total_stock_after" gorm:"not null"`
	B2BStockAfter   int `json:"b2b_stock_after" gorm:"not null"`
	B2CStockAfter   int `json:"b2c_stock_after" gorm:"not null"`

	SyncedToExternal bool    `json:"synced_to_external" gorm:"not null;default:false"`
	SyncError        *string `json:"sync_error" gorm:"type:text"`

	// Pointer to the order/webhook/job that caused this entry
	ReferenceID   *string `json:"reference_id" gorm:"type:varchar(255);index"`
	ReferenceType *string `json:"reference_type" gorm:"type:varchar(50)"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (SyncLogEntry) TableName() string {
	return "sync_log_entries"
}
