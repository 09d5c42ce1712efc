package model

import (
	"time"
)

// StockMode determines how the stock pools of a product are managed
type StockMode string

const (
	// StockModeSplit allocates disjoint B2B and B2C pools
	StockModeSplit StockMode = "split"
	// StockModeUnified treats TotalStock as a single shared pool; the
	// channel fields are informational only
	StockModeUnified StockMode = "unified"
)

// InventoryRecord holds the current stock state for one internal product.
// The product itself lives in the product catalog service; this table only
// carries the stock numbers and the linkage to the storefront inventory item.
type InventoryRecord struct {
	ProductID     uint      `json:"product_id" gorm:"primarykey;autoIncrement:false"`
	TotalStock    int       `json:"total_stock" gorm:"not null;default:0"`
	B2BStock      int       `json:"b2b_stock" gorm:"not null;default:0"`
	B2CStock      int       `json:"b2c_stock" gorm:"not null;default:0"`
	ReservedStock int       `json:"reserved_stock" gorm:"not null;default:0"`
	StockMode     StockMode `json:"stock_mode" gorm:"type:varchar(20);not null;default:'split'"`

	// Storefront linkage; nil until an admin links the product
	ExternalItemID     *int64 `json:"external_item_id" gorm:"index"`
	ExternalVariantID  *int64 `json:"external_variant_id"`
	ExternalProductID  *int64 `json:"external_product_id"`
	ExternalLocationID *int64 `json:"external_location_id"`

	SyncEnabled  bool       `json:"sync_enabled" gorm:"not null;default:false"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	SyncError    *string    `json:"sync_error" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// Linked reports whether the record is linked to a storefront inventory item
func (r *InventoryRecord) Linked() bool {
	return r.ExternalItemID != nil && r.ExternalLocationID != nil
}

// ChannelStock returns the stock number the storefront channel represents:
// the B2C pool in split mode, the whole pool in unified mode.
func (r *InventoryRecord) ChannelStock() int {
	if r.StockMode == StockModeUnified {
		return r.TotalStock
	}
	return r.B2CStock
}

// SetChannelStock overwrites the channel stock and keeps the split-mode
// invariant b2b + b2c == total intact.
func (r *InventoryRecord) SetChannelStock(available int) {
	if r.StockMode == StockModeUnified {
		r.TotalStock = available
		return
	}
	r.B2CStock = available
	r.TotalStock = r.B2BStock + r.B2CStock
}

// CanDeduct reports whether quantity can be removed from the channel stock
// without driving any pool negative
func (r *InventoryRecord) CanDeduct(quantity int) bool {
	return quantity > 0 && r.ChannelStock() >= quantity
}
