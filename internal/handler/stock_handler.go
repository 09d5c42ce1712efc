package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"stocksync-service/internal/model"
	"stocksync-service/internal/sync"
	"stocksync-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StockHandler exposes the order-path stock operations: pre-flight check,
// deduct, restore, the manual channel transfer and record lifecycle.
type StockHandler struct {
	svc *sync.Service
}

// NewStockHandler creates the stock operations handler
func NewStockHandler(svc *sync.Service) *StockHandler {
	return &StockHandler{svc: svc}
}

// CheckRequest is the pre-flight sufficiency check request
type CheckRequest struct {
	Products []struct {
		ProductID         uint `json:"product_id"`
		RequestedQuantity int  `json:"requested_quantity"`
	} `json:"products"`
}

// AdjustRequest is the deduct/restore request shape
type AdjustRequest struct {
	Products []struct {
		ProductID   uint   `json:"product_id"`
		Quantity    int    `json:"quantity"`
		Reason      string `json:"reason,omitempty"`
		ReferenceID string `json:"reference_id,omitempty"`
	} `json:"products"`
}

// TransferRequest moves stock between the B2B and B2C pools
type TransferRequest struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Direction string `json:"direction"` // b2b_to_b2c or b2c_to_b2b
}

// CreateRecordRequest registers the ledger row for a catalogued product
type CreateRecordRequest struct {
	ProductID     uint   `json:"product_id"`
	StockMode     string `json:"stock_mode,omitempty"`
	TotalStock    int    `json:"total_stock"`
	B2BStock      int    `json:"b2b_stock"`
	B2CStock      int    `json:"b2c_stock"`
	ReservedStock int    `json:"reserved_stock"`
}

// CheckStock handles the synchronous pre-flight check used by order creation
func (h *StockHandler) CheckStock(c echo.Context) error {
	log := logger.FromContext(c)

	var req CheckRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if len(req.Products) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "products is required"})
	}

	items := make([]sync.CheckItem, 0, len(req.Products))
	for _, p := range req.Products {
		items = append(items, sync.CheckItem{ProductID: p.ProductID, RequestedQuantity: p.RequestedQuantity})
	}

	results := h.svc.CheckStock(c.Request().Context(), items)

	success := true
	for _, r := range results {
		if r.Error != "" {
			success = false
			break
		}
	}

	log.Info("Stock check completed",
		zap.Int("products", len(results)),
		zap.Bool("success", success))
	return c.JSON(http.StatusOK, echo.Map{"success": success, "items": results})
}

// Deduct handles stock deduction when an order is placed. No cross-item
// atomicity: on partial failure the order-creation caller restores the
// items that went through.
func (h *StockHandler) Deduct(c echo.Context) error {
	return h.adjust(c, h.svc.Deduct, "deduct")
}

// Restore handles stock restoration when an invoice is voided or an order
// cancelled, and compensation for partial deduct failures
func (h *StockHandler) Restore(c echo.Context) error {
	return h.adjust(c, h.svc.Restore, "restore")
}

func (h *StockHandler) adjust(c echo.Context, op func(context.Context, []sync.OrderItem) ([]sync.ItemResult, bool), name string) error {
	log := logger.FromContext(c)

	var req AdjustRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if len(req.Products) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "products is required"})
	}

	items := make([]sync.OrderItem, 0, len(req.Products))
	for _, p := range req.Products {
		items = append(items, sync.OrderItem{
			ProductID:   p.ProductID,
			Quantity:    p.Quantity,
			Reason:      p.Reason,
			ReferenceID: p.ReferenceID,
		})
	}

	results, ok := op(c.Request().Context(), items)

	log.Info("Stock adjustment completed",
		zap.String("operation", name),
		zap.Int("products", len(results)),
		zap.Bool("success", ok))
	return c.JSON(http.StatusOK, echo.Map{"success": ok, "results": results})
}

// Transfer handles a manual B2B<->B2C stock move
func (h *StockHandler) Transfer(c echo.Context) error {
	log := logger.FromContext(c)

	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	err := h.svc.Transfer(c.Request().Context(), req.ProductID, req.Quantity, sync.TransferDirection(req.Direction))
	if err != nil {
		log.Warn("Transfer rejected",
			zap.Uint("product_id", req.ProductID),
			zap.Error(err))
		switch {
		case errors.Is(err, sync.ErrRecordNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		case errors.Is(err, sync.ErrInsufficientStock),
			errors.Is(err, sync.ErrInvalidQuantity),
			errors.Is(err, sync.ErrUnsupportedMode):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
		}
	}

	record, err := h.svc.GetRecord(c.Request().Context(), req.ProductID)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}

	log.Info("Transfer completed",
		zap.Uint("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity),
		zap.String("direction", req.Direction))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "record": record})
}

// CreateRecord handles registration of a new product's ledger row
func (h *StockHandler) CreateRecord(c echo.Context) error {
	log := logger.FromContext(c)

	var req CreateRecordRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	record := model.InventoryRecord{
		ProductID:     req.ProductID,
		StockMode:     model.StockMode(req.StockMode),
		TotalStock:    req.TotalStock,
		B2BStock:      req.B2BStock,
		B2CStock:      req.B2CStock,
		ReservedStock: req.ReservedStock,
	}

	if err := h.svc.CreateRecord(c.Request().Context(), &record); err != nil {
		log.Error("Failed to create inventory record",
			zap.Uint("product_id", req.ProductID),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, record)
}

// GetRecord handles retrieval of one product's ledger row
func (h *StockHandler) GetRecord(c echo.Context) error {
	log := logger.FromContext(c)

	productID, err := parseProductID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	record, err := h.svc.GetRecord(c.Request().Context(), productID)
	if err != nil {
		if errors.Is(err, sync.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		log.Error("Failed to load inventory record", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load inventory record"})
	}

	return c.JSON(http.StatusOK, record)
}

func parseProductID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
