package handler

import (
	"errors"
	"net/http"
	"strconv"

	"stocksync-service/internal/model"
	"stocksync-service/internal/sync"
	"stocksync-service/pkg/external"
	"stocksync-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SyncHandler exposes the operational sync endpoints: manual per-product
// push, manual pull-all, linkage administration and the audit trail.
type SyncHandler struct {
	svc *sync.Service
}

// NewSyncHandler creates the sync operations handler
func NewSyncHandler(svc *sync.Service) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// LinkRequest associates a product with a storefront inventory item.
// ExternalItemID accepts either the bare numeric id or the namespaced gid
// form the storefront uses on some surfaces.
type LinkRequest struct {
	ExternalItemID     string `json:"external_item_id"`
	ExternalVariantID  *int64 `json:"external_variant_id,omitempty"`
	ExternalProductID  *int64 `json:"external_product_id,omitempty"`
	ExternalLocationID int64  `json:"external_location_id"`
	SyncEnabled        bool   `json:"sync_enabled"`
}

// Push handles a manual push of one product's stock to the storefront
func (h *SyncHandler) Push(c echo.Context) error {
	log := logger.FromContext(c)

	productID, err := parseProductID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	err = h.svc.PushToExternal(c.Request().Context(), productID, model.SourceManual)
	if err != nil {
		log.Warn("Manual push failed",
			zap.Uint("product_id", productID),
			zap.Error(err))
		switch {
		case errors.Is(err, sync.ErrRecordNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		case errors.Is(err, sync.ErrNotLinked), errors.Is(err, sync.ErrSyncDisabled):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		default:
			// Storefront-side failure; sync_error is recorded and the
			// next reconciliation pass will converge
			return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// PullAll handles a manual reconciliation run
func (h *SyncHandler) PullAll(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Manual pull-all reconciliation requested")

	summary, err := h.svc.PullAll(c.Request().Context())
	if err != nil {
		log.Error("Manual reconciliation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "summary": summary})
}

// Link handles the admin action that sets the storefront identifiers
func (h *SyncHandler) Link(c echo.Context) error {
	log := logger.FromContext(c)

	productID, err := parseProductID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	var req LinkRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	itemID, err := external.ParseItemID(req.ExternalItemID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.ExternalLocationID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "external_location_id is required"})
	}

	err = h.svc.Link(c.Request().Context(), productID, sync.Linkage{
		ItemID:     itemID,
		VariantID:  req.ExternalVariantID,
		ProductID:  req.ExternalProductID,
		LocationID: req.ExternalLocationID,
		Enable:     req.SyncEnabled,
	})
	if err != nil {
		if errors.Is(err, sync.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		log.Error("Failed to link product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Unlink handles the admin action that clears the storefront linkage
func (h *SyncHandler) Unlink(c echo.Context) error {
	log := logger.FromContext(c)

	productID, err := parseProductID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	if err := h.svc.Unlink(c.Request().Context(), productID); err != nil {
		if errors.Is(err, sync.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		log.Error("Failed to unlink product", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ListLogs handles the paginated audit trail for one product
func (h *SyncHandler) ListLogs(c echo.Context) error {
	log := logger.FromContext(c)

	productID, err := parseProductID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	entries, total, err := h.svc.ListLogs(c.Request().Context(), productID, page, pageSize)
	if err != nil {
		log.Error("Failed to list sync logs",
			zap.Uint("product_id", productID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list sync logs"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"logs":    entries,
		"total":   total,
	})
}
