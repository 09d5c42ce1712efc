package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"stocksync-service/internal/model"
	"stocksync-service/internal/sync"
	"stocksync-service/pkg/logger"
	"stocksync-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Storefront webhook delivery headers
const (
	HeaderWebhookSignature = "X-Shopify-Hmac-Sha256"
	HeaderWebhookTopic     = "X-Shopify-Topic"
	HeaderWebhookID        = "X-Shopify-Webhook-Id"
)

// TopicInventoryLevelUpdate is the only topic this service subscribes to
const TopicInventoryLevelUpdate = "inventory_levels/update"

// WebhookHandler ingests storefront stock-level notifications. Deliveries
// are at least once, so every accepted delivery is recorded in the
// idempotency ledger and retries of a processed id short-circuit.
type WebhookHandler struct {
	db     *gorm.DB
	svc    *sync.Service
	secret string
}

// NewWebhookHandler creates the inbound webhook handler
func NewWebhookHandler(db *gorm.DB, svc *sync.Service, secret string) *WebhookHandler {
	return &WebhookHandler{db: db, svc: svc, secret: secret}
}

type inventoryLevelPayload struct {
	InventoryItemID *int64 `json:"inventory_item_id"`
	LocationID      *int64 `json:"location_id"`
	Available       *int   `json:"available"`
}

type webhookResponse struct {
	Success         bool   `json:"success"`
	Duplicate       bool   `json:"duplicate,omitempty"`
	UpdatedProducts []uint `json:"updated_products"`
	SkippedProducts []uint `json:"skipped_products"`
	FailedProducts  []uint `json:"failed_products"`
}

func emptyWebhookResponse(duplicate bool) webhookResponse {
	return webhookResponse{
		Success:         true,
		Duplicate:       duplicate,
		UpdatedProducts: []uint{},
		SkippedProducts: []uint{},
		FailedProducts:  []uint{},
	}
}

// HandleInventoryLevel processes one stock-level-change delivery
func (h *WebhookHandler) HandleInventoryLevel(c echo.Context) error {
	log := logger.FromContext(c)

	signature := c.Request().Header.Get(HeaderWebhookSignature)
	topic := c.Request().Header.Get(HeaderWebhookTopic)
	webhookID := c.Request().Header.Get(HeaderWebhookID)

	if signature == "" || topic == "" || webhookID == "" {
		log.Warn("Webhook delivery missing required headers")
		prometheus.RecordWebhookEvent("missing_headers")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing webhook headers"})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		log.Error("Failed to read webhook body", zap.Error(err))
		prometheus.RecordWebhookEvent("unreadable_body")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable request body"})
	}

	// Reject unsigned traffic before touching any storage so an attacker
	// cannot pollute the idempotency ledger.
	if !h.verifySignature(body, signature) {
		log.Warn("Webhook signature verification failed",
			zap.String("webhook_id", webhookID),
			zap.String("topic", topic))
		prometheus.RecordWebhookEvent("invalid_signature")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	}

	// Duplicate delivery of an already processed id is a no-op success
	var event model.WebhookEventRecord
	err = h.db.First(&event, "webhook_id = ?", webhookID).Error
	switch {
	case err == nil:
		if event.Processed {
			log.Info("Duplicate webhook delivery, skipping",
				zap.String("webhook_id", webhookID))
			prometheus.RecordWebhookEvent("duplicate")
			return c.JSON(http.StatusOK, emptyWebhookResponse(true))
		}
		// Recorded but never finished: a crash interrupted the previous
		// attempt. Re-apply; the update is idempotent.
	case errors.Is(err, gorm.ErrRecordNotFound):
		event = model.WebhookEventRecord{
			WebhookID: webhookID,
			Topic:     topic,
			Payload:   string(body),
		}
		if err := h.db.Create(&event).Error; err != nil {
			log.Error("Failed to record webhook event", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record webhook event"})
		}
	default:
		log.Error("Failed to look up webhook event", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to look up webhook event"})
	}

	if topic != TopicInventoryLevelUpdate {
		log.Info("Ignoring webhook with unsupported topic",
			zap.String("webhook_id", webhookID),
			zap.String("topic", topic))
		h.markProcessed(webhookID, "unsupported topic: "+topic)
		prometheus.RecordWebhookEvent("unsupported_topic")
		return c.JSON(http.StatusOK, emptyWebhookResponse(false))
	}

	var payload inventoryLevelPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("Malformed webhook payload",
			zap.String("webhook_id", webhookID),
			zap.Error(err))
		// Mark processed so retries of this unfixable delivery don't loop
		h.markProcessed(webhookID, "malformed payload: "+err.Error())
		prometheus.RecordWebhookEvent("malformed_payload")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed payload"})
	}
	if payload.InventoryItemID == nil || payload.Available == nil {
		log.Warn("Webhook payload missing required fields",
			zap.String("webhook_id", webhookID))
		h.markProcessed(webhookID, "missing inventory_item_id or available")
		prometheus.RecordWebhookEvent("malformed_payload")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing inventory_item_id or available"})
	}

	updated, skipped, failed, err := h.svc.ApplyExternalLevel(
		c.Request().Context(), *payload.InventoryItemID, *payload.Available, webhookID)
	if err != nil {
		if errors.Is(err, sync.ErrNegativeLevel) {
			// A retry can never fix a negative value; acknowledge it so
			// the sender stops redelivering.
			log.Warn("Webhook carried a negative available value",
				zap.String("webhook_id", webhookID),
				zap.Int("available", *payload.Available))
			h.markProcessed(webhookID, "negative available value")
			prometheus.RecordWebhookEvent("malformed_payload")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "available must not be negative"})
		}
		// Resolution failed before anything was applied; leave the event
		// unprocessed so the sender retries.
		log.Error("Failed to apply webhook stock level", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to apply stock level"})
	}

	if len(updated) == 0 && len(skipped) == 0 && len(failed) == 0 {
		// No linked product is an expected state, not an error: the item
		// may simply not be sold on the B2B side.
		log.Info("Webhook for unlinked inventory item",
			zap.String("webhook_id", webhookID),
			zap.Int64("inventory_item_id", *payload.InventoryItemID))
		h.markProcessed(webhookID, "no linked product")
		prometheus.RecordWebhookEvent("no_linked_product")
		return c.JSON(http.StatusOK, emptyWebhookResponse(false))
	}

	h.markProcessed(webhookID, "")
	prometheus.RecordWebhookEvent("processed")

	log.Info("Webhook processed",
		zap.String("webhook_id", webhookID),
		zap.Int64("inventory_item_id", *payload.InventoryItemID),
		zap.Int("available", *payload.Available),
		zap.Uints("updated_products", updated),
		zap.Uints("skipped_products", skipped),
		zap.Uints("failed_products", failed))

	return c.JSON(http.StatusOK, webhookResponse{
		Success:         len(failed) == 0,
		UpdatedProducts: updated,
		SkippedProducts: skipped,
		FailedProducts:  failed,
	})
}

// verifySignature checks the HMAC-SHA256 of the raw body against the shared secret
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// markProcessed finalizes the idempotency record. Per-product failures are
// recorded on the inventory rows themselves; the event is processed either
// way so the sender does not redeliver.
func (h *WebhookHandler) markProcessed(webhookID, errorMessage string) {
	updates := map[string]interface{}{"processed": true}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}
	if err := h.db.Model(&model.WebhookEventRecord{}).
		Where("webhook_id = ?", webhookID).
		Updates(updates).Error; err != nil {
		logger.GetLogger().Error("Failed to mark webhook event processed",
			zap.String("webhook_id", webhookID),
			zap.Error(err))
	}
}
