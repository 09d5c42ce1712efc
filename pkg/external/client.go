package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"stocksync-service/prometheus"

	"go.uber.org/zap"
)

// Client talks to the storefront's inventory-level API for a single shop.
// It is constructed once in main from configuration and passed to every
// component that needs it, so tests can substitute a double.
type Client struct {
	BaseURL     string
	AccessToken string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// NewClient creates a new storefront inventory API client
func NewClient(baseURL, accessToken string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		BaseURL:     baseURL,
		AccessToken: accessToken,
		HTTPClient:  &http.Client{Timeout: timeout},
		Logger:      logger,
	}
}

// InventoryLevel is the storefront's per-(item, location) stock row
type InventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       int   `json:"available"`
}

type levelsResponse struct {
	InventoryLevels []InventoryLevel `json:"inventory_levels"`
}

type levelResponse struct {
	InventoryLevel InventoryLevel `json:"inventory_level"`
}

type setLevelRequest struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int   `json:"available"`
}

type adjustLevelRequest struct {
	LocationID          int64  `json:"location_id"`
	InventoryItemID     int64  `json:"inventory_item_id"`
	AvailableAdjustment int    `json:"available_adjustment"`
	Reason              string `json:"reason,omitempty"`
}

// GetLevel queries the current available quantity at (itemID, locationID)
func (c *Client) GetLevel(ctx context.Context, itemID, locationID int64) (int, error) {
	path := fmt.Sprintf("/inventory_levels.json?inventory_item_ids=%d&location_ids=%d", itemID, locationID)

	var out levelsResponse
	if err := c.do(ctx, "get_level", http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}

	if len(out.InventoryLevels) == 0 {
		return 0, newAPIError("get_level", http.StatusOK,
			fmt.Sprintf("no inventory level for item %d at location %d", itemID, locationID), ErrNotFound)
	}

	return out.InventoryLevels[0].Available, nil
}

// SetLevel sets the absolute available quantity at (itemID, locationID) and
// returns the quantity the storefront reports back
func (c *Client) SetLevel(ctx context.Context, itemID, locationID int64, available int) (int, error) {
	body := setLevelRequest{
		LocationID:      locationID,
		InventoryItemID: itemID,
		Available:       available,
	}

	var out levelResponse
	if err := c.do(ctx, "set_level", http.MethodPost, "/inventory_levels/set.json", body, &out); err != nil {
		return 0, err
	}

	return out.InventoryLevel.Available, nil
}

// AdjustLevel applies a relative delta at (itemID, locationID). Relative
// adjustment is what the order paths use so concurrent storefront sales are
// not clobbered by an absolute write. The reason code shows up in the
// storefront's own audit trail.
func (c *Client) AdjustLevel(ctx context.Context, itemID, locationID int64, delta int, reason string) (int, error) {
	body := adjustLevelRequest{
		LocationID:          locationID,
		InventoryItemID:     itemID,
		AvailableAdjustment: delta,
		Reason:              reason,
	}

	var out levelResponse
	if err := c.do(ctx, "adjust_level", http.MethodPost, "/inventory_levels/adjust.json", body, &out); err != nil {
		return 0, err
	}

	return out.InventoryLevel.Available, nil
}

// do executes one API call and maps the response onto the error taxonomy
func (c *Client) do(ctx context.Context, op, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return newAPIError(op, 0, "failed to encode request: "+err.Error(), ErrTransient)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return newAPIError(op, 0, err.Error(), ErrTransient)
	}

	req.Header.Set("X-Storefront-Access-Token", c.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		prometheus.ObserveExternalCall(op, "network_error", start)
		c.Logger.Error("Storefront API request failed",
			zap.String("operation", op),
			zap.Error(err))
		return newAPIError(op, 0, err.Error(), ErrTransient)
	}
	defer resp.Body.Close()

	prometheus.ObserveExternalCall(op, strconv.Itoa(resp.StatusCode), start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return newAPIError(op, resp.StatusCode, "failed to read response: "+err.Error(), ErrTransient)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Decoded below
	case resp.StatusCode == http.StatusNotFound:
		return newAPIError(op, resp.StatusCode, string(respBody), ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		c.Logger.Warn("Storefront API rate limited",
			zap.String("operation", op),
			zap.String("retry_after", resp.Header.Get("Retry-After")))
		return newAPIError(op, resp.StatusCode, string(respBody), ErrRateLimited)
	default:
		c.Logger.Error("Storefront API returned error status",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(respBody)))
		return newAPIError(op, resp.StatusCode, string(respBody), ErrTransient)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return newAPIError(op, resp.StatusCode, "failed to parse response: "+err.Error(), ErrTransient)
		}
	}

	return nil
}
