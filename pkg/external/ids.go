package external

import (
	"fmt"
	"strconv"
	"strings"
)

// The storefront exposes inventory item ids in two shapes: bare numbers on
// the REST surface and namespaced gids ("gid://shopify/InventoryItem/123")
// on webhooks and the GraphQL surface. The ledger stores only the bare
// numeric id.

// ParseItemID accepts either shape and returns the bare numeric id
func ParseItemID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty inventory item id")
	}

	if strings.HasPrefix(s, "gid://") {
		parts := strings.Split(s, "/")
		s = parts[len(parts)-1]
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid inventory item id %q: %w", raw, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid inventory item id %q: must be positive", raw)
	}

	return id, nil
}

// FormatItemID renders the namespaced gid form of a bare numeric id
func FormatItemID(id int64) string {
	return fmt.Sprintf("gid://shopify/InventoryItem/%d", id)
}
