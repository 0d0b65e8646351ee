package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ListOrders fetches GET /orders?userId=. The list may come bare or under "data".
func (c *Client) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	data, err := c.do(ctx, http.MethodGet, "/orders?userId="+url.QueryEscape(userID), nil)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := decode(data, &wrapped); err != nil {
			return nil, err
		}
		data = bytes.TrimSpace(wrapped.Data)
	}
	if len(data) == 0 || data[0] != '[' {
		return []domain.Order{}, nil
	}

	var orders []domain.Order
	if err := decode(data, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
