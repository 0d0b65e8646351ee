package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// cartItemDTO is one backend cart entry. productId holds the populated
// product document, or a bare id / null when the product no longer exists.
type cartItemDTO struct {
	Product  json.RawMessage `json:"productId"`
	Quantity int             `json:"quantity"`
}

type cartResponse struct {
	Items []cartItemDTO `json:"items"`
	Data  *struct {
		Items []cartItemDTO `json:"items"`
	} `json:"data"`
}

type addToCartRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type removeFromCartRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
}

// GetCart fetches GET /cart/{userId}. Items without product details are dropped.
func (c *Client) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := c.do(ctx, http.MethodGet, "/cart/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}

	var resp cartResponse
	if err := decode(data, &resp); err != nil {
		return nil, err
	}
	items := resp.Items
	if len(items) == 0 && resp.Data != nil {
		items = resp.Data.Items
	}

	cart := domain.NewEmptyCart(userID)
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		product, ok := parseProduct(item.Product)
		if !ok || seen[product.ID] {
			continue
		}
		seen[product.ID] = true
		cart.Lines = append(cart.Lines, domain.CartLine{
			Product:  product,
			Quantity: domain.ClampQuantity(item.Quantity, product.Stock),
		})
	}
	return cart, nil
}

func parseProduct(raw json.RawMessage) (domain.Product, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return domain.Product{}, false
	}
	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return domain.Product{}, false
	}
	return p, true
}

// AddToCart posts POST /cart/add.
func (c *Client) AddToCart(ctx context.Context, userID, productID string, quantity int) error {
	_, err := c.do(ctx, http.MethodPost, "/cart/add", addToCartRequest{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
	return err
}

// RemoveFromCart posts POST /cart/remove.
func (c *Client) RemoveFromCart(ctx context.Context, userID, productID string) error {
	_, err := c.do(ctx, http.MethodPost, "/cart/remove", removeFromCartRequest{
		UserID:    userID,
		ProductID: productID,
	})
	return err
}
