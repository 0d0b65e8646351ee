package domain

import (
	"github.com/shopspring/decimal"
)

type ProductImage struct {
	URL string `json:"url"`
}

// Product is the denormalized product snapshot the backend embeds in cart items.
type Product struct {
	ID     string          `json:"_id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Images []ProductImage  `json:"images,omitempty"`
	Stock  int             `json:"stock"`
}

// PrimaryImage returns the first image url or "".
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (l CartLine) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the client-held mirror of a user's remote cart. Lines keep the
// order the backend returned them in and are unique by product id.
type Cart struct {
	UserID string     `json:"user_id"`
	Lines  []CartLine `json:"lines"`
}

func NewEmptyCart(userID string) *Cart {
	return &Cart{UserID: userID, Lines: []CartLine{}}
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	if c == nil {
		return sum
	}
	for _, l := range c.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// FormattedSubtotal renders the subtotal with two decimals, e.g. "25.00".
func (c *Cart) FormattedSubtotal() string {
	return c.Subtotal().StringFixed(2)
}

func (c *Cart) TotalQuantity() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

func (c *Cart) Find(productID string) (CartLine, bool) {
	if c == nil {
		return CartLine{}, false
	}
	for _, l := range c.Lines {
		if l.Product.ID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// ChangeQuantity moves the line's quantity by delta, bounded to [1, stock].
// Out-of-range requests are clamped rather than rejected. It reports whether
// the product was found.
func (c *Cart) ChangeQuantity(productID string, delta int) bool {
	if c == nil {
		return false
	}
	for i := range c.Lines {
		if c.Lines[i].Product.ID != productID {
			continue
		}
		c.Lines[i].Quantity = ClampQuantity(c.Lines[i].Quantity+delta, c.Lines[i].Product.Stock)
		return true
	}
	return false
}

func (c *Cart) Remove(productID string) bool {
	if c == nil {
		return false
	}
	for i, l := range c.Lines {
		if l.Product.ID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep enough copy for callers that mutate lines.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return &Cart{UserID: c.UserID, Lines: lines}
}

// ClampQuantity bounds q to [1, stock]. The lower bound wins when stock < 1.
func ClampQuantity(q, stock int) int {
	if q > stock {
		q = stock
	}
	if q < 1 {
		q = 1
	}
	return q
}
