package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Order is a past transaction as the backend reports it.
type Order struct {
	ID            string          `json:"_id"`
	Products      []OrderItem     `json:"products"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentStatus string          `json:"paymentStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ItemCount counts lines without a quantity as one unit.
func (o Order) ItemCount() int {
	n := 0
	for _, p := range o.Products {
		if p.Quantity > 0 {
			n += p.Quantity
		} else {
			n++
		}
	}
	return n
}
