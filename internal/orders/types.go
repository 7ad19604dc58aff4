package orders

import (
	"time"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/carts"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/pricing"
)

// Order statuses
const (
	StatusPending   = "Pending"
	StatusAccepted  = "Accepted"
	StatusDenied    = "Denied"
	StatusPickedUp  = "Picked Up"
	StatusDelivered = "Delivered"
)

// Statuses lists every allowed status in lifecycle order.
var Statuses = []string{StatusPending, StatusAccepted, StatusDenied, StatusPickedUp, StatusDelivered}

// ValidStatus reports whether s is one of Statuses.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// GSIs on the orders table.
const (
	UserIndex        = "user_id-index"
	StatusIndex      = "status-index"
	DeliveryManIndex = "delivery_man_id-index"
)

// Item is one snapshotted line of an order.
type Item struct {
	ProductID      string  `dynamodbav:"product_id" json:"product_id"`
	ProductName    string  `dynamodbav:"product_name" json:"product_name"`
	ProductPrice   float64 `dynamodbav:"product_price" json:"product_price"`
	Discount       float64 `dynamodbav:"discount" json:"discount"`
	EffectivePrice float64 `dynamodbav:"effective_price" json:"effective_price"`
	Quantity       int     `dynamodbav:"quantity" json:"quantity"`
	LineTotal      float64 `dynamodbav:"line_total" json:"line_total"`
}

// Order represents the item stored in the orders table. Only Status, DeliveryManID
// and UpdatedAt change after creation.
type Order struct {
	OrderID       string    `dynamodbav:"order_id" json:"order_id"` // PK
	UserID        string    `dynamodbav:"user_id" json:"user_id"`
	Items         []Item    `dynamodbav:"items" json:"items"`
	Total         float64   `dynamodbav:"total" json:"total"`
	Status        string    `dynamodbav:"status" json:"status"`
	AddressID     string    `dynamodbav:"address_id" json:"address_id"`
	PaymentID     string    `dynamodbav:"payment_id" json:"payment_id"`
	Tip           float64   `dynamodbav:"tip" json:"tip"`
	DeliveryManID string    `dynamodbav:"delivery_man_id,omitempty" json:"deliveryManId,omitempty"`
	CreatedAt     time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// Snapshot copies the cart lines into order items and computes the total, which is
// the sum of the stored line totals. The tip is not part of the total.
func Snapshot(c *carts.Cart) ([]Item, float64) {
	items := make([]Item, 0, len(c.Items))
	for _, l := range c.Items {
		items = append(items, Item{
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			ProductPrice:   l.ProductPrice,
			Discount:       l.Discount,
			EffectivePrice: pricing.EffectivePrice(l.ProductPrice, l.Discount),
			Quantity:       l.Quantity,
			LineTotal:      pricing.LineTotal(l.ProductPrice, l.Discount, l.Quantity),
		})
	}
	return items, c.Total()
}

// quantities sums item quantities per product, in first-seen order.
func (o *Order) quantities() ([]string, map[string]int) {
	var ids []string
	qty := map[string]int{}
	for _, it := range o.Items {
		if _, seen := qty[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
	}
	return ids, qty
}
