package carts

import (
	"errors"
	"time"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/pricing"
)

var (
	ErrItemNotFound    = errors.New("product not in cart")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

// LineItem captures product name, price and discount at the time it was added.
type LineItem struct {
	ProductID    string  `dynamodbav:"product_id" json:"product_id"`
	ProductName  string  `dynamodbav:"product_name" json:"product_name"`
	ProductPrice float64 `dynamodbav:"product_price" json:"product_price"`
	Discount     float64 `dynamodbav:"discount" json:"discount"`
	Quantity     int     `dynamodbav:"quantity" json:"quantity"`
}

// Cart is keyed by its owner; one document per user.
type Cart struct {
	UserID    string     `dynamodbav:"user_id" json:"user_id"`
	Items     []LineItem `dynamodbav:"items" json:"items"`
	UpdatedAt time.Time  `dynamodbav:"updated_at" json:"updatedAt"`
}

// Add merges item into the cart: an existing line for the same product gets its
// quantity increased, otherwise the item is appended.
func (c *Cart) Add(item LineItem) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}
	c.Items = append(c.Items, item)
}

// Quantity is the quantity of productID in the cart, 0 when absent.
func (c *Cart) Quantity(productID string) int {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

// SetQuantity sets the quantity of an existing line. Zero removes the line.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if quantity == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = quantity
		}
		return nil
	}
	return ErrItemNotFound
}

// Total is the sum of discounted line totals.
func (c *Cart) Total() float64 {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{Price: it.ProductPrice, Discount: it.Discount, Quantity: it.Quantity})
	}
	return pricing.Total(lines)
}
