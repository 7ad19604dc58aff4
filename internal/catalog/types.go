package catalog

import (
	"time"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/pricing"
)

// Product is the item stored in the products table. Discount is a percentage and
// Quantity is the units in stock.
type Product struct {
	ID        string    `dynamodbav:"id" json:"id"`
	Name      string    `dynamodbav:"name" json:"name"`
	Price     float64   `dynamodbav:"price" json:"price"`
	Discount  float64   `dynamodbav:"discount" json:"discount"`
	Quantity  int       `dynamodbav:"quantity" json:"quantity"`
	Category  string    `dynamodbav:"category" json:"category"`
	ImageURL  string    `dynamodbav:"image_url,omitempty" json:"imageUrl,omitempty"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// EffectivePrice is the price after discount.
func (p Product) EffectivePrice() float64 {
	return pricing.EffectivePrice(p.Price, p.Discount)
}

// ProductView is a product as served to clients.
type ProductView struct {
	Product
	EffectivePrice float64 `json:"effective_price"`
}

func (p Product) View() ProductView {
	return ProductView{Product: p, EffectivePrice: p.EffectivePrice()}
}

// ProductUpdate holds the mutable fields; nil means unchanged.
type ProductUpdate struct {
	Name     *string
	Price    *float64
	Discount *float64
	Quantity *int
	Category *string
	ImageURL *string
}

type Category struct {
	ID           string `dynamodbav:"id" json:"id"`
	CategoryName string `dynamodbav:"category_name" json:"category_name"`
}
