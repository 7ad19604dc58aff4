package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/carts"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/validation"
)

// cartView is a cart with its discounted total.
type cartView struct {
	*carts.Cart
	Total float64 `json:"total"`
}

func viewCart(c *carts.Cart) cartView {
	return cartView{Cart: c, Total: c.Total()}
}

// addToCart merges the product into the caller's cart, capturing the product's
// current name, price and discount on a new line.
func (a *api) addToCart(c *gin.Context) {
	var req validation.AddToCartRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	if !requireSelf(c, req.UserID) {
		return
	}
	ctx := c.Request.Context()

	p, err := a.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	cart, err := a.carts.GetOrNew(ctx, req.UserID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if cart.Quantity(p.ID)+req.Quantity > p.Quantity {
		a.writeError(c, errStockExceeded)
		return
	}

	cart.Add(carts.LineItem{
		ProductID:    p.ID,
		ProductName:  p.Name,
		ProductPrice: p.Price,
		Discount:     p.Discount,
		Quantity:     req.Quantity,
	})
	if err := a.carts.Put(ctx, cart); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCart(cart))
}

func (a *api) getCart(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelf(c, userID) {
		return
	}
	cart, err := a.carts.GetOrNew(c.Request.Context(), userID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCart(cart))
}

func (a *api) updateCartItem(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelf(c, userID) {
		return
	}
	var req validation.UpdateCartRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	ctx := c.Request.Context()

	cart, err := a.carts.Get(ctx, userID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if err := cart.SetQuantity(c.Param("product_id"), *req.Quantity); err != nil {
		a.writeError(c, err)
		return
	}
	if err := a.carts.Put(ctx, cart); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCart(cart))
}

func (a *api) clearCart(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelf(c, userID) {
		return
	}
	if err := a.carts.Delete(c.Request.Context(), userID); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
