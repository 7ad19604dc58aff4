package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/validation"
)

func (a *api) submitRating(c *gin.Context) {
	var req validation.RatingRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	ctx := c.Request.Context()

	if _, err := a.catalog.GetProduct(ctx, req.ProductID); err != nil {
		a.writeError(c, err)
		return
	}
	r, err := a.ratings.Submit(ctx, req.ProductID, req.Rating)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r.Summary())
}

func (a *api) getRating(c *gin.Context) {
	r, err := a.ratings.Get(c.Request.Context(), c.Param("product_id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r.Summary())
}
