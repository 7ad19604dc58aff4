package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/delivery"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/events"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/orders"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/users"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/validation"
)

// withoutCode is a confirmation as shown to the courier, who must learn the code
// from the customer.
func withoutCode(conf *delivery.Confirmation) gin.H {
	return gin.H{
		"order_id":      conf.OrderID,
		"deliveryManId": conf.DeliveryManID,
		"customerId":    conf.CustomerID,
		"attempts":      conf.Attempts,
		"createdAt":     conf.CreatedAt,
	}
}

func (a *api) issueConfirmation(c *gin.Context) {
	var req validation.IssueDeliveryRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	ctx := c.Request.Context()

	conf, err := a.delivery.Issue(ctx, req.OrderID, callerID(c))
	if err != nil {
		a.writeError(c, err)
		return
	}

	e := events.New(events.DeliveryAssigned, conf.OrderID)
	e.UserID, e.DeliveryManID = conf.CustomerID, conf.DeliveryManID
	a.publish(ctx, e)

	c.JSON(http.StatusCreated, withoutCode(conf))
}

// getConfirmation reveals the code to the order's customer only.
func (a *api) getConfirmation(c *gin.Context) {
	conf, err := a.delivery.Get(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	if !requireSelf(c, conf.CustomerID) {
		return
	}
	c.JSON(http.StatusOK, conf)
}

func (a *api) verifyConfirmation(c *gin.Context) {
	var req validation.VerifyDeliveryRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	ctx := c.Request.Context()

	conf, err := a.delivery.Verify(ctx, c.Param("order_id"), callerID(c), req.Code)
	if err != nil {
		a.writeError(c, err)
		return
	}

	e := events.New(events.DeliveryConfirmed, conf.OrderID)
	e.UserID, e.DeliveryManID, e.Status = conf.CustomerID, conf.DeliveryManID, orders.StatusDelivered
	a.publish(ctx, e)

	c.JSON(http.StatusOK, gin.H{"order_id": conf.OrderID, "status": orders.StatusDelivered})
}

// cancelConfirmation releases the order. Allowed for the assigned courier and for
// shopkeepers.
func (a *api) cancelConfirmation(c *gin.Context) {
	ctx := c.Request.Context()
	orderID := c.Param("order_id")

	conf, err := a.delivery.Get(ctx, orderID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if callerRole(c) != users.RoleShopkeeper && !requireSelf(c, conf.DeliveryManID) {
		return
	}
	if conf, err = a.delivery.Cancel(ctx, orderID); err != nil {
		a.writeError(c, err)
		return
	}

	e := events.New(events.DeliveryCancelled, conf.OrderID)
	e.UserID, e.DeliveryManID = conf.CustomerID, conf.DeliveryManID
	a.publish(ctx, e)

	c.JSON(http.StatusOK, gin.H{"message": "delivery cancelled", "order_id": conf.OrderID})
}
