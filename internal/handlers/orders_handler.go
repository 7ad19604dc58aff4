package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/carts"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/events"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/idempotency"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/orders"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/users"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/validation"
)

const idempotencyHeader = "Idempotency-Key"

// checkout turns the caller's cart into a Pending order. With an Idempotency-Key
// header a retried request replays the first response instead of ordering twice.
func (a *api) checkout(c *gin.Context) {
	ctx := c.Request.Context()
	userID := callerID(c)

	var req validation.CheckoutRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}

	// keys are scoped per user
	var idemKey string
	if h := c.GetHeader(idempotencyHeader); h != "" {
		idemKey = userID + ":" + h
		rec, err := a.idem.Get(ctx, idemKey)
		if err != nil {
			a.writeError(c, err)
			return
		}
		if rec != nil {
			a.replay(c, rec)
			return
		}
	}

	addr, err := a.addresses.Get(ctx, req.AddressID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	pm, err := a.payments.Get(ctx, req.PaymentID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if addr.UserID != userID || pm.UserID != userID {
		a.writeError(c, errForbidden)
		return
	}

	cart, err := a.carts.Get(ctx, userID)
	if errors.Is(err, carts.ErrNotFound) {
		a.writeError(c, orders.ErrEmptyCart)
		return
	}
	if err != nil {
		a.writeError(c, err)
		return
	}

	order := &orders.Order{
		OrderID:   uuid.NewString(),
		UserID:    userID,
		AddressID: req.AddressID,
		PaymentID: req.PaymentID,
		Tip:       req.Tip,
	}
	var idemPut *types.TransactWriteItem
	if idemKey != "" {
		put, err := a.idem.TransactPut(idemKey, order.OrderID)
		if err != nil {
			a.writeError(c, err)
			return
		}
		idemPut = &put
	}

	if err := a.orders.Checkout(ctx, order, cart, idemPut); err != nil {
		if errors.Is(err, orders.ErrDuplicateRequest) {
			// lost the race against a concurrent retry
			if rec, getErr := a.idem.Get(ctx, idemKey); getErr == nil && rec != nil {
				a.replay(c, rec)
				return
			}
		}
		a.writeError(c, err)
		return
	}

	if idemKey != "" {
		// an empty body replays as {"order_id": ...}
		body, err := json.Marshal(order)
		if err != nil {
			a.logger.Warn("encode order for replay", zap.String("order_id", order.OrderID), zap.Error(err))
		}
		if err := a.idem.MarkDone(ctx, idemKey, string(body), http.StatusCreated); err != nil {
			a.logger.Warn("mark idempotency done", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}

	e := events.New(events.OrderCreated, order.OrderID)
	e.UserID, e.Status, e.Total = order.UserID, order.Status, order.Total
	a.publish(ctx, e)

	c.Header("Location", fmt.Sprintf("/orders/%s", order.OrderID))
	c.JSON(http.StatusCreated, order)
}

// replay answers a repeated checkout from its idempotency record.
func (a *api) replay(c *gin.Context, rec *idempotency.Record) {
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" {
			c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_id": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress", "order_id": rec.OrderID})
	case idempotency.StatusFailed:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "previous_attempt_failed", "order_id": rec.OrderID})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
	}
}

func (a *api) listOrders(c *gin.Context) {
	list, err := a.orders.List(c.Request.Context())
	a.writeOrders(c, list, err)
}

func (a *api) listUserOrders(c *gin.Context) {
	userID := c.Param("user_id")
	if callerRole(c) == users.RoleCustomer && !requireSelf(c, userID) {
		return
	}
	list, err := a.orders.ListByUser(c.Request.Context(), userID)
	a.writeOrders(c, list, err)
}

func (a *api) listOrdersByStatus(c *gin.Context) {
	list, err := a.orders.ListByStatus(c.Request.Context(), c.Param("status"))
	a.writeOrders(c, list, err)
}

func (a *api) listDeliveryOrders(c *gin.Context) {
	id := c.Param("id")
	if callerRole(c) == users.RoleDeliveryman && !requireSelf(c, id) {
		return
	}
	list, err := a.orders.ListByDeliveryMan(c.Request.Context(), id)
	a.writeOrders(c, list, err)
}

func (a *api) writeOrders(c *gin.Context, list []orders.Order, err error) {
	if err != nil {
		a.writeError(c, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	c.JSON(http.StatusOK, list)
}

func (a *api) updateOrderStatus(c *gin.Context) {
	var req validation.UpdateStatusRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	ctx := c.Request.Context()

	order, err := a.orders.UpdateStatus(ctx, c.Param("order_id"), req.Status)
	if err != nil {
		a.writeError(c, err)
		return
	}

	e := events.New(events.OrderStatusChanged, order.OrderID)
	e.UserID, e.Status, e.DeliveryManID = order.UserID, order.Status, order.DeliveryManID
	a.publish(ctx, e)

	c.JSON(http.StatusOK, order)
}
