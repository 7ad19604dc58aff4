package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/payments"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/validation"
)

// createPayment stores a new method for the caller. Credentials are only ever
// returned masked.
func (a *api) createPayment(c *gin.Context) {
	var req validation.PaymentRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	if req.UserID == "" {
		req.UserID = callerID(c)
	}
	if !requireSelf(c, req.UserID) {
		return
	}

	m := &payments.Method{
		PaymentID:         uuid.NewString(),
		UserID:            req.UserID,
		PaymentMethod:     req.PaymentMethod,
		PaymentCredential: req.PaymentCredential,
	}
	if err := a.payments.Create(c.Request.Context(), m); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m.Masked())
}

func (a *api) listPayments(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelf(c, userID) {
		return
	}
	list, err := a.payments.ListByUser(c.Request.Context(), userID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	for i := range list {
		list[i] = list[i].Masked()
	}
	c.JSON(http.StatusOK, list)
}

func (a *api) ownedPayment(c *gin.Context) (*payments.Method, bool) {
	m, err := a.payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return nil, false
	}
	if !requireSelf(c, m.UserID) {
		return nil, false
	}
	return m, true
}

func (a *api) getPayment(c *gin.Context) {
	m, ok := a.ownedPayment(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, m.Masked())
}

func (a *api) updatePayment(c *gin.Context) {
	var req validation.PaymentRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	m, ok := a.ownedPayment(c)
	if !ok {
		return
	}

	m.PaymentMethod, m.PaymentCredential = req.PaymentMethod, req.PaymentCredential
	if err := a.payments.Replace(c.Request.Context(), m); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Masked())
}

func (a *api) deletePayment(c *gin.Context) {
	m, ok := a.ownedPayment(c)
	if !ok {
		return
	}
	if err := a.payments.Delete(c.Request.Context(), m.PaymentID); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment method deleted"})
}
