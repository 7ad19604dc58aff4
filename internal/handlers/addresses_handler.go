package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/addresses"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/validation"
)

func (a *api) createAddress(c *gin.Context) {
	var req validation.AddressRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	if req.UserID == "" {
		req.UserID = callerID(c)
	}
	if !requireSelf(c, req.UserID) {
		return
	}

	addr := &addresses.Address{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Road:        req.Road,
		BuildingNo:  req.BuildingNo,
		FloorNum:    req.FloorNum,
		ApartmentNo: req.ApartmentNo,
	}
	if err := a.addresses.Create(c.Request.Context(), addr); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, addr)
}

func (a *api) listAddresses(c *gin.Context) {
	userID := c.Param("user_id")
	if !requireSelf(c, userID) {
		return
	}
	list, err := a.addresses.ListByUser(c.Request.Context(), userID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ownedAddress loads the address in the :id param and checks the caller owns it.
func (a *api) ownedAddress(c *gin.Context) (*addresses.Address, bool) {
	addr, err := a.addresses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return nil, false
	}
	if !requireSelf(c, addr.UserID) {
		return nil, false
	}
	return addr, true
}

func (a *api) getAddress(c *gin.Context) {
	addr, ok := a.ownedAddress(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, addr)
}

func (a *api) updateAddress(c *gin.Context) {
	var req validation.AddressRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	addr, ok := a.ownedAddress(c)
	if !ok {
		return
	}

	addr.Road, addr.BuildingNo = req.Road, req.BuildingNo
	addr.FloorNum, addr.ApartmentNo = req.FloorNum, req.ApartmentNo
	if err := a.addresses.Replace(c.Request.Context(), addr); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, addr)
}

func (a *api) deleteAddress(c *gin.Context) {
	addr, ok := a.ownedAddress(c)
	if !ok {
		return
	}
	if err := a.addresses.Delete(c.Request.Context(), addr.ID); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "address deleted"})
}
