package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/auth"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/users"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/validation"
)

func (a *api) register(c *gin.Context) {
	var req validation.RegisterRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.writeError(c, err)
		return
	}
	u := &users.User{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		Phone:    req.Phone,
		Role:     req.Role,
		Image:    req.Image,
	}
	if err := a.users.Create(c.Request.Context(), u); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (a *api) login(c *gin.Context) {
	var req validation.LoginRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}

	u, err := a.users.FindByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, users.ErrNotFound) {
		a.writeError(c, auth.ErrInvalidCredentials)
		return
	}
	if err != nil {
		a.writeError(c, err)
		return
	}
	if err := auth.CheckPassword(u.Password, req.Password); err != nil {
		a.writeError(c, err)
		return
	}

	token, exp, err := a.tokens.Issue(u.ID, u.Role)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"id":         u.ID,
		"role":       u.Role,
		"expires_at": exp,
	})
}

func (a *api) getUser(c *gin.Context) {
	id := c.Param("id")
	if !requireSelf(c, id) {
		return
	}
	u, err := a.users.Get(c.Request.Context(), id)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// getProfile serves the public subset of any user, e.g. the courier of an order.
func (a *api) getProfile(c *gin.Context) {
	u, err := a.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Profile())
}

func (a *api) updateUser(c *gin.Context) {
	id := c.Param("id")
	if !requireSelf(c, id) {
		return
	}
	var req validation.UpdateUserRequest
	if err := validation.BindAndValidate(c, &req, a.v); err != nil {
		return
	}
	if req.Status != nil && callerRole(c) != users.RoleDeliveryman {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only deliverymen have a status"})
		return
	}

	u, err := a.users.Update(c.Request.Context(), id, users.Update{
		Name:   req.Name,
		Phone:  req.Phone,
		Image:  req.Image,
		Status: req.Status,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
