package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JBI871/BuyTem-MAD-sub000/internal/addresses"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/auth"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/aws"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/carts"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/catalog"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/config"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/delivery"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/events"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/idempotency"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/middleware"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/orders"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/payments"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/ratings"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/users"
	"github.com/JBI871/BuyTem-MAD-sub000/internal/validation"
)

var (
	errForbidden     = errors.New("forbidden")
	errStockExceeded = errors.New("requested quantity exceeds stock")
)

// HandlerConfig groups dependencies for the API handlers.
type HandlerConfig struct {
	DynamoDBClient  aws.DynamoDBAPI
	Tables          config.Tables
	Tokens          *auth.TokenIssuer
	Publisher       events.Publisher // nil drops events
	Hub             *events.Hub      // nil disables /ws/orders
	UploadDir       string
	IdempotencyTTL  time.Duration
	MaxCodeAttempts int
	Logger          *zap.Logger
}

type api struct {
	v         *validatorv10.Validate
	users     *users.Store
	catalog   *catalog.Store
	carts     *carts.Store
	orders    *orders.Store
	idem      *idempotency.Store
	addresses *addresses.Store
	payments  *payments.Store
	ratings   *ratings.Store
	delivery  *delivery.Store
	tokens    *auth.TokenIssuer
	publisher events.Publisher
	uploadDir string
	logger    *zap.Logger
}

// RegisterRoutes registers every API route on r.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	db, t := cfg.DynamoDBClient, cfg.Tables
	a := &api{
		v:         validation.New(),
		users:     users.NewStore(db, t.Users),
		catalog:   catalog.NewStore(db, t.Products, t.Categories),
		carts:     carts.NewStore(db, t.Carts),
		orders:    orders.NewStore(db, orders.Tables{Orders: t.Orders, Carts: t.Carts, Products: t.Products}),
		idem:      idempotency.NewStore(db, t.Idempotency, cfg.IdempotencyTTL),
		addresses: addresses.NewStore(db, t.Addresses),
		payments:  payments.NewStore(db, t.Payments),
		ratings:   ratings.NewStore(db, t.Ratings),
		delivery: delivery.NewStore(db, delivery.Tables{
			Confirmations: t.Confirmations,
			Orders:        t.Orders,
			Users:         t.Users,
		}, cfg.MaxCodeAttempts),
		tokens:    cfg.Tokens,
		publisher: cfg.Publisher,
		uploadDir: cfg.UploadDir,
		logger:    cfg.Logger,
	}
	if a.publisher == nil {
		a.publisher = events.Nop{}
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.UploadDir != "" {
		r.Static("/uploads", cfg.UploadDir)
	}

	// public
	r.POST("/auth/login", a.login)
	r.POST("/users/auth/register", a.register)
	r.GET("/products", a.listProducts)
	r.GET("/products/:id", a.getProduct)
	r.GET("/categories", a.listCategories)
	r.GET("/ratings/:product_id", a.getRating)

	shopkeeper := middleware.RequireRole(users.RoleShopkeeper)
	staff := middleware.RequireRole(users.RoleShopkeeper, users.RoleDeliveryman)
	courier := middleware.RequireRole(users.RoleDeliveryman)

	g := r.Group("/", middleware.Auth(cfg.Tokens))

	g.GET("/users/:id", a.getUser)
	g.PUT("/users/:id", a.updateUser)
	g.GET("/users/by_id/:id", a.getProfile)

	g.POST("/products/add", shopkeeper, a.addProduct)
	g.PUT("/products/update/:id", shopkeeper, a.updateProduct)
	g.DELETE("/products/delete/:id", shopkeeper, a.deleteProduct)
	g.GET("/products/export", shopkeeper, a.exportProducts)
	g.POST("/categories", shopkeeper, a.createCategory)

	g.POST("/cart", a.addToCart)
	g.GET("/cart/:user_id", a.getCart)
	g.PUT("/cart/:user_id/:product_id", a.updateCartItem)
	g.DELETE("/cart/:user_id", a.clearCart)

	g.POST("/orders", a.checkout)
	g.GET("/orders", staff, a.listOrders)
	g.GET("/orders/:user_id", a.listUserOrders)
	g.GET("/orders/status/:status", staff, a.listOrdersByStatus)
	g.GET("/orders/delivery/:id", staff, a.listDeliveryOrders)
	g.PUT("/orders/:order_id", staff, a.updateOrderStatus)
	if cfg.Hub != nil {
		g.GET("/ws/orders", staff, cfg.Hub.Handler)
	}

	g.POST("/payment", a.createPayment)
	g.GET("/payment/user/:user_id", a.listPayments)
	g.GET("/payment/:id", a.getPayment)
	g.PUT("/payment/:id", a.updatePayment)
	g.DELETE("/payment/:id", a.deletePayment)

	g.POST("/addresses", a.createAddress)
	g.GET("/addresses/user/:user_id", a.listAddresses)
	g.GET("/addresses/:id", a.getAddress)
	g.PUT("/addresses/:id", a.updateAddress)
	g.DELETE("/addresses/:id", a.deleteAddress)

	g.POST("/ratings", a.submitRating)

	g.POST("/confirmDelivery", courier, a.issueConfirmation)
	g.GET("/confirmDelivery/:order_id", a.getConfirmation)
	g.POST("/confirmDelivery/:order_id/verify", courier, a.verifyConfirmation)
	g.DELETE("/confirmDelivery/:order_id", staff, a.cancelConfirmation)
}

func callerID(c *gin.Context) string   { return c.GetString(middleware.UserIDKey) }
func callerRole(c *gin.Context) string { return c.GetString(middleware.RoleKey) }

// requireSelf aborts with 403 unless the caller is userID.
func requireSelf(c *gin.Context, userID string) bool {
	if callerID(c) != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": errForbidden.Error()})
		return false
	}
	return true
}

// writeError maps store errors to HTTP statuses. Unknown errors are 500s carrying
// the raw message.
func (a *api) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, carts.ErrNotFound),
		errors.Is(err, carts.ErrItemNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, addresses.ErrNotFound),
		errors.Is(err, payments.ErrNotFound),
		errors.Is(err, delivery.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errForbidden),
		errors.Is(err, delivery.ErrNotAssigned):
		status = http.StatusForbidden
	case errors.Is(err, errStockExceeded),
		errors.Is(err, carts.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, ratings.ErrOutOfRange),
		errors.Is(err, delivery.ErrCodeMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, catalog.ErrCategoryExists),
		errors.Is(err, orders.ErrStatusMismatch),
		errors.Is(err, orders.ErrInsufficientStock),
		errors.Is(err, orders.ErrCartChanged),
		errors.Is(err, orders.ErrDuplicateRequest),
		errors.Is(err, delivery.ErrAlreadyIssued),
		errors.Is(err, delivery.ErrOrderNotReady),
		errors.Is(err, delivery.ErrCourierBusy):
		status = http.StatusConflict
	case errors.Is(err, delivery.ErrTooManyAttempts):
		status = http.StatusTooManyRequests
	}

	if status == http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// publish delivers e best-effort; failures are logged only.
func (a *api) publish(ctx context.Context, e events.Event) {
	if err := a.publisher.Publish(ctx, e); err != nil {
		a.logger.Warn("publish event failed",
			zap.String("type", e.Type),
			zap.String("order_id", e.OrderID),
			zap.Error(err))
	}
}
