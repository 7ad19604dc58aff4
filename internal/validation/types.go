package validation

// RegisterRequest is the payload for POST /users/auth/register
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
	Role     string `json:"role" validate:"required,oneof=customer shopkeeper deliveryman"` // fixed at signup
	Image    string `json:"image"`
}

// LoginRequest is the payload for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest is the payload for PUT /users/:id; absent fields are left unchanged.
type UpdateUserRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1"`
	Phone  *string `json:"phone"`
	Image  *string `json:"image"`
	Status *string `json:"status" validate:"omitempty,oneof=free busy"`
}

// ProductForm is the multipart form for POST /products/add. The image file is read
// separately.
type ProductForm struct {
	Name     string  `form:"name" validate:"required"`
	Price    float64 `form:"price" validate:"gt=0"`
	Discount float64 `form:"discount" validate:"gte=0,lte=100"` // percent
	Quantity int     `form:"quantity" validate:"gte=0"`
	Category string  `form:"category" validate:"required"`
}

// UpdateProductRequest is the payload for PUT /products/update/:id
type UpdateProductRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1"`
	Price    *float64 `json:"price" validate:"omitempty,gt=0"`
	Discount *float64 `json:"discount" validate:"omitempty,gte=0,lte=100"`
	Quantity *int     `json:"quantity" validate:"omitempty,gte=0"`
	Category *string  `json:"category" validate:"omitempty,min=1"`
	ImageURL *string  `json:"imageUrl"`
}

type CreateCategoryRequest struct {
	CategoryName string `json:"category_name" validate:"required"`
}

// AddToCartRequest is the payload for POST /cart
type AddToCartRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// UpdateCartRequest is the payload for PUT /cart/:user_id/:product_id. Zero removes the line.
type UpdateCartRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CheckoutRequest is the payload for POST /orders
type CheckoutRequest struct {
	AddressID string  `json:"address_id" validate:"required"`
	PaymentID string  `json:"payment_id" validate:"required"`
	Tip       float64 `json:"tip" validate:"gte=0"`
}

// UpdateStatusRequest is the payload for PUT /orders/:order_id
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,order_status"`
}

// AddressRequest is the payload for POST /addresses and PUT /addresses/:id
type AddressRequest struct {
	UserID      string `json:"user_id"` // defaults to the caller
	Road        string `json:"road" validate:"required"`
	BuildingNo  string `json:"building_no" validate:"required"`
	FloorNum    string `json:"floor_num"`
	ApartmentNo string `json:"apartment_no"`
}

// PaymentRequest is the payload for POST /payment and PUT /payment/:id
type PaymentRequest struct {
	UserID            string `json:"user_id"` // defaults to the caller
	PaymentMethod     string `json:"payment_method" validate:"required"`
	PaymentCredential string `json:"payment_credential" validate:"required"`
}

type RatingRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
}

type IssueDeliveryRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

type VerifyDeliveryRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}
