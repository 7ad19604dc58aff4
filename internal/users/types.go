package users

import "time"

// Roles, fixed at signup.
const (
	RoleCustomer    = "customer"
	RoleShopkeeper  = "shopkeeper"
	RoleDeliveryman = "deliveryman"
)

// Deliveryman availability.
const (
	StatusFree = "free"
	StatusBusy = "busy"
)

// EmailIndex is the GSI on users(email).
const EmailIndex = "email-index"

// User is the item stored in the users table.
type User struct {
	ID        string    `dynamodbav:"id" json:"id"`
	Name      string    `dynamodbav:"name" json:"name"`
	Email     string    `dynamodbav:"email" json:"email"`
	Password  string    `dynamodbav:"password" json:"-"`
	Phone     string    `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	Role      string    `dynamodbav:"role" json:"role"`
	Image     string    `dynamodbav:"image,omitempty" json:"image,omitempty"`
	Status    string    `dynamodbav:"status,omitempty" json:"status,omitempty"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// Profile is the subset of a user other users may see.
type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Role   string `json:"role"`
	Image  string `json:"image,omitempty"`
	Status string `json:"status,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Phone: u.Phone, Role: u.Role, Image: u.Image, Status: u.Status}
}

// Update holds the mutable profile fields; nil means unchanged.
type Update struct {
	Name   *string
	Phone  *string
	Image  *string
	Status *string
}
