package entity

import (
	"time"
)

// Address is the postal address embedded in a user record.
// All fields are required at registration.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// User is the aggregate root for the user domain.
// Password holds a bcrypt digest, never the plaintext; it is excluded from
// every JSON projection below.
type User struct {
	ID                string
	Name              string
	Email             string
	Password          string
	Phone             string
	DateOfBirth       time.Time
	Address           Address
	Role              Role
	CommissionRate    float64
	AssignedCustomers []string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Summary is the public projection returned with freshly issued tokens.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Profile is the full projection returned by the current-user endpoint.
type Profile struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	DateOfBirth       string    `json:"dateOfBirth"`
	Address           Address   `json:"address"`
	Role              Role      `json:"role"`
	CommissionRate    float64   `json:"commissionRate,omitempty"`
	AssignedCustomers []string  `json:"assignedCustomers,omitempty"`
	IsActive          bool      `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func (u *User) Profile() Profile {
	p := Profile{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		DateOfBirth: u.DateOfBirth.Format("2006-01-02"),
		Address:     u.Address,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
	// Commission fields are meaningful for agents only.
	if u.Role == RoleAgent {
		p.CommissionRate = u.CommissionRate
		p.AssignedCustomers = u.AssignedCustomers
	}
	return p
}
