package user

import (
	"time"

	userdm "github.com/wordaddict/finance-sub001/internal/core/datamodel/user"
)

// User is the admin-facing view of an account. The password hash never leaves the repository.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Phone           *string    `json:"phone,omitempty"`
	Campus          *string    `json:"campus,omitempty"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func FromDatamodel(u *userdm.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Phone:           u.Phone,
		Campus:          u.Campus,
		Role:            u.Role,
		Status:          u.Status,
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// Result reports the account after an admin action and whether anything changed.
type Result struct {
	User    *User
	Changed bool
}
