package auth

import (
	"time"

	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterDTO struct {
	Name     string  `json:"name" validate:"notblank,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Campus   *string `json:"campus,omitempty" validate:"omitempty,max=120"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordDTO struct {
	Token    string `json:"token" validate:"notblank"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type SetPasswordDTO struct {
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

// SessionMeta is recorded on the session row for auditing.
type SessionMeta struct {
	UserAgent string
	IP        string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Principal *coreuser.Principal
}

type MeResponse struct {
	User         *coreuser.Principal `json:"user"`
	Capabilities []Capability        `json:"capabilities"`
}
