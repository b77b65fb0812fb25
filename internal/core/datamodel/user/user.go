package user

import "time"

type User struct {
	ID              string     `gorm:"type:uuid;primaryKey"`
	Email           string     `gorm:"column:email;uniqueIndex;not null"`
	Name            string     `gorm:"column:name;not null"`
	Phone           *string    `gorm:"column:phone"`
	Campus          *string    `gorm:"column:campus"`
	PasswordHash    *string    `gorm:"column:password_hash"`
	Role            string     `gorm:"column:role;not null;default:LEADER"`
	Status          string     `gorm:"column:status;not null;default:PENDING_APPROVAL;index"`
	EmailVerifiedAt *time.Time `gorm:"column:email_verified_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

type Session struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	UserID    string     `gorm:"column:user_id;type:uuid;not null;index"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	UserAgent string     `gorm:"column:user_agent"`
	IP        string     `gorm:"column:ip"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (Session) TableName() string {
	return "sessions"
}

const (
	TokenPurposeVerifyEmail   = "verify_email"
	TokenPurposePasswordReset = "PASSWORD_RESET"
)

type VerificationToken struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	UserID    string     `gorm:"column:user_id;type:uuid;not null;index"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex;not null"`
	Purpose   string     `gorm:"column:purpose;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (VerificationToken) TableName() string {
	return "verification_tokens"
}
