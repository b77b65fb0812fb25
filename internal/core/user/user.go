package user

import "time"

type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleCampusPastor Role = "CAMPUS_PASTOR"
	RoleLeader       Role = "LEADER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCampusPastor, RoleLeader:
		return true
	}
	return false
}

type Status string

const (
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusActive          Status = "ACTIVE"
	StatusSuspended       Status = "SUSPENDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusActive, StatusSuspended:
		return true
	}
	return false
}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID          string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	Status          Status     `json:"status"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	SessionID       string     `json:"-"`
}

func (p *Principal) IsActive() bool {
	return p != nil && p.Status == StatusActive
}

func (p *Principal) IsAdmin() bool {
	return p.IsActive() && p.Role == RoleAdmin
}
