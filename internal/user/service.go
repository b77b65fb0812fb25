package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	userdm "github.com/wordaddict/finance-sub001/internal/core/datamodel/user"
	"github.com/wordaddict/finance-sub001/internal/core/events"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

var (
	ErrNotFound = errors.New("user not found")

	ErrUserNotFound      = internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	ErrSelfModification  = internal.NewConflictError("you cannot change your own role or status", internal.ErrCodeSelfModification)
	ErrNotPendingForDeny = internal.NewConflictError("only pending registrations can be denied", internal.ErrCodeInvalidUserStatus)
	ErrPendingStatus     = internal.NewConflictError("pending registrations must be approved or denied", internal.ErrCodeInvalidUserStatus)
)

type Repository interface {
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
	List(ctx context.Context, status string) ([]userdm.User, error)
	FindByID(ctx context.Context, id string) (*userdm.User, error)
	UpdateStatus(ctx context.Context, id, status string, emailVerifiedAt *time.Time) error
	UpdateRole(ctx context.Context, id, role string) error
	// Delete removes the user together with its tokens and sessions.
	Delete(ctx context.Context, id string) error
	RevokeSessions(ctx context.Context, userID string, at time.Time) error
}

type ServiceAPI interface {
	List(ctx context.Context, p *coreuser.Principal, status string) ([]*User, error)
	Approve(ctx context.Context, p *coreuser.Principal, userID string) (*Result, error)
	Deny(ctx context.Context, p *coreuser.Principal, userID string) error
	UpdateStatus(ctx context.Context, p *coreuser.Principal, dto UpdateStatusDTO) (*Result, error)
	UpdateRole(ctx context.Context, p *coreuser.Principal, dto UpdateRoleDTO) (*Result, error)
}

type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) List(ctx context.Context, p *coreuser.Principal, status string) ([]*User, error) {
	if err := auth.Authorize(p, auth.CapManageUsers); err != nil {
		return nil, err
	}
	if status != "" && !coreuser.Status(status).Valid() {
		return nil, internal.NewValidationFieldError("status", "status must be one of PENDING_APPROVAL, ACTIVE, SUSPENDED", internal.ErrCodeInvalidUserStatus)
	}

	rows, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, internal.NewInternalError("failed to list users", err)
	}
	out := make([]*User, 0, len(rows))
	for i := range rows {
		out = append(out, FromDatamodel(&rows[i]))
	}
	return out, nil
}

// Approve activates a pending or suspended user. Only a pending approval stamps
// emailVerifiedAt, and only when it is still unset.
func (s *Service) Approve(ctx context.Context, p *coreuser.Principal, userID string) (*Result, error) {
	target, err := s.target(ctx, p, userID)
	if err != nil {
		return nil, err
	}

	from := coreuser.Status(target.Status)
	if from == coreuser.StatusActive {
		return &Result{User: FromDatamodel(target), Changed: false}, nil
	}

	verifiedAt := target.EmailVerifiedAt
	if from == coreuser.StatusPendingApproval && verifiedAt == nil {
		now := s.now()
		verifiedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, target.ID, string(coreuser.StatusActive), verifiedAt); err != nil {
		return nil, internal.NewInternalError("failed to approve user", err)
	}
	target.Status = string(coreuser.StatusActive)
	target.EmailVerifiedAt = verifiedAt

	s.logger.InfoContext(ctx, "user approved", "user_id", target.ID, "from", from, "actor_id", p.UserID)
	s.publish(ctx, events.NewUserApprovedEvent(target.ID, target.Email, target.Name))
	return &Result{User: FromDatamodel(target), Changed: true}, nil
}

func (s *Service) Deny(ctx context.Context, p *coreuser.Principal, userID string) error {
	target, err := s.target(ctx, p, userID)
	if err != nil {
		return err
	}
	if coreuser.Status(target.Status) != coreuser.StatusPendingApproval {
		return ErrNotPendingForDeny
	}

	err = s.repo.WithinTx(ctx, func(repo Repository) error {
		return repo.Delete(ctx, target.ID)
	})
	if err != nil {
		return internal.NewInternalError("failed to deny user", err)
	}
	s.logger.InfoContext(ctx, "pending registration denied", "user_id", target.ID, "actor_id", p.UserID)
	return nil
}

func (s *Service) UpdateStatus(ctx context.Context, p *coreuser.Principal, dto UpdateStatusDTO) (*Result, error) {
	status := coreuser.Status(dto.Status)
	if status != coreuser.StatusActive && status != coreuser.StatusSuspended {
		return nil, internal.NewValidationFieldError("status", "status must be ACTIVE or SUSPENDED", internal.ErrCodeInvalidUserStatus)
	}

	target, err := s.target(ctx, p, dto.UserID)
	if err != nil {
		return nil, err
	}
	if coreuser.Status(target.Status) == coreuser.StatusPendingApproval {
		s.logger.WarnContext(ctx, "status change rejected for pending user", "user_id", target.ID, "to", status, "actor_id", p.UserID)
		return nil, ErrPendingStatus
	}
	if coreuser.Status(target.Status) == status {
		return &Result{User: FromDatamodel(target), Changed: false}, nil
	}

	err = s.repo.WithinTx(ctx, func(repo Repository) error {
		if err := repo.UpdateStatus(ctx, target.ID, string(status), target.EmailVerifiedAt); err != nil {
			return err
		}
		if status == coreuser.StatusSuspended {
			return repo.RevokeSessions(ctx, target.ID, s.now())
		}
		return nil
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to update user status", err)
	}

	s.logger.InfoContext(ctx, "user status changed", "user_id", target.ID, "from", target.Status, "to", status, "actor_id", p.UserID)
	target.Status = string(status)
	return &Result{User: FromDatamodel(target), Changed: true}, nil
}

func (s *Service) UpdateRole(ctx context.Context, p *coreuser.Principal, dto UpdateRoleDTO) (*Result, error) {
	role := coreuser.Role(dto.Role)
	if !role.Valid() {
		return nil, internal.NewValidationFieldError("role", "role must be one of ADMIN, CAMPUS_PASTOR, LEADER", internal.ErrCodeValidationFailed)
	}

	target, err := s.target(ctx, p, dto.UserID)
	if err != nil {
		return nil, err
	}
	if coreuser.Role(target.Role) == role {
		return &Result{User: FromDatamodel(target), Changed: false}, nil
	}

	if err := s.repo.UpdateRole(ctx, target.ID, string(role)); err != nil {
		return nil, internal.NewInternalError("failed to update user role", err)
	}
	s.logger.InfoContext(ctx, "user role changed", "user_id", target.ID, "from", target.Role, "to", role, "actor_id", p.UserID)
	target.Role = string(role)
	return &Result{User: FromDatamodel(target), Changed: true}, nil
}

// target authorizes the caller and loads a user other than the caller.
func (s *Service) target(ctx context.Context, p *coreuser.Principal, userID string) (*userdm.User, error) {
	if err := auth.Authorize(p, auth.CapManageUsers); err != nil {
		return nil, err
	}
	if userID == p.UserID {
		s.logger.WarnContext(ctx, "admin attempted to modify own account", "user_id", p.UserID)
		return nil, ErrSelfModification
	}

	target, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	return target, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
