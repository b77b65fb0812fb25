package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wordaddict/finance-sub001/internal"
	userdm "github.com/wordaddict/finance-sub001/internal/core/datamodel/user"
	"github.com/wordaddict/finance-sub001/internal/core/events"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrTokenNotFound   = errors.New("token not found")

	ErrEmailTaken     = internal.NewConflictError("an account with this email already exists", internal.ErrCodeEmailTaken)
	ErrPasswordNotSet = internal.NewConflictError("password has not been set for this account", internal.ErrCodePasswordNotSet)
)

type Repository interface {
	WithinTx(ctx context.Context, fn func(repo Repository) error) error

	FindUserByEmail(ctx context.Context, email string) (*userdm.User, error)
	FindUserByID(ctx context.Context, id string) (*userdm.User, error)
	CreateUser(ctx context.Context, user *userdm.User) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error

	CreateToken(ctx context.Context, token *userdm.VerificationToken) error
	FindTokenByHash(ctx context.Context, hash, purpose string) (*userdm.VerificationToken, error)
	// ConsumeToken sets used_at only while it is still NULL and reports whether it did.
	ConsumeToken(ctx context.Context, tokenID string, at time.Time) (bool, error)

	CreateSession(ctx context.Context, session *userdm.Session) error
	FindSession(ctx context.Context, id string) (*userdm.Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
	RevokeUserSessions(ctx context.Context, userID string, at time.Time) error
}

type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, name, token string) error
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

type Config struct {
	SessionTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	BCryptCost      int
}

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*userdm.User, error)
	VerifyEmail(ctx context.Context, rawToken string) error
	Login(ctx context.Context, dto LoginDTO, meta SessionMeta) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	ValidateSession(ctx context.Context, token string) (*coreuser.Principal, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, dto ResetPasswordDTO) error
	SetPassword(ctx context.Context, principal *coreuser.Principal, dto SetPasswordDTO) error
}

// Service is the main auth service with dependencies
type Service struct {
	repo      Repository
	tokens    TokenGenerator
	notifier  Notifier
	publisher events.Publisher
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new auth service
func NewService(repo Repository, tokens TokenGenerator, notifier Notifier, publisher events.Publisher, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.BCryptCost == 0 {
		cfg.BCryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:      repo,
		tokens:    tokens,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a pending LEADER and sends the verification email inside the
// same transaction, so a failed send leaves no user behind.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*userdm.User, error) {
	email := normalizeEmail(dto.Email)
	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := s.now()
	user := &userdm.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(dto.Name),
		Phone:        dto.Phone,
		Campus:       dto.Campus,
		PasswordHash: &hash,
		Role:         string(coreuser.RoleLeader),
		Status:       string(coreuser.StatusPendingApproval),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repo.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.FindUserByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		if err := repo.CreateUser(ctx, user); err != nil {
			return err
		}

		raw, err := s.issueToken(ctx, repo, user.ID, userdm.TokenPurposeVerifyEmail, s.cfg.VerificationTTL)
		if err != nil {
			return err
		}

		if err := s.notifier.SendVerificationEmail(ctx, user.Email, user.Name, raw); err != nil {
			return internal.NewExternalError("could not send verification email", internal.ErrCodeNotificationFailed, err)
		}
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "registration failed", "email", email, "error", err)
		return nil, wrapInternal(err, "failed to register user")
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	s.publish(ctx, events.NewUserRegisteredEvent(user.ID, user.Email, user.Name))
	return user, nil
}

func (s *Service) VerifyEmail(ctx context.Context, rawToken string) error {
	err := s.repo.WithinTx(ctx, func(repo Repository) error {
		token, err := s.consumeToken(ctx, repo, rawToken, userdm.TokenPurposeVerifyEmail)
		if err != nil {
			return err
		}
		return repo.MarkEmailVerified(ctx, token.UserID, s.now())
	})
	return wrapInternal(err, "failed to verify email")
}

func (s *Service) Login(ctx context.Context, dto LoginDTO, meta SessionMeta) (*LoginResult, error) {
	user, err := s.repo.FindUserByEmail(ctx, normalizeEmail(dto.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}

	if user.PasswordHash == nil || *user.PasswordHash == "" {
		return nil, ErrPasswordNotSet
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.WarnContext(ctx, "login rejected: bad password", "user_id", user.ID)
		return nil, internal.ErrInvalidCredentials
	}

	switch coreuser.Status(user.Status) {
	case coreuser.StatusActive:
	case coreuser.StatusPendingApproval:
		return nil, internal.ErrAccountPending
	default:
		return nil, internal.ErrAccountSuspended
	}

	now := s.now()
	session := &userdm.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
		CreatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, internal.NewInternalError("failed to create session", err)
	}

	token, err := s.tokens.GenerateSessionToken(session.ID, user.ID, session.ExpiresAt)
	if err != nil {
		return nil, internal.NewInternalError("failed to sign session", err)
	}

	principal := toPrincipal(user)
	principal.SessionID = session.ID
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "session_id", session.ID)
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, Principal: principal}, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.repo.RevokeSession(ctx, sessionID, s.now()); err != nil {
		return internal.NewInternalError("failed to revoke session", err)
	}
	return nil
}

// ValidateSession resolves a token into a principal. The session must be live and its user ACTIVE.
func (s *Service) ValidateSession(ctx context.Context, token string) (*coreuser.Principal, error) {
	claims, err := s.tokens.ValidateSessionToken(token)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.FindSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, internal.ErrUnauthenticated
		}
		return nil, internal.NewInternalError("failed to load session", err)
	}
	now := s.now()
	if session.RevokedAt != nil || !now.Before(session.ExpiresAt) || session.UserID != claims.Subject {
		return nil, internal.ErrUnauthenticated
	}

	user, err := s.repo.FindUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, internal.ErrUnauthenticated
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if coreuser.Status(user.Status) != coreuser.StatusActive {
		return nil, internal.ErrUnauthenticated
	}

	principal := toPrincipal(user)
	principal.SessionID = session.ID
	return principal, nil
}

// ForgotPassword never reveals whether the account exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.logger.ErrorContext(ctx, "forgot password lookup failed", "error", err)
		}
		return nil
	}
	if coreuser.Status(user.Status) != coreuser.StatusActive {
		s.logger.InfoContext(ctx, "password reset skipped for inactive user", "user_id", user.ID)
		return nil
	}

	raw, err := s.issueToken(ctx, s.repo, user.ID, userdm.TokenPurposePasswordReset, s.cfg.ResetTTL)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue reset token", "user_id", user.ID, "error", err)
		return nil
	}
	if err := s.notifier.SendPasswordReset(ctx, user.Email, user.Name, raw); err != nil {
		s.logger.ErrorContext(ctx, "failed to send reset email", "user_id", user.ID, "error", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, dto ResetPasswordDTO) error {
	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}

	err = s.repo.WithinTx(ctx, func(repo Repository) error {
		token, err := s.consumeToken(ctx, repo, dto.Token, userdm.TokenPurposePasswordReset)
		if err != nil {
			return err
		}
		now := s.now()
		if err := repo.UpdatePasswordHash(ctx, token.UserID, hash); err != nil {
			return err
		}
		return repo.RevokeUserSessions(ctx, token.UserID, now)
	})
	if err != nil {
		return wrapInternal(err, "failed to reset password")
	}
	s.logger.InfoContext(ctx, "password reset completed")
	return nil
}

func (s *Service) SetPassword(ctx context.Context, principal *coreuser.Principal, dto SetPasswordDTO) error {
	if principal == nil {
		return internal.ErrUnauthenticated
	}
	user, err := s.repo.FindUserByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return internal.ErrUnauthenticated
		}
		return internal.NewInternalError("failed to load user", err)
	}

	if user.PasswordHash != nil && *user.PasswordHash != "" {
		if dto.CurrentPassword == "" {
			return internal.NewValidationFieldError("currentPassword", "currentPassword is required", internal.ErrCodeValidationFailed)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(dto.CurrentPassword)); err != nil {
			return internal.NewValidationFieldError("currentPassword", "current password is incorrect", internal.ErrCodeInvalidCredentials)
		}
	}

	hash, err := s.HashPassword(dto.NewPassword)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return internal.NewInternalError("failed to update password", err)
	}
	s.logger.InfoContext(ctx, "password updated", "user_id", user.ID)
	return nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BCryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) issueToken(ctx context.Context, repo Repository, userID, purpose string, ttl time.Duration) (string, error) {
	raw, hash, err := NewOpaqueToken()
	if err != nil {
		return "", err
	}
	now := s.now()
	token := &userdm.VerificationToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: hash,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := repo.CreateToken(ctx, token); err != nil {
		return "", err
	}
	return raw, nil
}

// consumeToken marks a token used exactly once. Losing the conditional update
// to a concurrent request yields ErrTokenUsed, which rolls the caller back.
func (s *Service) consumeToken(ctx context.Context, repo Repository, raw, purpose string) (*userdm.VerificationToken, error) {
	token, err := repo.FindTokenByHash(ctx, HashToken(strings.TrimSpace(raw)), purpose)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, err
	}
	if token.UsedAt != nil {
		return nil, internal.ErrTokenUsed
	}
	now := s.now()
	if !now.Before(token.ExpiresAt) {
		return nil, internal.ErrTokenExpired
	}

	consumed, err := repo.ConsumeToken(ctx, token.ID, now)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, internal.ErrTokenUsed
	}
	return token, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func toPrincipal(u *userdm.User) *coreuser.Principal {
	return &coreuser.Principal{
		UserID:          u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            coreuser.Role(u.Role),
		Status:          coreuser.Status(u.Status),
		EmailVerifiedAt: u.EmailVerifiedAt,
	}
}

func wrapInternal(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewInternalError(message, err)
}
