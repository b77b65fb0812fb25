package wishlist

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/wordaddict/finance-sub001/internal"
	wishlistDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/wishlist"
)

const codeDigits = 6

var (
	ErrCodeNotFound = errors.New("access code not found")

	ErrInvalidCode = internal.NewUnauthorizedError("invalid or expired code", internal.ErrCodeInvalidCode)
)

// argon2id parameters for access-code hashes.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 2
	argonKeyLen  = 32
	saltLen      = 16
)

type AccessRepository interface {
	WithinAccessTx(ctx context.Context, fn func(repo AccessRepository) error) error
	CreateAccessCode(ctx context.Context, c *wishlistDatamodel.WishlistAccessCode) error
	// LatestAccessCode returns the newest unused, unexpired code for the email.
	LatestAccessCode(ctx context.Context, email string, now time.Time) (*wishlistDatamodel.WishlistAccessCode, error)
	IncrementAttempts(ctx context.Context, id string) error
	MarkCodeUsed(ctx context.Context, id string, at time.Time) (bool, error)
}

// AdminLookup reports whether an email belongs to an ACTIVE admin.
type AdminLookup interface {
	IsActiveAdminEmail(ctx context.Context, email string) (bool, error)
}

type CodeSender interface {
	SendWishlistAccessCode(ctx context.Context, email, code string) error
}

type GrantIssuer interface {
	GenerateAccessGrant(email string, expiresAt time.Time) (string, error)
}

type AccessConfig struct {
	AllowedEmails []string
	CodeTTL       time.Duration
	GrantTTL      time.Duration
	MaxAttempts   int
}

// Grant is a signed wishlist access token and its expiry.
type Grant struct {
	Token     string
	ExpiresAt time.Time
}

type AccessServiceAPI interface {
	RequestCode(ctx context.Context, dto AccessCodeDTO) error
	VerifyCode(ctx context.Context, dto VerifyCodeDTO) (*Grant, error)
}

// AccessService runs the one-time code flow that grants wishlist admin access without an account.
type AccessService struct {
	repo   AccessRepository
	admins AdminLookup
	sender CodeSender
	grants GrantIssuer
	cfg    AccessConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewAccessService(repo AccessRepository, admins AdminLookup, sender CodeSender, grants GrantIssuer, cfg AccessConfig, logger *slog.Logger) *AccessService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.GrantTTL <= 0 {
		cfg.GrantTTL = 4 * time.Hour
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	allowed := make([]string, 0, len(cfg.AllowedEmails))
	for _, e := range cfg.AllowedEmails {
		if e = normalizeEmail(e); e != "" {
			allowed = append(allowed, e)
		}
	}
	cfg.AllowedEmails = allowed
	return &AccessService{
		repo:   repo,
		admins: admins,
		sender: sender,
		grants: grants,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// RequestCode issues and emails a code to eligible addresses. Callers cannot tell whether a
// code was sent.
func (s *AccessService) RequestCode(ctx context.Context, dto AccessCodeDTO) error {
	email := normalizeEmail(dto.Email)
	eligible, err := s.eligible(ctx, email)
	if err != nil {
		return internal.NewInternalError("failed to check wishlist access", err)
	}
	if !eligible {
		s.logger.InfoContext(ctx, "wishlist access code not issued: email not eligible")
		return nil
	}

	code, err := newCode()
	if err != nil {
		return internal.NewInternalError("failed to generate access code", err)
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return internal.NewInternalError("failed to generate access code", err)
	}

	now := s.now()
	row := &wishlistDatamodel.WishlistAccessCode{
		ID:        uuid.NewString(),
		Email:     email,
		CodeHash:  hashCode(code, salt),
		Salt:      base64.RawStdEncoding.EncodeToString(salt),
		ExpiresAt: now.Add(s.cfg.CodeTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreateAccessCode(ctx, row); err != nil {
		return internal.NewInternalError("failed to store access code", err)
	}
	if err := s.sender.SendWishlistAccessCode(ctx, email, code); err != nil {
		s.logger.ErrorContext(ctx, "failed to send wishlist access code", "code_id", row.ID, "error", err)
		return nil
	}
	s.logger.InfoContext(ctx, "wishlist access code issued", "code_id", row.ID, "expires_at", row.ExpiresAt)
	return nil
}

// VerifyCode consumes a valid code and returns a signed grant.
func (s *AccessService) VerifyCode(ctx context.Context, dto VerifyCodeDTO) (*Grant, error) {
	email := normalizeEmail(dto.Email)
	now := s.now()

	// A mismatch commits the incremented attempt counter before being reported.
	mismatch := false
	err := s.repo.WithinAccessTx(ctx, func(repo AccessRepository) error {
		row, err := repo.LatestAccessCode(ctx, email, now)
		if err != nil {
			if errors.Is(err, ErrCodeNotFound) {
				return ErrInvalidCode
			}
			return err
		}
		if row.Attempts >= s.cfg.MaxAttempts {
			s.logger.WarnContext(ctx, "wishlist access code locked", "code_id", row.ID, "attempts", row.Attempts)
			return ErrInvalidCode
		}

		salt, err := base64.RawStdEncoding.DecodeString(row.Salt)
		if err != nil {
			return fmt.Errorf("decode salt: %w", err)
		}
		if subtle.ConstantTimeCompare([]byte(hashCode(dto.Code, salt)), []byte(row.CodeHash)) != 1 {
			if err := repo.IncrementAttempts(ctx, row.ID); err != nil {
				return err
			}
			s.logger.WarnContext(ctx, "wishlist access code mismatch", "code_id", row.ID, "attempts", row.Attempts+1)
			mismatch = true
			return nil
		}

		ok, err := repo.MarkCodeUsed(ctx, row.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCode
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to verify access code")
	}
	if mismatch {
		return nil, ErrInvalidCode
	}

	expiresAt := now.Add(s.cfg.GrantTTL)
	token, err := s.grants.GenerateAccessGrant(email, expiresAt)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue wishlist access", err)
	}
	s.logger.InfoContext(ctx, "wishlist access granted", "expires_at", expiresAt)
	return &Grant{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AccessService) eligible(ctx context.Context, email string) (bool, error) {
	if slices.Contains(s.cfg.AllowedEmails, email) {
		return true, nil
	}
	if s.admins == nil {
		return false, nil
	}
	return s.admins.IsActiveAdminEmail(ctx, email)
}

func newCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func hashCode(code string, salt []byte) string {
	key := argon2.IDKey([]byte(code), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return base64.RawStdEncoding.EncodeToString(key)
}
