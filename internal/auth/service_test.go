package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	"github.com/wordaddict/finance-sub001/internal/auth/postgres"
	userdm "github.com/wordaddict/finance-sub001/internal/core/datamodel/user"
	"github.com/wordaddict/finance-sub001/internal/core/events"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
	"github.com/wordaddict/finance-sub001/internal/testsupport"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Module Suite")
}

type fakeNotifier struct {
	mu          sync.Mutex
	verifyToken string
	resetToken  string
	verifyErr   error
}

func (n *fakeNotifier) SendVerificationEmail(_ context.Context, _, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.verifyErr != nil {
		return n.verifyErr
	}
	n.verifyToken = token
	return nil
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, _, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetToken = token
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// racedRepository behaves as if another request consumed every token first.
type racedRepository struct {
	*postgres.Repository
}

func (r *racedRepository) WithinTx(ctx context.Context, fn func(repo auth.Repository) error) error {
	return r.Repository.WithinTx(ctx, func(repo auth.Repository) error {
		return fn(&racedRepository{Repository: repo.(*postgres.Repository)})
	})
}

func (r *racedRepository) ConsumeToken(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

var _ = Describe("AuthService", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		repo      *postgres.Repository
		notifier  *fakeNotifier
		publisher *recordingPublisher
		service   *auth.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = testsupport.NewSQLiteDB()
		Expect(err).ToNot(HaveOccurred())

		repo = postgres.NewRepository(db)
		notifier = &fakeNotifier{}
		publisher = &recordingPublisher{}
		service = auth.NewService(repo, auth.NewJWTTokenGenerator("test-secret-that-is-long-enough-000"), notifier, publisher,
			auth.Config{BCryptCost: bcrypt.MinCost}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	register := func(email string) *userdm.User {
		user, err := service.Register(ctx, auth.RegisterDTO{Name: "Lee", Email: email, Password: "password123"})
		Expect(err).ToNot(HaveOccurred())
		return user
	}

	activate := func(userID string) {
		Expect(db.Model(&userdm.User{}).Where("id = ?", userID).Update("status", "ACTIVE").Error).To(Succeed())
	}

	Describe("Register", func() {
		It("creates a pending leader, emails a verification token and publishes an event", func() {
			// When
			user := register("  Lee@Example.org ")

			// Then
			Expect(user.Email).To(Equal("lee@example.org"))
			Expect(user.Status).To(Equal(string(coreuser.StatusPendingApproval)))
			Expect(user.Role).To(Equal(string(coreuser.RoleLeader)))
			Expect(notifier.verifyToken).ToNot(BeEmpty())
			Expect(publisher.events).To(HaveLen(1))
			Expect(publisher.events[0].EventType()).To(Equal(events.EventTypeUserRegistered))
		})

		It("rejects a duplicate email", func() {
			register("lee@example.org")

			_, err := service.Register(ctx, auth.RegisterDTO{Name: "Other", Email: "LEE@example.org", Password: "password123"})

			Expect(err).To(MatchError(auth.ErrEmailTaken))
		})

		It("rolls the user back when the verification email cannot be sent", func() {
			// Given
			notifier.verifyErr = errors.New("smtp down")

			// When
			_, err := service.Register(ctx, auth.RegisterDTO{Name: "Lee", Email: "lee@example.org", Password: "password123"})

			// Then
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeNotificationFailed))

			var count int64
			Expect(db.Model(&userdm.User{}).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
			Expect(db.Model(&userdm.VerificationToken{}).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
			Expect(publisher.events).To(BeEmpty())
		})
	})

	Describe("VerifyEmail", func() {
		It("consumes the token exactly once", func() {
			// Given
			user := register("lee@example.org")

			// When
			Expect(service.VerifyEmail(ctx, notifier.verifyToken)).To(Succeed())
			err := service.VerifyEmail(ctx, notifier.verifyToken)

			// Then
			Expect(err).To(MatchError(internal.ErrTokenUsed))
			stored, err := repo.FindUserByID(ctx, user.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.EmailVerifiedAt).ToNot(BeNil())
		})

		It("rejects unknown tokens", func() {
			Expect(service.VerifyEmail(ctx, "not-a-token")).To(MatchError(internal.ErrInvalidToken))
		})

		It("rejects expired tokens", func() {
			register("lee@example.org")
			Expect(db.Model(&userdm.VerificationToken{}).Where("1 = 1").
				Update("expires_at", time.Now().Add(-time.Minute)).Error).To(Succeed())

			Expect(service.VerifyEmail(ctx, notifier.verifyToken)).To(MatchError(internal.ErrTokenExpired))
		})
	})

	Describe("Login", func() {
		It("refuses pending accounts with 403", func() {
			register("lee@example.org")

			_, err := service.Login(ctx, auth.LoginDTO{Email: "lee@example.org", Password: "password123"}, auth.SessionMeta{})

			Expect(err).To(MatchError(internal.ErrAccountPending))
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.StatusCode).To(Equal(403))
		})

		It("refuses suspended accounts", func() {
			user := register("lee@example.org")
			Expect(db.Model(&userdm.User{}).Where("id = ?", user.ID).Update("status", "SUSPENDED").Error).To(Succeed())

			_, err := service.Login(ctx, auth.LoginDTO{Email: "lee@example.org", Password: "password123"}, auth.SessionMeta{})

			Expect(err).To(MatchError(internal.ErrAccountSuspended))
		})

		It("rejects a wrong password", func() {
			user := register("lee@example.org")
			activate(user.ID)

			_, err := service.Login(ctx, auth.LoginDTO{Email: "lee@example.org", Password: "nope-nope"}, auth.SessionMeta{})

			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})

		It("answers 400 when no password was ever set", func() {
			_, err := testsupport.CreateUser(db, "seeded@example.org", "ADMIN")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.Login(ctx, auth.LoginDTO{Email: "seeded@example.org", Password: "whatever1"}, auth.SessionMeta{})

			Expect(err).To(MatchError(auth.ErrPasswordNotSet))
		})

		It("issues a session token that validates until logout", func() {
			// Given
			user := register("lee@example.org")
			activate(user.ID)

			// When
			result, err := service.Login(ctx, auth.LoginDTO{Email: "lee@example.org", Password: "password123"}, auth.SessionMeta{UserAgent: "test", IP: "127.0.0.1"})
			Expect(err).ToNot(HaveOccurred())

			// Then
			principal, err := service.ValidateSession(ctx, result.Token)
			Expect(err).ToNot(HaveOccurred())
			Expect(principal.UserID).To(Equal(user.ID))
			Expect(principal.SessionID).To(Equal(result.Principal.SessionID))

			Expect(service.Logout(ctx, principal.SessionID)).To(Succeed())
			_, err = service.ValidateSession(ctx, result.Token)
			Expect(err).To(MatchError(internal.ErrUnauthenticated))
		})

		It("invalidates sessions of users who are no longer active", func() {
			user := register("lee@example.org")
			activate(user.ID)
			result, err := service.Login(ctx, auth.LoginDTO{Email: "lee@example.org", Password: "password123"}, auth.SessionMeta{})
			Expect(err).ToNot(HaveOccurred())

			Expect(db.Model(&userdm.User{}).Where("id = ?", user.ID).Update("status", "SUSPENDED").Error).To(Succeed())

			_, err = service.ValidateSession(ctx, result.Token)
			Expect(err).To(MatchError(internal.ErrUnauthenticated))
		})
	})

	Describe("password reset", func() {
		It("resets once, revokes sessions, and refuses replay", func() {
			// Given
			user := register("lee@example.org")
			activate(user.ID)
			login, err := service.Login(ctx, auth.LoginDTO{Email: "lee@example.org", Password: "password123"}, auth.SessionMeta{})
			Expect(err).ToNot(HaveOccurred())

			// When
			Expect(service.ForgotPassword(ctx, "lee@example.org")).To(Succeed())
			Expect(notifier.resetToken).ToNot(BeEmpty())
			Expect(service.ResetPassword(ctx, auth.ResetPasswordDTO{Token: notifier.resetToken, Password: "new-password-1"})).To(Succeed())

			// Then
			err = service.ResetPassword(ctx, auth.ResetPasswordDTO{Token: notifier.resetToken, Password: "another-pass-2"})
			Expect(err).To(MatchError(internal.ErrTokenUsed))
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.StatusCode).To(Equal(400))
			Expect(appErr.Message).To(Equal("token already used"))

			_, err = service.ValidateSession(ctx, login.Token)
			Expect(err).To(MatchError(internal.ErrUnauthenticated))

			_, err = service.Login(ctx, auth.LoginDTO{Email: "lee@example.org", Password: "new-password-1"}, auth.SessionMeta{})
			Expect(err).ToNot(HaveOccurred())
		})

		It("keeps the old password when the token is consumed concurrently", func() {
			// Given
			user := register("lee@example.org")
			activate(user.ID)
			login, err := service.Login(ctx, auth.LoginDTO{Email: "lee@example.org", Password: "password123"}, auth.SessionMeta{})
			Expect(err).ToNot(HaveOccurred())
			Expect(service.ForgotPassword(ctx, "lee@example.org")).To(Succeed())
			var before userdm.User
			Expect(db.Where("id = ?", user.ID).First(&before).Error).To(Succeed())

			raced := auth.NewService(&racedRepository{Repository: repo}, auth.NewJWTTokenGenerator("test-secret-that-is-long-enough-000"),
				notifier, publisher, auth.Config{BCryptCost: bcrypt.MinCost}, slog.New(slog.NewTextHandler(io.Discard, nil)))

			// When
			err = raced.ResetPassword(ctx, auth.ResetPasswordDTO{Token: notifier.resetToken, Password: "new-password-1"})

			// Then
			Expect(err).To(MatchError(internal.ErrTokenUsed))
			var after userdm.User
			Expect(db.Where("id = ?", user.ID).First(&after).Error).To(Succeed())
			Expect(after.PasswordHash).To(Equal(before.PasswordHash))

			_, err = service.ValidateSession(ctx, login.Token)
			Expect(err).ToNot(HaveOccurred())
			_, err = service.Login(ctx, auth.LoginDTO{Email: "lee@example.org", Password: "password123"}, auth.SessionMeta{})
			Expect(err).ToNot(HaveOccurred())
		})

		It("silently ignores unknown and inactive accounts", func() {
			register("pending@example.org")

			Expect(service.ForgotPassword(ctx, "missing@example.org")).To(Succeed())
			Expect(service.ForgotPassword(ctx, "pending@example.org")).To(Succeed())
			Expect(notifier.resetToken).To(BeEmpty())
		})

		It("does not accept a verification token as a reset token", func() {
			register("lee@example.org")

			err := service.ResetPassword(ctx, auth.ResetPasswordDTO{Token: notifier.verifyToken, Password: "new-password-1"})

			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})
	})

	Describe("SetPassword", func() {
		It("sets a first password without the current one", func() {
			seeded, err := testsupport.CreateUser(db, "seeded@example.org", "ADMIN")
			Expect(err).ToNot(HaveOccurred())
			principal := &coreuser.Principal{UserID: seeded.ID, Role: coreuser.RoleAdmin, Status: coreuser.StatusActive}

			Expect(service.SetPassword(ctx, principal, auth.SetPasswordDTO{NewPassword: "first-password"})).To(Succeed())

			_, err = service.Login(ctx, auth.LoginDTO{Email: "seeded@example.org", Password: "first-password"}, auth.SessionMeta{})
			Expect(err).ToNot(HaveOccurred())
		})

		It("requires the correct current password once one exists", func() {
			user := register("lee@example.org")
			activate(user.ID)
			principal := &coreuser.Principal{UserID: user.ID, Role: coreuser.RoleLeader, Status: coreuser.StatusActive}

			err := service.SetPassword(ctx, principal, auth.SetPasswordDTO{NewPassword: "changed-pass"})
			Expect(err).To(HaveOccurred())

			err = service.SetPassword(ctx, principal, auth.SetPasswordDTO{CurrentPassword: "wrong-pass", NewPassword: "changed-pass"})
			Expect(err).To(HaveOccurred())

			Expect(service.SetPassword(ctx, principal, auth.SetPasswordDTO{CurrentPassword: "password123", NewPassword: "changed-pass"})).To(Succeed())
		})
	})
})
