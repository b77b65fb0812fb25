package wishlist_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	wishlistDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/wishlist"
	"github.com/wordaddict/finance-sub001/internal/testsupport"
	userPostgres "github.com/wordaddict/finance-sub001/internal/user/postgres"
	"github.com/wordaddict/finance-sub001/internal/wishlist"
	"github.com/wordaddict/finance-sub001/internal/wishlist/postgres"
)

type capturedCode struct {
	email string
	code  string
}

type recordingSender struct {
	mu    sync.Mutex
	codes []capturedCode
}

func (s *recordingSender) SendWishlistAccessCode(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, capturedCode{email: email, code: code})
	return nil
}

func (s *recordingSender) last() capturedCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	Expect(s.codes).ToNot(BeEmpty())
	return s.codes[len(s.codes)-1]
}

const grantSecret = "0123456789abcdef0123456789abcdef"

var _ = Describe("AccessService", func() {
	var (
		ctx    context.Context
		db     *gorm.DB
		sender *recordingSender
		access *wishlist.AccessService
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = testsupport.NewSQLiteDB()
		Expect(err).ToNot(HaveOccurred())
		_, err = testsupport.CreateUser(db, "admin@example.org", "ADMIN")
		Expect(err).ToNot(HaveOccurred())

		sender = &recordingSender{}
		access = wishlist.NewAccessService(
			postgres.NewWishlistRepository(db),
			userPostgres.NewUserRepository(db),
			sender,
			auth.NewJWTTokenGenerator(grantSecret),
			wishlist.AccessConfig{AllowedEmails: []string{"Volunteer@Example.org"}},
			discard(),
		)
	})

	wrongCode := func(code string) string {
		if code == "000000" {
			return "000001"
		}
		return "000000"
	}

	It("answers the same way for ineligible emails without sending a code", func() {
		Expect(access.RequestCode(ctx, wishlist.AccessCodeDTO{Email: "stranger@example.org"})).To(Succeed())

		Expect(sender.codes).To(BeEmpty())
		var n int64
		Expect(db.Model(&wishlistDatamodel.WishlistAccessCode{}).Count(&n).Error).To(Succeed())
		Expect(n).To(BeZero())
	})

	It("issues a hashed six digit code to allow-listed and admin emails", func() {
		// When
		Expect(access.RequestCode(ctx, wishlist.AccessCodeDTO{Email: "volunteer@example.org"})).To(Succeed())
		Expect(access.RequestCode(ctx, wishlist.AccessCodeDTO{Email: "admin@example.org"})).To(Succeed())

		// Then
		Expect(sender.codes).To(HaveLen(2))
		Expect(sender.codes[0].code).To(MatchRegexp(`^\d{6}$`))

		var rows []wishlistDatamodel.WishlistAccessCode
		Expect(db.Find(&rows).Error).To(Succeed())
		Expect(rows).To(HaveLen(2))
		for _, row := range rows {
			Expect(row.CodeHash).ToNot(ContainSubstring(sender.codes[0].code))
			Expect(row.Salt).ToNot(BeEmpty())
			Expect(row.ExpiresAt).To(BeTemporally("~", time.Now().Add(10*time.Minute), time.Minute))
		}
	})

	It("grants access once for the right code", func() {
		// Given
		Expect(access.RequestCode(ctx, wishlist.AccessCodeDTO{Email: "volunteer@example.org"})).To(Succeed())
		code := sender.last().code

		// When
		grant, err := access.VerifyCode(ctx, wishlist.VerifyCodeDTO{Email: "volunteer@example.org", Code: code})

		// Then
		Expect(err).ToNot(HaveOccurred())
		Expect(grant.ExpiresAt).To(BeTemporally("~", time.Now().Add(4*time.Hour), time.Minute))
		email, err := auth.NewJWTTokenGenerator(grantSecret).ValidateAccessGrant(grant.Token)
		Expect(err).ToNot(HaveOccurred())
		Expect(email).To(Equal("volunteer@example.org"))

		_, err = access.VerifyCode(ctx, wishlist.VerifyCodeDTO{Email: "volunteer@example.org", Code: code})
		Expect(err).To(MatchError(wishlist.ErrInvalidCode))
	})

	It("locks a code after five wrong attempts", func() {
		// Given
		Expect(access.RequestCode(ctx, wishlist.AccessCodeDTO{Email: "volunteer@example.org"})).To(Succeed())
		code := sender.last().code

		// When
		for i := 0; i < 5; i++ {
			_, err := access.VerifyCode(ctx, wishlist.VerifyCodeDTO{Email: "volunteer@example.org", Code: wrongCode(code)})
			Expect(err).To(MatchError(wishlist.ErrInvalidCode))
		}

		// Then
		var row wishlistDatamodel.WishlistAccessCode
		Expect(db.First(&row).Error).To(Succeed())
		Expect(row.Attempts).To(Equal(5))
		_, err := access.VerifyCode(ctx, wishlist.VerifyCodeDTO{Email: "volunteer@example.org", Code: code})
		Expect(err).To(MatchError(wishlist.ErrInvalidCode))
	})

	It("rejects expired codes", func() {
		Expect(access.RequestCode(ctx, wishlist.AccessCodeDTO{Email: "volunteer@example.org"})).To(Succeed())
		code := sender.last().code
		Expect(db.Model(&wishlistDatamodel.WishlistAccessCode{}).Where("1 = 1").
			Update("expires_at", time.Now().Add(-time.Minute)).Error).To(Succeed())

		_, err := access.VerifyCode(ctx, wishlist.VerifyCodeDTO{Email: "volunteer@example.org", Code: code})

		Expect(err).To(MatchError(wishlist.ErrInvalidCode))
	})
})

var _ = Describe("WishlistHandler", func() {
	var (
		db      *gorm.DB
		handler *wishlist.Handler
		gate    *wishlist.Gate
		tokens  *auth.JWTTokenGenerator
	)

	BeforeEach(func() {
		var err error
		db, err = testsupport.NewSQLiteDB()
		Expect(err).ToNot(HaveOccurred())
		tokens = auth.NewJWTTokenGenerator(grantSecret)
		repo := postgres.NewWishlistRepository(db)
		service := wishlist.NewService(repo, nil, discard())
		access := wishlist.NewAccessService(repo, nil, &recordingSender{}, tokens, wishlist.AccessConfig{}, discard())
		handler = wishlist.NewHandler(service, access, auth.CookieConfig{Name: "wishlist_access"})
		gate = wishlist.NewGate(tokens, "wishlist_access", discard())
	})

	It("answers 410 on retired endpoints", func() {
		rec := httptest.NewRecorder()
		handler.Gone(rec, httptest.NewRequest(http.MethodGet, "/api/dmv/wishlist", nil))

		Expect(rec.Code).To(Equal(http.StatusGone))
	})

	It("returns the generic message for code requests", func() {
		body, _ := json.Marshal(map[string]string{"email": "nobody@example.org"})
		rec := httptest.NewRecorder()
		handler.RequestAccessCode(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("a code has been sent"))
	})

	Describe("Gate", func() {
		reached := func() (http.Handler, *bool) {
			hit := false
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hit = true
				w.WriteHeader(http.StatusNoContent)
			}), &hit
		}

		It("admits a valid access cookie", func() {
			token, err := tokens.GenerateAccessGrant("volunteer@example.org", time.Now().Add(time.Hour))
			Expect(err).ToNot(HaveOccurred())
			next, hit := reached()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/wishlist", nil)
			req.AddCookie(&http.Cookie{Name: "wishlist_access", Value: token})
			rec := httptest.NewRecorder()

			gate.Require(next).ServeHTTP(rec, req)

			Expect(*hit).To(BeTrue())
		})

		It("admits an ADMIN session without a cookie", func() {
			admin, err := testsupport.CreateUser(db, "admin@example.org", "ADMIN")
			Expect(err).ToNot(HaveOccurred())
			next, hit := reached()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/wishlist", nil)
			req = req.WithContext(internal.ContextWithPrincipal(req.Context(), testsupport.Principal(admin)))
			rec := httptest.NewRecorder()

			gate.Require(next).ServeHTTP(rec, req)

			Expect(*hit).To(BeTrue())
		})

		It("rejects leaders and expired cookies", func() {
			leader, err := testsupport.CreateUser(db, "leader@example.org", "LEADER")
			Expect(err).ToNot(HaveOccurred())
			expired, err := tokens.GenerateAccessGrant("volunteer@example.org", time.Now().Add(-time.Minute))
			Expect(err).ToNot(HaveOccurred())
			next, hit := reached()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/wishlist", nil)
			req = req.WithContext(internal.ContextWithPrincipal(req.Context(), testsupport.Principal(leader)))
			req.AddCookie(&http.Cookie{Name: "wishlist_access", Value: expired})
			rec := httptest.NewRecorder()

			gate.Require(next).ServeHTTP(rec, req)

			Expect(*hit).To(BeFalse())
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
