package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/wordaddict/finance-sub001/internal"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
	"github.com/wordaddict/finance-sub001/internal/transport"
	"github.com/wordaddict/finance-sub001/pkg/logger"
)

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*coreuser.Principal, error)
}

// Middleware resolves the session cookie or bearer token into a principal.
type Middleware struct {
	*transport.BaseHandler
	sessions   SessionValidator
	cookieName string
}

func NewMiddleware(sessions SessionValidator, cookieName string, lg *slog.Logger) *Middleware {
	if cookieName == "" {
		cookieName = "session"
	}
	return &Middleware{
		BaseHandler: transport.NewBaseHandler(lg),
		sessions:    sessions,
		cookieName:  cookieName,
	}
}

func (m *Middleware) token(r *http.Request) string {
	if token := m.ExtractTokenFromHeader(r); token != "" {
		return token
	}
	if c, err := r.Cookie(m.cookieName); err == nil {
		return c.Value
	}
	return ""
}

func (m *Middleware) resolve(r *http.Request) (*http.Request, error) {
	token := m.token(r)
	if token == "" {
		return r, internal.ErrUnauthenticated
	}
	principal, err := m.sessions.ValidateSession(r.Context(), token)
	if err != nil {
		return r, err
	}
	ctx := internal.ContextWithPrincipal(r.Context(), principal)
	ctx = logger.With(ctx, "user_id", principal.UserID)
	return r.WithContext(ctx), nil
}

// Authenticate rejects requests without a valid session.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed, err := m.resolve(r)
		if err != nil {
			logger.From(r.Context()).Debug("auth middleware: rejected request", "path", r.URL.Path, "error", err)
			m.HandleServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, authed)
	})
}

// Optional attaches a principal when a valid session is present and otherwise passes through.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authed, err := m.resolve(r); err == nil {
			r = authed
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCapability must run after Authenticate.
func (m *Middleware) RequireCapability(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := internal.PrincipalFromContext(r.Context())
			if err := Authorize(principal, capability); err != nil {
				if principal != nil {
					logger.From(r.Context()).Warn("access denied: missing capability",
						"user_id", principal.UserID,
						"role", principal.Role,
						"required_capability", capability)
				}
				m.HandleServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
