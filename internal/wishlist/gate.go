package wishlist

import (
	"log/slog"
	"net/http"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	"github.com/wordaddict/finance-sub001/internal/transport"
	"github.com/wordaddict/finance-sub001/pkg/logger"
)

type GrantValidator interface {
	ValidateAccessGrant(tokenString string) (string, error)
}

// Gate admits wishlist admin requests from ADMIN sessions or holders of a valid access cookie.
// It expects the optional session middleware to have run first.
type Gate struct {
	*transport.BaseHandler
	grants     GrantValidator
	cookieName string
}

func NewGate(grants GrantValidator, cookieName string, lg *slog.Logger) *Gate {
	if cookieName == "" {
		cookieName = "wishlist_access"
	}
	return &Gate{
		BaseHandler: transport.NewBaseHandler(lg),
		grants:      grants,
		cookieName:  cookieName,
	}
}

func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := internal.PrincipalFromContext(r.Context()); ok && auth.Can(p, auth.CapManageWishlist) {
			next.ServeHTTP(w, r)
			return
		}

		c, err := r.Cookie(g.cookieName)
		if err != nil || c.Value == "" {
			g.HandleServiceError(w, r, internal.ErrUnauthenticated)
			return
		}
		email, err := g.grants.ValidateAccessGrant(c.Value)
		if err != nil {
			logger.From(r.Context()).Debug("wishlist gate: rejected access cookie", "path", r.URL.Path, "error", err)
			g.HandleServiceError(w, r, err)
			return
		}
		ctx := internal.ContextWithWishlistGrant(r.Context(), email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
