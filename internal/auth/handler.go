package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/transport"
	"github.com/wordaddict/finance-sub001/pkg/logger"
)

type CookieConfig struct {
	Name   string
	Secure bool
	Domain string
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	cookie  CookieConfig
}

func NewHandler(svc ServiceAPI, cookie CookieConfig) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	if cookie.Name == "" {
		cookie.Name = "session"
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		cookie:      cookie,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	result, err := h.Service.Login(r.Context(), dto, SessionMeta{
		UserAgent: r.UserAgent(),
		IP:        transport.ClientIP(r),
	})
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	h.WriteMessage(w, http.StatusOK, "login successful", map[string]interface{}{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      result.Principal,
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	user, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteMessage(w, http.StatusCreated, "registration received; check your email to verify your address", map[string]interface{}{
		"userId": user.ID,
		"status": user.Status,
	})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.HandleServiceError(w, r, internal.NewValidationFieldError("token", "token is required", internal.ErrCodeInvalidToken))
		return
	}

	if err := h.Service.VerifyEmail(r.Context(), token); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "email verified", nil)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var dto ForgotPasswordDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.ForgotPassword(r.Context(), dto.Email); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "if an active account exists for this email, a reset link has been sent", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.ResetPassword(r.Context(), dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "password updated", nil)
}

func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	var dto SetPasswordDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.SetPassword(r.Context(), principal, dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "password updated", nil)
}

// Logout revokes the caller's session when there is one and always clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if principal, ok := internal.PrincipalFromContext(r.Context()); ok {
		if err := h.Service.Logout(r.Context(), principal.SessionID); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
	}
	h.clearSessionCookie(w)
	h.WriteMessage(w, http.StatusOK, "logged out", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{
		"user":         principal,
		"capabilities": Capabilities(principal),
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
