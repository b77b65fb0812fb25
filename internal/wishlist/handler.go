package wishlist

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/wordaddict/finance-sub001/internal/auth"
	"github.com/wordaddict/finance-sub001/internal/transport"
	"github.com/wordaddict/finance-sub001/pkg/logger"
)

const codeRequestedMessage = "if this email is allowed to manage the wishlist, a code has been sent"

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Access  AccessServiceAPI
	cookie  auth.CookieConfig
}

func NewHandler(service ServiceAPI, access AccessServiceAPI, cookie auth.CookieConfig) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	if cookie.Name == "" {
		cookie.Name = "wishlist_access"
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Access:      access,
		cookie:      cookie,
	}
}

func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.HandleServiceError(w, r, ErrItemNotFound)
		return "", false
	}
	return id, true
}

// ListPublic handles GET /api/wishlist
func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListPublic(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"items": items})
}

// GetPublic handles GET /dmv/{id}
func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	item, err := h.Service.GetPublic(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"item": item})
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var dto ConfirmDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	pledge, err := h.Service.Confirm(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusCreated, "thank you for your pledge", map[string]interface{}{"pledge": pledge})
}

func (h *Handler) Contribute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var dto ContributeDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	pledge, err := h.Service.Contribute(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusCreated, "thank you for your contribution", map[string]interface{}{"pledge": pledge})
}

func (h *Handler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListAll(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"items": items})
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var dto CreateItemDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	item, err := h.Service.CreateItem(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusCreated, "wishlist item created", map[string]interface{}{"item": item})
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var dto UpdateItemDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	item, err := h.Service.UpdateItem(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "wishlist item updated", map[string]interface{}{"item": item})
}

func (h *Handler) DeactivateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	item, err := h.Service.Deactivate(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "wishlist item deactivated", map[string]interface{}{"item": item})
}

func (h *Handler) ListContributions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	contributions, err := h.Service.ListContributions(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"contributions": contributions})
}

func (h *Handler) RequestAccessCode(w http.ResponseWriter, r *http.Request) {
	var dto AccessCodeDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := h.Access.RequestCode(r.Context(), dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, codeRequestedMessage, nil)
}

func (h *Handler) VerifyAccessCode(w http.ResponseWriter, r *http.Request) {
	var dto VerifyCodeDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	grant, err := h.Access.VerifyCode(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    grant.Token,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  grant.ExpiresAt,
		MaxAge:   int(time.Until(grant.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.WriteMessage(w, http.StatusOK, "access granted", map[string]interface{}{"expiresAt": grant.ExpiresAt})
}

// Gone answers the retired wishlist endpoints.
func (h *Handler) Gone(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("Gone: retired wishlist endpoint called", "path", r.URL.Path)
	h.HandleServiceError(w, r, ErrLegacyEndpoint)
}

