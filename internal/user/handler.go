package user

import (
	"log/slog"
	"net/http"

	"github.com/wordaddict/finance-sub001/internal/transport"
	"github.com/wordaddict/finance-sub001/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// List handles GET /api/admin/users?status=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	users, err := h.Service.List(r.Context(), principal, r.URL.Query().Get("status"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"users": users})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto UserIDDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	result, err := h.Service.Approve(r.Context(), principal, dto.UserID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.writeResult(w, result, "user approved", "user is already active")
}

func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto UserIDDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.Deny(r.Context(), principal, dto.UserID); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "registration denied", map[string]interface{}{"userId": dto.UserID})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto UpdateStatusDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	result, err := h.Service.UpdateStatus(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.writeResult(w, result, "user status updated", "user status unchanged")
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto UpdateRoleDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	result, err := h.Service.UpdateRole(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.writeResult(w, result, "user role updated", "user role unchanged")
}

func (h *Handler) writeResult(w http.ResponseWriter, result *Result, changed, unchanged string) {
	message := changed
	if !result.Changed {
		message = unchanged
	}
	h.WriteMessage(w, http.StatusOK, message, map[string]interface{}{
		"user":    result.User,
		"changed": result.Changed,
	})
}
