package category

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/wordaddict/finance-sub001/internal/transport"
	"github.com/wordaddict/finance-sub001/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"categories": categories})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto CreateCategoryDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	created, err := h.Service.Create(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusCreated, "category created", map[string]interface{}{"category": created})
}

func (h *Handler) DeactivateCategory(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := h.Service.Deactivate(r.Context(), principal, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "category deactivated", nil)
}
