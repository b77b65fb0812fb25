package report

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/wordaddict/finance-sub001/internal"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) (*coreuser.Principal, bool) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return nil, false
	}
	if err := h.DecodeJSONBody(r, dest); err != nil {
		h.HandleServiceError(w, r, err)
		return nil, false
	}
	return principal, true
}

func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var dto CreateReportDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}

	rep, err := h.Service.Create(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.Logger.Info("CreateReport: report submitted", "report_id", rep.ID, "expense_id", rep.ExpenseID, "user_id", principal.UserID)
	h.WriteMessage(w, http.StatusCreated, "report submitted", map[string]interface{}{"report": rep})
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.Logger.Warn("GetReport: invalid report id", "id", id)
		h.HandleServiceError(w, r, internal.NewValidationFieldError("id", "id must be a valid id", internal.ErrCodeValidationFailed))
		return
	}

	detail, err := h.Service.Get(r.Context(), principal, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"report": detail})
}

// ListReports handles GET /api/reports?expenseId=
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	expenseID := r.URL.Query().Get("expenseId")
	if _, err := uuid.Parse(expenseID); err != nil {
		h.HandleServiceError(w, r, internal.NewValidationFieldError("expenseId", "expenseId must be a valid id", internal.ErrCodeValidationFailed))
		return
	}

	reports, err := h.Service.ListForExpense(r.Context(), principal, expenseID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"reports": reports})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	var dto ApproveReportDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	rep, err := h.Service.Approve(r.Context(), principal, dto)
	h.writeReport(w, r, rep, err, "report approved")
}

func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	var dto CommentDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	rep, err := h.Service.Deny(r.Context(), principal, dto)
	h.writeReport(w, r, rep, err, "report denied")
}

func (h *Handler) RequestChange(w http.ResponseWriter, r *http.Request) {
	var dto CommentDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	rep, err := h.Service.RequestChange(r.Context(), principal, dto)
	h.writeReport(w, r, rep, err, "changes requested")
}

func (h *Handler) Resubmit(w http.ResponseWriter, r *http.Request) {
	var dto ReportIDDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	rep, err := h.Service.Resubmit(r.Context(), principal, dto.ReportID)
	h.writeReport(w, r, rep, err, "report resubmitted")
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	var dto ReportIDDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	result, err := h.Service.Close(r.Context(), principal, dto.ReportID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.Logger.Info("Close: report closed", "report_id", dto.ReportID, "expense_closed", result.ExpenseClosed, "user_id", principal.UserID)
	h.WriteMessage(w, http.StatusOK, "report closed", map[string]interface{}{
		"report":        result.Report,
		"expenseClosed": result.ExpenseClosed,
	})
}

func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request, rep *Report, err error, msg string) {
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, msg, map[string]interface{}{"report": rep})
}
