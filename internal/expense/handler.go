package expense

import (
	"log/slog"
	"net/http"
	"strconv"

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

// decode resolves the caller and the JSON body, writing the error response on failure.
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

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.Logger.Warn("Expense: invalid expense id", "id", id)
		h.HandleServiceError(w, r, internal.NewValidationFieldError("id", "id must be a valid id", internal.ErrCodeValidationFailed))
		return "", false
	}
	return id, true
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var dto CreateExpenseDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}

	exp, err := h.Service.Create(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.Logger.Info("CreateExpense: expense created", "expense_id", exp.ID, "user_id", principal.UserID, "amount_cents", exp.AmountCents)
	h.WriteMessage(w, http.StatusCreated, "expense submitted", map[string]interface{}{"expense": exp})
}

// ListExpenses handles GET /api/expenses?status=&mine=&limit=&offset=
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	filter := ListFilter{Status: Status(q.Get("status"))}
	filter.Mine, _ = strconv.ParseBool(q.Get("mine"))
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = l
	}
	if o, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = o
	}

	expenses, err := h.Service.List(r.Context(), principal, filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"expenses": expenses})
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.Service.Get(r.Context(), principal, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"expense": detail})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	history, err := h.Service.History(r.Context(), principal, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "ok", map[string]interface{}{"history": history})
}

func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	var dto NoteDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	note, err := h.Service.AddNote(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusCreated, "note added", map[string]interface{}{"note": note})
}

func (h *Handler) AddPastorRemark(w http.ResponseWriter, r *http.Request) {
	var dto PastorRemarkDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	remark, err := h.Service.AddPastorRemark(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusCreated, "remark added", map[string]interface{}{"remark": remark})
}

func (h *Handler) Resubmit(w http.ResponseWriter, r *http.Request) {
	var dto ResubmitDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	exp, err := h.Service.Resubmit(r.Context(), principal, dto)
	h.writeExpense(w, r, exp, err, "expense resubmitted")
}

func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	var dto DenyDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	exp, err := h.Service.Deny(r.Context(), principal, dto)
	h.writeExpense(w, r, exp, err, "expense denied")
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var dto UpdateStatusDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	exp, err := h.Service.UpdateStatus(r.Context(), principal, dto)
	h.writeExpense(w, r, exp, err, "expense status updated")
}

func (h *Handler) AdminChangeRequest(w http.ResponseWriter, r *http.Request) {
	var dto ChangeRequestDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	exp, err := h.Service.RequestChanges(r.Context(), principal, dto)
	h.writeExpense(w, r, exp, err, "changes requested")
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var dto ExpenseIDDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	exp, err := h.Service.MarkPaid(r.Context(), principal, dto.ExpenseID)
	h.writeExpense(w, r, exp, err, "expense marked paid")
}

func (h *Handler) UndoApproval(w http.ResponseWriter, r *http.Request) {
	var dto ExpenseIDDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	exp, err := h.Service.Undo(r.Context(), principal, dto.ExpenseID)
	h.writeExpense(w, r, exp, err, "decision undone")
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var dto UpdateAccountDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	exp, err := h.Service.UpdateAccount(r.Context(), principal, dto)
	h.writeExpense(w, r, exp, err, "account updated")
}

func (h *Handler) UpdateType(w http.ResponseWriter, r *http.Request) {
	var dto UpdateTypeDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	exp, err := h.Service.UpdateType(r.Context(), principal, dto)
	h.writeExpense(w, r, exp, err, "expense type updated")
}

// ExportCSV streams the filtered expenses as a CSV attachment. The body is optional.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Principal(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto ExportDTO
	if r.ContentLength != 0 {
		if err := h.DecodeJSONBody(r, &dto); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
	}

	rows, at, err := h.Service.Export(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename(at)+`"`)
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, rows); err != nil {
		h.Logger.Error("ExportCSV: failed to write csv", "error", err, "rows", len(rows))
	}
}

func (h *Handler) ApproveItem(w http.ResponseWriter, r *http.Request) {
	var dto ApproveItemDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	item, err := h.Service.ApproveItem(r.Context(), principal, dto)
	h.writeItem(w, r, item, err, "item approved")
}

func (h *Handler) DenyItem(w http.ResponseWriter, r *http.Request) {
	var dto ItemCommentDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	item, err := h.Service.DenyItem(r.Context(), principal, dto)
	h.writeItem(w, r, item, err, "item denied")
}

func (h *Handler) ChangeRequestItem(w http.ResponseWriter, r *http.Request) {
	var dto ItemCommentDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	item, err := h.Service.RequestItemChange(r.Context(), principal, dto)
	h.writeItem(w, r, item, err, "item changes requested")
}

func (h *Handler) UndoItemApproval(w http.ResponseWriter, r *http.Request) {
	var dto ItemIDDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	item, err := h.Service.UndoItemApproval(r.Context(), principal, dto.ItemID)
	h.writeItem(w, r, item, err, "item decision undone")
}

func (h *Handler) UpdateItemCategory(w http.ResponseWriter, r *http.Request) {
	var dto UpdateCategoryDTO
	principal, ok := h.decode(w, r, &dto)
	if !ok {
		return
	}
	item, err := h.Service.UpdateItemCategory(r.Context(), principal, dto)
	h.writeItem(w, r, item, err, "item category updated")
}

func (h *Handler) writeExpense(w http.ResponseWriter, r *http.Request, exp *Expense, err error, message string) {
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, message, map[string]interface{}{"expense": exp})
}

func (h *Handler) writeItem(w http.ResponseWriter, r *http.Request, item *Item, err error, message string) {
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, message, map[string]interface{}{"item": item})
}
