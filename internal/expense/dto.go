package expense

import "time"

type CreateExpenseDTO struct {
	Title       string          `json:"title" validate:"notblank,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	AmountCents int64           `json:"amountCents" validate:"gt=0"`
	Account     string          `json:"account" validate:"max=100"`
	ExpenseType string          `json:"expenseType" validate:"max=100"`
	Items       []CreateItemDTO `json:"items" validate:"omitempty,max=100,dive"`
	Attachments []AttachmentDTO `json:"attachments" validate:"omitempty,max=20,dive"`
}

type CreateItemDTO struct {
	Description string `json:"description" validate:"notblank,max=500"`
	Category    string `json:"category" validate:"max=100"`
	AmountCents int64  `json:"amountCents" validate:"gt=0"`
}

type AttachmentDTO struct {
	FileName    string `json:"fileName" validate:"notblank,max=255"`
	URL         string `json:"url" validate:"required,url"`
	ContentType string `json:"contentType" validate:"max=100"`
}

type ResubmitDTO struct {
	ExpenseID   string  `json:"expenseId" validate:"required,uuid"`
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	AmountCents *int64  `json:"amountCents" validate:"omitempty,gt=0"`
	Comment     string  `json:"comment" validate:"max=2000"`
}

type ExpenseIDDTO struct {
	ExpenseID string `json:"expenseId" validate:"required,uuid"`
}

type DenyDTO struct {
	ExpenseID string `json:"expenseId" validate:"required,uuid"`
	Reason    string `json:"reason" validate:"notblank,max=2000"`
}

type UpdateStatusDTO struct {
	ExpenseID string `json:"expenseId" validate:"required,uuid"`
	Status    Status `json:"status" validate:"required,oneof=APPROVED PARTIALLY_APPROVED CHANGE_REQUESTED EXPENSE_REPORT_REQUESTED"`
	Reason    string `json:"reason" validate:"max=2000"`
}

type ChangeRequestDTO struct {
	ExpenseID string `json:"expenseId" validate:"required,uuid"`
	Comment   string `json:"comment" validate:"notblank,max=2000"`
}

type UpdateAccountDTO struct {
	ExpenseID string `json:"expenseId" validate:"required,uuid"`
	Account   string `json:"account" validate:"max=100"`
}

type UpdateTypeDTO struct {
	ExpenseID   string `json:"expenseId" validate:"required,uuid"`
	ExpenseType string `json:"expenseType" validate:"max=100"`
}

type NoteDTO struct {
	ExpenseID string `json:"expenseId" validate:"required,uuid"`
	Body      string `json:"body" validate:"notblank,max=5000"`
}

type PastorRemarkDTO struct {
	ExpenseID string `json:"expenseId" validate:"required,uuid"`
	Remark    string `json:"remark" validate:"notblank,max=5000"`
}

type ApproveItemDTO struct {
	ItemID              string  `json:"itemId" validate:"required,uuid"`
	ApprovedAmountCents *int64  `json:"approvedAmountCents" validate:"omitempty,gt=0"`
	Comment             *string `json:"comment" validate:"omitempty,max=2000"`
}

type ItemCommentDTO struct {
	ItemID  string `json:"itemId" validate:"required,uuid"`
	Comment string `json:"comment" validate:"notblank,max=2000"`
}

type ItemIDDTO struct {
	ItemID string `json:"itemId" validate:"required,uuid"`
}

type UpdateCategoryDTO struct {
	ItemID   string `json:"itemId" validate:"required,uuid"`
	Category string `json:"category" validate:"max=100"`
}

type ExportDTO struct {
	Status Status     `json:"status" validate:"omitempty,oneof=SUBMITTED PARTIALLY_APPROVED CHANGE_REQUESTED APPROVED DENIED PAID EXPENSE_REPORT_REQUESTED CLOSED"`
	From   *time.Time `json:"from"`
	To     *time.Time `json:"to"`
}

// ListFilter narrows expense listings. Mine forces the caller's own expenses even for reviewers.
type ListFilter struct {
	Status Status
	Mine   bool
	Limit  int
	Offset int
}
