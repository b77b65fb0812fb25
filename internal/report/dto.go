package report

type CreateReportDTO struct {
	ExpenseID       string          `json:"expenseId" validate:"required,uuid"`
	Title           string          `json:"title" validate:"notblank,max=200"`
	Summary         string          `json:"summary" validate:"max=5000"`
	TotalSpentCents int64           `json:"totalSpentCents" validate:"gte=0"`
	Attachments     []AttachmentDTO `json:"attachments" validate:"omitempty,max=20,dive"`
}

type AttachmentDTO struct {
	FileName    string `json:"fileName" validate:"notblank,max=255"`
	URL         string `json:"url" validate:"required,url"`
	ContentType string `json:"contentType" validate:"max=100"`
}

type ReportIDDTO struct {
	ReportID string `json:"reportId" validate:"required,uuid"`
}

type ApproveReportDTO struct {
	ReportID            string            `json:"reportId" validate:"required,uuid"`
	Comment             *string           `json:"comment" validate:"omitempty,max=2000"`
	ApprovedAmountCents *int64            `json:"approvedAmountCents" validate:"omitempty,gte=0"`
	Items               []ApprovedItemDTO `json:"items" validate:"omitempty,max=100,dive"`
}

type ApprovedItemDTO struct {
	Description         string `json:"description" validate:"notblank,max=500"`
	AmountCents         int64  `json:"amountCents" validate:"gte=0"`
	ApprovedAmountCents int64  `json:"approvedAmountCents" validate:"gte=0,ltefield=AmountCents"`
}

type CommentDTO struct {
	ReportID string `json:"reportId" validate:"required,uuid"`
	Comment  string `json:"comment" validate:"notblank,max=2000"`
}
