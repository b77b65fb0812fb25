package expense

import "time"

type ExpenseRequest struct {
	ID                  string     `gorm:"type:uuid;primaryKey"`
	RequesterID         string     `gorm:"column:requester_id;type:uuid;not null;index"`
	Title               string     `gorm:"column:title;not null"`
	Description         string     `gorm:"column:description"`
	AmountCents         int64      `gorm:"column:amount_cents;not null"`
	ApprovedAmountCents *int64     `gorm:"column:approved_amount_cents"`
	Status              string     `gorm:"column:status;not null;index"`
	Account             string     `gorm:"column:account"`
	ExpenseType         string     `gorm:"column:expense_type"`
	ReportRequired      bool       `gorm:"column:report_required;not null;default:false"`
	PaidAt              *time.Time `gorm:"column:paid_at"`
	SubmittedAt         time.Time  `gorm:"column:submitted_at;not null"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`

	Items []ExpenseItem `gorm:"foreignKey:ExpenseID"`
}

func (ExpenseRequest) TableName() string {
	return "expense_requests"
}

type ExpenseItem struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	ExpenseID   string    `gorm:"column:expense_id;type:uuid;not null;index"`
	Description string    `gorm:"column:description;not null"`
	Category    string    `gorm:"column:category"`
	AmountCents int64     `gorm:"column:amount_cents;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (ExpenseItem) TableName() string {
	return "expense_items"
}

type ExpenseItemApproval struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	ItemID              string    `gorm:"column:item_id;type:uuid;not null;uniqueIndex:idx_item_approver"`
	ApproverID          string    `gorm:"column:approver_id;type:uuid;not null;uniqueIndex:idx_item_approver"`
	Status              string    `gorm:"column:status;not null"`
	Comment             *string   `gorm:"column:comment"`
	ApprovedAmountCents *int64    `gorm:"column:approved_amount_cents"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}

func (ExpenseItemApproval) TableName() string {
	return "expense_item_approvals"
}

type Approval struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	ExpenseID           string    `gorm:"column:expense_id;type:uuid;not null;uniqueIndex:idx_expense_approver"`
	ApproverID          string    `gorm:"column:approver_id;type:uuid;not null;uniqueIndex:idx_expense_approver"`
	Status              string    `gorm:"column:status;not null"`
	Comment             *string   `gorm:"column:comment"`
	ApprovedAmountCents *int64    `gorm:"column:approved_amount_cents"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}

func (Approval) TableName() string {
	return "approvals"
}

// StatusEvent rows are append-only.
type StatusEvent struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	ExpenseID  string    `gorm:"column:expense_id;type:uuid;not null;index"`
	FromStatus string    `gorm:"column:from_status"`
	ToStatus   string    `gorm:"column:to_status;not null"`
	ActorID    *string   `gorm:"column:actor_id;type:uuid"`
	Reason     *string   `gorm:"column:reason"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
}

func (StatusEvent) TableName() string {
	return "status_events"
}

type ExpenseNote struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	ExpenseID string    `gorm:"column:expense_id;type:uuid;not null;index"`
	AuthorID  string    `gorm:"column:author_id;type:uuid;not null"`
	Body      string    `gorm:"column:body;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (ExpenseNote) TableName() string {
	return "expense_notes"
}

type Attachment struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	ExpenseID   string    `gorm:"column:expense_id;type:uuid;not null;index"`
	FileName    string    `gorm:"column:file_name;not null"`
	URL         string    `gorm:"column:url;not null"`
	ContentType string    `gorm:"column:content_type"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}

type PastorRemark struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	ExpenseID string    `gorm:"column:expense_id;type:uuid;not null;index"`
	PastorID  string    `gorm:"column:pastor_id;type:uuid;not null"`
	Remark    string    `gorm:"column:remark;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (PastorRemark) TableName() string {
	return "pastor_remarks"
}
