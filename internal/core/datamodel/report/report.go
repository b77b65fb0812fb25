package report

import "time"

type ExpenseReport struct {
	ID              string     `gorm:"type:uuid;primaryKey"`
	ExpenseID       string     `gorm:"column:expense_id;type:uuid;not null;index"`
	SubmittedByID   string     `gorm:"column:submitted_by_id;type:uuid;not null"`
	Title           string     `gorm:"column:title;not null"`
	Summary         string     `gorm:"column:summary"`
	TotalSpentCents int64      `gorm:"column:total_spent_cents;not null"`
	Status          string     `gorm:"column:status;not null;index"`
	ClosedAt        *time.Time `gorm:"column:closed_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (ExpenseReport) TableName() string {
	return "expense_reports"
}

type ReportApproval struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	ReportID            string    `gorm:"column:report_id;type:uuid;not null;uniqueIndex:idx_report_approver"`
	ApproverID          string    `gorm:"column:approver_id;type:uuid;not null;uniqueIndex:idx_report_approver"`
	Status              string    `gorm:"column:status;not null"`
	Comment             *string   `gorm:"column:comment"`
	ApprovedAmountCents *int64    `gorm:"column:approved_amount_cents"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}

func (ReportApproval) TableName() string {
	return "report_approvals"
}

type ReportNote struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	ReportID  string    `gorm:"column:report_id;type:uuid;not null;index"`
	AuthorID  string    `gorm:"column:author_id;type:uuid;not null"`
	Body      string    `gorm:"column:body;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (ReportNote) TableName() string {
	return "report_notes"
}

type ReportAttachment struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	ReportID    string    `gorm:"column:report_id;type:uuid;not null;index"`
	FileName    string    `gorm:"column:file_name;not null"`
	URL         string    `gorm:"column:url;not null"`
	ContentType string    `gorm:"column:content_type"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (ReportAttachment) TableName() string {
	return "report_attachments"
}

type ApprovedReportItem struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	ReportID            string    `gorm:"column:report_id;type:uuid;not null;index"`
	Description         string    `gorm:"column:description;not null"`
	AmountCents         int64     `gorm:"column:amount_cents;not null"`
	ApprovedAmountCents int64     `gorm:"column:approved_amount_cents;not null"`
	CreatedAt           time.Time `gorm:"column:created_at"`
}

func (ApprovedReportItem) TableName() string {
	return "approved_report_items"
}
