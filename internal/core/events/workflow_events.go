package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseSubmitted     = "expense.submitted"
	EventTypeExpenseStatusChanged = "expense.status_changed"
	EventTypeExpenseItemDecided   = "expense_item.decided"
	EventTypeReportStatusChanged  = "report.status_changed"
	EventTypeUserRegistered       = "user.registered"
	EventTypeUserApproved         = "user.approved"
	EventTypeWishlistPledged      = "wishlist.pledged"
)

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type ExpenseSubmittedEvent struct {
	BaseEvent
	ExpenseID   string `json:"expense_id"`
	Title       string `json:"title"`
	RequesterID string `json:"requester_id"`
	AmountCents int64  `json:"amount_cents"`
}

func NewExpenseSubmittedEvent(expenseID, title, requesterID string, amountCents int64) *ExpenseSubmittedEvent {
	return &ExpenseSubmittedEvent{
		BaseEvent: newBase(EventTypeExpenseSubmitted, map[string]interface{}{
			"expense_id":   expenseID,
			"title":        title,
			"requester_id": requesterID,
			"amount_cents": amountCents,
		}),
		ExpenseID:   expenseID,
		Title:       title,
		RequesterID: requesterID,
		AmountCents: amountCents,
	}
}

type ExpenseStatusChangedEvent struct {
	BaseEvent
	ExpenseID   string `json:"expense_id"`
	Title       string `json:"title"`
	RequesterID string `json:"requester_id"`
	AmountCents int64  `json:"amount_cents"`
	From        string `json:"from"`
	To          string `json:"to"`
	ActorID     string `json:"actor_id"`
	Reason      string `json:"reason"`
}

func NewExpenseStatusChangedEvent(expenseID, title, requesterID string, amountCents int64, from, to, actorID, reason string) *ExpenseStatusChangedEvent {
	return &ExpenseStatusChangedEvent{
		BaseEvent: newBase(EventTypeExpenseStatusChanged, map[string]interface{}{
			"expense_id":   expenseID,
			"requester_id": requesterID,
			"from":         from,
			"to":           to,
			"actor_id":     actorID,
		}),
		ExpenseID:   expenseID,
		Title:       title,
		RequesterID: requesterID,
		AmountCents: amountCents,
		From:        from,
		To:          to,
		ActorID:     actorID,
		Reason:      reason,
	}
}

type ExpenseItemDecidedEvent struct {
	BaseEvent
	ExpenseID       string `json:"expense_id"`
	ItemID          string `json:"item_id"`
	ItemDescription string `json:"item_description"`
	RequesterID     string `json:"requester_id"`
	Decision        string `json:"decision"`
	Comment         string `json:"comment"`
	ActorID         string `json:"actor_id"`
}

func NewExpenseItemDecidedEvent(expenseID, itemID, itemDescription, requesterID, decision, comment, actorID string) *ExpenseItemDecidedEvent {
	return &ExpenseItemDecidedEvent{
		BaseEvent: newBase(EventTypeExpenseItemDecided, map[string]interface{}{
			"expense_id": expenseID,
			"item_id":    itemID,
			"decision":   decision,
			"actor_id":   actorID,
		}),
		ExpenseID:       expenseID,
		ItemID:          itemID,
		ItemDescription: itemDescription,
		RequesterID:     requesterID,
		Decision:        decision,
		Comment:         comment,
		ActorID:         actorID,
	}
}

type ReportStatusChangedEvent struct {
	BaseEvent
	ReportID      string `json:"report_id"`
	ExpenseID     string `json:"expense_id"`
	Title         string `json:"title"`
	SubmittedByID string `json:"submitted_by_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	ActorID       string `json:"actor_id"`
	Comment       string `json:"comment"`
}

func NewReportStatusChangedEvent(reportID, expenseID, title, submittedByID, from, to, actorID, comment string) *ReportStatusChangedEvent {
	return &ReportStatusChangedEvent{
		BaseEvent: newBase(EventTypeReportStatusChanged, map[string]interface{}{
			"report_id":  reportID,
			"expense_id": expenseID,
			"from":       from,
			"to":         to,
			"actor_id":   actorID,
		}),
		ReportID:      reportID,
		ExpenseID:     expenseID,
		Title:         title,
		SubmittedByID: submittedByID,
		From:          from,
		To:            to,
		ActorID:       actorID,
		Comment:       comment,
	}
}

type UserEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func NewUserRegisteredEvent(userID, email, name string) *UserEvent {
	return newUserEvent(EventTypeUserRegistered, userID, email, name)
}

func NewUserApprovedEvent(userID, email, name string) *UserEvent {
	return newUserEvent(EventTypeUserApproved, userID, email, name)
}

func newUserEvent(eventType, userID, email, name string) *UserEvent {
	return &UserEvent{
		BaseEvent: newBase(eventType, map[string]interface{}{"user_id": userID}),
		UserID:    userID,
		Email:     email,
		Name:      name,
	}
}

const (
	PledgeKindConfirmation = "confirmation"
	PledgeKindContribution = "contribution"
)

type WishlistPledgedEvent struct {
	BaseEvent
	ItemID      string `json:"item_id"`
	ItemName    string `json:"item_name"`
	Kind        string `json:"kind"`
	DonorName   string `json:"donor_name"`
	DonorEmail  string `json:"donor_email"`
	Quantity    int64  `json:"quantity"`
	AmountCents int64  `json:"amount_cents"`
}

func NewWishlistPledgedEvent(itemID, itemName, kind, donorName, donorEmail string, quantity, amountCents int64) *WishlistPledgedEvent {
	return &WishlistPledgedEvent{
		BaseEvent: newBase(EventTypeWishlistPledged, map[string]interface{}{
			"item_id":      itemID,
			"kind":         kind,
			"quantity":     quantity,
			"amount_cents": amountCents,
		}),
		ItemID:      itemID,
		ItemName:    itemName,
		Kind:        kind,
		DonorName:   donorName,
		DonorEmail:  donorEmail,
		Quantity:    quantity,
		AmountCents: amountCents,
	}
}
