package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordaddict/finance-sub001/internal"
)

type denyBody struct {
	ExpenseID string `json:"expenseId" validate:"required,uuid"`
	Reason    string `json:"reason" validate:"notblank"`
}

type amountBody struct {
	AmountCents int64   `json:"amountCents" validate:"gt=0"`
	Comment     *string `json:"comment,omitempty" validate:"omitempty,notblank"`
}

func TestStructAcceptsValidInput(t *testing.T) {
	assert.Nil(t, Struct(&denyBody{ExpenseID: "7f1c7d80-5a35-4b8a-9d33-7c9e7bb0a111", Reason: "duplicate"}))
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(&denyBody{ExpenseID: "nope", Reason: "   "})
	require.NotNil(t, err)

	details, ok := err.Details.(internal.ValidationErrors)
	require.True(t, ok)
	require.Len(t, details.Errors, 2)
	assert.Equal(t, "expenseId", details.Errors[0].Field)
	assert.Equal(t, "expenseId must be a valid id", details.Errors[0].Message)
	assert.Equal(t, "reason", details.Errors[1].Field)
	assert.Equal(t, string(internal.ErrCodeCommentRequired), details.Errors[1].Code)
	assert.Equal(t, 400, err.StatusCode)
}

func TestStructAmountCode(t *testing.T) {
	blank := " "
	err := Struct(&amountBody{AmountCents: 0, Comment: &blank})
	require.NotNil(t, err)

	details := err.Details.(internal.ValidationErrors)
	assert.Equal(t, string(internal.ErrCodeInvalidAmount), details.Errors[0].Code)
	assert.Equal(t, "comment", details.Errors[1].Field)
}
