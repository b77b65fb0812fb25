package notification

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageHeadersAndParts(t *testing.T) {
	from := mail.Address{Name: "Church Finance", Address: "finance@example.org"}
	raw, err := buildMessage(from, Email{
		To:       []string{"a@example.org", " b@example.org "},
		Subject:  "Expense approved",
		TextBody: "plain body",
		HTMLBody: "<p>html body</p>",
	}, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	mr, err := mail.CreateReader(strings.NewReader(string(raw)))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Expense approved", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "b@example.org", to[1].Address)

	var bodies []string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		body, err := io.ReadAll(part.Body)
		require.NoError(t, err)
		bodies = append(bodies, string(body))
	}
	assert.Equal(t, []string{"plain body", "<p>html body</p>"}, bodies)
}
