package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		100:    "1.00",
		12345:  "123.45",
		-250:   "-2.50",
		500000: "5000.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCents(in), "cents=%d", in)
	}
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$10.00", FormatUSD(1000))
	assert.Equal(t, "-$5.00", FormatUSD(-500))
}

func TestFormatOptionalCents(t *testing.T) {
	assert.Equal(t, "", FormatOptionalCents(nil))
	v := int64(199)
	assert.Equal(t, "1.99", FormatOptionalCents(&v))
}
