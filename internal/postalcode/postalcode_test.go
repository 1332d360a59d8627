package postalcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"01001-000":      "01001000",
		"01.001-000":     "01001000",
		" 01001 000 ":    "01001000",
		"cep: 01001000!": "01001000",
		"":               "",
		"abc":            "",
		"٠١٢":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestValidate(t *testing.T) {
	code, err := Validate("01001-000")
	require.NoError(t, err)
	assert.Equal(t, "01001000", code)

	for _, in := range []string{"", "123", "0100100", "010010001", "01001-00a", "--------"} {
		_, err := Validate(in)
		assert.ErrorIs(t, err, ErrInvalidFormat, "input %q", in)
	}
}

func TestValidateAcceptsAnyEightDigits(t *testing.T) {
	code, err := Validate("00000000")
	require.NoError(t, err)
	assert.Equal(t, "00000000", code)

	code, err = Validate("9/9/9/9/9/9/9/9")
	require.NoError(t, err)
	assert.Equal(t, "99999999", code)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "01001-000", Format("01001000"))
	assert.Equal(t, "123", Format("123"))
	assert.Equal(t, "01001-000", Format("01001-000"))
}
