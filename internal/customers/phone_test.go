package customers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

func TestCanonicalPhone(t *testing.T) {
	cases := []struct{ in, want string }{
		{"(555) 123-4567", "5551234567"},
		{"555-123-4567", "5551234567"},
		{"+52 1 55 1234 5678", "5215512345678"},
		{"tel: ٥٥٥ 12", "12"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanonicalPhone(tc.in), tc.in)
	}
}


func TestCanonicalPhoneIdempotent(t *testing.T) {
	for _, in := range []string{"(555) 123-4567", "abc", "  +1 (800) FLOWERS 356-9377 ", "0000000000"} {
		once := CanonicalPhone(in)
		assert.Equal(t, once, CanonicalPhone(once), in)
	}
}

func TestValidatePhone(t *testing.T) {
	got, err := ValidatePhone("(555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, "5551234567", got)

	_, err = ValidatePhone("555-1234")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
