package customers

import (
	"strings"

	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

// MinPhoneDigits is the shortest canonical phone accepted.
const MinPhoneDigits = 10

// CanonicalPhone keeps only the ASCII digits of raw.
func CanonicalPhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePhone canonicalizes raw and enforces the minimum digit count.
func ValidatePhone(raw string) (string, error) {
	canonical := CanonicalPhone(raw)
	if len(canonical) < MinPhoneDigits {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone must contain at least 10 digits").
			WithDetails(map[string]any{"field": "phone", "digits": len(canonical)})
	}
	return canonical, nil
}
