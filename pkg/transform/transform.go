// Package transform applies per-column value transforms during execution
package transform

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Apply runs a transform over a raw cell value. Transforms never fail a
// row: on anything unexpected the original value is passed through.
func Apply(value string, t models.Transform) string {
	switch t {
	case models.TransformUppercase:
		return strings.ToUpper(value)
	case models.TransformLowercase:
		return strings.ToLower(value)
	case models.TransformPhoneFormat:
		return formatPhone(value)
	default:
		return value
	}
}

// formatPhone renders a US-style number as (NNN) NNN-NNNN when exactly ten
// digits remain after stripping; any other shape passes through unchanged.
// Idempotent: a formatted number still strips to the same ten digits.
func formatPhone(value string) string {
	digits := normalizers.DigitsOnly(value)
	if len(digits) != 10 {
		return value
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}
