// Package mapper proposes default column mappings from source headers
package mapper

import (
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
)

// rule is one heuristic in the proposal chain. Rules are evaluated
// top-to-bottom per column and the first match wins, so order is the
// documented priority order.
type rule struct {
	matches   func(header string) bool
	target    models.TargetField
	transform models.Transform
}

var rules = []rule{
	{
		matches: func(h string) bool {
			return strings.Contains(h, "name") && !strings.Contains(h, "file")
		},
		target:    models.TargetName,
		transform: models.TransformNone,
	},
	{
		matches: func(h string) bool {
			return strings.Contains(h, "email") || strings.Contains(h, "e-mail")
		},
		target:    models.TargetPersonalEmail,
		transform: models.TransformLowercase,
	},
	{
		matches: func(h string) bool {
			return containsAny(h, "phone", "cell", "mobile") && containsAny(h, "work", "office")
		},
		target:    models.TargetWorkPhone,
		transform: models.TransformPhoneFormat,
	},
	{
		matches: func(h string) bool {
			return containsAny(h, "phone", "cell", "mobile")
		},
		target:    models.TargetCellularPhone,
		transform: models.TransformPhoneFormat,
	},
	{
		matches: func(h string) bool {
			return strings.Contains(h, "status")
		},
		target:    models.TargetStatus,
		transform: models.TransformNone,
	},
	{
		matches: func(h string) bool {
			return containsAny(h, "id", "client no", "client #")
		},
		target:    models.TargetClientID,
		transform: models.TransformUppercase,
	},
}

// Propose returns a deterministic default mapping for the given headers.
// Unrecognized columns map to skip; the operator can override any entry
// before Execute.
func Propose(headers []string) []models.ColumnMapping {
	mappings := make([]models.ColumnMapping, 0, len(headers))
	for _, header := range headers {
		mappings = append(mappings, proposeColumn(header))
	}
	return mappings
}

func proposeColumn(header string) models.ColumnMapping {
	h := strings.ToLower(strings.TrimSpace(header))
	for _, r := range rules {
		if r.matches(h) {
			return models.ColumnMapping{
				SourceColumn: header,
				TargetField:  r.target,
				Transform:    r.transform,
			}
		}
	}
	return models.ColumnMapping{
		SourceColumn: header,
		TargetField:  models.TargetSkip,
		Transform:    models.TransformNone,
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
