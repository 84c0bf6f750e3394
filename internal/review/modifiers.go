// Package review implements the claim adjudication pipeline: modifier and
// units validation, bundle/line-item matching against the reference order,
// and contracted-rate resolution, sequenced by Pipeline.
package review

import (
	"github.com/chrscato/BillReview-system/internal/config"
	"github.com/chrscato/BillReview-system/internal/model"
)

// ModifierValidator rejects claims carrying disallowed modifiers, such as
// the technical/professional component split modifiers. Pure function of
// its input.
type ModifierValidator struct {
	rules *config.Rules
}

// NewModifierValidator constructs a validator over the given rule set.
func NewModifierValidator(rules *config.Rules) *ModifierValidator {
	return &ModifierValidator{rules: rules}
}

// Validate checks every line's modifiers against the disallowed set using
// case-insensitive substring matching. All offending (code, modifier)
// pairs are reported.
func (v *ModifierValidator) Validate(lines []model.ServiceLine) model.ModifierResult {
	result := model.ModifierResult{
		Status:           model.StatusPass,
		InvalidModifiers: []model.ModifierIssue{},
		TotalChecked:     len(lines),
	}

	for _, line := range lines {
		for _, mod := range line.Modifiers {
			if v.rules.DisallowedModifier(mod) != "" {
				result.InvalidModifiers = append(result.InvalidModifiers, model.ModifierIssue{
					CPT:      line.CPT,
					Modifier: mod,
				})
			}
		}
	}

	result.TotalInvalid = len(result.InvalidModifiers)
	if result.TotalInvalid > 0 {
		result.Status = model.StatusFail
	}
	return result
}
