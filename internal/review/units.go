package review

import (
	"fmt"

	"github.com/chrscato/BillReview-system/internal/config"
	"github.com/chrscato/BillReview-system/internal/model"
)

// UnitsValidator enforces per-code unit ceilings. EMG codes carry explicit
// per-code overrides; everything else is capped at one unit unless the
// procedure category is ancillary or the code is on the unit-exempt list.
type UnitsValidator struct {
	rules      *config.Rules
	categories model.CategoryMap
}

// NewUnitsValidator constructs a validator over the given rule set and
// procedure-category catalog.
func NewUnitsValidator(rules *config.Rules, categories model.CategoryMap) *UnitsValidator {
	return &UnitsValidator{rules: rules, categories: categories}
}

// Validate classifies each line's unit count. Every issue is enumerated in
// the result even when the claim passes. Bundle detection over the claim's
// code set is annotated for the result payload only; it never overrides
// the per-line unit rules.
func (v *UnitsValidator) Validate(lines []model.ServiceLine) model.UnitsResult {
	result := model.UnitsResult{
		Status:     model.StatusPass,
		Issues:     []model.UnitIssue{},
		Violations: []model.UnitIssue{},
	}

	codes := make(map[string]bool, len(lines))
	for _, line := range lines {
		codes[line.CPT] = true
	}
	if bundle, ok := v.rules.ContainedBundle(codes); ok {
		result.BundleName = bundle.Name
		result.BundleCodes = bundle.Codes
	}

	for _, line := range lines {
		category, _ := v.categories.Category(line.CPT)

		ceiling, override := v.rules.AllowedUnits(line.CPT)
		if !override {
			ceiling = 1
		}
		if line.Units <= ceiling {
			continue
		}

		issue := model.UnitIssue{
			CPT:      line.CPT,
			Units:    line.Units,
			Category: category,
			Ceiling:  ceiling,
			Override: override,
		}

		// An explicit EMG override beats every exemption; otherwise
		// ancillary and per-increment codes may exceed the generic cap.
		if !override {
			issue.Ancillary = v.categories.IsAncillary(line.CPT)
			issue.Exempt = v.rules.IsUnitExempt(line.CPT)
		}
		issue.Violation = !issue.Ancillary && !issue.Exempt

		result.Issues = append(result.Issues, issue)
		if issue.Violation {
			result.Violations = append(result.Violations, issue)
		}
	}

	if len(result.Violations) > 0 {
		result.Status = model.StatusFail
		result.Messages = []string{
			fmt.Sprintf("Found %d line(s) exceeding allowed units", len(result.Violations)),
		}
	} else {
		result.Messages = []string{"No unit violations found"}
	}
	return result
}
