package auditlog

import "github.com/chrscato/BillReview-system/internal/model"

// Standardized error codes derived from the failing stage.
const (
	CodeModifierInvalid  = "MOD_001"
	CodeUnitsInvalid     = "UNIT_001"
	CodeRateMismatch     = "RATE_001"
	CodeBundleError      = "BNDL_001"
	CodeLineItemMismatch = "LINE_001"
	CodeUnknown          = "UNK_001"
)

var descriptions = map[string]string{
	CodeModifierInvalid:  "Invalid modifier combination or usage",
	CodeUnitsInvalid:     "Invalid unit count for procedure",
	CodeRateMismatch:     "Rate does not match expected value",
	CodeBundleError:      "Invalid bundle configuration",
	CodeLineItemMismatch: "Line item mismatch with reference data",
}

// Describe returns the human-readable description for an error code.
func Describe(code string) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "Unknown error"
}

// codeFor maps a verdict's failing stage to its standardized error code.
func codeFor(vt model.ValidationType) string {
	switch vt {
	case model.ValidationModifier:
		return CodeModifierInvalid
	case model.ValidationUnits:
		return CodeUnitsInvalid
	case model.ValidationRate:
		return CodeRateMismatch
	case model.ValidationBundle:
		return CodeBundleError
	case model.ValidationLineItems:
		return CodeLineItemMismatch
	default:
		return CodeUnknown
	}
}

// severityFor classifies a failing stage for triage dashboards.
func severityFor(vt model.ValidationType) string {
	switch vt {
	case model.ValidationRate, model.ValidationLineItems:
		return "ERROR"
	case model.ValidationModifier, model.ValidationUnits:
		return "WARNING"
	default:
		return "INFO"
	}
}

// suggestionFor generates a reviewer-facing hint for the failing stage.
func suggestionFor(vt model.ValidationType) string {
	switch vt {
	case model.ValidationModifier:
		return "Review modifier usage and ensure compatibility with procedure code."
	case model.ValidationUnits:
		return "Check unit count against procedure code guidelines."
	case model.ValidationRate:
		return "Verify rate calculation and provider network status."
	case model.ValidationBundle:
		return "Review bundle configuration and component procedures."
	default:
		return "Review validation details and compare with reference data."
	}
}
