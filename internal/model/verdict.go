package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a validation stage or a whole claim.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// ValidationType discriminates which pipeline stage produced a verdict,
// so the audit logger can route it and derive a standardized error code.
type ValidationType string

const (
	ValidationModifier  ValidationType = "modifier_check"
	ValidationUnits     ValidationType = "unit_check"
	ValidationBundle    ValidationType = "bundle_check"
	ValidationLineItems ValidationType = "line_items"
	ValidationRate      ValidationType = "rate"
	ValidationProcess   ValidationType = "process_error"
	ValidationFinal     ValidationType = "final"
)

// MatchType records which line-item match strategy accepted the claim.
type MatchType string

const (
	MatchEMGPackage MatchType = "emg_package"
	MatchEMGPartial MatchType = "emg_partial"
	MatchBundled    MatchType = "bundled"
	MatchExact      MatchType = "exact_match"
	MatchCategory   MatchType = "category_match"
)

// RateSource identifies where a line's rate was resolved from.
type RateSource string

const (
	RateSourceAncillary RateSource = "ancillary"
	RateSourceBundle    RateSource = "bundled"
	RateSourcePPO       RateSource = "negotiated_rate"
	RateSourceOTA       RateSource = "one_time_agreement"
	RateSourceNone      RateSource = "none"
)

// ModifierIssue is one (code, modifier) pair carrying a disallowed modifier.
type ModifierIssue struct {
	CPT      string `json:"cpt"`
	Modifier string `json:"modifier"`
}

// ModifierResult is the modifier validator's payload.
type ModifierResult struct {
	Status           Status          `json:"status"`
	InvalidModifiers []ModifierIssue `json:"invalid_modifiers"`
	TotalChecked     int             `json:"total_checked"`
	TotalInvalid     int             `json:"total_invalid"`
}

// UnitIssue describes one line whose unit count exceeded the generic
// ceiling, with the exemption reasoning retained for audit.
type UnitIssue struct {
	CPT       string `json:"cpt"`
	Units     int    `json:"units"`
	Category  string `json:"proc_category"`
	Ceiling   int    `json:"allowed_units"`
	Override  bool   `json:"emg_override"`
	Ancillary bool   `json:"is_ancillary"`
	Exempt    bool   `json:"is_exempt"`
	Violation bool   `json:"violation"`
}

// UnitsResult is the units validator's payload. Issues and Violations are
// always populated (possibly empty) so passes remain auditable.
type UnitsResult struct {
	Status      Status      `json:"status"`
	Issues      []UnitIssue `json:"all_unit_issues"`
	Violations  []UnitIssue `json:"non_exempt_violations"`
	BundleName  string      `json:"detected_bundle,omitempty"`
	BundleCodes []string    `json:"detected_bundle_cpts,omitempty"`
	Messages    []string    `json:"messages"`
}

// InvalidCategory reports one code whose procedure category is missing or
// invalid, attributed to the claim or the order side.
type InvalidCategory struct {
	CPT      string `json:"cpt"`
	Source   string `json:"source"` // "claim" or "order"
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// CategoryMismatch reports a per-category count shortfall between the
// claim and the reference order.
type CategoryMismatch struct {
	Category   string   `json:"category"`
	ClaimCount int      `json:"claim_count"`
	OrderCount int      `json:"order_count"`
	Difference int      `json:"difference"`
	ClaimCPTs  []string `json:"claim_cpts"`
	OrderCPTs  []string `json:"order_cpts"`
}

// ComparisonDetails retains the raw inputs of the line-item comparison so
// every outcome, pass or fail, supports manual review.
type ComparisonDetails struct {
	ClaimCodes      []string          `json:"claim_codes"`
	OrderCodes      []string          `json:"order_codes"`
	ClaimCategories map[string]string `json:"claim_categories"`
	OrderCategories map[string]string `json:"order_categories"`
}

// LineItemResult is the bundle / line-item matcher's payload.
type LineItemResult struct {
	Status            Status             `json:"status"`
	MatchType         MatchType          `json:"match_type,omitempty"`
	Reason            string             `json:"reason,omitempty"`
	BundleName        string             `json:"bundle_name,omitempty"`
	BundledCPTs       []string           `json:"bundled_cpts,omitempty"`
	MissingCPTs       []string           `json:"missing_cpts,omitempty"`
	UnexpectedCPTs    []string           `json:"unexpected_cpts,omitempty"`
	InvalidCategories []InvalidCategory  `json:"invalid_categories,omitempty"`
	Mismatches        []CategoryMismatch `json:"mismatches,omitempty"`
	Categories        []string           `json:"categories,omitempty"`
	LineItemMapping   map[string][]int64 `json:"line_item_mapping,omitempty"`
	Comparison        ComparisonDetails  `json:"comparison_details"`
	Messages          []string           `json:"messages"`
}

// RateQuote is the resolved rate for one surviving service line. Bundled
// lines carry the Bundle source sentinel and nil rates; they are excluded
// from the claim total.
type RateQuote struct {
	CPT               string     `json:"cpt"`
	Units             int        `json:"units"`
	BaseRateCents     *int64     `json:"base_rate_cents"`
	UnitAdjustedCents *int64     `json:"unit_adjusted_cents"`
	Source            RateSource `json:"rate_source"`
	Status            Status     `json:"status"`
}

// RateResult is the rate resolver's payload.
type RateResult struct {
	Status          Status             `json:"status"`
	Reason          string             `json:"reason,omitempty"`
	Quotes          []RateQuote        `json:"results"`
	TotalRateCents  int64              `json:"total_rate_cents"`
	SourceCounts    map[RateSource]int `json:"source_counts"`
	MissingRateCPTs []string           `json:"missing_rate_cpts,omitempty"`
	Provider        *ProviderDetails   `json:"provider_details,omitempty"`
	Messages        []string           `json:"messages"`
}

// Verdict is the terminal artifact of one pipeline run over one claim.
// It is assembled once and never mutated afterwards.
type Verdict struct {
	ID             uuid.UUID      `json:"verdict_id"`
	FileName       string         `json:"file_name"`
	Timestamp      time.Time      `json:"timestamp"`
	PatientName    string         `json:"patient_name"`
	DateOfService  string         `json:"date_of_service"`
	OrderID        string         `json:"order_id"`
	Status         Status         `json:"status"`
	ValidationType ValidationType `json:"validation_type"`

	ExcludedCPTs []string        `json:"excluded_cpts,omitempty"`
	Modifiers    *ModifierResult `json:"modifier_result,omitempty"`
	Units        *UnitsResult    `json:"units_result,omitempty"`
	LineItems    *LineItemResult `json:"line_items_result,omitempty"`
	Rates        *RateResult     `json:"rate_result,omitempty"`

	TotalRateCents int64    `json:"total_rate_cents"`
	Messages       []string `json:"messages"`
	Error          string   `json:"error,omitempty"`
}
