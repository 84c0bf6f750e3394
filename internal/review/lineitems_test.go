package review

import (
	"testing"

	"github.com/chrscato/BillReview-system/internal/config"
	"github.com/chrscato/BillReview-system/internal/model"
)

func lines(cpts ...string) []model.ServiceLine {
	out := make([]model.ServiceLine, len(cpts))
	for i, c := range cpts {
		out[i] = model.ServiceLine{CPT: c, Units: 1}
	}
	return out
}

func orderLines(cpts ...string) []model.OrderLine {
	out := make([]model.OrderLine, len(cpts))
	for i, c := range cpts {
		out[i] = model.OrderLine{RowID: int64(i + 1), CPT: c, Units: 1}
	}
	return out
}

func matcher(categories model.CategoryMap) *LineItemValidator {
	return NewLineItemValidator(config.DefaultRules(), categories)
}

func TestLineItems_ExactMatch(t *testing.T) {
	// No EMG or bundle codes present, so exact-match precedence yields.
	v := matcher(model.CategoryMap{"99213": "E/M", "72148": "MRI"})

	result := v.Validate(lines("99213", "72148"), orderLines("72148", "99213"))
	if result.Status != model.StatusPass {
		t.Fatalf("status = %s, want PASS", result.Status)
	}
	if result.MatchType != model.MatchExact {
		t.Fatalf("match type = %s, want exact_match", result.MatchType)
	}
	if len(result.Comparison.ClaimCodes) != 2 || len(result.Comparison.OrderCodes) != 2 {
		t.Error("comparison details missing on pass")
	}
	if len(result.LineItemMapping["99213"]) != 1 {
		t.Errorf("line mapping missing: %v", result.LineItemMapping)
	}
}

func TestLineItems_BundledExactBundle(t *testing.T) {
	// Claim {95910, 95886} with an identical order matches the declared
	// "EMG Visit" bundle with no gaps.
	v := matcher(testCategories())

	result := v.Validate(lines("95910", "95886"), orderLines("95910", "95886"))
	if result.Status != model.StatusPass {
		t.Fatalf("status = %s, want PASS", result.Status)
	}
	if result.MatchType != model.MatchBundled {
		t.Fatalf("match type = %s, want bundled", result.MatchType)
	}
	if result.BundleName != "EMG Visit" {
		t.Errorf("bundle = %q, want EMG Visit", result.BundleName)
	}
	if len(result.MissingCPTs) != 0 {
		t.Errorf("missing_cpts = %v, want []", result.MissingCPTs)
	}
	if len(result.BundledCPTs) != 2 {
		t.Errorf("bundled cpts = %v", result.BundledCPTs)
	}
}

func TestLineItems_EMGPackageToleratesSubstitution(t *testing.T) {
	// Claim has study + needle codes that fit no declared bundle; the
	// order disagrees entirely. The EMG package is still accepted.
	v := matcher(model.CategoryMap{"95911": "EMG", "95887": "EMG", "95910": "EMG"})

	result := v.Validate(lines("95911", "95887"), orderLines("95910"))
	if result.Status != model.StatusPass {
		t.Fatalf("status = %s, want PASS", result.Status)
	}
	if result.MatchType != model.MatchEMGPackage {
		t.Fatalf("match type = %s, want emg_package", result.MatchType)
	}
}

func TestLineItems_EMGPrecedenceOverBundle(t *testing.T) {
	// A single study-only code that also belongs to a declared bundle
	// must resolve via EMG detection, not bundle containment.
	v := matcher(model.CategoryMap{"95910": "EMG"})

	result := v.Validate(lines("95910"), orderLines("95910"))
	if result.Status != model.StatusPass {
		t.Fatalf("status = %s, want PASS", result.Status)
	}
	if result.MatchType != model.MatchEMGPartial {
		t.Fatalf("match type = %s, want emg_partial", result.MatchType)
	}
}

func TestLineItems_PartialEMGRequiresOrderFamily(t *testing.T) {
	// Study-only claim against an order with no study code falls
	// through EMG detection; here it then fails on category counts.
	v := matcher(model.CategoryMap{"95910": "Neurology", "99213": "E/M"})

	result := v.Validate(lines("95910"), orderLines("99213"))
	if result.Status != model.StatusFail {
		t.Fatalf("status = %s, want FAIL", result.Status)
	}
	if result.Reason != "Category count mismatch" {
		t.Fatalf("reason = %q", result.Reason)
	}
}

func TestLineItems_BundleUnexpectedCodes(t *testing.T) {
	// Both sides touch a bundle but the claim carries a code outside
	// it; no EMG family code sits on the claim side, so step 1 passes
	// through.
	v := matcher(testCategories())

	result := v.Validate(lines("99203", "72148"), orderLines("95910", "95885"))
	if result.Status != model.StatusFail {
		t.Fatalf("status = %s, want FAIL", result.Status)
	}
	if result.Reason != "Codes outside bundle definition" {
		t.Fatalf("reason = %q", result.Reason)
	}
	if len(result.UnexpectedCPTs) != 1 || result.UnexpectedCPTs[0] != "72148" {
		t.Errorf("unexpected cpts = %v, want [72148]", result.UnexpectedCPTs)
	}
	if result.BundleName != "EMG Visit - 5" {
		t.Errorf("bundle = %q, want EMG Visit - 5", result.BundleName)
	}
}

func TestLineItems_BundleReportsGaps(t *testing.T) {
	// Three-code bundle matched with one code present on neither side:
	// accepted with the gap reported.
	v := matcher(testCategories())

	result := v.Validate(lines("99203", "95885"), orderLines("95910"))
	if result.Status != model.StatusPass {
		t.Fatalf("status = %s, want PASS", result.Status)
	}
	if result.MatchType != model.MatchBundled {
		t.Fatalf("match type = %s, want bundled", result.MatchType)
	}
	if result.BundleName != "EMG Visit - 5" {
		t.Errorf("bundle = %q, want EMG Visit - 5", result.BundleName)
	}
	if len(result.MissingCPTs) != 0 {
		t.Errorf("missing = %v, want none (all codes present across sides)", result.MissingCPTs)
	}
}

func TestLineItems_InvalidCategoryFails(t *testing.T) {
	// 99070 has no usable category on either side; the failure names
	// the claim side first and wins over any count comparison. The sets
	// differ so exact-match precedence cannot yield first.
	v := matcher(model.CategoryMap{"99070": "0", "72148": "MRI", "72149": "MRI"})

	result := v.Validate(lines("99070", "72148"), orderLines("99070", "72149"))
	if result.Status != model.StatusFail {
		t.Fatalf("status = %s, want FAIL", result.Status)
	}
	if result.Reason != "Missing or invalid procedure categories" {
		t.Fatalf("reason = %q", result.Reason)
	}
	if len(result.InvalidCategories) != 2 {
		t.Fatalf("invalid categories = %+v, want one per side", result.InvalidCategories)
	}
	first := result.InvalidCategories[0]
	if first.CPT != "99070" || first.Source != "claim" {
		t.Errorf("first invalid = %+v, want 99070/claim", first)
	}
	if result.InvalidCategories[1].Source != "order" {
		t.Errorf("second invalid source = %q, want order", result.InvalidCategories[1].Source)
	}
}

func TestLineItems_MissingFromCatalogFails(t *testing.T) {
	v := matcher(model.CategoryMap{"99213": "E/M"})

	result := v.Validate(lines("99213", "11111"), orderLines("99213"))
	if result.Status != model.StatusFail {
		t.Fatalf("status = %s, want FAIL", result.Status)
	}
	if len(result.InvalidCategories) != 1 || result.InvalidCategories[0].CPT != "11111" {
		t.Errorf("invalid categories = %+v", result.InvalidCategories)
	}
}

func TestLineItems_CategoryMatch(t *testing.T) {
	// Different codes, same non-ancillary category counts.
	v := matcher(model.CategoryMap{
		"72148": "MRI", "72149": "MRI", "95004": "Ancillary",
	})

	result := v.Validate(lines("72148", "95004"), orderLines("72149"))
	if result.Status != model.StatusPass {
		t.Fatalf("status = %s, want PASS: %+v", result.Status, result)
	}
	if result.MatchType != model.MatchCategory {
		t.Fatalf("match type = %s, want category_match", result.MatchType)
	}
	if len(result.Categories) != 1 || result.Categories[0] != "MRI" {
		t.Errorf("categories = %v, want [MRI]", result.Categories)
	}
}

func TestLineItems_CategoryCountMismatch(t *testing.T) {
	v := matcher(model.CategoryMap{
		"72148": "MRI", "72149": "MRI", "99213": "E/M",
	})

	result := v.Validate(lines("72148", "72149"), orderLines("72148", "99213"))
	if result.Status != model.StatusFail {
		t.Fatalf("status = %s, want FAIL", result.Status)
	}
	if result.Reason != "Category count mismatch" {
		t.Fatalf("reason = %q", result.Reason)
	}
	if len(result.Mismatches) != 1 {
		t.Fatalf("mismatches = %+v", result.Mismatches)
	}
	mm := result.Mismatches[0]
	if mm.Category != "MRI" || mm.ClaimCount != 2 || mm.OrderCount != 1 || mm.Difference != 1 {
		t.Errorf("unexpected mismatch: %+v", mm)
	}
	if len(mm.ClaimCPTs) != 2 {
		t.Errorf("implicated claim cpts = %v", mm.ClaimCPTs)
	}
}

func TestLineItems_EMGCategoryShortfallTolerated(t *testing.T) {
	// An EMG-category shortfall is not a failure at step 4; EMG
	// handling belongs to step 1. Use a code outside the EMG families
	// but categorized "EMG".
	v := matcher(model.CategoryMap{
		"95999": "EMG", "99213": "E/M",
	})

	result := v.Validate(lines("95999", "99213"), orderLines("99213"))
	if result.Status != model.StatusPass {
		t.Fatalf("status = %s, want PASS: %+v", result.Status, result)
	}
	if result.MatchType != model.MatchCategory {
		t.Fatalf("match type = %s, want category_match", result.MatchType)
	}
}

func TestLineItems_ComparisonDetailsOnFailure(t *testing.T) {
	v := matcher(model.CategoryMap{"72148": "MRI", "99213": "E/M"})

	result := v.Validate(lines("72148"), orderLines("99213"))
	if result.Status != model.StatusFail {
		t.Fatalf("status = %s, want FAIL", result.Status)
	}
	if len(result.Comparison.ClaimCodes) != 1 || len(result.Comparison.OrderCodes) != 1 {
		t.Error("comparison details must survive failure")
	}
	if result.Comparison.ClaimCategories["72148"] != "MRI" {
		t.Errorf("claim categories = %v", result.Comparison.ClaimCategories)
	}
}
