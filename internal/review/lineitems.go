package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chrscato/BillReview-system/internal/config"
	"github.com/chrscato/BillReview-system/internal/model"
)

// LineItemValidator decides whether the claim's code set is acceptable
// against the reference order's code set. Four match strategies are
// evaluated in fixed precedence; the first applicable one decides:
//
//  1. EMG package detection (study/needle code families, substitution
//     inside the families is tolerated)
//  2. declared bundle containment
//  3. exact code-set equality
//  4. category-count comparison
type LineItemValidator struct {
	rules      *config.Rules
	categories model.CategoryMap
}

// NewLineItemValidator constructs a matcher over the given rule set and
// procedure-category catalog.
func NewLineItemValidator(rules *config.Rules, categories model.CategoryMap) *LineItemValidator {
	return &LineItemValidator{rules: rules, categories: categories}
}

// Validate runs the precedence chain. The claim lines must already have
// policy-excluded codes removed. Comparison details and the claim->order
// line mapping are populated on every outcome to support audit.
func (v *LineItemValidator) Validate(lines []model.ServiceLine, orderLines []model.OrderLine) model.LineItemResult {
	claimCodes := make(map[string]bool, len(lines))
	for _, line := range lines {
		claimCodes[line.CPT] = true
	}
	orderCodes := make(map[string]bool, len(orderLines))
	for _, line := range orderLines {
		orderCodes[line.CPT] = true
	}

	base := model.LineItemResult{
		LineItemMapping: lineMapping(claimCodes, orderLines),
		Comparison:      v.comparison(claimCodes, orderCodes),
	}

	// Step 1: EMG package detection.
	if result, ok := v.matchEMG(claimCodes, orderCodes, base); ok {
		return result
	}

	// Step 2: declared bundle containment.
	if result, ok := v.matchBundle(claimCodes, orderCodes, base); ok {
		return result
	}

	// Step 3: exact code-set equality.
	if setsEqual(claimCodes, orderCodes) {
		result := base
		result.Status = model.StatusPass
		result.MatchType = model.MatchExact
		result.Messages = []string{"Exact match found."}
		return result
	}

	// Step 4: category-based comparison.
	return v.matchCategories(claimCodes, orderCodes, base)
}

// matchEMG partitions both code sets into EMG study and needle families.
// A claim with at least one code of each family is a full package; a claim
// with only one family present is a partial match when the order also has
// that family. Substitution within a family is expected and tolerated.
func (v *LineItemValidator) matchEMG(claimCodes, orderCodes map[string]bool, base model.LineItemResult) (model.LineItemResult, bool) {
	claimStudy := filterCodes(claimCodes, v.rules.IsStudyCode)
	claimNeedle := filterCodes(claimCodes, v.rules.IsNeedleCode)
	orderStudy := filterCodes(orderCodes, v.rules.IsStudyCode)
	orderNeedle := filterCodes(orderCodes, v.rules.IsNeedleCode)

	result := base
	result.Status = model.StatusPass

	switch {
	case len(claimStudy) > 0 && len(claimNeedle) > 0:
		// A full package that fits a declared bundle reports as that
		// bundle so its lines carry the bundle rate sentinel. A failed
		// containment never vetoes the package: substitution inside the
		// EMG families is tolerated.
		if bundled, ok := v.matchBundle(claimCodes, orderCodes, base); ok && bundled.Status == model.StatusPass {
			return bundled, true
		}
		result.MatchType = model.MatchEMGPackage
		result.Messages = []string{fmt.Sprintf(
			"EMG package detected: study codes %s, needle codes %s",
			strings.Join(claimStudy, ", "), strings.Join(claimNeedle, ", "))}
		return result, true

	case len(claimStudy) > 0 && len(claimNeedle) == 0 && len(orderStudy) > 0:
		result.MatchType = model.MatchEMGPartial
		result.Messages = []string{fmt.Sprintf(
			"Partial EMG match: study codes %s present, needle component missing",
			strings.Join(claimStudy, ", "))}
		return result, true

	case len(claimNeedle) > 0 && len(claimStudy) == 0 && len(orderNeedle) > 0:
		result.MatchType = model.MatchEMGPartial
		result.Messages = []string{fmt.Sprintf(
			"Partial EMG match: needle codes %s present, study component missing",
			strings.Join(claimNeedle, ", "))}
		return result, true
	}

	return model.LineItemResult{}, false
}

// bundleFit scores one applicable bundle (both sides intersect its
// required codes) against the combined claim+order code set.
type bundleFit struct {
	bundle     config.Bundle
	unexpected []string // combined codes outside the bundle
	missing    []string // bundle codes present on neither side
}

// matchBundle checks declared bundle definitions. A bundle applies when
// both the claim and the order intersect its required codes. Among
// applicable bundles the one containing the whole combined code set with
// the fewest gaps wins; when several fit equally, the smaller code set,
// then the name, breaks the tie deterministically. If bundles apply but
// none contains the combined set, the closest one fails the claim with
// its unexpected codes. Bundle codes present on neither side are
// reported as non-fatal gaps.
func (v *LineItemValidator) matchBundle(claimCodes, orderCodes map[string]bool, base model.LineItemResult) (model.LineItemResult, bool) {
	var fits []bundleFit
	for _, bundle := range v.rules.Bundles() {
		required := make(map[string]bool, len(bundle.Codes))
		for _, c := range bundle.Codes {
			required[c] = true
		}
		if !intersects(claimCodes, required) || !intersects(orderCodes, required) {
			continue
		}

		fit := bundleFit{bundle: bundle}
		for code := range claimCodes {
			if !required[code] {
				fit.unexpected = append(fit.unexpected, code)
			}
		}
		for code := range orderCodes {
			if !required[code] && !claimCodes[code] {
				fit.unexpected = append(fit.unexpected, code)
			}
		}
		for _, code := range bundle.Codes {
			if !claimCodes[code] && !orderCodes[code] {
				fit.missing = append(fit.missing, code)
			}
		}
		sort.Strings(fit.unexpected)
		fits = append(fits, fit)
	}

	if len(fits) == 0 {
		return model.LineItemResult{}, false
	}

	sort.Slice(fits, func(i, j int) bool {
		a, b := fits[i], fits[j]
		if len(a.unexpected) != len(b.unexpected) {
			return len(a.unexpected) < len(b.unexpected)
		}
		if len(a.missing) != len(b.missing) {
			return len(a.missing) < len(b.missing)
		}
		if len(a.bundle.Codes) != len(b.bundle.Codes) {
			return len(a.bundle.Codes) < len(b.bundle.Codes)
		}
		return a.bundle.Name < b.bundle.Name
	})

	best := fits[0]
	result := base
	result.BundleName = best.bundle.Name

	if len(best.unexpected) > 0 {
		result.Status = model.StatusFail
		result.Reason = "Codes outside bundle definition"
		result.UnexpectedCPTs = best.unexpected
		result.Messages = []string{fmt.Sprintf(
			"Bundle %q matched but found %d code(s) outside the bundle: %s",
			best.bundle.Name, len(best.unexpected), strings.Join(best.unexpected, ", "))}
		return result, true
	}

	result.Status = model.StatusPass
	result.MatchType = model.MatchBundled
	result.BundledCPTs = sortedKeys(claimCodes)
	result.MissingCPTs = best.missing
	if best.missing == nil {
		result.MissingCPTs = []string{}
	}
	result.Messages = []string{fmt.Sprintf("Matched bundle %q", best.bundle.Name)}
	return result, true
}

// matchCategories compares per-category code counts, excluding ancillary
// codes from both sides. Any missing or invalid category is a hard failure
// ahead of the count check, attributed to claim or order.
func (v *LineItemValidator) matchCategories(claimCodes, orderCodes map[string]bool, base model.LineItemResult) model.LineItemResult {
	result := base

	var invalid []model.InvalidCategory
	invalid = append(invalid, v.invalidCategories(claimCodes, "claim")...)
	invalid = append(invalid, v.invalidCategories(orderCodes, "order")...)

	if len(invalid) > 0 {
		result.Status = model.StatusFail
		result.Reason = "Missing or invalid procedure categories"
		result.InvalidCategories = invalid
		result.Messages = []string{fmt.Sprintf(
			"Found %d CPT codes with missing or invalid categories", len(invalid))}
		return result
	}

	claimCounts, claimByCat := v.categoryCounts(claimCodes)
	orderCounts, orderByCat := v.categoryCounts(orderCodes)

	var mismatches []model.CategoryMismatch
	for _, category := range sortedCategories(claimCounts) {
		count := claimCounts[category]
		orderCount := orderCounts[category]
		if orderCount >= count {
			continue
		}
		// EMG shortfalls are tolerated here: legitimate substitution
		// inside the EMG families is already handled by step 1.
		if strings.EqualFold(category, "emg") {
			continue
		}
		mismatches = append(mismatches, model.CategoryMismatch{
			Category:   category,
			ClaimCount: count,
			OrderCount: orderCount,
			Difference: count - orderCount,
			ClaimCPTs:  claimByCat[category],
			OrderCPTs:  orderByCat[category],
		})
	}

	if len(mismatches) > 0 {
		result.Status = model.StatusFail
		result.Reason = "Category count mismatch"
		result.Mismatches = mismatches
		result.Messages = []string{fmt.Sprintf(
			"Found %d category mismatches between claim and order data.", len(mismatches))}
		return result
	}

	result.Status = model.StatusPass
	result.MatchType = model.MatchCategory
	result.Categories = sortedCategories(claimCounts)
	result.Messages = []string{"Categories match between claim and order."}
	return result
}

// invalidCategories reports codes that are absent from the catalog or
// whose stored category is empty, "0", or whitespace-only.
func (v *LineItemValidator) invalidCategories(codes map[string]bool, source string) []model.InvalidCategory {
	var invalid []model.InvalidCategory
	for _, code := range sortedKeys(codes) {
		category, found := v.categories.Category(code)
		if found && model.ValidCategory(category) {
			continue
		}
		reason := "Missing or invalid category"
		if !found {
			reason = "CPT code not found in procedure catalog"
		}
		invalid = append(invalid, model.InvalidCategory{
			CPT:      code,
			Source:   source,
			Category: category,
			Reason:   reason,
		})
	}
	return invalid
}

// categoryCounts tallies codes per category, excluding ancillary codes.
// Also returns the codes implicated per category for mismatch reporting.
func (v *LineItemValidator) categoryCounts(codes map[string]bool) (map[string]int, map[string][]string) {
	counts := make(map[string]int)
	byCategory := make(map[string][]string)
	for _, code := range sortedKeys(codes) {
		if v.categories.IsAncillary(code) {
			continue
		}
		category := v.categories[code]
		counts[category]++
		byCategory[category] = append(byCategory[category], code)
	}
	return counts, byCategory
}

// comparison captures both code sets and their categories for the audit
// payload. Codes missing from the catalog carry an empty category here;
// validity is judged separately.
func (v *LineItemValidator) comparison(claimCodes, orderCodes map[string]bool) model.ComparisonDetails {
	details := model.ComparisonDetails{
		ClaimCodes:      sortedKeys(claimCodes),
		OrderCodes:      sortedKeys(orderCodes),
		ClaimCategories: make(map[string]string, len(claimCodes)),
		OrderCategories: make(map[string]string, len(orderCodes)),
	}
	for code := range claimCodes {
		details.ClaimCategories[code] = v.categories[code]
	}
	for code := range orderCodes {
		details.OrderCategories[code] = v.categories[code]
	}
	return details
}

// lineMapping maps each claim code to the order row ids carrying the same
// code, where any exist.
func lineMapping(claimCodes map[string]bool, orderLines []model.OrderLine) map[string][]int64 {
	mapping := make(map[string][]int64)
	for _, line := range orderLines {
		if claimCodes[line.CPT] {
			mapping[line.CPT] = append(mapping[line.CPT], line.RowID)
		}
	}
	return mapping
}

func filterCodes(codes map[string]bool, keep func(string) bool) []string {
	var out []string
	for code := range codes {
		if keep(code) {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

func intersects(a, b map[string]bool) bool {
	for code := range a {
		if b[code] {
			return true
		}
	}
	return false
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for code := range a {
		if !b[code] {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCategories(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
