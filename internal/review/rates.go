package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chrscato/BillReview-system/internal/claimfile"
	"github.com/chrscato/BillReview-system/internal/model"
	"github.com/chrscato/BillReview-system/internal/refdata"
)

// Reference is the slice of the reference-data surface the pipeline
// consumes at adjudication time. The procedure-category catalog is loaded
// once up front and injected separately.
type Reference interface {
	ProviderDetails(ctx context.Context, orderID string) (*model.ProviderDetails, error)
	OrderLineItems(ctx context.Context, orderID string) ([]model.OrderLine, error)
	OrderBundled(ctx context.Context, orderID string) (bool, error)
	NegotiatedRateCents(ctx context.Context, tin, cpt string) (*int64, error)
	OTARateCents(ctx context.Context, orderID, cpt string) (*int64, error)
}

// RateResolver resolves a contracted rate per surviving line. Sources are
// consulted in fixed order: bundle sentinel, ancillary zero, negotiated
// (PPO) rate by (TIN, CPT), one-time agreement by (order id, CPT).
type RateResolver struct {
	categories model.CategoryMap
	ref        Reference
}

// NewRateResolver constructs a resolver over the category catalog and
// reference-data lookups.
func NewRateResolver(categories model.CategoryMap, ref Reference) *RateResolver {
	return &RateResolver{categories: categories, ref: ref}
}

// Resolve produces exactly one RateQuote per line. bundledCPTs carries the
// claim codes covered by an accepted bundle; those lines resolve to the
// bundle sentinel and are excluded from the total. A missing provider
// record fails the whole claim before any line is priced. Lookup errors
// (as opposed to missing rates) are returned as errors.
func (r *RateResolver) Resolve(ctx context.Context, lines []model.ServiceLine, orderID string, bundledCPTs map[string]bool) (model.RateResult, error) {
	result := model.RateResult{
		Status:       model.StatusPass,
		Quotes:       []model.RateQuote{},
		SourceCounts: map[model.RateSource]int{},
	}

	provider, err := r.ref.ProviderDetails(ctx, orderID)
	if errors.Is(err, refdata.ErrNotFound) {
		result.Status = model.StatusFail
		result.Reason = "Provider details not found"
		result.Messages = []string{fmt.Sprintf("No provider record found for order %s", orderID)}
		return result, nil
	}
	if err != nil {
		return model.RateResult{}, err
	}
	result.Provider = provider

	tin := claimfile.CleanTIN(provider.TIN)

	missing := map[string]bool{}
	for _, line := range lines {
		quote, err := r.resolveLine(ctx, line, orderID, tin, bundledCPTs)
		if err != nil {
			return model.RateResult{}, err
		}
		result.Quotes = append(result.Quotes, quote)
		result.SourceCounts[quote.Source]++
		if quote.Status == model.StatusFail {
			missing[line.CPT] = true
			continue
		}
		if quote.Source != model.RateSourceBundle && quote.UnitAdjustedCents != nil {
			result.TotalRateCents += *quote.UnitAdjustedCents
		}
	}

	result.MissingRateCPTs = sortedKeys(missing)
	if len(result.MissingRateCPTs) > 0 {
		result.Status = model.StatusFail
		result.Reason = "No applicable rate source"
	}
	result.Messages = r.summarize(result)
	return result, nil
}

func (r *RateResolver) resolveLine(ctx context.Context, line model.ServiceLine, orderID, tin string, bundledCPTs map[string]bool) (model.RateQuote, error) {
	quote := model.RateQuote{
		CPT:    line.CPT,
		Units:  line.Units,
		Status: model.StatusPass,
	}

	if bundledCPTs[line.CPT] {
		quote.Source = model.RateSourceBundle
		return quote, nil
	}

	if r.categories.IsAncillary(line.CPT) {
		zero := int64(0)
		quote.Source = model.RateSourceAncillary
		quote.BaseRateCents = &zero
		quote.UnitAdjustedCents = &zero
		return quote, nil
	}

	if tin != "" {
		rate, err := r.ref.NegotiatedRateCents(ctx, tin, line.CPT)
		if err != nil {
			return model.RateQuote{}, err
		}
		if rate != nil {
			return scaled(quote, model.RateSourcePPO, *rate, line.Units), nil
		}
	}

	rate, err := r.ref.OTARateCents(ctx, orderID, line.CPT)
	if err != nil {
		return model.RateQuote{}, err
	}
	if rate != nil {
		return scaled(quote, model.RateSourceOTA, *rate, line.Units), nil
	}

	quote.Source = model.RateSourceNone
	quote.Status = model.StatusFail
	return quote, nil
}

// scaled fills in the base and unit-scaled rates for a priced quote.
func scaled(quote model.RateQuote, source model.RateSource, baseCents int64, units int) model.RateQuote {
	adjusted := baseCents * int64(units)
	quote.Source = source
	quote.BaseRateCents = &baseCents
	quote.UnitAdjustedCents = &adjusted
	return quote
}

func (r *RateResolver) summarize(result model.RateResult) []string {
	var messages []string

	sources := make([]string, 0, len(result.SourceCounts))
	for source := range result.SourceCounts {
		sources = append(sources, string(source))
	}
	sort.Strings(sources)
	for _, source := range sources {
		if source == string(model.RateSourceNone) {
			continue
		}
		messages = append(messages, fmt.Sprintf(
			"%d line(s) resolved via %s", result.SourceCounts[model.RateSource(source)], source))
	}

	if len(result.MissingRateCPTs) > 0 {
		messages = append(messages, fmt.Sprintf(
			"No rate found for CPT codes: %s", strings.Join(result.MissingRateCPTs, ", ")))
	} else {
		messages = append(messages, fmt.Sprintf(
			"Total validated rate: %s", claimfile.CentsToDollars(result.TotalRateCents)))
	}
	return messages
}
