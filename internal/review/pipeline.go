package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chrscato/BillReview-system/internal/config"
	"github.com/chrscato/BillReview-system/internal/model"
)

// StageError wraps an error with the pipeline stage where it occurred.
type StageError struct {
	Stage model.ValidationType
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline sequences the validators over one claim: modifiers → units →
// bundle precheck → line items → rates. Each failing stage short-circuits
// into a Fail verdict tagged with that stage; a "bundled" line-item
// outcome continues through rate resolution. The pipeline holds only
// immutable rule and catalog state, so one Pipeline serves concurrent
// claims.
type Pipeline struct {
	ref       Reference
	log       zerolog.Logger
	rules     *config.Rules
	modifiers *ModifierValidator
	units     *UnitsValidator
	lineItems *LineItemValidator
	rates     *RateResolver
}

// New wires a pipeline from the rule set, the preloaded category catalog,
// and the reference-data lookups.
func New(rules *config.Rules, categories model.CategoryMap, ref Reference, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		ref:       ref,
		log:       log,
		rules:     rules,
		modifiers: NewModifierValidator(rules),
		units:     NewUnitsValidator(rules, categories),
		lineItems: NewLineItemValidator(rules, categories),
		rates:     NewRateResolver(categories, ref),
	}
}

// Review runs the full pipeline over one claim and always produces exactly
// one verdict. Any panic or stage error is converted into a process_error
// Fail verdict at this boundary, never propagated, so one claim's failure
// cannot abort a batch.
func (p *Pipeline) Review(ctx context.Context, claim *model.Claim) (verdict *model.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("order_id", claim.OrderID).Interface("panic", r).Msg("claim processing panicked")
			verdict = p.processError(claim, fmt.Errorf("panic: %v", r))
		}
	}()

	verdict = p.review(ctx, claim)
	return verdict
}

func (p *Pipeline) review(ctx context.Context, claim *model.Claim) *model.Verdict {
	v := p.newVerdict(claim)

	// Policy-excluded codes are removed before any stage runs.
	lines, excluded := p.filterExcluded(claim.Lines)
	v.ExcludedCPTs = excluded

	// Stage: modifier check.
	modifiers := p.modifiers.Validate(lines)
	v.Modifiers = &modifiers
	if modifiers.Status == model.StatusFail {
		return p.fail(v, model.ValidationModifier, "Modifier validation failed")
	}

	// Stage: unit check.
	units := p.units.Validate(lines)
	v.Units = &units
	if units.Status == model.StatusFail {
		return p.fail(v, model.ValidationUnits, "Unit validation failed")
	}

	// Stage: bundle precheck. An order already flagged as bundled in the
	// reference data is deferred for separate handling, not auto-approved.
	bundled, err := p.ref.OrderBundled(ctx, claim.OrderID)
	if err != nil {
		return p.processErrorInto(v, &StageError{Stage: model.ValidationBundle, Err: err})
	}
	if bundled {
		return p.fail(v, model.ValidationBundle, "Order is flagged as bundled; deferred for bundle handling")
	}

	// Stage: line-item match.
	orderLines, err := p.ref.OrderLineItems(ctx, claim.OrderID)
	if err != nil {
		return p.processErrorInto(v, &StageError{Stage: model.ValidationLineItems, Err: err})
	}
	lineItems := p.lineItems.Validate(lines, orderLines)
	v.LineItems = &lineItems
	if lineItems.Status == model.StatusFail {
		return p.fail(v, model.ValidationLineItems, "Line item validation failed")
	}
	if lineItems.MatchType == model.MatchBundled {
		p.log.Debug().Str("order_id", claim.OrderID).Str("bundle", lineItems.BundleName).Msg("bundled claim, continuing to rate validation")
	}

	// Stage: rate resolution.
	bundledCPTs := make(map[string]bool, len(lineItems.BundledCPTs))
	for _, cpt := range lineItems.BundledCPTs {
		bundledCPTs[cpt] = true
	}
	rates, err := p.rates.Resolve(ctx, lines, claim.OrderID, bundledCPTs)
	if err != nil {
		return p.processErrorInto(v, &StageError{Stage: model.ValidationRate, Err: err})
	}
	v.Rates = &rates
	if rates.Status == model.StatusFail {
		return p.fail(v, model.ValidationRate, "Rate validation failed")
	}

	v.Status = model.StatusPass
	v.ValidationType = model.ValidationFinal
	v.TotalRateCents = rates.TotalRateCents
	v.Messages = []string{"Line item and rate validation passed"}
	return v
}

func (p *Pipeline) newVerdict(claim *model.Claim) *model.Verdict {
	return &model.Verdict{
		ID:            uuid.New(),
		FileName:      claim.SourceFile,
		Timestamp:     time.Now(),
		PatientName:   claim.PatientName,
		DateOfService: claim.DateOfService,
		OrderID:       claim.OrderID,
	}
}

func (p *Pipeline) filterExcluded(lines []model.ServiceLine) ([]model.ServiceLine, []string) {
	kept := make([]model.ServiceLine, 0, len(lines))
	var excluded []string
	for _, line := range lines {
		if p.rules.IsExcluded(line.CPT) {
			excluded = append(excluded, line.CPT)
			continue
		}
		kept = append(kept, line)
	}
	return kept, excluded
}

func (p *Pipeline) fail(v *model.Verdict, stage model.ValidationType, message string) *model.Verdict {
	v.Status = model.StatusFail
	v.ValidationType = stage
	v.Messages = []string{message}
	p.log.Debug().Str("order_id", v.OrderID).Str("stage", string(stage)).Msg("claim failed validation")
	return v
}

func (p *Pipeline) processError(claim *model.Claim, err error) *model.Verdict {
	return p.processErrorInto(p.newVerdict(claim), err)
}

func (p *Pipeline) processErrorInto(v *model.Verdict, err error) *model.Verdict {
	v.Status = model.StatusFail
	v.ValidationType = model.ValidationProcess
	v.Error = err.Error()
	v.Messages = []string{fmt.Sprintf("Error processing claim: %s", err)}
	return v
}
