// Package refdata provides read-only access to the reference catalogs a
// claim adjudicates against: orders, providers, procedure categories, and
// the two contracted-rate tables.
package refdata

import (
	"context"
	"errors"

	"github.com/chrscato/BillReview-system/internal/model"
)

// ErrNotFound is returned when a reference record does not exist.
var ErrNotFound = errors.New("refdata: record not found")

// Store is the full reference-data surface. Rate lookups return nil when
// no rate exists for the key; only genuine lookup failures are errors.
type Store interface {
	// ProviderDetails resolves the provider record through the order.
	// Returns ErrNotFound when the order or its provider is absent.
	ProviderDetails(ctx context.Context, orderID string) (*model.ProviderDetails, error)

	// OrderLineItems returns the expected service rows for an order.
	OrderLineItems(ctx context.Context, orderID string) ([]model.OrderLine, error)

	// OrderBundled reports whether the order is already flagged as a
	// bundle in the reference data. Unknown orders report false.
	OrderBundled(ctx context.Context, orderID string) (bool, error)

	// ProcedureCategories loads the full code -> category catalog. Loaded
	// once per run and shared immutably across claims.
	ProcedureCategories(ctx context.Context) (model.CategoryMap, error)

	// NegotiatedRateCents looks up the contracted PPO rate for a
	// (cleaned provider TIN, procedure code) pair, nil when absent.
	NegotiatedRateCents(ctx context.Context, tin, cpt string) (*int64, error)

	// OTARateCents looks up a one-time-agreement rate for an
	// (order id, procedure code) pair, nil when absent.
	OTARateCents(ctx context.Context, orderID, cpt string) (*int64, error)
}
