package refdata

import (
	"context"

	"github.com/chrscato/BillReview-system/internal/model"
)

// RateKey keys a contracted rate by its two lookup fields: (TIN, CPT) for
// negotiated rates, (order id, CPT) for one-time agreements.
type RateKey struct {
	Key string
	CPT string
}

// MemStore is an in-memory Store for tests and fixtures. Populate the
// exported maps before use; it is read-only afterwards.
type MemStore struct {
	Providers  map[string]model.ProviderDetails // by order id
	LineItems  map[string][]model.OrderLine     // by order id
	Bundled    map[string]bool                  // by order id
	Categories model.CategoryMap
	PPORates   map[RateKey]int64 // {tin, cpt}
	OTARates   map[RateKey]int64 // {order id, cpt}
}

var _ Store = (*MemStore)(nil)

func (s *MemStore) ProviderDetails(_ context.Context, orderID string) (*model.ProviderDetails, error) {
	pd, ok := s.Providers[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &pd, nil
}

func (s *MemStore) OrderLineItems(_ context.Context, orderID string) ([]model.OrderLine, error) {
	return s.LineItems[orderID], nil
}

func (s *MemStore) OrderBundled(_ context.Context, orderID string) (bool, error) {
	return s.Bundled[orderID], nil
}

func (s *MemStore) ProcedureCategories(_ context.Context) (model.CategoryMap, error) {
	if s.Categories == nil {
		return model.CategoryMap{}, nil
	}
	return s.Categories, nil
}

func (s *MemStore) NegotiatedRateCents(_ context.Context, tin, cpt string) (*int64, error) {
	if rate, ok := s.PPORates[RateKey{Key: tin, CPT: cpt}]; ok {
		return &rate, nil
	}
	return nil, nil
}

func (s *MemStore) OTARateCents(_ context.Context, orderID, cpt string) (*int64, error) {
	if rate, ok := s.OTARates[RateKey{Key: orderID, CPT: cpt}]; ok {
		return &rate, nil
	}
	return nil, nil
}
