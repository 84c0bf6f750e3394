package refdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chrscato/BillReview-system/internal/model"
)

// NewPool creates a pgxpool for reference-data reads.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// PGStore implements Store against the Postgres reference schema.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a pool as a reference-data store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) ProviderDetails(ctx context.Context, orderID string) (*model.ProviderDetails, error) {
	const q = `
		SELECT p.billing_name, p.tin, p.npi, p.provider_network, p.need_ota
		FROM ref.orders o
		JOIN ref.providers p ON o.provider_id = p.provider_id
		WHERE o.order_id = $1`

	var pd model.ProviderDetails
	err := s.pool.QueryRow(ctx, q, orderID).Scan(&pd.Name, &pd.TIN, &pd.NPI, &pd.Network, &pd.NeedOTA)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("provider details for order %s: %w", orderID, err)
	}
	return &pd, nil
}

func (s *PGStore) OrderLineItems(ctx context.Context, orderID string) ([]model.OrderLine, error) {
	const q = `
		SELECT line_item_id, cpt, units
		FROM ref.order_line_items
		WHERE order_id = $1
		ORDER BY line_item_id`

	rows, err := s.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("order line items for %s: %w", orderID, err)
	}
	defer rows.Close()

	var lines []model.OrderLine
	for rows.Next() {
		var line model.OrderLine
		if err := rows.Scan(&line.RowID, &line.CPT, &line.Units); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		line.CPT = strings.TrimSpace(line.CPT)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

func (s *PGStore) OrderBundled(ctx context.Context, orderID string) (bool, error) {
	const q = `SELECT bundle_type FROM ref.orders WHERE order_id = $1`

	var bundleType *string
	err := s.pool.QueryRow(ctx, q, orderID).Scan(&bundleType)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bundle flag for order %s: %w", orderID, err)
	}
	return bundleType != nil && strings.TrimSpace(*bundleType) != "", nil
}

func (s *PGStore) ProcedureCategories(ctx context.Context) (model.CategoryMap, error) {
	rows, err := s.pool.Query(ctx, `SELECT proc_cd, proc_category FROM ref.dim_proc`)
	if err != nil {
		return nil, fmt.Errorf("load procedure categories: %w", err)
	}
	defer rows.Close()

	categories := make(model.CategoryMap)
	for rows.Next() {
		var code string
		var category *string
		if err := rows.Scan(&code, &category); err != nil {
			return nil, fmt.Errorf("scan dim_proc row: %w", err)
		}
		if category == nil {
			categories[strings.TrimSpace(code)] = ""
			continue
		}
		categories[strings.TrimSpace(code)] = *category
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dim_proc: %w", err)
	}
	return categories, nil
}

func (s *PGStore) NegotiatedRateCents(ctx context.Context, tin, cpt string) (*int64, error) {
	const q = `SELECT rate_cents FROM ref.ppo_rates WHERE TRIM(tin) = $1 AND proc_cd = $2`

	var rate int64
	err := s.pool.QueryRow(ctx, q, tin, cpt).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ppo rate (%s, %s): %w", tin, cpt, err)
	}
	return &rate, nil
}

func (s *PGStore) OTARateCents(ctx context.Context, orderID, cpt string) (*int64, error) {
	const q = `SELECT rate_cents FROM ref.current_otas WHERE order_id = $1 AND cpt = $2`

	var rate int64
	err := s.pool.QueryRow(ctx, q, orderID, cpt).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ota rate (%s, %s): %w", orderID, cpt, err)
	}
	return &rate, nil
}
