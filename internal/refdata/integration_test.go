package refdata_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/chrscato/BillReview-system/internal/config"
	"github.com/chrscato/BillReview-system/internal/model"
	"github.com/chrscato/BillReview-system/internal/refdata"
	"github.com/chrscato/BillReview-system/internal/review"
)

const (
	testPort     = 15433
	testDB       = "billreviewtest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var (
	testDSN string
	pg      *embeddedpostgres.EmbeddedPostgres
)

func TestMain(m *testing.M) {
	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg = embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30*time.Second),
	)

	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}

	os.Exit(code)
}

// setupStore connects, resets the ref schema, applies migrations, and seeds
// the reference fixtures shared by the lookup tests.
func setupStore(t *testing.T) *refdata.PGStore {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, testDSN)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if _, err := pool.Exec(ctx, "DROP SCHEMA IF EXISTS ref CASCADE"); err != nil {
		t.Fatalf("drop schema: %v", err)
	}
	if err := refdata.ApplyMigrations(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	seed := []string{
		`INSERT INTO ref.providers (provider_id, billing_name, tin, npi, provider_network, need_ota)
		 VALUES (1, 'Valley Imaging', ' 12-3456789 ', '1234567890', 'in-network', FALSE),
		        (2, 'Summit Ortho', '98-7654321', '', 'out-of-network', TRUE)`,
		`INSERT INTO ref.orders (order_id, provider_id, bundle_type)
		 VALUES ('ORD-1', 1, NULL),
		        ('ORD-2', 2, 'surgical'),
		        ('ORD-3', 1, '  ')`,
		`INSERT INTO ref.order_line_items (line_item_id, order_id, cpt, units)
		 VALUES (10, 'ORD-1', ' 99213 ', 1),
		        (11, 'ORD-1', '72148', 1)`,
		`INSERT INTO ref.dim_proc (proc_cd, proc_category)
		 VALUES ('99213', 'E/M'),
		        ('72148', 'MRI'),
		        ('95886', 'Ancillary'),
		        ('99070', NULL)`,
		`INSERT INTO ref.ppo_rates (tin, proc_cd, rate_cents)
		 VALUES (' 123456789 ', '99213', 8500),
		        ('123456789', '72148', 40000)`,
		`INSERT INTO ref.current_otas (order_id, cpt, rate_cents)
		 VALUES ('ORD-1', '97110', 3200)`,
	}
	for _, stmt := range seed {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	return refdata.NewPGStore(pool)
}

func TestPGStore_ProviderDetails(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	pd, err := store.ProviderDetails(ctx, "ORD-1")
	if err != nil {
		t.Fatalf("ProviderDetails: %v", err)
	}
	if pd.Name != "Valley Imaging" || pd.Network != "in-network" {
		t.Errorf("provider = %+v", pd)
	}

	if _, err := store.ProviderDetails(ctx, "ORD-MISSING"); !errors.Is(err, refdata.ErrNotFound) {
		t.Errorf("missing order error = %v, want ErrNotFound", err)
	}
}

func TestPGStore_OrderLineItems(t *testing.T) {
	store := setupStore(t)

	lines, err := store.OrderLineItems(context.Background(), "ORD-1")
	if err != nil {
		t.Fatalf("OrderLineItems: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].RowID != 10 || lines[0].CPT != "99213" {
		t.Errorf("first line = %+v; cpt must come back trimmed in row order", lines[0])
	}

	empty, err := store.OrderLineItems(context.Background(), "ORD-MISSING")
	if err != nil {
		t.Fatalf("OrderLineItems missing: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("missing order should have no lines, got %d", len(empty))
	}
}

func TestPGStore_OrderBundled(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	cases := []struct {
		orderID string
		want    bool
	}{
		{"ORD-1", false}, // NULL bundle_type
		{"ORD-2", true},
		{"ORD-3", false}, // whitespace-only bundle_type
		{"ORD-MISSING", false},
	}
	for _, tc := range cases {
		got, err := store.OrderBundled(ctx, tc.orderID)
		if err != nil {
			t.Fatalf("OrderBundled(%s): %v", tc.orderID, err)
		}
		if got != tc.want {
			t.Errorf("OrderBundled(%s) = %v, want %v", tc.orderID, got, tc.want)
		}
	}
}

func TestPGStore_ProcedureCategories(t *testing.T) {
	store := setupStore(t)

	categories, err := store.ProcedureCategories(context.Background())
	if err != nil {
		t.Fatalf("ProcedureCategories: %v", err)
	}
	if categories["99213"] != "E/M" || categories["95886"] != "Ancillary" {
		t.Errorf("categories = %v", categories)
	}
	// NULL categories load as empty strings and are judged invalid later.
	if got, ok := categories.Category("99070"); !ok || got != "" {
		t.Errorf("null category: got %q, present %v", got, ok)
	}
}

func TestPGStore_Rates(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// The TIN column may carry padding; lookups use the cleaned TIN.
	rate, err := store.NegotiatedRateCents(ctx, "123456789", "99213")
	if err != nil {
		t.Fatalf("NegotiatedRateCents: %v", err)
	}
	if rate == nil || *rate != 8500 {
		t.Errorf("negotiated rate = %v, want 8500", rate)
	}

	rate, err = store.NegotiatedRateCents(ctx, "123456789", "00000")
	if err != nil {
		t.Fatalf("NegotiatedRateCents miss: %v", err)
	}
	if rate != nil {
		t.Errorf("missing negotiated rate = %d, want nil", *rate)
	}

	rate, err = store.OTARateCents(ctx, "ORD-1", "97110")
	if err != nil {
		t.Fatalf("OTARateCents: %v", err)
	}
	if rate == nil || *rate != 3200 {
		t.Errorf("ota rate = %v, want 3200", rate)
	}

	rate, err = store.OTARateCents(ctx, "ORD-2", "97110")
	if err != nil {
		t.Fatalf("OTARateCents miss: %v", err)
	}
	if rate != nil {
		t.Errorf("missing ota rate = %d, want nil", *rate)
	}
}

func TestPipelineAgainstPostgres(t *testing.T) {
	// End to end: the full review pipeline backed by the real reference
	// schema instead of the in-memory store.
	store := setupStore(t)
	ctx := context.Background()

	categories, err := store.ProcedureCategories(ctx)
	if err != nil {
		t.Fatalf("ProcedureCategories: %v", err)
	}

	p := review.New(config.DefaultRules(), categories, store, zerolog.Nop())

	claim := &model.Claim{
		PatientName:   "DOE, JANE",
		DateOfService: "2025-02-14",
		OrderID:       "ORD-1",
		Lines: []model.ServiceLine{
			{CPT: "99213", Units: 1},
			{CPT: "72148", Units: 1},
		},
		BillingTIN: "12-3456789",
		SourceFile: "claim.json",
	}

	v := p.Review(ctx, claim)
	if v.Status != model.StatusPass {
		t.Fatalf("status = %s, want PASS: %+v", v.Status, v)
	}
	if v.ValidationType != model.ValidationFinal {
		t.Fatalf("validation type = %s, want final", v.ValidationType)
	}
	if v.TotalRateCents != 48500 {
		t.Errorf("total = %d, want 48500", v.TotalRateCents)
	}

	// A bundled order defers instead of validating.
	claim.OrderID = "ORD-2"
	v = p.Review(ctx, claim)
	if v.Status != model.StatusFail || v.ValidationType != model.ValidationBundle {
		t.Errorf("bundled order verdict = %s/%s, want FAIL/bundle_check", v.Status, v.ValidationType)
	}
}
