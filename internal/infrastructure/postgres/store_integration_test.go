package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
	"github.com/jhoicas/retail-suggestions/internal/domain"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

func startPostgres(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("suggestions"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := NewPoolFromURL(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = ApplySchema(ctx, pool)
	require.NoError(t, err)
	return pool
}

func resetData(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(ctx, `TRUNCATE suggestions, sales_events, purchase_items, purchase_records,
		inventory_batches, retailers, products CASCADE`)
	require.NoError(t, err)
}

func seed(ctx context.Context, t *testing.T, pool *pgxpool.Pool, batchQty int64) {
	t.Helper()
	stmts := []string{
		`INSERT INTO products (id, name, category, price) VALUES ('P', 'Yogur griego', 'lácteos', 2500)`,
		`INSERT INTO retailers (id, name, location) VALUES ('R1', 'Tienda Norte', 'Bogotá'), ('R2', 'Tienda Sur', 'Cali'), ('R3', 'Tienda Centro', 'Medellín')`,
		`INSERT INTO purchase_records (id, retailer_id) VALUES ('h1', 'R1'), ('h2', 'R2'), ('h3', 'R3')`,
		`INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_price) VALUES
			('h1', 'P', 20, 2000), ('h2', 'P', 10, 2000), ('h3', 'P', 10, 2000)`,
		`INSERT INTO sales_events (id, retailer_id, product_id, units, price) VALUES
			('s1', 'R1', 'P', 15, 3000), ('s2', 'R2', 'P', 10, 3000), ('s3', 'R3', 'P', 4, 3000)`,
	}
	for _, s := range stmts {
		_, err := pool.Exec(ctx, s)
		require.NoError(t, err, s)
	}
	_, err := pool.Exec(ctx, `INSERT INTO inventory_batches (id, product_id, batch_code, quantity, expiry_date)
		VALUES ('B', 'P', 'L-001', $1, now() + interval '5 days')`, batchQty)
	require.NoError(t, err)
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()
	pool := startPostgres(ctx, t)

	suggestions := NewSuggestionRepository(pool)
	batches := NewInventoryBatchRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	upsert := func(retailer string, qty int64) (*entity.Suggestion, entity.SuggestionChange, error) {
		return suggestions.Upsert(ctx, repository.UpsertSuggestion{
			ID: "S-" + retailer, ProductID: "P", InventoryBatchID: "B", RetailerID: retailer, Quantity: qty, Now: now,
		})
	}

	t.Run("upsert crea, no cambia, actualiza cantidad y reasigna", func(t *testing.T) {
		resetData(ctx, t, pool)
		seed(ctx, t, pool, 50)

		s, change, err := upsert("R2", 10)
		require.NoError(t, err)
		assert.Equal(t, entity.ChangeCreated, change)
		assert.Equal(t, entity.SuggestionPending, s.Status)
		assert.Equal(t, 1, s.Attempts)
		assert.Empty(t, s.TriedRetailers)

		again, change, err := upsert("R2", 10)
		require.NoError(t, err)
		assert.Equal(t, entity.ChangeUnchanged, change)
		assert.Equal(t, s.ID, again.ID)
		assert.Equal(t, s.Version, again.Version)

		qty, change, err := upsert("R2", 7)
		require.NoError(t, err)
		assert.Equal(t, entity.ChangeQuantityUpdated, change)
		assert.Equal(t, int64(7), qty.Quantity)
		assert.Equal(t, 1, qty.Attempts)

		moved, change, err := upsert("R1", 15)
		require.NoError(t, err)
		assert.Equal(t, entity.ChangeReassigned, change)
		assert.Equal(t, s.ID, moved.ID)
		assert.Equal(t, entity.SuggestionReassigned, moved.Status)
		assert.Equal(t, []string{"R2"}, moved.TriedRetailers)
		assert.Equal(t, 2, moved.Attempts)
	})

	t.Run("upserts concurrentes dejan una sola activa", func(t *testing.T) {
		resetData(ctx, t, pool)
		seed(ctx, t, pool, 50)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, err := suggestions.Upsert(ctx, repository.UpsertSuggestion{
					ID: "S-" + string(rune('a'+i)), ProductID: "P", InventoryBatchID: "B",
					RetailerID: "R2", Quantity: 10, Now: now,
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		var n int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT count(*) FROM suggestions WHERE status IN ('pending','reassigned')`).Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("transition con versión vieja es conflicto", func(t *testing.T) {
		resetData(ctx, t, pool)
		seed(ctx, t, pool, 50)
		s, _, err := upsert("R2", 10)
		require.NoError(t, err)

		_, err = suggestions.Transition(ctx, s.ID, s.Version, entity.ActiveSuggestionStatuses, entity.SuggestionRejected, now)
		require.NoError(t, err)
		_, err = suggestions.Transition(ctx, s.ID, s.Version, entity.ActiveSuggestionStatuses, entity.SuggestionConfirmed, now)
		assert.ErrorIs(t, err, domain.ErrConcurrentWrite)
	})

	t.Run("find latest incluye sugerencias cerradas", func(t *testing.T) {
		resetData(ctx, t, pool)
		seed(ctx, t, pool, 50)

		none, err := suggestions.FindLatest(ctx, "P", "B")
		require.NoError(t, err)
		assert.Nil(t, none)

		s, _, err := upsert("R2", 10)
		require.NoError(t, err)
		_, err = suggestions.Transition(ctx, s.ID, s.Version, entity.ActiveSuggestionStatuses, entity.SuggestionExpired, now.Add(time.Minute))
		require.NoError(t, err)

		active, err := suggestions.FindActive(ctx, "P", "B")
		require.NoError(t, err)
		assert.Nil(t, active)

		latest, err := suggestions.FindLatest(ctx, "P", "B")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, s.ID, latest.ID)
		assert.Equal(t, entity.SuggestionExpired, latest.Status)
	})

	t.Run("reassign de rechazada con otra activa es duplicado", func(t *testing.T) {
		resetData(ctx, t, pool)
		seed(ctx, t, pool, 50)
		s, _, err := upsert("R2", 10)
		require.NoError(t, err)
		rejected, err := suggestions.Transition(ctx, s.ID, s.Version, entity.ActiveSuggestionStatuses, entity.SuggestionRejected, now)
		require.NoError(t, err)
		_, _, err = suggestions.Upsert(ctx, repository.UpsertSuggestion{
			ID: "S-new", ProductID: "P", InventoryBatchID: "B", RetailerID: "R3", Quantity: 4, Now: now,
		})
		require.NoError(t, err)

		_, err = suggestions.Reassign(ctx, rejected.ID, rejected.Version, "R1", 15, now)
		assert.ErrorIs(t, err, domain.ErrDuplicate)
	})

	t.Run("descuento condicional de stock", func(t *testing.T) {
		resetData(ctx, t, pool)
		seed(ctx, t, pool, 5)

		_, err := batches.DecrementIfSufficient(ctx, "B", 6)
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)

		b, err := batches.DecrementIfSufficient(ctx, "B", 5)
		require.NoError(t, err)
		assert.Equal(t, int64(0), b.Quantity)
		assert.Equal(t, entity.BatchStatusSold, b.Status)

		avail, err := batches.FindAvailable(ctx, "P", "")
		require.NoError(t, err)
		assert.Nil(t, avail)
	})

	t.Run("confirmación atómica con la tx real", func(t *testing.T) {
		resetData(ctx, t, pool)
		seed(ctx, t, pool, 3)
		_, _, err := upsert("R2", 3)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `UPDATE inventory_batches SET quantity = 2 WHERE id = 'B'`)
		require.NoError(t, err)

		cfg := suggestion.DefaultConfig()
		products := NewProductRepository(pool)
		handler := suggestion.NewConfirmationHandler(NewTxRunner(pool), suggestions, products, nil, nil, cfg, zerolog.Nop())

		_, err = handler.Confirm(ctx, "S-R2", "R2")
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		s, err := suggestions.GetByID(ctx, "S-R2")
		require.NoError(t, err)
		assert.Equal(t, entity.SuggestionPending, s.Status)

		_, err = pool.Exec(ctx, `UPDATE inventory_batches SET quantity = 3 WHERE id = 'B'`)
		require.NoError(t, err)
		res, err := handler.Confirm(ctx, "S-R2", "R2")
		require.NoError(t, err)
		assert.Equal(t, entity.SuggestionConfirmed, res.Suggestion.Status)
		assert.True(t, res.Purchase.Total().Equal(decimal.NewFromInt(7500)))

		var items int
		require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM purchase_items WHERE inventory_batch_id = 'B'`).Scan(&items))
		assert.Equal(t, 1, items)
	})

	t.Run("rollback si falla tras descontar stock", func(t *testing.T) {
		resetData(ctx, t, pool)
		seed(ctx, t, pool, 10)
		errInjected := errors.New("falla inyectada")

		err := NewTxRunner(pool).Run(ctx, func(
			batchRepo repository.InventoryBatchRepository,
			_ repository.PurchaseRepository,
			_ repository.SuggestionRepository,
		) error {
			if _, err := batchRepo.DecrementIfSufficient(ctx, "B", 4); err != nil {
				return err
			}
			return errInjected
		})
		assert.ErrorIs(t, err, errInjected)

		b, err := batches.GetByID(ctx, "B")
		require.NoError(t, err)
		assert.Equal(t, int64(10), b.Quantity)
	})

	t.Run("ranking desde compras y ventas", func(t *testing.T) {
		resetData(ctx, t, pool)
		seed(ctx, t, pool, 10)

		ranker := suggestion.NewRetailerRanker(NewPurchaseRepository(pool), NewSalesLedger(pool), 5)
		ranked, err := ranker.Rank(ctx, "P")

		require.NoError(t, err)
		require.Len(t, ranked, 3)
		assert.Equal(t, "R2", ranked[0].RetailerID)
		assert.Equal(t, "R1", ranked[1].RetailerID)
		assert.Equal(t, "R3", ranked[2].RetailerID)
	})

	t.Run("lotes vencidos y sus sugerencias", func(t *testing.T) {
		resetData(ctx, t, pool)
		seed(ctx, t, pool, 10)
		_, _, err := upsert("R2", 5)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `UPDATE inventory_batches SET expiry_date = now() - interval '1 day' WHERE id = 'B'`)
		require.NoError(t, err)

		ids, err := batches.ExpirePast(ctx, time.Now())
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, ids)
		n, err := suggestions.ExpireActiveByBatches(ctx, ids, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		expired, err := suggestions.ListByStatus(ctx, entity.SuggestionExpired, 10, 0)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, "Yogur griego", expired[0].ProductName)
	})
}
