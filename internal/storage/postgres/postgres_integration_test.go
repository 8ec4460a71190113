//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/receipt"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	endpoint, err := ctr.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(t, err)

	pool, err := NewPool(ctx, fmt.Sprintf("postgres://storefront:storefront@%s/storefront?sslmode=disable", endpoint))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// Migrations are idempotent.
	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func TestPostgres(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	t.Run("products round trip in catalog order", func(t *testing.T) {
		repo := NewProductRepository(pool)

		empty, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		require.NoError(t, repo.Upsert(ctx, product.DefaultProducts()))
		// Upserting again updates in place.
		require.NoError(t, repo.Upsert(ctx, product.DefaultProducts()))

		got, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 10)
		assert.Equal(t, "Apple", got[0].Name)
		assert.Equal(t, "water-bottle", got[9].ID)
		assert.True(t, decimal.RequireFromString("0.99").Equal(got[9].Price))

		c, err := product.LoadCatalog(ctx, repo)
		require.NoError(t, err)
		assert.Equal(t, []string{"Banana", "Orange"}, []string{c.Search("an")[0].Name, c.Search("an")[1].Name})
	})

	t.Run("receipts are stored and listed newest first", func(t *testing.T) {
		repo := NewReceiptRepository(pool)
		base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

		older := receipt.New(receipt.KindPurchase, []receipt.Line{
			receipt.NewLine("apple", "Apple", decimal.RequireFromString("0.99"), 3),
		}, decimal.RequireFromString("2.97"), base)
		newer := receipt.New(receipt.KindPurchase, []receipt.Line{
			receipt.NewLine("milk", "Milk", decimal.RequireFromString("1.50"), 2),
		}, decimal.RequireFromString("3.00"), base.Add(time.Hour))
		snapshot := receipt.New(receipt.KindSnapshot, nil, decimal.Zero, base.Add(2*time.Hour))

		require.NoError(t, repo.Write(ctx, older))
		require.NoError(t, repo.Write(ctx, newer))
		require.NoError(t, repo.Write(ctx, snapshot))

		got, err := repo.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 2, "snapshots are not stored")

		assert.Equal(t, newer.ID, got[0].ID)
		assert.Equal(t, older.ID, got[1].ID)
		assert.True(t, decimal.RequireFromString("2.97").Equal(got[1].Total))
		require.Len(t, got[1].Lines, 1)
		assert.Equal(t, "Apple", got[1].Lines[0].Name)
		assert.True(t, decimal.RequireFromString("2.97").Equal(got[1].Lines[0].LineTotal))
		assert.True(t, older.CreatedAt.Equal(got[1].CreatedAt))

		limited, err := repo.Recent(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		// Duplicate IDs are rejected.
		require.Error(t, repo.Write(ctx, older))
	})
}
