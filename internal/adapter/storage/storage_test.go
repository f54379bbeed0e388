package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/niksmo/product-explorer/internal/adapter/storage"
	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDSNEnv = "EXPLORER_TEST_DSN"

// setupDB connects to the database named by EXPLORER_TEST_DSN and
// recreates the schema. The test is skipped when the variable is unset.
func setupDB(t *testing.T) storage.SQLDB {
	t.Helper()

	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("Skipping test: %s is not set", testDSNEnv)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	db, err := storage.NewSQLDB(ctx, dsn)
	if err != nil {
		t.Skipf("Skipping test: %v", err)
	}
	t.Cleanup(db.Close)

	down, err := os.ReadFile("../../../migrations/000001_init.down.sql")
	require.NoError(t, err)
	up, err := os.ReadFile("../../../migrations/000001_init.up.sql")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, string(down))
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, string(up))
	require.NoError(t, err)
	return db
}

func TestProductsRepository(t *testing.T) {
	db := setupDB(t)
	repo := storage.NewProductsRepository(db)
	ctx := t.Context()

	mug := domain.Product{
		ID: "2", Name: "Mug", Category: "Kitchen", Price: 9.5, Rating: 4, Stock: 3,
	}
	lamp := domain.Product{
		ID: "1", Name: "Lamp", Description: "Desk lamp", Category: "Home",
		Price: 45, Rating: 4.2, Stock: 0, ImageURL: "https://example.com/lamp.png",
	}

	require.NoError(t, repo.StoreProducts(ctx, []domain.Product{mug, lamp}))

	ps, err := repo.FetchProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{mug, lamp}, ps)

	t.Run("UpsertKeepsPosition", func(t *testing.T) {
		mug.Price = 11
		require.NoError(t, repo.StoreProducts(ctx, []domain.Product{mug}))

		ps, err := repo.FetchProducts(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Product{mug, lamp}, ps)
	})

	t.Run("RollbackOnInvalid", func(t *testing.T) {
		bad := domain.Product{ID: "3", Name: "Bad", Price: -1}
		err := repo.StoreProducts(ctx, []domain.Product{
			{ID: "4", Name: "Ok", Rating: 1},
			bad,
		})
		require.Error(t, err)

		ps, err := repo.FetchProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, ps, 2)
	})
}

func TestStateRepository(t *testing.T) {
	db := setupDB(t)
	repo := storage.NewStateRepository(db)
	ctx := t.Context()

	_, ok, err := repo.Get(ctx, "s1:theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set(ctx, "s1:theme", []byte(`"light"`)))
	require.NoError(t, repo.Set(ctx, "s1:theme", []byte(`"dark"`)))

	v, ok, err := repo.Get(ctx, "s1:theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"dark"`, string(v))

	require.NoError(t, repo.Delete(ctx, "s1:theme"))
	_, ok, err = repo.Get(ctx, "s1:theme")
	require.NoError(t, err)
	assert.False(t, ok)
}
