package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/storage"
	"trend-hunter/internal/storage/postgres"
)

func TestAnalysisStore_InsertAndGetLatest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewAnalysisStore(pool)
	ctx := context.Background()

	analysis := &domain.TokenAnalysis{
		Mint:   "MintAddress123",
		Symbol: "TEST",
		Name:   "Test Coin",
		Scores: domain.Scores{
			Safety:       85,
			Fundamentals: 60,
			Momentum:     72,
			OnChain:      55,
			Sentiment:    40,
			Overall:      66.5,
		},
		Risks:          []string{"top holder owns 25.0% of supply"},
		Recommendation: domain.RecBuy,
		Confidence:     1.0,
		ScannedAt:      1700000000000,
	}

	err := store.Insert(ctx, analysis)
	require.NoError(t, err)

	retrieved, err := store.GetLatestByMint(ctx, "MintAddress123")
	require.NoError(t, err)

	assert.Equal(t, analysis.Mint, retrieved.Mint)
	assert.Equal(t, analysis.Symbol, retrieved.Symbol)
	assert.Equal(t, analysis.Scores, retrieved.Scores)
	assert.Equal(t, analysis.Risks, retrieved.Risks)
	assert.Equal(t, analysis.Recommendation, retrieved.Recommendation)
	assert.Equal(t, analysis.Confidence, retrieved.Confidence)
	assert.Equal(t, analysis.ScannedAt, retrieved.ScannedAt)
}

func TestAnalysisStore_LatestPicksNewestScan(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewAnalysisStore(pool)
	ctx := context.Background()

	scans := []*domain.TokenAnalysis{
		{Mint: "m1", Recommendation: domain.RecHold, ScannedAt: 1000},
		{Mint: "m1", Recommendation: domain.RecBuy, ScannedAt: 3000},
		{Mint: "m1", Recommendation: domain.RecSell, ScannedAt: 2000},
	}

	for _, a := range scans {
		require.NoError(t, store.Insert(ctx, a))
	}

	latest, err := store.GetLatestByMint(ctx, "m1")
	require.NoError(t, err)

	assert.Equal(t, int64(3000), latest.ScannedAt)
	assert.Equal(t, domain.RecBuy, latest.Recommendation)
}

func TestAnalysisStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewAnalysisStore(pool)
	ctx := context.Background()

	analysis := &domain.TokenAnalysis{
		Mint:           "m1",
		Recommendation: domain.RecHold,
		ScannedAt:      1000,
	}

	err := store.Insert(ctx, analysis)
	require.NoError(t, err)

	err = store.Insert(ctx, analysis)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAnalysisStore_GetLatestNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewAnalysisStore(pool)
	ctx := context.Background()

	_, err := store.GetLatestByMint(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAnalysisStore_GetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewAnalysisStore(pool)
	ctx := context.Background()

	scans := []*domain.TokenAnalysis{
		{Mint: "m1", Recommendation: domain.RecHold, ScannedAt: 2000},
		{Mint: "m1", Recommendation: domain.RecBuy, ScannedAt: 1000},
		{Mint: "m2", Recommendation: domain.RecAvoid, ScannedAt: 1500},
	}

	for _, a := range scans {
		require.NoError(t, store.Insert(ctx, a))
	}

	result, err := store.GetByMint(ctx, "m1")
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.Equal(t, int64(1000), result[0].ScannedAt)
	assert.Equal(t, int64(2000), result[1].ScannedAt)
}
