package memory

import (
	"context"
	"errors"
	"testing"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/storage"
)

func TestAnalysisStore_InsertAndGetLatest(t *testing.T) {
	store := NewAnalysisStore()
	ctx := context.Background()

	analyses := []*domain.TokenAnalysis{
		{Mint: "mint1", Symbol: "TKN", Recommendation: domain.RecHold, ScannedAt: 1000},
		{Mint: "mint1", Symbol: "TKN", Recommendation: domain.RecBuy, ScannedAt: 3000},
		{Mint: "mint1", Symbol: "TKN", Recommendation: domain.RecSell, ScannedAt: 2000},
	}

	for _, a := range analyses {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetLatestByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetLatestByMint failed: %v", err)
	}

	if got.ScannedAt != 3000 {
		t.Errorf("Expected latest scanned_at=3000, got %d", got.ScannedAt)
	}
	if got.Recommendation != domain.RecBuy {
		t.Errorf("Expected BUY recommendation, got %s", got.Recommendation)
	}
}

func TestAnalysisStore_DuplicateKey(t *testing.T) {
	store := NewAnalysisStore()
	ctx := context.Background()

	a := &domain.TokenAnalysis{Mint: "mint1", ScannedAt: 1000}

	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, a)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestAnalysisStore_NotFound(t *testing.T) {
	store := NewAnalysisStore()
	ctx := context.Background()

	_, err := store.GetLatestByMint(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAnalysisStore_GetByMint(t *testing.T) {
	store := NewAnalysisStore()
	ctx := context.Background()

	analyses := []*domain.TokenAnalysis{
		{Mint: "mint1", ScannedAt: 3000},
		{Mint: "mint1", ScannedAt: 1000},
		{Mint: "mint2", ScannedAt: 2000},
	}

	for _, a := range analyses {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(result))
	}

	// Verify order
	if result[0].ScannedAt != 1000 || result[1].ScannedAt != 3000 {
		t.Errorf("Results not ordered by scanned_at ASC: %d, %d", result[0].ScannedAt, result[1].ScannedAt)
	}
}

func TestAnalysisStore_CopyIsolation(t *testing.T) {
	store := NewAnalysisStore()
	ctx := context.Background()

	a := &domain.TokenAnalysis{
		Mint:      "mint1",
		Risks:     []string{"low liquidity"},
		ScannedAt: 1000,
		Evidence: domain.Evidence{
			Safety: &domain.SafetyReport{Score: 80, Risks: []string{"top holder"}},
		},
	}

	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	a.Risks[0] = "tampered"
	a.Evidence.Safety.Score = 0

	got, err := store.GetLatestByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetLatestByMint failed: %v", err)
	}

	if got.Risks[0] != "low liquidity" {
		t.Errorf("Stored risks mutated: got %s", got.Risks[0])
	}
	if got.Evidence.Safety.Score != 80 {
		t.Errorf("Stored evidence mutated: got %v", got.Evidence.Safety.Score)
	}
}

func TestAnalysisStore_InvalidInput(t *testing.T) {
	store := NewAnalysisStore()
	ctx := context.Background()

	err := store.Insert(ctx, nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}

	err = store.Insert(ctx, &domain.TokenAnalysis{Mint: ""})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty mint, got %v", err)
	}
}
