package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/observability"
	"trend-hunter/internal/storage"
)

// AnalysisStore implements storage.AnalysisStore using PostgreSQL.
//
// Evidence bundles are not persisted; the table keeps the scored result only.
type AnalysisStore struct {
	pool    *Pool
	metrics *observability.Metrics
}

// NewAnalysisStore creates a new AnalysisStore.
func NewAnalysisStore(pool *Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

// WithMetrics attaches query instrumentation. Returns the store for chaining.
func (s *AnalysisStore) WithMetrics(m *observability.Metrics) *AnalysisStore {
	s.metrics = m
	return s
}

// Compile-time interface check.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)

const analysisColumns = `
	mint, symbol, name,
	safety_score, fundamentals_score, momentum_score, onchain_score, sentiment_score, overall_score,
	risks, recommendation, confidence, scanned_at
`

// Insert adds a new analysis. Returns ErrDuplicateKey if (mint, scanned_at) exists.
func (s *AnalysisStore) Insert(ctx context.Context, a *domain.TokenAnalysis) (err error) {
	defer observeQuery(s.metrics, "insert_analysis", time.Now(), &err)

	if a == nil || a.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_analyses (` + analysisColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.pool.Exec(ctx, query,
		a.Mint,
		a.Symbol,
		a.Name,
		a.Scores.Safety,
		a.Scores.Fundamentals,
		a.Scores.Momentum,
		a.Scores.OnChain,
		a.Scores.Sentiment,
		a.Scores.Overall,
		a.Risks,
		string(a.Recommendation),
		a.Confidence,
		a.ScannedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// GetLatestByMint retrieves the most recent analysis for a mint.
// Returns ErrNotFound if the mint has never been scanned.
func (s *AnalysisStore) GetLatestByMint(ctx context.Context, mint string) (_ *domain.TokenAnalysis, err error) {
	defer observeQuery(s.metrics, "get_latest_analysis", time.Now(), &err)

	query := `
		SELECT ` + analysisColumns + `
		FROM token_analyses
		WHERE mint = $1
		ORDER BY scanned_at DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, mint)
	a, err := scanAnalysis(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest analysis: %w", err)
	}
	return a, nil
}

// GetByMint retrieves all analyses for a mint, ordered by scanned_at ASC.
func (s *AnalysisStore) GetByMint(ctx context.Context, mint string) (_ []*domain.TokenAnalysis, err error) {
	defer observeQuery(s.metrics, "get_analyses_by_mint", time.Now(), &err)

	query := `
		SELECT ` + analysisColumns + `
		FROM token_analyses
		WHERE mint = $1
		ORDER BY scanned_at ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get analyses by mint: %w", err)
	}
	defer rows.Close()

	var analyses []*domain.TokenAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		analyses = append(analyses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analysis rows: %w", err)
	}

	return analyses, nil
}

// scanAnalysis scans a single row into a TokenAnalysis.
func scanAnalysis(row pgx.Row) (*domain.TokenAnalysis, error) {
	var a domain.TokenAnalysis
	var recommendationStr string

	err := row.Scan(
		&a.Mint,
		&a.Symbol,
		&a.Name,
		&a.Scores.Safety,
		&a.Scores.Fundamentals,
		&a.Scores.Momentum,
		&a.Scores.OnChain,
		&a.Scores.Sentiment,
		&a.Scores.Overall,
		&a.Risks,
		&recommendationStr,
		&a.Confidence,
		&a.ScannedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Recommendation = domain.Recommendation(recommendationStr)
	return &a, nil
}
