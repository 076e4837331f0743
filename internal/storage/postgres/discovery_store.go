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

// DiscoveryStore implements storage.DiscoveryStore using PostgreSQL.
type DiscoveryStore struct {
	pool    *Pool
	metrics *observability.Metrics
}

// NewDiscoveryStore creates a new DiscoveryStore.
func NewDiscoveryStore(pool *Pool) *DiscoveryStore {
	return &DiscoveryStore{pool: pool}
}

// WithMetrics attaches query instrumentation. Returns the store for chaining.
func (s *DiscoveryStore) WithMetrics(m *observability.Metrics) *DiscoveryStore {
	s.metrics = m
	return s
}

// Compile-time interface check.
var _ storage.DiscoveryStore = (*DiscoveryStore)(nil)

const discoveryColumns = `
	fingerprint, source, source_id, source_url, title, description, author,
	published_at, metrics, category, tags,
	mentions_solana, mentions_memecoin, recent, high_engagement, trusted_source,
	raw_metadata, discovered_at
`

// Insert adds a new discovery. Returns ErrDuplicateKey if fingerprint exists.
func (s *DiscoveryStore) Insert(ctx context.Context, d *domain.Discovery) (err error) {
	defer observeQuery(s.metrics, "insert_discovery", time.Now(), &err)

	if d == nil || d.Fingerprint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO discoveries (` + discoveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = s.pool.Exec(ctx, query,
		d.Fingerprint,
		d.Source,
		d.SourceID,
		d.SourceURL,
		d.Title,
		d.Description,
		d.Author,
		d.PublishedAt,
		d.Metrics,
		string(d.Category),
		d.Tags,
		d.Relevance.MentionsSolana,
		d.Relevance.MentionsMemecoin,
		d.Relevance.Recent,
		d.Relevance.HighEngagement,
		d.Relevance.TrustedSource,
		d.RawMetadata,
		d.DiscoveredAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert discovery: %w", err)
	}
	return nil
}

// GetByFingerprint retrieves a discovery. Returns ErrNotFound if not exists.
func (s *DiscoveryStore) GetByFingerprint(ctx context.Context, fingerprint string) (_ *domain.Discovery, err error) {
	defer observeQuery(s.metrics, "get_discovery", time.Now(), &err)

	query := `
		SELECT ` + discoveryColumns + `
		FROM discoveries
		WHERE fingerprint = $1
	`

	row := s.pool.QueryRow(ctx, query, fingerprint)
	d, err := scanDiscovery(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get discovery by fingerprint: %w", err)
	}
	return d, nil
}

// GetBySource retrieves all discoveries from a given source.
func (s *DiscoveryStore) GetBySource(ctx context.Context, source string) (_ []*domain.Discovery, err error) {
	defer observeQuery(s.metrics, "get_discoveries_by_source", time.Now(), &err)

	query := `
		SELECT ` + discoveryColumns + `
		FROM discoveries
		WHERE source = $1
		ORDER BY discovered_at ASC, fingerprint ASC
	`

	rows, err := s.pool.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("get discoveries by source: %w", err)
	}
	defer rows.Close()

	return scanDiscoveries(rows)
}

// GetByTimeRange retrieves discoveries observed within [start, end] (inclusive).
func (s *DiscoveryStore) GetByTimeRange(ctx context.Context, start, end int64) (_ []*domain.Discovery, err error) {
	defer observeQuery(s.metrics, "get_discoveries_by_time_range", time.Now(), &err)

	query := `
		SELECT ` + discoveryColumns + `
		FROM discoveries
		WHERE discovered_at >= $1 AND discovered_at <= $2
		ORDER BY discovered_at ASC, fingerprint ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get discoveries by time range: %w", err)
	}
	defer rows.Close()

	return scanDiscoveries(rows)
}

// scanDiscovery scans a single row into a Discovery.
func scanDiscovery(row pgx.Row) (*domain.Discovery, error) {
	var d domain.Discovery
	var categoryStr string

	err := row.Scan(
		&d.Fingerprint,
		&d.Source,
		&d.SourceID,
		&d.SourceURL,
		&d.Title,
		&d.Description,
		&d.Author,
		&d.PublishedAt,
		&d.Metrics,
		&categoryStr,
		&d.Tags,
		&d.Relevance.MentionsSolana,
		&d.Relevance.MentionsMemecoin,
		&d.Relevance.Recent,
		&d.Relevance.HighEngagement,
		&d.Relevance.TrustedSource,
		&d.RawMetadata,
		&d.DiscoveredAt,
	)
	if err != nil {
		return nil, err
	}

	d.Category = domain.Category(categoryStr)
	return &d, nil
}

// scanDiscoveries scans multiple rows into a slice of Discovery.
func scanDiscoveries(rows pgx.Rows) ([]*domain.Discovery, error) {
	var discoveries []*domain.Discovery

	for rows.Next() {
		d, err := scanDiscovery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discovery row: %w", err)
		}
		discoveries = append(discoveries, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discovery rows: %w", err)
	}

	return discoveries, nil
}
