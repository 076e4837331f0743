package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/observability"
	"trend-hunter/internal/storage"
)

// SignalHistoryStore implements storage.SignalHistoryStore using ClickHouse.
//
// signal_history is an append-only MergeTree table; duplicates are acceptable
// because the dedup cache already suppresses re-emission upstream.
type SignalHistoryStore struct {
	conn    *Conn
	metrics *observability.Metrics
}

// NewSignalHistoryStore creates a new SignalHistoryStore.
func NewSignalHistoryStore(conn *Conn) *SignalHistoryStore {
	return &SignalHistoryStore{conn: conn}
}

// WithMetrics attaches query instrumentation. Returns the store for chaining.
func (s *SignalHistoryStore) WithMetrics(m *observability.Metrics) *SignalHistoryStore {
	s.metrics = m
	return s
}

// observeQuery records duration and failure for one store call. A miss is an
// expected outcome, not a query error.
func (s *SignalHistoryStore) observeQuery(op string, start time.Time, errp *error) {
	err := *errp
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	s.metrics.RecordDBQuery("clickhouse", op, time.Since(start).Seconds(), err)
}

// Compile-time interface check.
var _ storage.SignalHistoryStore = (*SignalHistoryStore)(nil)

// InsertBulk appends a batch of classified signals.
func (s *SignalHistoryStore) InsertBulk(ctx context.Context, signals []*domain.Signal) (err error) {
	defer s.observeQuery("insert_signals", time.Now(), &err)

	if len(signals) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO signal_history (
			signal_type, action, confidence, urgency, risk, reasoning,
			fingerprint, source, title, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sig := range signals {
		err = batch.Append(
			string(sig.Type), string(sig.Action), sig.Confidence,
			string(sig.Urgency), string(sig.Risk), sig.Reasoning,
			sig.Fingerprint, sig.Source, sig.Title, uint64(sig.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves signals created within [start, end] (inclusive).
func (s *SignalHistoryStore) GetByTimeRange(ctx context.Context, start, end int64) (_ []*domain.Signal, err error) {
	defer s.observeQuery("get_signals_by_time_range", time.Now(), &err)

	query := `
		SELECT signal_type, action, confidence, urgency, risk, reasoning,
		       fingerprint, source, title, created_at
		FROM signal_history
		WHERE created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetByType retrieves all signals of one source family, ordered by created_at ASC.
func (s *SignalHistoryStore) GetByType(ctx context.Context, t domain.SignalType) (_ []*domain.Signal, err error) {
	defer s.observeQuery("get_signals_by_type", time.Now(), &err)

	query := `
		SELECT signal_type, action, confidence, urgency, risk, reasoning,
		       fingerprint, source, title, created_at
		FROM signal_history
		WHERE signal_type = ?
		ORDER BY created_at ASC
	`

	rows, err := s.conn.Query(ctx, query, string(t))
	if err != nil {
		return nil, fmt.Errorf("query by type: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanSignals scans multiple rows into a slice of Signal.
func scanSignals(rows chRows) ([]*domain.Signal, error) {
	var signals []*domain.Signal

	for rows.Next() {
		var sig domain.Signal
		var typeStr, actionStr, urgencyStr, riskStr string
		var createdAt uint64

		err := rows.Scan(
			&typeStr, &actionStr, &sig.Confidence,
			&urgencyStr, &riskStr, &sig.Reasoning,
			&sig.Fingerprint, &sig.Source, &sig.Title, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}

		sig.Type = domain.SignalType(typeStr)
		sig.Action = domain.Action(actionStr)
		sig.Urgency = domain.Urgency(urgencyStr)
		sig.Risk = domain.Risk(riskStr)
		sig.CreatedAt = int64(createdAt)
		signals = append(signals, &sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
