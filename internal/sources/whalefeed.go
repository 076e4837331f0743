package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/idhash"
	"trend-hunter/internal/solana"
	"trend-hunter/internal/source"
)

const (
	// WhaleFeedSourceID is the registry id of the whale transfer source.
	WhaleFeedSourceID = "whalefeed"

	// whaleEventBuffer bounds how many streamed events queue between hunts.
	whaleEventBuffer = 1000
)

// WhaleFeedConfig configures the streaming connection.
type WhaleFeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWhaleFeedConfig returns the default streaming configuration.
func DefaultWhaleFeedConfig() WhaleFeedConfig {
	return WhaleFeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// whaleEvent is the wire format of one streamed transfer.
type whaleEvent struct {
	Signature string  `json:"signature"`
	Mint      string  `json:"mint"`
	Symbol    string  `json:"symbol"`
	AmountUSD float64 `json:"amount_usd"`
	Side      string  `json:"side"` // "buy", "sell", or "" for plain transfers
	Wallet    string  `json:"wallet"`
	Timestamp int64   `json:"timestamp"` // Unix ms
}

// WhaleFeedSource streams large-transfer events over a websocket and surfaces
// whatever accumulated since the previous hunt. Hunt never blocks on the
// stream; an idle feed yields an empty batch.
type WhaleFeedSource struct {
	endpoint string
	config   WhaleFeedConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	events chan whaleEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

// WhaleFeedOptions configures WhaleFeedSource.
type WhaleFeedOptions struct {
	Endpoint string           // required, ws:// or wss://
	Config   *WhaleFeedConfig // nil means DefaultWhaleFeedConfig
	Logger   *log.Logger
}

// NewWhaleFeedSource creates a whale feed source. The stream is not opened
// until Start is called.
func NewWhaleFeedSource(opts WhaleFeedOptions) *WhaleFeedSource {
	cfg := DefaultWhaleFeedConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &WhaleFeedSource{
		endpoint: opts.Endpoint,
		config:   cfg,
		logger:   logger,
		events:   make(chan whaleEvent, whaleEventBuffer),
		done:     make(chan struct{}),
	}
}

// Compile-time interface check.
var _ source.Source = (*WhaleFeedSource)(nil)

// ID returns the registry id.
func (s *WhaleFeedSource) ID() string {
	return WhaleFeedSourceID
}

// Start opens the stream and launches the reader and ping goroutines.
func (s *WhaleFeedSource) Start(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()
	return nil
}

// Close shuts the stream down. Safe to call more than once.
func (s *WhaleFeedSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

// Hunt drains the events buffered since the previous hunt.
func (s *WhaleFeedSource) Hunt(_ context.Context) ([]source.RawRecord, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("whale feed closed")
	}

	var records []source.RawRecord
	for {
		select {
		case ev := <-s.events:
			records = append(records, &ev)
		default:
			return records, nil
		}
	}
}

// Transform normalizes one transfer event into a whale discovery.
func (s *WhaleFeedSource) Transform(raw source.RawRecord) (*domain.Discovery, error) {
	ev, ok := raw.(*whaleEvent)
	if !ok || ev.Signature == "" {
		return nil, source.ErrMalformedRecord
	}

	meta := map[string]string{
		"wallet": ev.Wallet,
		"symbol": ev.Symbol,
	}
	if ev.Side != "" {
		meta["side"] = ev.Side
	}
	// Only a verifiable token address routes the event toward scoring.
	if ev.Mint != "" && solana.ValidateAddress(ev.Mint) == nil {
		meta["mint"] = ev.Mint
	}

	tags := []string{"whale", "transfer"}
	// An off-curve counterparty is a program derived address (pool, vault),
	// not a trader wallet; the classifier weighs the two differently.
	if ev.Wallet != "" {
		if onCurve, err := solana.IsOnCurve(ev.Wallet); err == nil {
			kind := "program"
			if onCurve {
				kind = "wallet"
			}
			meta["wallet_kind"] = kind
			tags = append(tags, kind)
		}
	}

	title := fmt.Sprintf("Whale transfer: $%.0f", ev.AmountUSD)
	if ev.Symbol != "" {
		title = fmt.Sprintf("Whale transfer: $%.0f of %s", ev.AmountUSD, ev.Symbol)
	}

	return &domain.Discovery{
		Fingerprint: idhash.ComputeFingerprint(WhaleFeedSourceID, ev.Signature),
		Source:      WhaleFeedSourceID,
		SourceID:    ev.Signature,
		Title:       title,
		Author:      ev.Wallet,
		PublishedAt: ev.Timestamp,
		Metrics: map[string]float64{
			"amount_usd": ev.AmountUSD,
		},
		Category: domain.CategoryWhale,
		Tags:     tags,
		Relevance: domain.RelevanceFactors{
			MentionsSolana: true,
			Recent:         true,
			HighEngagement: ev.AmountUSD >= 250_000,
		},
		RawMetadata: meta,
	}, nil
}

// connect establishes the websocket connection.
func (s *WhaleFeedSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// readLoop reads events and buffers them, reconnecting with exponential
// backoff on transport errors.
func (s *WhaleFeedSource) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.waitAndReconnect(reconnectDelay) {
				return
			}
			reconnectDelay = nextDelay(reconnectDelay, s.config.MaxReconnectDelay)
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Printf("[whalefeed] read error: %v", err)

			s.connMu.Lock()
			s.conn.Close()
			s.conn = nil
			s.connMu.Unlock()

			if !s.waitAndReconnect(reconnectDelay) {
				return
			}
			reconnectDelay = nextDelay(reconnectDelay, s.config.MaxReconnectDelay)
			continue
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// waitAndReconnect sleeps then redials. Returns false on shutdown.
func (s *WhaleFeedSource) waitAndReconnect(delay time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		s.logger.Printf("[whalefeed] reconnect failed: %v", err)
	}
	return true
}

func nextDelay(delay, max time.Duration) time.Duration {
	delay *= 2
	if delay > max {
		delay = max
	}
	return delay
}

// handleMessage parses and buffers one streamed event. When the buffer is
// full the event is dropped; a hunt that lagged a full buffer behind the
// stream has already lost timeliness.
func (s *WhaleFeedSource) handleMessage(message []byte) {
	var ev whaleEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		s.logger.Printf("[whalefeed] malformed event: %v", err)
		return
	}
	if ev.Signature == "" {
		return
	}

	select {
	case s.events <- ev:
	default:
		s.logger.Printf("[whalefeed] buffer full, dropping event %s", ev.Signature)
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *WhaleFeedSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Reader will notice the dead connection and redial
				}
			}
			s.connMu.Unlock()
		}
	}
}
