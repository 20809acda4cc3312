// Package stream implements the near-real-time provider: a WebSocket
// subscriber that keeps an in-memory window of recent points per
// (entity, indicator) and serves Fetch from that window. The read loop is
// owned by the application server, never spawned by the data service.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"macropull/internal/domain/models"
	applogger "macropull/pkg/logger"
)

const providerName = "stream"

// Option configures the provider.
type Option func(*Provider)

// WithWindowSize bounds how many points are kept per key.
func WithWindowSize(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.windowSize = n
		}
	}
}

// WithLogger sets the read-loop logger.
func WithLogger(l *applogger.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// Provider holds the feed connection and the per-key point windows.
type Provider struct {
	url            string
	token          string
	indicators     []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	windowSize     int
	logger         *applogger.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	windows   map[string][]models.DataPoint
}

// New creates the provider for the configured feed URL and indicator set.
func New(url, token string, indicators []string, reconnectDelay, pingInterval time.Duration, opts ...Option) (*Provider, error) {
	if url == "" {
		return nil, fmt.Errorf("stream: feed URL is required")
	}
	if len(indicators) == 0 {
		return nil, fmt.Errorf("stream: at least one indicator is required")
	}

	p := &Provider{
		url:            url,
		token:          token,
		indicators:     append([]string(nil), indicators...),
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		windowSize:     512,
		windows:        make(map[string][]models.DataPoint),
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Indicators() []string {
	out := make([]string, len(p.indicators))
	copy(out, p.indicators)
	return out
}

// Validate checks the indicator is part of the subscription set.
func (p *Provider) Validate(req models.DataRequest) error {
	for _, indicator := range p.indicators {
		if indicator == req.Indicator {
			return nil
		}
	}
	return fmt.Errorf("%w: stream is not subscribed to indicator %q", models.ErrInvalid, req.Indicator)
}

// Fetch serves from the in-memory window. No I/O: the window is filled by
// the read loop.
func (p *Provider) Fetch(_ context.Context, req models.DataRequest) (*models.TimeSeries, error) {
	p.mu.RLock()
	window := p.windows[req.Key()]
	points := make([]models.DataPoint, len(window))
	copy(points, window)
	p.mu.RUnlock()

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: stream window holds no points for %s/%s", models.ErrNotFound, req.Entity, req.Indicator)
	}

	return models.NewTimeSeries(req.Entity, req.Indicator, providerName, points), nil
}

// Connect establishes the WebSocket connection.
func (p *Provider) Connect(ctx context.Context) error {
	u := p.url
	if p.token != "" {
		u = fmt.Sprintf("%s?token=%s", p.url, p.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.connected = true
	p.mu.Unlock()
	return nil
}

// Subscribe asks the feed for the configured indicators.
func (p *Provider) Subscribe(ctx context.Context) error {
	p.mu.RLock()
	conn, connected := p.conn, p.connected
	p.mu.RUnlock()
	if conn == nil || !connected {
		return fmt.Errorf("stream not connected")
	}
	for _, indicator := range p.indicators {
		msg := map[string]string{"type": "subscribe", "indicator": indicator}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", indicator, err)
		}
	}
	return nil
}

type feedPoint struct {
	Type      string  `json:"type"`
	Entity    string  `json:"entity"`
	Indicator string  `json:"indicator"`
	Timestamp int64   `json:"timestamp"` // unix seconds
	Value     float64 `json:"value"`
	Quality   string  `json:"quality"`
	Unit      string  `json:"unit"`
}

// Run drives the ping and read loops until the context ends. Reconnects
// with the configured delay on read failure.
func (p *Provider) Run(ctx context.Context) error {
	go p.pingLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.readOnce(); err != nil {
			p.logWarn("stream read failed", applogger.Error(err))
			if err := p.Reconnect(ctx); err != nil {
				p.logWarn("stream reconnect failed", applogger.Error(err))
				select {
				case <-time.After(p.reconnectDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

func (p *Provider) readOnce() error {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("stream conn nil")
	}

	_, b, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("stream read: %w", err)
	}

	var msg feedPoint
	if err := json.Unmarshal(b, &msg); err != nil {
		// ignore non-point frames
		return nil
	}
	if msg.Type != "point" || msg.Entity == "" || msg.Indicator == "" {
		return nil
	}

	p.Ingest(msg.Entity, msg.Indicator, models.DataPoint{
		Timestamp: time.Unix(msg.Timestamp, 0).UTC(),
		Value:     msg.Value,
		Quality:   models.ParseQuality(msg.Quality),
		Unit:      msg.Unit,
	})
	return nil
}

// Ingest adds one point to the key's window, keeping it sorted and bounded.
// Exported for the read loop and for tests feeding the window directly.
func (p *Provider) Ingest(entity, indicator string, point models.DataPoint) {
	key := models.DataRequest{Entity: entity, Indicator: indicator}.Key()

	p.mu.Lock()
	defer p.mu.Unlock()

	window := append(p.windows[key], point)
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Timestamp.Before(window[j].Timestamp)
	})
	if len(window) > p.windowSize {
		window = window[len(window)-p.windowSize:]
	}
	p.windows[key] = window
}

func (p *Provider) pingLoop(ctx context.Context) {
	if p.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(p.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.RLock()
			conn := p.conn
			p.mu.RUnlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

// Reconnect closes and re-establishes the connection and subscriptions.
func (p *Provider) Reconnect(ctx context.Context) error {
	_ = p.Close()
	select {
	case <-time.After(p.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := p.Connect(ctx); err != nil {
		return err
	}
	return p.Subscribe(ctx)
}

// Close closes the connection.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// IsConnected reports connection status.
func (p *Provider) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *Provider) logWarn(msg string, fields ...applogger.Field) {
	if p.logger != nil {
		p.logger.Warn(msg, fields...)
	}
}
