package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// feedMessage is one streamed price update.
type feedMessage struct {
	Type   string  `json:"type"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// ReferenceFeed streams reference prices over a WebSocket connection. It
// plugs into BaseWSWorker for connection lifecycle and exposes the same
// Price() surface as the polling client.
type ReferenceFeed struct {
	url    string
	symbol string

	mu    sync.RWMutex
	price decimal.Decimal
	known bool

	worker *BaseWSWorker
}

// NewReferenceFeed creates a feed for one symbol. symbol may be empty when
// the endpoint streams a single instrument.
func NewReferenceFeed(url, symbol string) *ReferenceFeed {
	f := &ReferenceFeed{url: url, symbol: symbol}
	f.worker = NewBaseWSWorker(f)
	return f
}

// Start begins the connection loop.
func (f *ReferenceFeed) Start(ctx context.Context) {
	f.worker.Start(ctx)
}

// Stop terminates the feed.
func (f *ReferenceFeed) Stop() {
	f.worker.Stop()
}

// Price returns the last streamed price and whether one is known yet.
func (f *ReferenceFeed) Price() (decimal.Decimal, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.price, f.known
}

func (f *ReferenceFeed) GetURL() string { return f.url }

func (f *ReferenceFeed) ID() string {
	if f.symbol == "" {
		return "reference-feed"
	}
	return "reference-feed-" + f.symbol
}

// OnConnect subscribes to the price channel.
func (f *ReferenceFeed) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	if f.symbol == "" {
		return nil
	}
	sub := map[string]string{"op": "subscribe", "symbol": f.symbol}
	payload, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// OnMessage parses a streamed update. Malformed or non-price messages are
// dropped.
func (f *ReferenceFeed) OnMessage(ctx context.Context, msg []byte) {
	var m feedMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		slog.Debug("Reference feed message dropped", slog.Any("error", err))
		return
	}
	if m.Price <= 0 {
		return
	}
	if f.symbol != "" && m.Symbol != "" && m.Symbol != f.symbol {
		return
	}

	newPrice := decimal.NewFromFloat(m.Price)

	f.mu.Lock()
	changed := !f.price.Equal(newPrice)
	f.price = newPrice
	f.known = true
	f.mu.Unlock()

	if changed {
		slog.Debug("Reference feed price updated", slog.String("price", newPrice.String()))
	}
}

// OnPing keeps the connection alive.
func (f *ReferenceFeed) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteMessage(websocket.PingMessage, nil)
}
