package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/helios/pkg/logger"
)

// Timing
const (
	PingInterval          = 30 * time.Second
	ReconnectInitialDelay = 1 * time.Second
	ReconnectMaxDelay     = 30 * time.Second
	MaxReconnectAttempts  = 10
)

// DefaultWSURL is the Finnhub trade stream endpoint
const DefaultWSURL = "wss://ws.finnhub.io"

// Trade is one live trade print
type Trade struct {
	Symbol     string
	Price      float64
	Volume     float64
	TradeTime  time.Time
	ReceivedAt time.Time
}

// Feed subscribes to the Finnhub trade stream and keeps the last
// print per symbol so analysis can use a fresher price than the daily
// close
// ⭐ SSOT: all realtime quote handling goes through this feed
type Feed struct {
	token  string
	wsURL  string
	logger *logger.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	connected bool

	subscriptions map[string]bool
	subMu         sync.RWMutex

	lastPrices map[string]Trade
	priceMu    sync.RWMutex

	onTrade func(Trade)
	onError func(error)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewFeed creates an unconnected feed. wsURL falls back to the
// production endpoint when empty.
func NewFeed(token, wsURL string, log *logger.Logger) *Feed {
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &Feed{
		token:         token,
		wsURL:         wsURL,
		logger:        log,
		subscriptions: make(map[string]bool),
		lastPrices:    make(map[string]Trade),
		stopCh:        make(chan struct{}),
	}
}

// Callback setters
func (f *Feed) OnTrade(fn func(Trade)) { f.onTrade = fn }
func (f *Feed) OnError(fn func(error)) { f.onError = fn }

// Connect establishes the websocket connection and starts the read
// and ping loops
func (f *Feed) Connect(ctx context.Context) error {
	if err := f.connect(ctx); err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}

	f.wg.Add(2)
	go f.readLoop()
	go f.pingLoop()

	f.logger.Info("Finnhub trade feed connected")
	return nil
}

func (f *Feed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, fmt.Sprintf("%s?token=%s", f.wsURL, f.token), nil)
	if err != nil {
		return err
	}

	f.conn = conn
	f.connected = true
	return nil
}

// Disconnect closes the connection and waits for the loops to exit
func (f *Feed) Disconnect() error {
	close(f.stopCh)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.connected = false
	}
	f.connMu.Unlock()

	f.wg.Wait()
	f.logger.Info("Finnhub trade feed disconnected")
	return nil
}

// IsConnected returns connection status
func (f *Feed) IsConnected() bool {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	return f.connected
}

// Subscribe starts trade streaming for symbols
func (f *Feed) Subscribe(symbols ...string) error {
	f.subMu.Lock()
	defer f.subMu.Unlock()

	for _, symbol := range symbols {
		if f.subscriptions[symbol] {
			continue
		}
		if err := f.send(controlMessage{Type: "subscribe", Symbol: symbol}); err != nil {
			return fmt.Errorf("subscribe %s: %w", symbol, err)
		}
		f.subscriptions[symbol] = true
		f.logger.WithField("symbol", symbol).Debug("Subscribed to trade stream")
	}
	return nil
}

// Unsubscribe stops trade streaming for symbols
func (f *Feed) Unsubscribe(symbols ...string) error {
	f.subMu.Lock()
	defer f.subMu.Unlock()

	for _, symbol := range symbols {
		if !f.subscriptions[symbol] {
			continue
		}
		if err := f.send(controlMessage{Type: "unsubscribe", Symbol: symbol}); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", symbol, err)
		}
		delete(f.subscriptions, symbol)
	}
	return nil
}

// LastPrice returns the most recent trade print for a symbol
func (f *Feed) LastPrice(symbol string) (Trade, bool) {
	f.priceMu.RLock()
	defer f.priceMu.RUnlock()

	trade, ok := f.lastPrices[symbol]
	return trade, ok
}

// FreshPrice returns the last print only when it is newer than maxAge
func (f *Feed) FreshPrice(symbol string, maxAge time.Duration) (float64, bool) {
	trade, ok := f.LastPrice(symbol)
	if !ok || time.Since(trade.ReceivedAt) > maxAge {
		return 0, false
	}
	return trade.Price, true
}

func (f *Feed) send(msg controlMessage) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	if f.conn == nil {
		return fmt.Errorf("not connected")
	}
	return f.conn.WriteJSON(msg)
}

// readLoop handles incoming messages
func (f *Feed) readLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if f.onError != nil {
				f.onError(fmt.Errorf("read error: %w", err))
			}
			f.handleDisconnect()
			return
		}

		f.handleMessage(message)
	}
}

// handleMessage processes one stream message. Finnhub sends
// {"type":"trade","data":[{s,p,t,v}...]} plus ping and error frames.
func (f *Feed) handleMessage(data []byte) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "ping":
		f.connMu.Lock()
		if f.conn != nil {
			f.conn.WriteJSON(controlMessage{Type: "pong"})
		}
		f.connMu.Unlock()

	case "trade":
		now := time.Now()
		trades := make([]Trade, 0, len(msg.Data))

		f.priceMu.Lock()
		for _, t := range msg.Data {
			if t.Symbol == "" || t.Price <= 0 {
				continue
			}
			trade := Trade{
				Symbol:     t.Symbol,
				Price:      t.Price,
				Volume:     t.Volume,
				TradeTime:  time.UnixMilli(t.Timestamp),
				ReceivedAt: now,
			}
			f.lastPrices[t.Symbol] = trade
			trades = append(trades, trade)
		}
		f.priceMu.Unlock()

		if f.onTrade != nil {
			for _, trade := range trades {
				f.onTrade(trade)
			}
		}

	case "error":
		if f.onError != nil {
			f.onError(fmt.Errorf("stream error: %s", msg.Msg))
		}
	}
}

// pingLoop keeps the connection alive
func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.connMu.Unlock()
					if f.onError != nil {
						f.onError(fmt.Errorf("ping error: %w", err))
					}
					f.handleDisconnect()
					return
				}
			}
			f.connMu.Unlock()
		}
	}
}

func (f *Feed) handleDisconnect() {
	f.connMu.Lock()
	f.connected = false
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()
}

// Reconnect retries the connection with backoff and restores
// subscriptions
func (f *Feed) Reconnect(ctx context.Context) error {
	delay := ReconnectInitialDelay

	for attempt := 1; attempt <= MaxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		f.logger.WithField("attempt", attempt).Info("Attempting feed reconnection")

		if err := f.connect(ctx); err != nil {
			delay *= 2
			if delay > ReconnectMaxDelay {
				delay = ReconnectMaxDelay
			}
			continue
		}

		f.subMu.Lock()
		symbols := make([]string, 0, len(f.subscriptions))
		for symbol := range f.subscriptions {
			symbols = append(symbols, symbol)
		}
		f.subscriptions = make(map[string]bool)
		f.subMu.Unlock()

		if err := f.Subscribe(symbols...); err != nil {
			f.logger.WithError(err).Warn("Resubscribe after reconnect failed")
		}

		f.stopCh = make(chan struct{})
		f.wg.Add(2)
		go f.readLoop()
		go f.pingLoop()

		f.logger.Info("Feed reconnected")
		return nil
	}

	return fmt.Errorf("max reconnect attempts reached")
}

// Wire types
type controlMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol,omitempty"`
}

type streamMessage struct {
	Type string `json:"type"`
	Msg  string `json:"msg,omitempty"`
	Data []struct {
		Symbol    string  `json:"s"`
		Price     float64 `json:"p"`
		Timestamp int64   `json:"t"`
		Volume    float64 `json:"v"`
	} `json:"data,omitempty"`
}
