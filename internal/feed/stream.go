package feed

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	readDeadline = 60 * time.Second
	pingInterval = 25 * time.Second
	dialTimeout  = 10 * time.Second
)

// runStream dials a websocket, sends the subscribe payload, and feeds every
// inbound frame to onMsg until the transport errors or ctx is cancelled. The
// connection is closed before returning, so the next chain link never
// overlaps with this one.
func runStream(ctx context.Context, wsURL string, subscribe any, onMsg func([]byte), logger zerolog.Logger, events chan<- Event, name string) error {
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dctx, wsURL, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	if subscribe != nil {
		if err := conn.WriteJSON(subscribe); err != nil {
			return err
		}
	}

	logger.Info().Str("url", wsURL).Msg("stream connected")
	send(events, noticeEvent(name+" connected"))

	return readLoop(ctx, conn, onMsg)
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
			onMsg(payload)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

// BinanceStream is the primary live link: the miniTicker stream for one
// pair.
type BinanceStream struct {
	wsURL  string
	pair   string
	logger zerolog.Logger
}

// NewBinanceStream builds the primary stream link.
func NewBinanceStream(wsURL, pair string, logger zerolog.Logger) *BinanceStream {
	return &BinanceStream{
		wsURL:  strings.TrimRight(wsURL, "/"),
		pair:   strings.ToUpper(pair),
		logger: logger.With().Str("component", "feed_binance_ws").Logger(),
	}
}

// Name identifies the link.
func (s *BinanceStream) Name() string { return "binance-ws" }

type binanceMiniTicker struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// Run subscribes to the miniTicker stream and pushes validated ticks.
func (s *BinanceStream) Run(ctx context.Context, events chan<- Event) error {
	subscribe := map[string]any{
		"method": "SUBSCRIBE",
		"params": []string{strings.ToLower(s.pair) + "@miniTicker"},
		"id":     1,
	}

	return runStream(ctx, s.wsURL, subscribe, func(payload []byte) {
		var msg binanceMiniTicker
		if err := json.Unmarshal(payload, &msg); err != nil {
			return
		}
		if !strings.EqualFold(msg.Symbol, s.pair) {
			return
		}
		price, err := decimal.NewFromString(strings.TrimSpace(msg.Close))
		if err != nil || price.Sign() <= 0 {
			return
		}
		send(events, tickEvent(s.Name(), price))
	}, s.logger, events, s.Name())
}

// CoinbaseStream is the secondary live link: the Coinbase Exchange ticker
// channel for one product.
type CoinbaseStream struct {
	wsURL   string
	product string
	logger  zerolog.Logger
}

// NewCoinbaseStream builds the secondary stream link. product is the
// exchange product id, e.g. "ETH-USD".
func NewCoinbaseStream(wsURL, product string, logger zerolog.Logger) *CoinbaseStream {
	return &CoinbaseStream{
		wsURL:   strings.TrimRight(wsURL, "/"),
		product: strings.ToUpper(product),
		logger:  logger.With().Str("component", "feed_coinbase_ws").Logger(),
	}
}

// Name identifies the link.
func (s *CoinbaseStream) Name() string { return "coinbase-ws" }

type coinbaseTicker struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
}

// Run subscribes to the ticker channel and pushes validated ticks.
func (s *CoinbaseStream) Run(ctx context.Context, events chan<- Event) error {
	subscribe := map[string]any{
		"type":        "subscribe",
		"product_ids": []string{s.product},
		"channels":    []string{"ticker"},
	}

	return runStream(ctx, s.wsURL, subscribe, func(payload []byte) {
		var msg coinbaseTicker
		if err := json.Unmarshal(payload, &msg); err != nil {
			return
		}
		if msg.Type != "ticker" || !strings.EqualFold(msg.ProductID, s.product) {
			return
		}
		price, err := decimal.NewFromString(strings.TrimSpace(msg.Price))
		if err != nil || price.Sign() <= 0 {
			return
		}
		send(events, tickEvent(s.Name(), price))
	}, s.logger, events, s.Name())
}

var _ Link = (*BinanceStream)(nil)
var _ Link = (*CoinbaseStream)(nil)
