package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RestProvider is one request/response price lookup. The contract is
// deliberately thin: return a finite positive price or fail.
type RestProvider interface {
	Name() string
	FetchPrice(ctx context.Context) (decimal.Decimal, error)
}

// Poller is the terminal chain link: on a fixed interval it walks the
// provider list in order and accepts the first success. Provider errors are
// logged and skipped, never surfaced; a fully failed round simply leaves the
// current price stale.
type Poller struct {
	providers []RestProvider
	interval  time.Duration
	logger    zerolog.Logger
}

// NewPoller builds the polling aggregator.
func NewPoller(providers []RestProvider, interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		providers: providers,
		interval:  interval,
		logger:    logger.With().Str("component", "feed_poller").Logger(),
	}
}

// Name identifies the link.
func (p *Poller) Name() string { return "rest-poller" }

// Run polls until ctx is cancelled. One round fires immediately so the
// dashboard is not blind for a full interval after failover.
func (p *Poller) Run(ctx context.Context, events chan<- Event) error {
	send(events, noticeEvent(p.Name()+" active"))

	p.poll(ctx, events)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx, events)
		}
	}
}

func (p *Poller) poll(ctx context.Context, events chan<- Event) {
	for _, provider := range p.providers {
		price, err := provider.FetchPrice(ctx)
		if err != nil {
			p.logger.Debug().Err(err).Str("provider", provider.Name()).Msg("poll failed, trying next provider")
			continue
		}
		if price.Sign() <= 0 {
			continue
		}
		send(events, tickEvent(p.Name()+"/"+provider.Name(), price))
		return
	}
	p.logger.Warn().Msg("all poll providers failed this round")
}

var _ Link = (*Poller)(nil)

// BinanceRest looks up the pair's last price from the Binance REST API.
type BinanceRest struct {
	baseURL string
	pair    string
	client  *http.Client
}

// NewBinanceRest builds a Binance REST price provider.
func NewBinanceRest(baseURL, pair string, timeout time.Duration) *BinanceRest {
	return &BinanceRest{
		baseURL: strings.TrimRight(baseURL, "/"),
		pair:    strings.ToUpper(pair),
		client:  newHTTPClient(timeout),
	}
}

// Name identifies the provider.
func (b *BinanceRest) Name() string { return "binance" }

// FetchPrice requests /api/v3/ticker/price.
func (b *BinanceRest) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	var body struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := getJSON(ctx, b.client, b.baseURL+"/api/v3/ticker/price?symbol="+b.pair, &body); err != nil {
		return decimal.Decimal{}, err
	}
	return parsePositive(body.Price)
}

// CoinbaseRest looks up the spot price from the Coinbase public API.
type CoinbaseRest struct {
	baseURL string
	product string
	client  *http.Client
}

// NewCoinbaseRest builds a Coinbase REST price provider. product is e.g.
// "ETH-USD".
func NewCoinbaseRest(baseURL, product string, timeout time.Duration) *CoinbaseRest {
	return &CoinbaseRest{
		baseURL: strings.TrimRight(baseURL, "/"),
		product: strings.ToUpper(product),
		client:  newHTTPClient(timeout),
	}
}

// Name identifies the provider.
func (c *CoinbaseRest) Name() string { return "coinbase" }

// FetchPrice requests /v2/prices/<product>/spot.
func (c *CoinbaseRest) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	var body struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := getJSON(ctx, c.client, c.baseURL+"/v2/prices/"+c.product+"/spot", &body); err != nil {
		return decimal.Decimal{}, err
	}
	return parsePositive(body.Data.Amount)
}

// CoingeckoRest looks up the simple price from the CoinGecko API.
type CoingeckoRest struct {
	baseURL string
	assetID string
	quote   string
	client  *http.Client
}

// NewCoingeckoRest builds a CoinGecko REST price provider.
func NewCoingeckoRest(baseURL, assetID, quote string, timeout time.Duration) *CoingeckoRest {
	return &CoingeckoRest{
		baseURL: strings.TrimRight(baseURL, "/"),
		assetID: strings.ToLower(assetID),
		quote:   strings.ToLower(quote),
		client:  newHTTPClient(timeout),
	}
}

// Name identifies the provider.
func (c *CoingeckoRest) Name() string { return "coingecko" }

// FetchPrice requests /api/v3/simple/price.
func (c *CoingeckoRest) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=%s", c.baseURL, c.assetID, c.quote)

	var body map[string]map[string]float64
	if err := getJSON(ctx, c.client, endpoint, &body); err != nil {
		return decimal.Decimal{}, err
	}

	value, ok := body[c.assetID][c.quote]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("asset %s/%s missing from response", c.assetID, c.quote)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return decimal.Decimal{}, fmt.Errorf("price %v is not a finite positive number", value)
	}
	return decimal.NewFromFloat(value), nil
}

var _ RestProvider = (*BinanceRest)(nil)
var _ RestProvider = (*CoinbaseRest)(nil)
var _ RestProvider = (*CoingeckoRest)(nil)

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return json.Unmarshal(payload, out)
}

func parsePositive(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if price.Sign() <= 0 {
		return decimal.Decimal{}, errors.New("price is not positive")
	}
	return price, nil
}
