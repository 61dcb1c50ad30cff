package feed

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Stats carries the authoritative 24h extremes from the stats provider.
type Stats struct {
	High decimal.Decimal
	Low  decimal.Decimal
}

// StatsFetcher reads the 24h high/low from the Binance REST API. The result
// takes precedence over buffer-derived extremes on the dashboard.
type StatsFetcher struct {
	baseURL string
	pair    string
	client  *http.Client
	logger  zerolog.Logger
}

// NewStatsFetcher builds a 24h stats fetcher.
func NewStatsFetcher(baseURL, pair string, timeout time.Duration, logger zerolog.Logger) *StatsFetcher {
	return &StatsFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		pair:    strings.ToUpper(pair),
		client:  newHTTPClient(timeout),
		logger:  logger.With().Str("component", "feed_stats").Logger(),
	}
}

// Fetch requests /api/v3/ticker/24hr and validates both extremes.
func (s *StatsFetcher) Fetch(ctx context.Context) (Stats, error) {
	var body struct {
		HighPrice string `json:"highPrice"`
		LowPrice  string `json:"lowPrice"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"/api/v3/ticker/24hr?symbol="+s.pair, &body); err != nil {
		return Stats{}, err
	}

	high, err := parsePositive(body.HighPrice)
	if err != nil {
		return Stats{}, err
	}
	low, err := parsePositive(body.LowPrice)
	if err != nil {
		return Stats{}, err
	}

	return Stats{High: high, Low: low}, nil
}
