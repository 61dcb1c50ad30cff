package balance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Provider resolves the balance of one address. Implementations are tried in
// order until one succeeds.
type Provider interface {
	Name() string
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}

// RPCProvider reads balances straight from an Ethereum JSON-RPC node.
type RPCProvider struct {
	rpcURL    string
	timeout   time.Duration
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewRPCProvider builds an RPC balance provider. The client dials lazily on
// first use; a dead node at startup must not prevent the watcher from
// running.
func NewRPCProvider(rpcURL string, timeout time.Duration, logger zerolog.Logger) *RPCProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCProvider{
		rpcURL:  rpcURL,
		timeout: timeout,
		logger:  logger.With().Str("component", "balance_rpc").Logger(),
	}
}

// Name identifies the provider in logs.
func (p *RPCProvider) Name() string { return "rpc" }

// Balance returns the latest-block balance of the address.
func (p *RPCProvider) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if p.rpcURL == "" {
		return decimal.Decimal{}, errors.New("rpc url not configured")
	}
	if !common.IsHexAddress(address) {
		return decimal.Decimal{}, fmt.Errorf("invalid address %q", address)
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client, err := p.getClient(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}

	wei, err := client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return FromWei(wei), nil
}

func (p *RPCProvider) getClient(ctx context.Context) (*ethclient.Client, error) {
	p.clientMux.Lock()
	defer p.clientMux.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	client, err := ethclient.DialContext(ctx, p.rpcURL)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

// ExplorerProvider queries an etherscan-style REST API that returns the
// balance as a wei string.
type ExplorerProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewExplorerProvider builds an explorer balance provider.
func NewExplorerProvider(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *ExplorerProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExplorerProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "balance_explorer").Logger(),
	}
}

// Name identifies the provider in logs.
func (p *ExplorerProvider) Name() string { return "explorer" }

type explorerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Balance fetches account balance via the explorer API.
func (p *ExplorerProvider) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if p.baseURL == "" {
		return decimal.Decimal{}, errors.New("explorer url not configured")
	}

	query := url.Values{}
	query.Set("module", "account")
	query.Set("action", "balance")
	query.Set("address", address)
	query.Set("tag", "latest")
	if p.apiKey != "" {
		query.Set("apikey", p.apiKey)
	}

	endpoint := p.baseURL + "/api?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("explorer status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed explorerResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return decimal.Decimal{}, err
	}
	if parsed.Status != "1" {
		return decimal.Decimal{}, fmt.Errorf("explorer error: %s", parsed.Message)
	}

	return FromSmallestUnit(parsed.Result, EtherDecimals)
}

var _ Provider = (*RPCProvider)(nil)
var _ Provider = (*ExplorerProvider)(nil)
