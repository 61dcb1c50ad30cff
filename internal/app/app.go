package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hodlwatch/internal/alerting"
	"hodlwatch/internal/balance"
	"hodlwatch/internal/buffer"
	"hodlwatch/internal/config"
	"hodlwatch/internal/feed"
	"hodlwatch/internal/portfolio"
	"hodlwatch/internal/render"
	"hodlwatch/internal/service"
	"hodlwatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// product renders the Coinbase-style product id, e.g. ETH-USD.
func (a *App) product() string {
	return strings.ToUpper(a.Config.Asset.Symbol) + "-" + strings.ToUpper(a.Config.Asset.Quote)
}

func (a *App) newChain() *feed.Chain {
	cfg := a.Config.Feed
	links := make([]feed.Link, 0, 3)

	if cfg.PrimaryWSURL != "" {
		links = append(links, feed.NewBinanceStream(cfg.PrimaryWSURL, a.Config.Asset.Pair, a.Logger))
	}
	if cfg.SecondaryWSURL != "" {
		links = append(links, feed.NewCoinbaseStream(cfg.SecondaryWSURL, a.product(), a.Logger))
	}

	providers := []feed.RestProvider{
		feed.NewBinanceRest(cfg.BinanceRestURL, a.Config.Asset.Pair, cfg.RequestTimeout),
		feed.NewCoinbaseRest(cfg.CoinbaseRestURL, a.product(), cfg.RequestTimeout),
		feed.NewCoingeckoRest(cfg.CoingeckoRestURL, a.Config.Asset.CoingeckoID, a.Config.Asset.Quote, cfg.RequestTimeout),
	}
	links = append(links, feed.NewPoller(providers, cfg.PollInterval, a.Logger))

	return feed.NewChain(a.Logger, links...)
}

func (a *App) newRefresher() *balance.Refresher {
	if len(a.Config.Balance.Addresses) == 0 {
		return nil
	}

	cfg := a.Config.Balance
	providers := make([]balance.Provider, 0, 2)
	if cfg.RPCURL != "" {
		providers = append(providers, balance.NewRPCProvider(cfg.RPCURL, cfg.RequestTimeout, a.Logger))
	}
	if cfg.ExplorerURL != "" {
		providers = append(providers, balance.NewExplorerProvider(cfg.ExplorerURL, cfg.ExplorerAPIKey, cfg.RequestTimeout, a.Logger))
	}
	if len(providers) == 0 {
		return nil
	}

	return balance.NewRefresher(cfg.Addresses, providers, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	targets := make([]alerting.Notifier, 0, 2)

	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		targets = append(targets, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
	}
	if a.Config.Alerting.WebhookURL != "" {
		targets = append(targets, alerting.NewWebhookNotifier(a.Config.Alerting.WebhookURL, 10*time.Second, a.Logger))
	}

	switch len(targets) {
	case 0:
		return nil
	case 1:
		return targets[0]
	default:
		return alerting.NewMultiNotifier(a.Logger, targets...)
	}
}

func (a *App) newEvaluator() *alerting.Evaluator {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	return alerting.NewEvaluator(
		a.Config.Asset.Symbol,
		threshold(a.Config.Alerting.StopLoss),
		threshold(a.Config.Alerting.TakeProfit),
		a.Config.Alerting.Cooldown,
	)
}

func threshold(v float64) *decimal.Decimal {
	if v <= 0 {
		return nil
	}
	d := decimal.NewFromFloat(v)
	return &d
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// pruneAlerts drops audit entries older than the configured retention. Runs
// once at startup; a failure only costs disk space.
func (a *App) pruneAlerts(ctx context.Context, store *storage.Store) {
	retention := a.Config.Database.AlertRetention
	if retention <= 0 {
		return
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := store.DeleteAlertsBefore(pctx, time.Now().Add(-retention)); err != nil {
		a.Logger.Warn().Err(err).Msg("failed to prune old alert events")
	}
}

// Run executes the long-running watcher.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; audit trail disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	var sampleStore storage.SampleStore
	var alertStore storage.AlertStore
	if store != nil {
		sampleStore = store
		alertStore = store
		a.pruneAlerts(ctx, store)
	}

	var statsFetcher *feed.StatsFetcher
	if a.Config.Feed.BinanceRestURL != "" {
		statsFetcher = feed.NewStatsFetcher(a.Config.Feed.BinanceRestURL, a.Config.Asset.Pair, a.Config.Feed.RequestTimeout, a.Logger)
	}

	refresher := a.newRefresher()
	if refresher == nil {
		a.Logger.Warn().Msg("no balance addresses or providers configured; quantity falls back to lots")
	}

	svc := service.New(service.Deps{
		Chain:           a.newChain(),
		Buffer:          buffer.New(a.Config.Feed.BufferCapacity),
		Refresher:       refresher,
		StatsFetcher:    statsFetcher,
		Evaluator:       a.newEvaluator(),
		Notifier:        a.newNotifier(),
		Renderer:        render.NewConsole(os.Stdout, a.Config.Asset.Symbol),
		SampleStore:     sampleStore,
		AlertStore:      alertStore,
		Lots:            portfolio.NormalizeLots(a.Config.Portfolio.Lots),
		StopLoss:        threshold(a.Config.Alerting.StopLoss),
		TakeProfit:      threshold(a.Config.Alerting.TakeProfit),
		RenderInterval:  a.Config.Dashboard.RenderInterval,
		RefreshInterval: a.Config.Balance.RefreshInterval,
		StatsInterval:   a.Config.Feed.StatsInterval,
	}, a.Logger)

	a.Logger.Info().Str("pair", a.Config.Asset.Pair).Msg("starting watcher")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("watcher stopped")
	return nil
}

// ExportOptions hold parameters for exporting persisted samples.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Alerts bool
}
