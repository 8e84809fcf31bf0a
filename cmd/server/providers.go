package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"hunter-backend/internal/config"
	delivery "hunter-backend/internal/delivery/http"
	"hunter-backend/internal/delivery/websocket"
	"hunter-backend/internal/domain"
	"hunter-backend/internal/infrastructure/binance"
	"hunter-backend/internal/infrastructure/db"
	"hunter-backend/internal/infrastructure/fcm"
	"hunter-backend/internal/infrastructure/telegram"
	"hunter-backend/internal/infrastructure/tracing"
	"hunter-backend/internal/metrics"
	"hunter-backend/internal/repository"
	"hunter-backend/internal/usecase"
	"hunter-backend/pkg/logger"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func provideConfig() (*config.Config, error) {
	return config.Load()
}

func provideLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		return nil, err
	}
	logger.Init(log)
	lc.Append(fx.StopHook(logger.Sync))
	return log, nil
}

func provideTracer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (opentracing.Tracer, error) {
	tracer, closer, err := tracing.InitTracer(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Host:        cfg.Tracing.Host,
		Port:        cfg.Tracing.Port,
	}, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(closer))
	return tracer, nil
}

// runLoop starts fn on OnStart with a context cancelled on OnStop and
// waits for it to return during shutdown.
func runLoop(lc fx.Lifecycle, log *zap.Logger, name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("loop stopped", zap.String("loop", name), zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return fmt.Errorf("%s: %w", name, stopCtx.Err())
			}
		},
	})
}

func storageModule() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			fx.Annotate(repository.NewSnapshotHub, fx.As(new(domain.SnapshotRepository))),
			repository.NewTokenRepository,
			provideSignalRepository,
		),
	)
}

func provideSignalRepository(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (domain.SignalRepository, error) {
	if cfg.Database.URL == "" {
		log.Info("no database configured, keeping signals in memory")
		return repository.NewInMemorySignalRepository(cfg.Notify.SignalCapacity), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pc := db.DefaultPoolConfig()
	if cfg.Database.MaxConns > 0 {
		pc.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.MinConns > 0 {
		pc.MinConns = cfg.Database.MinConns
	}
	pool, err := db.NewPool(ctx, cfg.Database.URL, pc)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	lc.Append(fx.StopHook(func() { pool.Close() }))

	log.Info("signal journal on postgres")
	return repository.NewPostgresSignalRepository(pool), nil
}

func notifyModule() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			func(cfg *config.Config, log *zap.Logger) (*fcm.Client, error) {
				return fcm.NewClient(context.Background(),
					cfg.Notify.FirebaseCredentialsPath, cfg.Notify.FirebaseCredentialsJSON, log)
			},
			provideChat,
			provideNotifier,
		),
		fx.Invoke(func(lc fx.Lifecycle, n *usecase.AlertNotifier, log *zap.Logger) {
			runLoop(lc, log, "alerts", n.Run)
		}),
	)
}

// provideChat returns a nil interface, not a typed nil, when Telegram is
// not configured.
func provideChat(cfg *config.Config, log *zap.Logger) (usecase.ChatSender, error) {
	n, err := telegram.NewNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, log)
	if err != nil || n == nil {
		return nil, err
	}
	return n, nil
}

func provideNotifier(
	cfg *config.Config,
	snapshots domain.SnapshotRepository,
	signals domain.SignalRepository,
	tokens *repository.TokenRepository,
	push *fcm.Client,
	chat usecase.ChatSender,
	log *zap.Logger,
) *usecase.AlertNotifier {
	return usecase.NewAlertNotifier(snapshots, signals, tokens, push, chat, cfg.Notify.Cooldown.D(), log)
}

func marketModule() fx.Option {
	return fx.Module("market",
		fx.Provide(
			provideSource,
			func(cfg *config.Config) *usecase.CandleStore {
				mode, err := domain.ParseMode(cfg.Engine.Mode)
				if err != nil {
					mode = domain.ModeScalping
				}
				return usecase.NewCandleStore(cfg.Engine.QuoteAsset, domain.NewScoringContext(mode))
			},
			func(cfg *config.Config, store *usecase.CandleStore, snapshots domain.SnapshotRepository, log *zap.Logger) *usecase.MarketEngine {
				return usecase.NewMarketEngine(store, snapshots, usecase.EngineConfig{
					InboxSize:     cfg.Engine.InboxSize,
					FlushInterval: cfg.Engine.FlushInterval.D(),
				}, log)
			},
			func(cfg *config.Config, engine *usecase.MarketEngine, log *zap.Logger) *binance.StreamClient {
				return binance.NewStreamClient(binance.StreamConfig{
					BaseURL:       cfg.Binance.StreamURL,
					BroadChannels: cfg.Stream.BroadChannels,
					ReconnectMin:  cfg.Stream.ReconnectMin.D(),
					ReconnectMax:  cfg.Stream.ReconnectMax.D(),
					ReadTimeout:   cfg.Stream.ReadTimeout.D(),
				}, engine, log)
			},
			func(cfg *config.Config, engine *usecase.MarketEngine, stream *binance.StreamClient, source domain.MarketDataSource, log *zap.Logger) *usecase.SubscriptionManager {
				return usecase.NewSubscriptionManager(usecase.SubscriptionConfig{
					Interval:            cfg.Subscription.Interval.D(),
					TopN:                cfg.Subscription.TopN,
					BackfillLimit:       cfg.Subscription.BackfillLimit,
					BackfillConcurrency: cfg.Subscription.BackfillConcurrency,
				}, engine, stream, source, log)
			},
			func(cfg *config.Config, engine *usecase.MarketEngine, source domain.MarketDataSource, log *zap.Logger) *usecase.OpenInterestPoller {
				return usecase.NewOpenInterestPoller(usecase.OpenInterestConfig{
					Interval:   cfg.OpenInterest.Interval.D(),
					Candidates: cfg.OpenInterest.Candidates,
					Polled:     cfg.OpenInterest.Polled,
				}, engine, source, log)
			},
			func(cfg *config.Config, engine *usecase.MarketEngine, log *zap.Logger) *usecase.ModeController {
				mode, _ := domain.ParseMode(cfg.Engine.Mode)
				return usecase.NewModeController(mode, engine, log)
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			engine *usecase.MarketEngine,
			stream *binance.StreamClient,
			subs *usecase.SubscriptionManager,
			poller *usecase.OpenInterestPoller,
			log *zap.Logger,
		) {
			// Hooks stop in reverse order, so the engine outlives its producers.
			runLoop(lc, log, "engine", engine.Run)
			runLoop(lc, log, "stream", stream.Run)
			runLoop(lc, log, "subscriptions", func(ctx context.Context) error {
				err := subs.Run(ctx)
				subs.Wait()
				return err
			})
			runLoop(lc, log, "open-interest", poller.Run)
		}),
	)
}

func provideSource(cfg *config.Config, log *zap.Logger) domain.MarketDataSource {
	if cfg.Binance.Source == config.SourceDirect {
		log.Info("market data from binance futures api", zap.String("url", cfg.Binance.FuturesURL))
		return binance.NewFuturesSource(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.FuturesURL)
	}
	log.Info("market data from proxy", zap.String("url", cfg.Binance.RESTBaseURL))
	return binance.NewClient(cfg.Binance.RESTBaseURL, cfg.Binance.FetchTimeout.D())
}

func httpModule() fx.Option {
	return fx.Module("http",
		fx.Provide(provideRouter),
		fx.Invoke(serveHTTP),
	)
}

func provideRouter(
	snapshots domain.SnapshotRepository,
	modes *usecase.ModeController,
	signals domain.SignalRepository,
	tokens *repository.TokenRepository,
	push *fcm.Client,
	stream *binance.StreamClient,
	log *zap.Logger,
) http.Handler {
	return delivery.NewRouter(delivery.Handlers{
		Market:  delivery.NewMarketHandler(snapshots),
		Mode:    delivery.NewModeHandler(modes),
		Signals: delivery.NewSignalHandler(signals, log),
		Tokens:  delivery.NewTokenHandler(tokens),
		Test:    delivery.NewTestHandler(push, tokens),
		Health:  delivery.NewHealthHandler(func() string { return stream.State().String() }, snapshots),
		Metrics: metrics.Handler(),
		Stream:  websocket.NewHandler(snapshots, log),
	}, log)
}

func serveHTTP(lc fx.Lifecycle, cfg *config.Config, router http.Handler, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	var metricsSrv *http.Server

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))

			if cfg.App.MetricsAddr != "" {
				metricsSrv = metrics.Serve(cfg.App.MetricsAddr)
				log.Info("metrics listening", zap.String("addr", cfg.App.MetricsAddr))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if metricsSrv != nil {
				_ = metricsSrv.Shutdown(ctx)
			}
			return srv.Shutdown(ctx)
		},
	})
}
