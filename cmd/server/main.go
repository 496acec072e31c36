package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/lowc1012/nanothrottler/internal/config"
	"github.com/lowc1012/nanothrottler/internal/log"
	"github.com/lowc1012/nanothrottler/internal/ratelimiter"
	"github.com/lowc1012/nanothrottler/internal/utils"
	"github.com/lowc1012/nanothrottler/pkg/observe"
	"github.com/lowc1012/nanothrottler/pkg/throttlehttp"
	"github.com/lowc1012/nanothrottler/throttler"
)

const shutdownTimeout = 10 * time.Second

func HelloHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Hello, World!"))
}

func main() {
	app := cli.NewApp()
	app.Name = "nanothrottler-server"
	app.Usage = "demo HTTP server that holds requests until each client's throttler admits them"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the YAML configuration file; defaults are used when empty",
		},
		cli.BoolFlag{
			Name:  "watch",
			Usage: "reload the throttle section when the configuration file changes",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Logger().Fatal("Server failed", zap.Error(err))
	}
}

func run(c *cli.Context) error {
	path := c.String("config")
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger, err := log.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	log.SetLogger(logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observers := []throttler.Observer{observe.NewLogging(logger)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/hello", HelloHandler)

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observe.NewPrometheus(reg, cfg.Metrics.Namespace)
		if err != nil {
			return err
		}
		observers = append(observers, metrics)
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
		defer client.Close()
		stats := observe.NewRedisStats(client, cfg.Redis.KeyPrefix)
		observers = append(observers, stats)
		flushed := make(chan struct{})
		go func() {
			defer close(flushed)
			stats.Run(ctx, cfg.Redis.FlushInterval)
		}()
		// the final flush must finish before the client is closed
		defer func() {
			stop()
			<-flushed
		}()
	}

	limiter, err := ratelimiter.NewKeyed(cfg.Throttle.Throttler(),
		ratelimiter.WithMaxKeys(cfg.Throttle.MaxKeys),
		ratelimiter.WithIdleTTL(cfg.Throttle.IdleTTL),
		ratelimiter.WithThrottlerOptions(throttler.WithObserver(throttler.Observers(observers...))),
	)
	if err != nil {
		return err
	}
	go limiter.RunSweeper(ctx, cfg.Throttle.IdleTTL/2)

	if c.Bool("watch") && path != "" {
		watcher, err := config.NewWatcher(path, config.DefaultDebounce, logger)
		if err != nil {
			return err
		}
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				if err := limiter.Reconfigure(next.Throttle.Throttler()); err != nil {
					logger.Error("Failed to apply throttle configuration", zap.Error(err))
					return
				}
				logger.Info("Throttle configuration applied",
					zap.Stringer("kind", next.Throttle.Kind),
					zap.Duration("period", next.Throttle.Period),
					zap.Int("capacity", next.Throttle.Capacity))
			})
			if err != nil {
				logger.Error("Configuration watcher stopped", zap.Error(err))
			}
		}()
	}

	extractor := utils.NewRemoteAddrExtractor()
	if len(cfg.Server.KeyHeaders) > 0 {
		extractor = utils.FirstOf(utils.NewHTTPHeadersExtractor(cfg.Server.KeyHeaders...), extractor)
	}

	// use the throttled handler instead of mux as root handler
	server := &http.Server{
		Addr: cfg.Server.ListenAddress,
		Handler: throttlehttp.NewHandler(mux, &throttlehttp.Config{
			Extractor: extractor,
			Limiter:   limiter,
			MaxWait:   cfg.Server.MaxWait,
			Logger:    logger,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Run a server", zap.String("address", cfg.Server.ListenAddress),
			zap.Stringer("kind", cfg.Throttle.Kind), zap.Int("capacity", cfg.Throttle.Capacity))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
