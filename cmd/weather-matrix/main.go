package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-matrix/internal/api/http"
	"github.com/i474232898/weather-matrix/internal/config"
	"github.com/i474232898/weather-matrix/internal/display"
	"github.com/i474232898/weather-matrix/internal/geocode"
	"github.com/i474232898/weather-matrix/internal/logger"
	"github.com/i474232898/weather-matrix/internal/metrics"
	"github.com/i474232898/weather-matrix/internal/redraw"
	"github.com/i474232898/weather-matrix/internal/render"
	"github.com/i474232898/weather-matrix/internal/scheduler"
	"github.com/i474232898/weather-matrix/internal/store"
	"github.com/i474232898/weather-matrix/internal/weather"
	"github.com/i474232898/weather-matrix/internal/weather/providers"
)

func main() {
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("Failed to load config", "error", err)
	}

	m := metrics.New()

	// Outbound provider calls share one client; the cache bounds each fetch.
	httpCfg := providers.DefaultHTTPConfig(&http.Client{Timeout: cfg.Weather.FetchTimeout.Std()})
	provider, err := providers.New(cfg.Weather.Provider, httpCfg, cfg.Weather.APIKey)
	if err != nil {
		log.Fatalw("Failed to create weather provider", "error", err)
	}
	if cfg.Weather.GeocoderAPIKey != "" {
		provider = weather.WithLocator(provider, geocode.NewGoogleLocator(cfg.Weather.GeocoderAPIKey))
	}
	log.Infow("Weather provider configured",
		"provider", cfg.Weather.Provider,
		"apiKey", logger.MaskSecret(cfg.Weather.APIKey),
		"place", cfg.Weather.Location.Query(),
		"units", cfg.Weather.Units,
	)

	history := newStore(cfg.Store, log)

	cache := weather.NewCache(provider, weather.CacheConfig{
		Place:           cfg.Weather.Location,
		Coordinates:     cfg.Weather.Coordinates,
		Units:           cfg.Weather.Units,
		RefreshInterval: cfg.Weather.UpdateInterval.Std(),
		FetchTimeout:    cfg.Weather.FetchTimeout.Std(),
	},
		weather.RecorderOption(history),
		weather.MetricsOption(m),
		weather.LoggerOption(log),
	)

	var presenter display.Presenter = display.NopPresenter{}
	if cfg.Display.Output != "" {
		presenter = display.NewPNGPresenter(cfg.Display.Output)
	}
	surface := display.NewImageSurface(display.Geometry{
		Rows:        cfg.Display.Rows,
		Cols:        cfg.Display.Cols,
		ChainLength: cfg.Display.ChainLength,
		Brightness:  cfg.Display.Brightness,
	}, presenter)

	renderer := render.New(surface, cache, redraw.New(cfg.Display.FrameInterval.Std()),
		render.RotationIntervalOption(cfg.Display.RotationInterval.Std()),
		render.MetricsOption(m),
		render.LoggerOption(log),
	)

	// Keeps the cache warm so the render loop rarely waits on the network.
	prefetch := scheduler.New(cache, cfg.Weather.UpdateInterval.Std(), log)
	if err := prefetch.Start(); err != nil {
		log.Fatalw("Failed to start prefetch scheduler", "error", err)
	}
	defer prefetch.Stop()

	app := httpapi.NewApp(httpapi.Deps{
		Cache:   cache,
		Store:   history,
		Display: renderer,
		Metrics: m,
	})
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Errorw("Status API stopped", "error", err)
		}
	}()
	log.Infow("Status API listening", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		if err := renderer.Run(ctx); err != nil {
			log.Errorw("Render loop failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Infow("Shutting down")
	<-renderDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorw("Error during shutdown", "error", err)
	}
}

// newStore returns the Redis history store when configured and reachable,
// the in-memory store otherwise.
func newStore(cfg config.StoreConfig, log *zap.SugaredLogger) weather.Store {
	if cfg.RedisAddr == "" {
		return store.NewMemoryStore(cfg.MaxHistory, cfg.MaxAge.Std())
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnw("Redis unreachable, keeping history in memory", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return store.NewMemoryStore(cfg.MaxHistory, cfg.MaxAge.Std())
	}
	log.Infow("Snapshot history stored in Redis", "addr", cfg.RedisAddr)
	return store.NewRedisStore(client, cfg.MaxHistory, cfg.MaxAge.Std(), log)
}
