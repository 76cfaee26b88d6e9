package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"stockdash/internal/cache"
	"stockdash/internal/config"
	"stockdash/internal/httpx"
	"stockdash/internal/market"
	"stockdash/internal/upstream/yahoo"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	auth := yahoo.NewAuthenticator(
		httpx.NoRedirects(httpClient),
		cfg.Upstream.CookieURL,
		cfg.Upstream.BaseURL+"/v1/test/getcrumb",
		cfg.Upstream.UserAgent,
		log,
	)

	opts := []yahoo.ClientOption{
		yahoo.WithHTTPClient(httpClient),
		yahoo.WithBaseURL(cfg.Upstream.BaseURL),
		yahoo.WithUserAgent(cfg.Upstream.UserAgent),
		yahoo.WithTokenSource(auth),
		yahoo.WithLogger(log),
	}
	if cfg.Upstream.MaxRequestsPerMinute > 0 {
		burst := cfg.Upstream.Burst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, yahoo.WithLimiter(rate.NewLimiter(rate.Limit(float64(cfg.Upstream.MaxRequestsPerMinute)/60.0), burst)))
	}
	client := yahoo.NewClient(opts...)

	svc := market.NewService(
		client,
		cache.New(),
		time.Duration(cfg.Cache.QuoteTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.HistoryTTLSeconds)*time.Second,
		log,
	)

	// One acquisition attempt up front so the first dashboard load does not
	// pay for the handshake. Routes still acquire lazily if this fails.
	warmCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := client.PrimeToken(warmCtx); err != nil {
		log.Warn("startup token acquisition failed", zap.Error(err))
	}
	cancel()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(svc, cfg.Server.StaticDir, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
}
