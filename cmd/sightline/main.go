package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sightline-analytics/sightline/internal/auth"
	"github.com/sightline-analytics/sightline/internal/config"
	"github.com/sightline-analytics/sightline/internal/ingest"
	"github.com/sightline-analytics/sightline/internal/ratelimit"
	"github.com/sightline-analytics/sightline/internal/resolve"
	"github.com/sightline-analytics/sightline/internal/server"
	"github.com/sightline-analytics/sightline/internal/store"
)

func main() {
	configPath := flag.String("config", "sightline.toml", "Path to config file (TOML)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logLevel := zerolog.InfoLevel
	switch cfg.Logging.Level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	var log zerolog.Logger
	if cfg.Logging.Format == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	st, err := store.NewSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("store close")
		}
	}()

	var metricsHandler http.Handler
	var ingestMetrics *ingest.Metrics
	var resolveMetrics *resolve.Metrics
	if cfg.Observability.MetricsEnabled {
		promReg := prometheus.NewRegistry()
		metricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
		ingestMetrics = ingest.NewMetrics(promReg)
		resolveMetrics = resolve.NewMetrics(promReg)
	}

	client := resolve.NewHTTPClient(cfg.LookupTimeout())
	providers := resolve.Providers{
		Override:  &resolve.OverrideProvider{Store: st},
		Primary:   &resolve.PrimaryProvider{BaseURL: cfg.Lookup.PrimaryURL, Client: client},
		Whois:     &resolve.WhoisProvider{BaseURL: cfg.Lookup.WhoisURL, Client: client},
		Secondary: &resolve.SecondaryProvider{BaseURL: cfg.Lookup.SecondaryURL, Client: client},
	}
	if cfg.Lookup.DNS.Enabled {
		providers.ReverseDNS = resolve.NewReverseDNS(
			time.Duration(cfg.Lookup.DNS.CacheTTL)*time.Second,
			cfg.Lookup.DNS.MaxQPS,
		)
	}
	if cfg.Lookup.GeoIPDBPath != "" || cfg.Lookup.ASNDBPath != "" {
		geo, err := resolve.NewGeoIP(cfg.Lookup.GeoIPDBPath, cfg.Lookup.ASNDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("geoip")
		}
		defer func() {
			if err := geo.Close(); err != nil {
				log.Warn().Err(err).Msg("geoip close")
			}
		}()
		providers.GeoIP = geo
	}

	orch := resolve.NewOrchestrator(providers, cfg.LookupTimeout(), log, resolveMetrics)
	pipeline := resolve.NewPipeline(orch, st, cfg.Lookup.Workers, cfg.Lookup.QueueSize, log, resolveMetrics)

	trackHandler := &ingest.Handler{
		RateLimiter:  ratelimit.New(cfg.Limits.MaxRequests, cfg.Window()),
		Store:        st,
		Lookups:      pipeline,
		TTL:          cfg.TTL(),
		MaxBodyBytes: cfg.Limits.MaxBodySizeBytes,
		Log:          log,
		Metrics:      ingestMetrics,
	}

	srv := &server.Server{
		TrackHandler:   trackHandler,
		AdminAuth:      auth.NewValidator(cfg.Admin.Token),
		Store:          st,
		MetricsHandler: metricsHandler,
		Logger:         log,
		ListenAddr:     cfg.Server.ListenAddress,
		ManagementAddr: cfg.Server.ManagementListenAddress,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline.Start(ctx)
	go func() {
		if err := srv.Run(ctx); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	pipeline.Drain(5 * time.Second)
}
