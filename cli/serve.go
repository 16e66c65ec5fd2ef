package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/api"
	"github.com/rustyeddy/papertrade/config"
	"github.com/rustyeddy/papertrade/feed"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/predict"
	"github.com/rustyeddy/papertrade/sim"
	"github.com/rustyeddy/papertrade/strategy"
	"github.com/rustyeddy/papertrade/telemetry"
)

func newServeCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation service with the HTTP control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	log := logger()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	met := telemetry.New(reg)

	hub := feed.NewHub(log)

	var pred strategy.Predictor
	if cfg.Prediction.URL != "" {
		client := predict.NewClient(cfg.Prediction.URL, cfg.PredictionTimeout())
		client.OnError = met.PredictionErrors.Inc
		pred = client
	}

	registry := sim.NewRegistry(sim.Options{
		Bars:      st,
		Store:     st,
		Predictor: pred,
		Publisher: hub,
		Metrics:   met,
		Logger:    log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)

	if cfg.Feed.Synthetic {
		walk := market.NewRandomWalk(time.Now().UnixNano())
		go func() {
			err := walk.Run(ctx, cfg.FeedInterval(), cfg.Feed.Symbols, func(b market.Bar) error {
				return st.PutBar(context.Background(), b)
			})
			if err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("synthetic feed stopped")
			}
		}()
		log.Info().Strs("symbols", cfg.Feed.Symbols).Msg("synthetic feed running")
	}

	srvCfg := api.ServerConfig{Addr: cfg.Server.Addr}
	if d, err := time.ParseDuration(cfg.Server.ReadTimeout); err == nil {
		srvCfg.ReadTimeout = d
	}
	if d, err := time.ParseDuration(cfg.Server.WriteTimeout); err == nil {
		srvCfg.WriteTimeout = d
	}
	server := api.NewServer(srvCfg, registry, st, hub, reg, log)

	errC := make(chan error, 1)
	go func() { errC <- server.ListenAndServe() }()

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigC:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errC:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	registry.StopAll(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}

	return nil
}
