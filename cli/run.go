package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/predict"
	"github.com/rustyeddy/papertrade/sim"
	"github.com/rustyeddy/papertrade/store"
	"github.com/rustyeddy/papertrade/strategy"
)

// newRunCmd runs a single simulation in the foreground against a synthetic
// feed and prints the final metrics. Useful for trying out a strategy
// without standing up the service.
func newRunCmd(rc *rootConfig) *cobra.Command {
	var (
		symbol   string
		strat    string
		balance  float64
		interval time.Duration
		duration time.Duration
		seed     int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rc)
			if err != nil {
				return err
			}

			var pred strategy.Predictor
			if cfg.Prediction.URL != "" {
				pred = predict.NewClient(cfg.Prediction.URL, cfg.PredictionTimeout())
			}

			return runOnce(symbol, strat, balance, interval, duration, seed, pred)
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "DEMO", "Symbol to simulate")
	cmd.Flags().StringVar(&strat, "strategy", "momentum", "Strategy: momentum|mean-reversion|external")
	cmd.Flags().Float64Var(&balance, "balance", 10000, "Initial balance")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Tick interval")
	cmd.Flags().DurationVar(&duration, "duration", time.Minute, "How long to run")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Synthetic feed seed")

	return cmd
}

func runOnce(symbol, strat string, balance float64, interval, duration time.Duration, seed int64, pred strategy.Predictor) error {
	log := logger()

	st := store.NewMemory()
	walk := market.NewRandomWalk(seed)
	walk.Seed(symbol, 100)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigC:
			cancel()
		case <-ctx.Done():
		}
	}()

	go walk.Run(ctx, interval, []string{symbol}, func(b market.Bar) error {
		return st.PutBar(context.Background(), b)
	})

	registry := sim.NewRegistry(sim.Options{
		Bars:      st,
		Store:     st,
		Predictor: pred,
		Logger:    log,
	})

	simID, err := registry.Start(ctx, sim.Config{
		Symbol:         symbol,
		Strategy:       strat,
		InitialBalance: balance,
		TickInterval:   interval,
	})
	if err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	registry.StopAll(stopCtx)

	final, err := st.GetSimulation(context.Background(), simID)
	if err != nil {
		return err
	}

	fmt.Printf("simulation %s (%s on %s)\n", final.ID, final.Strategy, final.Symbol)
	fmt.Printf("  status:      %s\n", final.Status)
	fmt.Printf("  balance:     %.2f (started %.2f)\n", final.CurrentBalance, final.InitialBalance)
	fmt.Printf("  profit/loss: %.2f\n", final.ProfitLoss)
	fmt.Printf("  trades:      %d (win rate %.0f%%)\n", final.TotalTrades, final.WinRate*100)
	return nil
}
