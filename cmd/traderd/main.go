// traderd runs the paper-trading engine: the Aggregator, Strategy Engine,
// Risk Manager, and Execution Engine wired together behind an HTTP/
// WebSocket control surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/config"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/logging"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/runtime"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "traderd",
		Short: "Binary prediction-market paper-trading engine",
	}
	root.AddCommand(newRunCmd(), newConfigCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the trading engine and control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logging.New(cfg.LogLevel, cfg.Environment)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := runtime.New(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("build runtime: %w", err)
			}

			log.Info().Str("addr", cfg.HTTPAddr).Msg("traderd starting")
			if err := rt.Start(ctx); err != nil {
				return fmt.Errorf("runtime exited: %w", err)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration (secrets redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			fmt.Printf("exchange_base_url:    %s\n", cfg.ExchangeBaseURL)
			fmt.Printf("exchange_socket_url:  %s\n", cfg.ExchangeSocketURL)
			fmt.Printf("exchange_api_key_id:  %s\n", redact(cfg.ExchangeAPIKeyID))
			fmt.Printf("sports_base_url:      %s\n", cfg.SportsBaseURL)
			fmt.Printf("odds_base_url:        %s\n", cfg.OddsBaseURL)
			fmt.Printf("database_url:         %s\n", redact(cfg.DatabaseURL))
			fmt.Printf("http_addr:            %s\n", cfg.HTTPAddr)
			fmt.Printf("environment:          %s\n", cfg.Environment)
			fmt.Printf("log_level:            %s\n", cfg.LogLevel)
			fmt.Printf("sports_poll_interval: %s\n", cfg.SportsPollInterval)
			fmt.Printf("odds_poll_interval:   %s\n", cfg.OddsPollInterval)
			fmt.Printf("strategy_eval_interval: %s\n", cfg.StrategyEvalInterval)
			fmt.Printf("pnl_calc_interval:    %s\n", cfg.PnLCalcInterval)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the traderd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

// redact shows only enough of a secret value to distinguish "set" from
// "unset" in config output.
func redact(v string) string {
	if v == "" {
		return "(unset)"
	}
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + "****" + v[len(v)-2:]
}
