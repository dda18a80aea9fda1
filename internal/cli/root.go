package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/buyerscan/buyerscan/internal/core/config"
	"github.com/buyerscan/buyerscan/internal/core/domain"
	"github.com/buyerscan/buyerscan/internal/infra/explorer"
	"github.com/buyerscan/buyerscan/internal/scanning/engine"
	"github.com/buyerscan/buyerscan/internal/scanning/fetch"
	"github.com/buyerscan/buyerscan/internal/scanning/health"
	"github.com/buyerscan/buyerscan/internal/scanning/ratelimit"
)

var (
	cfgPath  string
	isDebug  bool
	contract string
)

var rootCmd = &cobra.Command{
	Use:   "buyerscan",
	Short: "Buyerscan collection service",
	Long:  `Buyerscan collects the unique addresses that called the buy function on a contract, resumably, via a block-explorer API.`,
	Run:   runScan,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&contract, "contract", "", "contract address to scan (overrides config)")
}

func runScan(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	initLogging(cfg)

	if contract != "" {
		cfg.Scan.Contract = contract
	}
	if cfg.Scan.Contract == "" {
		slog.Error("No contract address configured, set scan.contract or --contract")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	store, cleanup, err := buildStore(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	client, err := explorer.NewClient(cfg.Explorer.ClientConfig())
	if err != nil {
		slog.Error("Failed to create explorer client", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.New(cfg.RateLimit.LimiterConfig())
	fetcher := fetch.NewRetryFetcher(client, limiter, cfg.Retry.FetchConfig())
	eng := engine.New(fetcher, store, cfg.Scan.EngineConfig())
	eng.SetStateChangeCallback(func(t engine.Transition) {
		slog.Info("Scan state changed", "from", t.From, "to", t.To, "reason", t.Reason)
	})

	srv := health.NewServer(cfg.Server.Port, func() map[string]any {
		return map[string]any{
			"contract": cfg.Scan.Contract,
			"state":    string(eng.State()),
		}
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Health server stopped", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received signal, stopping scan...", "signal", sig)
		cancel()
	}()

	result, err := eng.Run(ctx, cfg.Scan.Contract)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if err != nil {
		slog.Error("Scan failed", "error", err)
		os.Exit(1)
	}

	printResult(result)
}

func initLogging(cfg *config.AppConfig) {
	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
}

func printResult(result *domain.ScanResult) {
	if result.IsComplete {
		fmt.Printf("Scan complete: %d unique buyers\n", len(result.BuyerAddresses))
	} else {
		fmt.Printf("Scan paused on daily quota: %d unique buyers so far, resume from page %d\n",
			len(result.BuyerAddresses), result.LastProcessedPage+1)
	}
	for _, addr := range result.BuyerAddresses {
		fmt.Println(addr)
	}
}
