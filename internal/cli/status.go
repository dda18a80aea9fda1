package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/buyerscan/buyerscan/internal/core/config"
)

var statusCmd = &cobra.Command{
	Use:   "status [contract]",
	Short: "Show the stored checkpoint for a contract",
	Args:  cobra.MaximumNArgs(1),
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	initLogging(cfg)

	addr := cfg.Scan.Contract
	if len(args) > 0 {
		addr = args[0]
	}
	if addr == "" {
		slog.Error("No contract address given, pass one or set scan.contract")
		os.Exit(1)
	}

	ctx := context.Background()
	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	cp, err := store.Load(ctx, addr)
	if err != nil {
		slog.Error("Failed to load checkpoint", "error", err)
		os.Exit(1)
	}
	if cp == nil {
		fmt.Printf("No checkpoint for %s\n", addr)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CONTRACT\tBUYERS\tLAST PAGE\tLAST BLOCK")
	_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n",
		addr, cp.TotalBuyers, cp.LastProcessedPage, cp.LastProcessedBlock)
	_ = w.Flush()
}
