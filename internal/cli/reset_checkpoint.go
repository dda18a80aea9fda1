package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/buyerscan/buyerscan/internal/core/config"
	"github.com/buyerscan/buyerscan/internal/core/domain"
)

var resetCheckpointCmd = &cobra.Command{
	Use:   "reset-checkpoint [contract]",
	Short: "Reset the checkpoint for a contract so the next scan starts from block 0",
	Args:  cobra.ExactArgs(1),
	Run:   runResetCheckpoint,
}

func init() {
	rootCmd.AddCommand(resetCheckpointCmd)
}

func runResetCheckpoint(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	initLogging(cfg)

	ctx := context.Background()
	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// An empty overwrite: the engine reads zero page/block as "start over".
	if err := store.Save(ctx, args[0], &domain.Checkpoint{Addresses: []string{}}); err != nil {
		slog.Error("Failed to reset checkpoint", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully reset checkpoint for %s\n", args[0])
}
