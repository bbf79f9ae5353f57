package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sumika/estimator/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sumika",
	Short: "Comparable-based property service-fee estimation engine",
	Long:  "Turns a partially-specified property profile into a service-fee estimate by combining a statistical baseline over historical comparables with a Claude-generated estimate, and reconciles estimates against human corrections.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
