package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/flightzone/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "flightzone",
	Short: "Drone operational safety zone builder",
	Long:  "Builds nested Flight Geography, Contingency and Ground Risk Buffer zones around drone routes, stores missions, checks them against airspace restrictions and serves them over HTTP.",
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
