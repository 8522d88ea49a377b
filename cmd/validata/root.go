package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oncoqa/validata/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "validata",
	Short: "Oncology dataset compliance validator",
	Long:  "Validates oncology treatment datasets against TG-263, ICD-10, ICD-O, CPQR, and CPAC coding standards and reports compliance violations.",
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
