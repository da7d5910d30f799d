package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgPkg "github.com/xhad/seek/pkg/config"
)

var (
	cfgFile  string
	logLevel string
	cfg      *cfgPkg.Config
)

var rootCmd = &cobra.Command{
	Use:   "seek",
	Short: "Answer questions from a freshly crawled Wikipedia corpus",
	Long: `seek normalizes a question, crawls the top Wikipedia search results,
ranks them by embedding similarity and answers from the best matches.

Example usage:
  seek ask "wha is AI"        # One-shot answer
  seek ask                    # Interactive session
  seek serve                  # HTTP and websocket API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = cfgPkg.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		if errs := cfg.Validate(); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "config: %s\n", e)
			}
			return fmt.Errorf("invalid configuration (%d errors)", len(errs))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
