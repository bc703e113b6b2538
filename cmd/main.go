package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/latestcomment/go-live-activities/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "live",
	Short:         "Live polls, quizzes and word clouds over websockets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// loadConfig resolves the .env file, the optional config file and LIVE_*
// variables into a validated Config.
func loadConfig() (config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, nil, err
	}
	v := viper.New()
	config.SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, nil, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
