package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/graphlab/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "graphlab",
	Short: "graphlab steps through graph traversals one event at a time",
	Long: `graphlab runs BFS, DFS and Dijkstra as step-by-step sessions.
Serve them over HTTP and WebSocket, or play one in the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load (ignored when missing)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json")
}

// loadConfig resolves the configuration and applies flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(path, envFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if f := flags.Lookup("addr"); f != nil && f.Changed {
		cfg.HTTPAddr = f.Value.String()
	}
	if f := flags.Lookup("redis-addr"); f != nil && f.Changed {
		cfg.RedisAddr = f.Value.String()
	}
	if f := flags.Lookup("session-ttl"); f != nil && f.Changed {
		cfg.SessionTTL, _ = flags.GetDuration("session-ttl")
	}
	if f := flags.Lookup("interval"); f != nil && f.Changed {
		cfg.AutoPlayInterval, _ = flags.GetDuration("interval")
	}
	return cfg, cfg.Validate()
}

func newLogger(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}
