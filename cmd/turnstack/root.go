package main

import (
	"fmt"
	"os"

	"github.com/aretw0/turnstack/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "turnstack",
	Short: "Turnstack is a turn-dispatch runtime for conversational bots",
	Long: `Turnstack routes every turn of a conversation through a persisted dialog stack.
It ships a configurable menu bot you can talk to in the terminal, over HTTP or as MCP tools.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultPath, "Path to the configuration file (YAML or JSON)")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("store", "", "State store: memory, file or redis")
	flags.String("dir", "", "Directory of the file store")
	flags.String("redis-addr", "", "Address of the redis store")
}

// loadConfig reads the config file and applies the persistent flag overrides.
// The default path may be missing; an explicit one must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	cfg, err := config.Load(path, !flags.Changed("config"))
	if err != nil {
		return nil, err
	}

	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := flags.GetString("store"); v != "" {
		cfg.Store.Type = v
	}
	if v, _ := flags.GetString("dir"); v != "" {
		cfg.Store.Dir = v
	}
	if v, _ := flags.GetString("redis-addr"); v != "" {
		cfg.Store.Redis.Addr = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
