package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/chatflow/internal/config"
	"github.com/aretw0/chatflow/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// v holds the settings shared by every command. Flags are bound onto it so a
// flag overrides the environment, which overrides the config file.
var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "chatflow",
	Short: "Chatflow runs tenant chatbot flows",
	Long: `Chatflow executes chatbot conversation flows (graphs of messages, questions,
buttons, conditions and actions) for many tenants, over HTTP or in the terminal.`,
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
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().String("flows", "flows", "Directory containing the tenant flow files")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	_ = v.BindPFlag("flows.dir", rootCmd.PersistentFlags().Lookup("flows"))
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// loadConfig resolves the configuration and the logger for a command.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, file)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.LogLevel(), cfg.Log.Format), nil
}
