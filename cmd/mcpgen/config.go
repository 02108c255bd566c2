package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcpgen/mcpgen/internal/config"
)

var cfgPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mcpgen configuration",
	Long: `Reads and writes the config file (default ~/.config/mcpgen/config.yaml).

Valid keys: ` + strings.Join(config.ValidKeys, ", ") + `.

Settings resolve in priority order: command-line flags, then the config
file, then MCPGEN_*/OPENAI_* environment variables, then built-in defaults.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], args[1], cfgPath); err != nil {
			return err
		}
		fmt.Printf("Configuration updated: %s\n", args[0])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.List(cfgPath)
		if err != nil {
			return err
		}

		display := func(key string) string {
			if v := settings[key]; v != "" {
				return v
			}
			return "Not set"
		}

		fmt.Println("OpenAI Configuration:")
		fmt.Printf("  API Key: %s\n", display("api-key"))
		fmt.Printf("  Model: %s\n", display("model"))
		fmt.Printf("  Base URL: %s\n", display("base-url"))
		fmt.Println()
		fmt.Println("Timing Settings:")
		fmt.Printf("  Heartbeat Interval: %s\n", settings["heartbeat-interval"])
		fmt.Printf("  Heartbeat Timeout: %s\n", settings["heartbeat-timeout"])
		fmt.Printf("  HTTP Timeout: %s\n", settings["http-timeout"])
		fmt.Printf("  Reconnection Interval: %s\n", settings["reconnection-interval"])
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Reset(cfgPath); err != nil {
			return err
		}
		fmt.Println("Configuration reset")
		return nil
	},
}

func init() {
	configCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Configuration file path")
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}
