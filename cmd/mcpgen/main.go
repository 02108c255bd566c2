// Command mcpgen turns natural-language descriptions into runnable Python
// MCP services. It generates service code through an LLM, launches the
// result with uv or python, installs dependencies, manages the OpenAI
// settings, and can expose all of that to MCP clients over SSE.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.1.0"

var (
	verbose bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mcpgen",
	Short: "Generate MCP services from natural language descriptions",
	Long: `mcpgen turns a natural-language description into a runnable Python MCP
service. An LLM drafts the code against a service template, the result is
saved to disk, and the companion commands launch the service, install its
dependencies, and manage the OpenAI settings.

Run 'mcpgen server' to expose the same operations as MCP tools over SSE.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zapcore.InfoLevel
		if verbose {
			level = zapcore.DebugLevel
		}
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		)
		logger = zap.New(core)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
