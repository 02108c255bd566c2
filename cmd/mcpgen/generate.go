package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcpgen/mcpgen/internal/config"
	"github.com/mcpgen/mcpgen/internal/generate"
)

var (
	genOutput   string
	genDir      string
	genTemplate string
	genConfig   string
	genAPIKey   string
	genModel    string
	genBaseURL  string
	genForce    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate DESCRIPTION",
	Short: "Generate MCP service code from a description",
	Long: `Sends the description to the configured LLM together with a service
template and saves the returned Python code.

A lock file in the output directory remembers what produced each service;
rerunning with an unchanged description, template, and model skips the LLM
call unless --force is given.

Example:
  mcpgen generate "a service that returns current weather for a city" -o weather`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "mcp_service.py", "Output filename")
	generateCmd.Flags().StringVarP(&genDir, "directory", "d", ".", "Output directory")
	generateCmd.Flags().StringVarP(&genTemplate, "template", "t", "example.md", "Template file path")
	generateCmd.Flags().StringVarP(&genConfig, "config", "c", "", "Configuration file path")
	generateCmd.Flags().StringVar(&genAPIKey, "api-key", "", "OpenAI API key, overrides config file and environment")
	generateCmd.Flags().StringVar(&genModel, "model", "", "Model name, overrides config file and environment")
	generateCmd.Flags().StringVar(&genBaseURL, "base-url", "", "OpenAI-compatible base URL, overrides config file and environment")
	generateCmd.Flags().BoolVar(&genForce, "force", false, "Regenerate even when the service is up to date")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	description := strings.Join(args, " ")

	cfg, err := config.Resolve(genConfig, genAPIKey, genModel, genBaseURL)
	if err != nil {
		return err
	}
	gen, err := generate.New(cfg, logger)
	if err != nil {
		return err
	}

	path, cached, err := gen.GenerateToFile(ctx, description, genTemplate, genOutput, genDir, genForce)
	if err != nil {
		return err
	}

	if cached {
		fmt.Printf("Service is up to date: %s\n", path)
	} else {
		fmt.Printf("Generated service saved to: %s\n", path)
	}
	return nil
}
