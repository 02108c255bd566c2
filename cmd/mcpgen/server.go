package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcpgen/mcpgen/internal/mcpserver"
)

var (
	serverHost   string
	serverPort   int
	serverConfig string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the MCP server",
	Long: `Serves the mcpgen operations as MCP tools over SSE. Clients connect to
GET /sse and POST JSON-RPC requests to the per-session /messages/ endpoint.

Exposed tools: generate_mcp_service, run_mcp_service, install_package,
configure_openai. A health check is available at GET /sse/health.`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&serverHost, "host", "0.0.0.0", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8000, "Server port")
	serverCmd.Flags().StringVarP(&serverConfig, "config", "c", "", "Configuration file path")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := mcpserver.New(serverConfig, version, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx, serverHost, serverPort)
}
