package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcpgen/mcpgen/internal/runner"
)

var (
	runHost       string
	runPort       int
	runUsePython  bool
	runBackground bool
	runLogDir     string
)

var runCmd = &cobra.Command{
	Use:   "run SCRIPT",
	Short: "Run a generated MCP service",
	Long: `Launches a Python service script with uv, or with plain python when
--python is given. Output is appended to <log-dir>/<script name>.log.

By default the command waits for the service and stops it on Ctrl+C.
With --background the service keeps running after mcpgen exits.`,
	Args: cobra.ExactArgs(1),
	RunE: runService,
}

func init() {
	runCmd.Flags().StringVar(&runHost, "host", "", "Host to pass to the service")
	runCmd.Flags().IntVar(&runPort, "port", 0, "Port to pass to the service")
	runCmd.Flags().BoolVar(&runUsePython, "python", false, "Use python instead of uv")
	runCmd.Flags().BoolVar(&runBackground, "background", false, "Detach and leave the service running")
	runCmd.Flags().StringVar(&runLogDir, "log-dir", "./service_logs", "Log directory")
	rootCmd.AddCommand(runCmd)
}

func runService(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := runner.New(runLogDir, logger)
	if err != nil {
		return err
	}

	svc, err := r.Start(ctx, args[0], runner.Options{
		Host:       runHost,
		Port:       runPort,
		UsePython:  runUsePython,
		Background: runBackground,
	})
	if err != nil {
		return err
	}

	if runBackground {
		fmt.Printf("Service started successfully, PID: %d. Logs are recorded in: %s\n", svc.PID, svc.LogPath)
	}
	return nil
}
