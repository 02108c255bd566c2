package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcpgen/mcpgen/internal/installer"
)

var (
	installRequirements string
	installUsePython    bool
)

var installCmd = &cobra.Command{
	Use:   "install [PACKAGE...]",
	Short: "Install Python packages for generated services",
	Long: `Installs packages with uv pip, or with python -m pip when --python is
given. A requirements file takes precedence over package arguments.`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVarP(&installRequirements, "requirements", "r", "", "Path to a requirements file")
	installCmd.Flags().BoolVar(&installUsePython, "python", false, "Use python -m pip instead of uv pip")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inst := installer.New(installUsePython, logger)
	if err := inst.Install(ctx, args, installRequirements); err != nil {
		return err
	}

	fmt.Println("Dependencies installed successfully")
	return nil
}
