package installer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Installer installs Python dependencies for generated services, through uv
// by default or pip when usePython is set.
type Installer struct {
	usePython bool
	logger    *zap.Logger
}

func New(usePython bool, logger *zap.Logger) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{usePython: usePython, logger: logger}
}

// CheckUV reports whether the uv binary is available.
func CheckUV(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "uv", "--version")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run() == nil
}

func (i *Installer) ensureRunner(ctx context.Context) error {
	if i.usePython {
		return nil
	}
	if !CheckUV(ctx) {
		return fmt.Errorf("uv is not installed, install it first (pip install uv) or rerun with --python")
	}
	return nil
}

func (i *Installer) pipCommand(ctx context.Context, args ...string) *exec.Cmd {
	if i.usePython {
		return exec.CommandContext(ctx, "python", append([]string{"-m", "pip", "install"}, args...)...)
	}
	return exec.CommandContext(ctx, "uv", append([]string{"pip", "install"}, args...)...)
}

// InstallPackage installs a single package.
func (i *Installer) InstallPackage(ctx context.Context, name string) error {
	if err := i.ensureRunner(ctx); err != nil {
		return err
	}

	i.logger.Info("installing package", zap.String("package", name))
	cmd := i.pipCommand(ctx, name)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("installing %s: %w", name, err)
		}
		return fmt.Errorf("installing %s: %s", name, msg)
	}

	i.logger.Info("package installed", zap.String("package", name))
	return nil
}

// InstallRequirements installs everything listed in a requirements file,
// which must exist.
func (i *Installer) InstallRequirements(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("requirements file %s: %w", path, err)
	}
	if err := i.ensureRunner(ctx); err != nil {
		return err
	}

	i.logger.Info("installing requirements", zap.String("file", path))
	cmd := i.pipCommand(ctx, "-r", path)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("installing from %s: %w", path, err)
		}
		return fmt.Errorf("installing from %s: %s", path, msg)
	}

	i.logger.Info("requirements installed", zap.String("file", path))
	return nil
}

// Install dispatches to the right mode: a requirements file when given,
// otherwise the package list one at a time, continuing past individual
// failures. Nothing to install is an error.
func (i *Installer) Install(ctx context.Context, packages []string, requirementsFile string) error {
	if requirementsFile != "" {
		return i.InstallRequirements(ctx, requirementsFile)
	}
	if len(packages) == 0 {
		return fmt.Errorf("nothing to install: provide package names or a requirements file")
	}

	var failed []string
	for _, pkg := range packages {
		if err := i.InstallPackage(ctx, pkg); err != nil {
			i.logger.Error("package install failed", zap.String("package", pkg), zap.Error(err))
			failed = append(failed, pkg)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to install: %s", strings.Join(failed, ", "))
	}
	return nil
}

// WriteRequirementsFile writes a requirements file, one package per line.
func WriteRequirementsFile(packages []string, outputFile string) error {
	var b strings.Builder
	for _, pkg := range packages {
		b.WriteString(pkg)
		b.WriteString("\n")
	}
	if err := os.WriteFile(outputFile, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputFile, err)
	}
	return nil
}
