package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"

	"go.uber.org/zap"
)

// Runner launches generated service scripts as child processes, routing
// their output to per-script log files.
type Runner struct {
	logDir string
	logger *zap.Logger
}

// New builds a Runner whose log directory is created up front.
func New(logDir string, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("resolving log directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", abs, err)
	}
	return &Runner{logDir: abs, logger: logger}, nil
}

// Options control how a service is launched.
type Options struct {
	Host       string // passed to the script as --host when set
	Port       int    // passed to the script as --port when set
	UsePython  bool   // run with python instead of uv
	Background bool   // detach instead of waiting for exit
}

// Service describes a launched service process.
type Service struct {
	PID     int
	Script  string
	LogPath string
}

// Start launches script. In background mode it returns as soon as the child
// is running; in foreground mode it waits for the child to exit and honors
// ctx cancellation. Child stdout and stderr are appended to
// <logDir>/<script name>.log in both modes.
func (r *Runner) Start(ctx context.Context, script string, opts Options) (*Service, error) {
	info, err := os.Stat(script)
	if err != nil {
		return nil, fmt.Errorf("script not found at %s: %w", script, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("script %s is a directory", script)
	}

	name, args := command(script, opts)
	logPath := filepath.Join(r.logDir, filepath.Base(script)+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", logPath, err)
	}

	// The script runs from its own directory so relative paths inside the
	// generated code resolve next to it.
	dir := filepath.Dir(script)

	if opts.Background {
		cmd := exec.Command(name, args...)
		cmd.Dir = dir
		cmd.Stdout = logFile
		cmd.Stderr = logFile
		if err := cmd.Start(); err != nil {
			_ = logFile.Close()
			return nil, startError(name, err)
		}
		go func() {
			// Reap the detached child so it cannot linger as a zombie.
			_ = cmd.Wait()
			_ = logFile.Close()
		}()
		r.logger.Info("service started",
			zap.Int("pid", cmd.Process.Pid),
			zap.String("script", script),
			zap.String("log", logPath))
		return &Service{PID: cmd.Process.Pid, Script: script, LogPath: logPath}, nil
	}

	defer func() { _ = logFile.Close() }()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	r.logger.Info("running service",
		zap.String("script", script),
		zap.String("log", logPath))
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, startError(name, err)
		}
		return nil, fmt.Errorf("service exited: %w", err)
	}
	return &Service{PID: cmd.Process.Pid, Script: script, LogPath: logPath}, nil
}

func startError(name string, err error) error {
	if name == "uv" && errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("starting service: %w (install uv or rerun with --python)", err)
	}
	return fmt.Errorf("starting service: %w", err)
}

// command builds the argv for a launch. Host and port ride on the script's
// own argument parser, so they follow the script path.
func command(script string, opts Options) (string, []string) {
	var name string
	var args []string
	if opts.UsePython {
		name = "python"
		args = []string{script}
	} else {
		name = "uv"
		args = []string{"run", script}
	}
	if opts.Host != "" {
		args = append(args, "--host", opts.Host)
	}
	if opts.Port != 0 {
		args = append(args, "--port", strconv.Itoa(opts.Port))
	}
	return name, args
}

// Running reports whether pid is alive, checked with signal 0.
func Running(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Stop asks pid to terminate with SIGTERM.
func Stop(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("stopping process %d: %w", pid, err)
	}
	return nil
}
