package installer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeTool drops a stand-in executable into PATH that appends its argv to
// the file named by TOOL_LOG, exiting nonzero when any argument matches
// failOn.
func fakeTool(t *testing.T, name, failOn string) string {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "calls.log")
	body := "#!/bin/sh\necho \"$@\" >> \"$TOOL_LOG\"\n"
	if failOn != "" {
		body += "case \"$*\" in *" + failOn + "*) echo boom >&2; exit 1;; esac\n"
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
		t.Fatalf("writing fake %s: %v", name, err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("TOOL_LOG", logPath)
	return logPath
}

func calls(t *testing.T, logPath string) string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading call log: %v", err)
	}
	return string(data)
}

func TestInstall_NothingToInstall(t *testing.T) {
	i := New(false, nil)
	err := i.Install(context.Background(), nil, "")
	if err == nil {
		t.Fatal("expected error when nothing was requested")
	}
	if !strings.Contains(err.Error(), "nothing to install") {
		t.Errorf("error = %q, want nothing-to-install message", err)
	}
}

func TestInstallRequirements_MissingFile(t *testing.T) {
	i := New(false, nil)
	err := i.InstallRequirements(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error for missing requirements file")
	}
	if !strings.Contains(err.Error(), "missing.txt") {
		t.Errorf("error = %q, want to name the file", err)
	}
}

func TestInstallPackage_UVMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	i := New(false, nil)
	err := i.InstallPackage(context.Background(), "requests")
	if err == nil {
		t.Fatal("expected error without uv on PATH")
	}
	if !strings.Contains(err.Error(), "uv is not installed") {
		t.Errorf("error = %q, want uv install hint", err)
	}
}

func TestInstall_RequirementsFileWins(t *testing.T) {
	logPath := fakeTool(t, "uv", "")
	req := filepath.Join(t.TempDir(), "requirements.txt")
	if err := os.WriteFile(req, []byte("requests\n"), 0o644); err != nil {
		t.Fatalf("writing requirements: %v", err)
	}

	i := New(false, nil)
	if err := i.Install(context.Background(), []string{"ignored"}, req); err != nil {
		t.Fatalf("Install: %v", err)
	}

	got := calls(t, logPath)
	if !strings.Contains(got, "pip install -r "+req) {
		t.Errorf("calls = %q, want requirements install", got)
	}
	if strings.Contains(got, "ignored") {
		t.Error("package list should be skipped when a requirements file is given")
	}
}

func TestInstall_PackageList(t *testing.T) {
	logPath := fakeTool(t, "uv", "")

	i := New(false, nil)
	if err := i.Install(context.Background(), []string{"requests", "numpy"}, ""); err != nil {
		t.Fatalf("Install: %v", err)
	}

	got := calls(t, logPath)
	if !strings.Contains(got, "pip install requests") || !strings.Contains(got, "pip install numpy") {
		t.Errorf("calls = %q, want both packages installed", got)
	}
}

func TestInstall_CollectsFailures(t *testing.T) {
	logPath := fakeTool(t, "uv", "badpkg")

	i := New(false, nil)
	err := i.Install(context.Background(), []string{"goodpkg", "badpkg", "alsogood"}, "")
	if err == nil {
		t.Fatal("expected error when one package fails")
	}
	if !strings.Contains(err.Error(), "badpkg") {
		t.Errorf("error = %q, want to name the failed package", err)
	}
	if strings.Contains(err.Error(), "alsogood") {
		t.Errorf("error = %q, names a package that installed fine", err)
	}

	got := calls(t, logPath)
	if !strings.Contains(got, "pip install alsogood") {
		t.Error("a failure should not stop later installs")
	}
}

func TestInstall_PythonMode(t *testing.T) {
	logPath := fakeTool(t, "python", "")

	i := New(true, nil)
	if err := i.InstallPackage(context.Background(), "requests"); err != nil {
		t.Fatalf("InstallPackage: %v", err)
	}

	got := calls(t, logPath)
	if !strings.Contains(got, "-m pip install requests") {
		t.Errorf("calls = %q, want pip module invocation", got)
	}
}

func TestInstallPackage_ErrorIncludesStderr(t *testing.T) {
	fakeTool(t, "uv", "doomed")

	i := New(false, nil)
	err := i.InstallPackage(context.Background(), "doomed")
	if err == nil {
		t.Fatal("expected install failure")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %q, want captured stderr", err)
	}
}

func TestWriteRequirementsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.txt")
	if err := WriteRequirementsFile([]string{"requests", "numpy==1.26.0"}, path); err != nil {
		t.Fatalf("WriteRequirementsFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading requirements: %v", err)
	}
	want := "requests\nnumpy==1.26.0\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", string(data), want)
	}
}
