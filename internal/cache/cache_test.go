package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashInput_Deterministic(t *testing.T) {
	h1 := HashInput("gpt-4", "system", "user prompt")
	h2 := HashInput("gpt-4", "system", "user prompt")
	if h1 != h2 {
		t.Errorf("hashes differ for same input: %s vs %s", h1, h2)
	}
}

func TestHashInput_Sensitive(t *testing.T) {
	base := HashInput("gpt-4", "system", "user prompt")
	if HashInput("gpt-3.5-turbo", "system", "user prompt") == base {
		t.Error("hash should change with the model")
	}
	if HashInput("gpt-4", "system", "other prompt") == base {
		t.Error("hash should change with the prompt")
	}
}

func TestHashOutput_Deterministic(t *testing.T) {
	h1 := HashOutput("print('hi')")
	h2 := HashOutput("print('hi')")
	if h1 != h2 {
		t.Errorf("hashes differ for same output: %s vs %s", h1, h2)
	}
}

func TestLock_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	l := &Lock{Services: map[string]Entry{
		"svc.py": {InputHash: "abc", OutputHash: "def", Model: "test-model"},
	}}

	if err := Save(dir, l); err != nil {
		t.Fatalf("save error: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	entry, ok := loaded.Services["svc.py"]
	if !ok {
		t.Fatal("missing svc.py entry")
	}
	if entry.InputHash != "abc" || entry.OutputHash != "def" || entry.Model != "test-model" {
		t.Errorf("entry = %+v, want abc/def/test-model", entry)
	}
}

func TestLoad_Missing(t *testing.T) {
	l, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if len(l.Services) != 0 {
		t.Errorf("expected empty lock, got %d entries", len(l.Services))
	}
}

func TestUpToDate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.py")
	code := "print('hi')"
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		t.Fatal(err)
	}

	l := &Lock{Services: make(map[string]Entry)}
	l.Update("svc.py", "input-hash", HashOutput(code), "gpt-4")

	if !l.UpToDate("svc.py", "input-hash", path) {
		t.Error("should be up to date with matching hashes")
	}
	if l.UpToDate("svc.py", "other-hash", path) {
		t.Error("should not be up to date with a different input hash")
	}
	if l.UpToDate("missing.py", "input-hash", path) {
		t.Error("should not be up to date for an unknown service")
	}

	// A hand-edited file must trigger regeneration.
	if err := os.WriteFile(path, []byte("print('edited')"), 0o644); err != nil {
		t.Fatal(err)
	}
	if l.UpToDate("svc.py", "input-hash", path) {
		t.Error("should not be up to date after the file was edited")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if l.UpToDate("svc.py", "input-hash", path) {
		t.Error("should not be up to date when the file is gone")
	}
}
