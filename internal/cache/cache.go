// Package cache tracks the inputs and outputs of past generations so an
// unchanged service is not sent back to the LLM.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const lockFileName = ".mcpgen-lock.json"

// Lock records, per generated file, the hashes of the inputs that produced
// it. The file lives in the output directory next to the services.
type Lock struct {
	Services map[string]Entry `json:"services"`
}

// Entry records hashes and metadata for a single generated service.
type Entry struct {
	InputHash  string `json:"inputHash"`
	OutputHash string `json:"outputHash"`
	Timestamp  string `json:"timestamp"`
	Model      string `json:"model"`
}

// HashInput hashes the parts that determine a generation result, in order.
// Callers pass the model and the full prompts.
func HashInput(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashOutput hashes generated code.
func HashOutput(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Load reads the lock file from dir. A missing file yields an empty Lock.
func Load(dir string) (*Lock, error) {
	data, err := os.ReadFile(filepath.Join(dir, lockFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Lock{Services: make(map[string]Entry)}, nil
		}
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	var l Lock
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing lock file: %w", err)
	}
	if l.Services == nil {
		l.Services = make(map[string]Entry)
	}
	return &l, nil
}

// Save writes the lock file into dir.
func Save(dir string, l *Lock) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, lockFileName), data, 0o644)
}

// Update records a fresh generation for name.
func (l *Lock) Update(name, inputHash, outputHash, model string) {
	l.Services[name] = Entry{
		InputHash:  inputHash,
		OutputHash: outputHash,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Model:      model,
	}
}

// UpToDate reports whether name was last generated from inputHash and the
// file at path still carries the recorded output. A hand-edited or missing
// file is never up to date.
func (l *Lock) UpToDate(name, inputHash, path string) bool {
	entry, ok := l.Services[name]
	if !ok || entry.InputHash != inputHash {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return HashOutput(string(data)) == entry.OutputHash
}
