package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mcpgen/mcpgen/internal/cache"
	"github.com/mcpgen/mcpgen/internal/config"
	"github.com/mcpgen/mcpgen/internal/llm"
	"github.com/mcpgen/mcpgen/internal/template"
)

// Generator turns a natural-language description into Python MCP service
// code by prompting an LLM with a template skeleton.
type Generator struct {
	client *llm.Client
	logger *zap.Logger
}

// New builds a Generator from resolved configuration. It fails when no API
// key is available.
func New(cfg *config.Resolved, logger *zap.Logger) (*Generator, error) {
	client, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, logger: logger}, nil
}

// Generate produces service code for the description. templatePath selects
// the skeleton embedded in the prompt; empty or missing paths fall back to
// the built-in skeleton. The returned string is ready to write to disk.
func (g *Generator) Generate(ctx context.Context, description, templatePath string) (string, error) {
	return g.complete(ctx, g.prompt(description, templatePath))
}

// GenerateToFile runs the full pipeline against a generation cache: when
// the description, template, and model are unchanged since the last run and
// the output file is untouched, the LLM call is skipped and the existing
// file is kept. The returned bool reports whether the cache was used.
func (g *Generator) GenerateToFile(ctx context.Context, description, templatePath, filename, dir string, force bool) (string, bool, error) {
	prompt := g.prompt(description, templatePath)
	name := filename
	if !strings.HasSuffix(name, ".py") {
		name += ".py"
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", false, fmt.Errorf("resolving directory: %w", err)
	}
	lock, err := cache.Load(absDir)
	if err != nil {
		return "", false, err
	}

	inputHash := cache.HashInput(g.client.Model(), SystemPrompt, prompt)
	path := filepath.Join(absDir, name)
	if !force && lock.UpToDate(name, inputHash, path) {
		g.logger.Info("service unchanged, skipping generation", zap.String("path", path))
		return path, true, nil
	}

	code, err := g.complete(ctx, prompt)
	if err != nil {
		return "", false, err
	}
	path, err = SaveToFile(code, name, dir)
	if err != nil {
		return "", false, err
	}

	lock.Update(name, inputHash, cache.HashOutput(code), g.client.Model())
	if err := cache.Save(absDir, lock); err != nil {
		g.logger.Warn("saving generation lock", zap.Error(err))
	}
	return path, false, nil
}

func (g *Generator) prompt(description, templatePath string) string {
	skeleton := template.LoadSkeleton(templatePath, g.logger)
	return fmt.Sprintf(userPromptTemplate, description, skeleton)
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	g.logger.Info("requesting code generation", zap.String("model", g.client.Model()))
	resp, err := g.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: SystemPrompt,
		UserMessage:  prompt,
	})
	if err != nil {
		return "", fmt.Errorf("calling LLM: %w", err)
	}

	code, ok := ExtractCode(resp.Content)
	if !ok {
		return "", fmt.Errorf("no Python code found in model response")
	}

	g.logger.Info("code generated",
		zap.Int("tokens_in", resp.TokensIn),
		zap.Int("tokens_out", resp.TokensOut))
	return code, nil
}

// ExtractCode pulls Python code out of a model response. All python-tagged
// and untagged fenced blocks are collected in order and joined. When the
// response has no fences at all, raw output that still looks like Python is
// accepted as-is; anything else reports failure.
func ExtractCode(response string) (string, bool) {
	blocks := fencedBlocks(response)
	if len(blocks) > 0 {
		return strings.Join(blocks, "\n"), true
	}
	if strings.Contains(response, "def ") || strings.Contains(response, "import ") || strings.Contains(response, "class ") {
		return strings.TrimSpace(response), true
	}
	return "", false
}

func fencedBlocks(text string) []string {
	var blocks []string
	var body []string
	inBlock := false
	wanted := false

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if !inBlock {
			if strings.HasPrefix(trimmed, "```") {
				tag := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				inBlock = true
				wanted = tag == "" || tag == "python" || tag == "Python"
				body = body[:0]
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			if wanted {
				blocks = append(blocks, strings.TrimSpace(strings.Join(body, "\n")))
			}
			inBlock = false
			continue
		}
		body = append(body, line)
	}
	// An unterminated block at the end is dropped.
	return blocks
}

// SaveToFile writes code under dir, appending a .py extension when the
// filename lacks one. The directory is created if needed. Returns the
// absolute path of the written file.
func SaveToFile(code, filename, dir string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("refusing to save empty code")
	}
	if !strings.HasSuffix(filename, ".py") {
		filename += ".py"
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	path := filepath.Join(absDir, filename)
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}
