package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcpgen/mcpgen/internal/config"
	"github.com/mcpgen/mcpgen/internal/generate"
	"github.com/mcpgen/mcpgen/internal/installer"
	"github.com/mcpgen/mcpgen/internal/runner"
)

// Tool is one callable MCP tool: a name, a JSON schema describing its
// arguments, and a handler returning text content.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     func(ctx context.Context, args json.RawMessage) (string, error)
}

func (s *Server) toolSchemas() []toolSchema {
	schemas := make([]toolSchema, len(s.tools))
	for i, t := range s.tools {
		schemas[i] = toolSchema{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}
	return schemas
}

func (s *Server) builtinTools() []Tool {
	return []Tool{
		{
			Name:        "generate_mcp_service",
			Description: "Generate MCP service code from a natural language description and save it to a file",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"description": {"type": "string", "description": "Natural language description of the MCP service"},
					"filename": {"type": "string", "description": "Filename to save, defaults to mcp_service.py"},
					"directory": {"type": "string", "description": "Directory to save into, defaults to ./mcp-services"},
					"api_key": {"type": "string", "description": "API key overriding configuration"},
					"model": {"type": "string", "description": "Model name overriding configuration"},
					"base_url": {"type": "string", "description": "OpenAI-compatible base URL overriding configuration"}
				},
				"required": ["description"]
			}`),
			Handler: s.generateService,
		},
		{
			Name:        "run_mcp_service",
			Description: "Start a generated MCP service script in the background",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"script_path": {"type": "string", "description": "Path to the Python script to start"},
					"use_uv": {"type": "boolean", "description": "Run through uv instead of python, defaults to true"}
				},
				"required": ["script_path"]
			}`),
			Handler: s.runService,
		},
		{
			Name:        "install_package",
			Description: "Install a Python package or the dependencies listed in a requirements file",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"package": {"type": "string", "description": "Name of the package to install"},
					"requirements": {"type": "string", "description": "Path to a requirements file"}
				}
			}`),
			Handler: s.installPackage,
		},
		{
			Name:        "configure_openai",
			Description: "Store OpenAI-compatible API settings in the configuration file",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"api_key": {"type": "string", "description": "API key"},
					"model": {"type": "string", "description": "Model name, defaults to gpt-3.5-turbo"},
					"base_url": {"type": "string", "description": "Custom base URL for OpenAI-compatible services"}
				},
				"required": ["api_key"]
			}`),
			Handler: s.configureOpenAI,
		},
	}
}

func unmarshalArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) generateService(ctx context.Context, args json.RawMessage) (string, error) {
	a := struct {
		Description string `json:"description"`
		Filename    string `json:"filename"`
		Directory   string `json:"directory"`
		APIKey      string `json:"api_key"`
		Model       string `json:"model"`
		BaseURL     string `json:"base_url"`
	}{
		Filename:  "mcp_service.py",
		Directory: "./mcp-services",
	}
	if err := unmarshalArgs(args, &a); err != nil {
		return "", err
	}
	if a.Description == "" {
		return "", fmt.Errorf("description is required")
	}

	// Config is resolved per call so a prior configure_openai takes
	// effect without restarting the server.
	cfg, err := config.Resolve(s.configPath, a.APIKey, a.Model, a.BaseURL)
	if err != nil {
		return "", fmt.Errorf("resolving config: %w", err)
	}
	gen, err := generate.New(cfg, s.logger)
	if err != nil {
		return "", err
	}

	path, _, err := gen.GenerateToFile(ctx, a.Description, "example.md", a.Filename, a.Directory, false)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) runService(ctx context.Context, args json.RawMessage) (string, error) {
	a := struct {
		ScriptPath string `json:"script_path"`
		UseUV      *bool  `json:"use_uv"`
	}{}
	if err := unmarshalArgs(args, &a); err != nil {
		return "", err
	}
	if a.ScriptPath == "" {
		return "", fmt.Errorf("script_path is required")
	}

	r, err := runner.New("./service_logs", s.logger)
	if err != nil {
		return "", err
	}
	opts := runner.Options{Background: true}
	if a.UseUV != nil && !*a.UseUV {
		opts.UsePython = true
	}
	svc, err := r.Start(ctx, a.ScriptPath, opts)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Service started successfully, PID: %d. Logs are recorded in: %s", svc.PID, svc.LogPath), nil
}

func (s *Server) installPackage(ctx context.Context, args json.RawMessage) (string, error) {
	a := struct {
		Package      string `json:"package"`
		Requirements string `json:"requirements"`
	}{}
	if err := unmarshalArgs(args, &a); err != nil {
		return "", err
	}

	inst := installer.New(false, s.logger)
	var packages []string
	if a.Package != "" {
		packages = []string{a.Package}
	}
	if err := inst.Install(ctx, packages, a.Requirements); err != nil {
		return "", err
	}
	if a.Requirements != "" {
		return "Dependencies installed successfully", nil
	}
	return fmt.Sprintf("%s installed successfully", a.Package), nil
}

func (s *Server) configureOpenAI(_ context.Context, args json.RawMessage) (string, error) {
	a := struct {
		APIKey  string `json:"api_key"`
		Model   string `json:"model"`
		BaseURL string `json:"base_url"`
	}{Model: config.DefaultModel}
	if err := unmarshalArgs(args, &a); err != nil {
		return "", err
	}
	if a.APIKey == "" {
		return "", fmt.Errorf("api_key is required")
	}

	cfg, err := config.Load(s.configPath)
	if err != nil {
		return "", err
	}
	cfg.APIKey = a.APIKey
	cfg.Model = a.Model
	if a.BaseURL != "" {
		cfg.BaseURL = a.BaseURL
	}
	if err := config.Save(cfg, s.configPath); err != nil {
		return "", err
	}

	msg := fmt.Sprintf("OpenAI configuration updated. Model: %s", a.Model)
	if a.BaseURL != "" {
		msg += fmt.Sprintf(", Custom URL: %s", a.BaseURL)
	}
	return msg, nil
}
