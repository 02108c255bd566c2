// Package mcpserver exposes generation, launch, install, and configuration
// as MCP tools over an SSE transport, so agents can drive the toolchain the
// same way the CLI does.
package mcpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcpgen/mcpgen/internal/config"
)

const serverName = "mcpgen"

// Server is an MCP server over SSE. Clients open GET /sse for the event
// stream, receive a per-session message endpoint, and POST JSON-RPC
// requests there; responses travel back on the stream.
type Server struct {
	configPath string
	version    string
	logger     *zap.Logger

	heartbeat     time.Duration
	headerTimeout time.Duration

	tools     []Tool
	toolIndex map[string]int

	mu       sync.Mutex
	sessions map[string]chan []byte
}

// New builds a Server. configPath selects the config file the tools read
// and write; empty means the default location.
func New(configPath, version string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := config.Resolve(configPath, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("resolving config: %w", err)
	}

	s := &Server{
		configPath:    configPath,
		version:       version,
		logger:        logger,
		heartbeat:     cfg.HeartbeatInterval,
		headerTimeout: cfg.HTTPTimeout,
		sessions:      make(map[string]chan []byte),
	}
	s.tools = s.builtinTools()
	s.toolIndex = make(map[string]int, len(s.tools))
	for i, tool := range s.tools {
		s.toolIndex[tool.Name] = i
	}
	return s, nil
}

// Handler returns the HTTP routes: the SSE stream, the message endpoint,
// and the health check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", s.handleSSE)
	mux.HandleFunc("/sse/health", s.handleHealth)
	mux.HandleFunc("/messages/", s.handleMessage)
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully. Open SSE
// streams are torn down as part of shutdown because request contexts hang
// off ctx.
func (s *Server) Run(ctx context.Context, host string, port int) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.headerTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("starting MCP server",
		zap.String("endpoint", "http://"+srv.Addr+"/sse"),
		zap.String("version", s.version))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		_ = srv.Close()
	}
	s.logger.Info("MCP server stopped")
	return nil
}

func (s *Server) addSession() (string, chan []byte) {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	id := hex.EncodeToString(buf)
	ch := make(chan []byte, 16)

	s.mu.Lock()
	s.sessions[id] = ch
	s.mu.Unlock()
	return id, ch
}

func (s *Server) removeSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) session(id string) (chan []byte, bool) {
	s.mu.Lock()
	ch, ok := s.sessions[id]
	s.mu.Unlock()
	return ch, ok
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id, ch := s.addSession()
	defer s.removeSession(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: /messages/?session_id=%s\n\n", id)
	flusher.Flush()
	s.logger.Info("client connected", zap.String("session", id))

	interval := s.heartbeat
	if interval <= 0 {
		interval = config.DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("client disconnected", zap.String("session", id))
			return
		case msg := <-ch:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("session_id")
	ch, ok := s.session(id)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Warn("unparseable request", zap.String("session", id), zap.Error(err))
		s.send(ch, parseErrorResponse("parse error"))
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// The JSON-RPC response travels over the stream, so the POST only
	// acknowledges receipt. Tool handlers must outlive this request.
	go s.dispatch(context.WithoutCancel(r.Context()), ch, req)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) dispatch(ctx context.Context, ch chan []byte, req request) {
	resp := s.handle(ctx, req)
	if resp == nil {
		return
	}
	s.send(ch, resp)
}

func (s *Server) send(ch chan []byte, resp *response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshaling response", zap.Error(err))
		return
	}
	select {
	case ch <- data:
	default:
		s.logger.Warn("session queue full, dropping response", zap.Intp("id", resp.ID))
	}
}

func (s *Server) handle(ctx context.Context, req request) *response {
	if req.JSONRPC != "2.0" || req.Method == "" {
		if req.ID == nil {
			return nil
		}
		return errorResponse(*req.ID, codeInvalidRequest, "invalid request")
	}
	if req.ID == nil {
		// Notifications never get a response.
		if req.Method != "notifications/initialized" {
			s.logger.Debug("ignoring notification", zap.String("method", req.Method))
		}
		return nil
	}
	id := *req.ID

	switch req.Method {
	case "initialize":
		return resultResponse(id, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    capabilities{Tools: true},
			ServerInfo:      serverInfo{Name: serverName, Version: s.version},
		})
	case "ping":
		return resultResponse(id, struct{}{})
	case "tools/list":
		return resultResponse(id, toolListResult{Tools: s.toolSchemas()})
	case "tools/call":
		return s.handleToolCall(ctx, id, req.Params)
	default:
		return errorResponse(id, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (s *Server) handleToolCall(ctx context.Context, id int, params json.RawMessage) *response {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return errorResponse(id, codeInvalidParams, "invalid tool call params")
	}
	idx, ok := s.toolIndex[call.Name]
	if !ok {
		return errorResponse(id, codeInvalidParams, fmt.Sprintf("unknown tool %q", call.Name))
	}
	tool := s.tools[idx]

	s.logger.Info("tool call", zap.String("tool", call.Name))
	text, err := tool.Handler(ctx, call.Arguments)
	if err != nil {
		s.logger.Error("tool call failed", zap.String("tool", call.Name), zap.Error(err))
		return errorResponse(id, codeInternalError, err.Error())
	}
	return resultResponse(id, toolResult{
		Content: []toolContent{{Type: "text", Text: text}},
	})
}
