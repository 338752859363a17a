// Package gateway exposes the service over HTTP and WebSocket: the chat
// endpoints, health and info probes, and a framed WS protocol for clients
// that want streaming.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/petclinic/genai-service/internal/agent"
	"github.com/petclinic/genai-service/internal/config"
	"github.com/petclinic/genai-service/internal/llm"
	"github.com/petclinic/genai-service/internal/logging"
	"github.com/petclinic/genai-service/internal/vectorstore"
	"github.com/petclinic/genai-service/internal/version"
)

// chatTimeout bounds a full chat turn, tool rounds included.
const chatTimeout = 5 * time.Minute

// maxChatBody caps the plain-text request body for /chatclient.
const maxChatBody = 64 * 1024

// Server is the genai-service HTTP + WebSocket server.
type Server struct {
	cfg      config.Config
	log      *logging.Logger
	runner   *agent.Runner
	index    *vectorstore.Store
	eventSeq atomic.Int64

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New creates a gateway server.
func New(cfg config.Config, runner *agent.Runner, index *vectorstore.Store, log *logging.Logger) *Server {
	allowedOrigins := cfg.Server.AllowedOrigins
	return &Server{
		cfg:    cfg,
		log:    log.Sub("gateway"),
		runner: runner,
		index:  index,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(allowedOrigins),
		},
	}
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin
// headers. Requests without an Origin (non-browser clients) always pass.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Server)

	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)

	handler := withMiddleware(mux, s.log, s.cfg.Server.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  chatTimeout,
		WriteTimeout: chatTimeout,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Server.Bind).
		Bool("chatEnabled", s.runner.Enabled()).
		Msg("server ready")

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// wsClient wraps a WebSocket connection with a write lock so streaming
// events and responses can interleave safely.
type wsClient struct {
	conn   *websocket.Conn
	connID string
	mu     sync.Mutex
}

func (c *wsClient) writeFrame(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(frame)
}

func (c *wsClient) respond(id string, payload any) {
	frame, err := NewResponse(id, payload)
	if err != nil {
		return
	}
	c.writeFrame(frame)
}

func (c *wsClient) respondError(id, code, message string) {
	c.writeFrame(NewErrorResponse(id, ErrorShape{Code: code, Message: message}))
}

func (c *wsClient) sendEvent(event string, payload any, seq int64) {
	frame, err := NewEvent(event, payload, seq)
	if err != nil {
		return
	}
	c.writeFrame(frame)
}

// handleWebSocket upgrades HTTP to WebSocket and runs the connection loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxChatBody)

	client := &wsClient{conn: conn, connID: uuid.New().String()}
	s.log.Debug().Str("connId", client.connID).Str("remote", r.RemoteAddr).Msg("new websocket connection")
	defer conn.Close()

	s.readLoop(r.Context(), client)
}

// readLoop processes incoming frames from a client.
func (s *Server) readLoop(ctx context.Context, client *wsClient) {
	for {
		var frame Frame
		if err := client.conn.ReadJSON(&frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("connId", client.connID).Msg("client closed connection")
			} else {
				s.log.Warn().Err(err).Str("connId", client.connID).Msg("read error")
			}
			return
		}

		if frame.Type != FrameTypeRequest {
			s.log.Debug().Str("type", frame.Type).Msg("ignoring non-request frame")
			continue
		}

		s.dispatch(ctx, client, frame)
	}
}

// dispatch routes a request frame to the matching method handler.
func (s *Server) dispatch(ctx context.Context, client *wsClient, frame Frame) {
	switch frame.Method {
	case "health":
		client.respond(frame.ID, map[string]any{
			"status":  "UP",
			"version": version.Version,
		})
	case "sessions.list":
		client.respond(frame.ID, map[string]any{"sessions": s.runner.Sessions()})
	case "chat.send":
		s.wsChatSend(ctx, client, frame)
	case "chat.reset":
		s.wsChatReset(client, frame)
	default:
		client.respondError(frame.ID, "method_not_found", "unknown method: "+frame.Method)
	}
}

type chatSendParams struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	Stream    bool   `json:"stream,omitempty"`
}

func (s *Server) wsChatSend(ctx context.Context, client *wsClient, frame Frame) {
	var p chatSendParams
	if err := unmarshalParams(frame, &p); err != nil {
		client.respondError(frame.ID, "invalid_params", err.Error())
		return
	}
	if p.Message == "" {
		client.respondError(frame.ID, "invalid_params", "message is required")
		return
	}
	sessionID := p.SessionID
	if sessionID == "" {
		sessionID = client.connID
	}

	chatCtx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	var result *agent.RunResult
	if p.Stream {
		result = s.runner.ChatStream(chatCtx, sessionID, p.Message, s.streamCallback(client, frame.ID))
	} else {
		result = s.runner.Chat(chatCtx, sessionID, p.Message)
	}

	client.respond(frame.ID, map[string]any{
		"response":   result.Response,
		"sessionId":  result.SessionID,
		"model":      result.Model,
		"usage":      result.Usage,
		"degraded":   result.Degraded,
		"durationMs": result.Duration.Milliseconds(),
	})
}

// streamCallback forwards runner events to the client as event frames.
func (s *Server) streamCallback(client *wsClient, requestID string) agent.StreamCallback {
	return func(evt llm.StreamEvent) {
		switch evt.Type {
		case "delta":
			client.sendEvent("chat.delta", map[string]any{
				"requestId": requestID,
				"content":   evt.Content,
			}, s.eventSeq.Add(1))
		case "tool_start", "tool_result":
			client.sendEvent("chat.event", map[string]any{
				"requestId": requestID,
				"kind":      evt.Type,
				"tool":      evt.Content,
			}, s.eventSeq.Add(1))
		}
	}
}

// unmarshalParams decodes a request frame's params. Absent params decode as
// the zero value.
func unmarshalParams(frame Frame, v any) error {
	if len(frame.Params) == 0 {
		return nil
	}
	return json.Unmarshal(frame.Params, v)
}

type wsChatResetParams struct {
	SessionID string `json:"sessionId,omitempty"`
}

func (s *Server) wsChatReset(client *wsClient, frame Frame) {
	var p wsChatResetParams
	if err := unmarshalParams(frame, &p); err != nil {
		client.respondError(frame.ID, "invalid_params", err.Error())
		return
	}
	sessionID := p.SessionID
	if sessionID == "" {
		sessionID = client.connID
	}
	s.runner.Reset(sessionID)
	client.respond(frame.ID, map[string]any{
		"status":  "success",
		"message": "Conversation memory reset",
	})
}
