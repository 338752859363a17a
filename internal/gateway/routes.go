package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/petclinic/genai-service/internal/domain"
	"github.com/petclinic/genai-service/internal/version"
)

// sessionHeader selects the conversation a chat request belongs to. Requests
// without it share the default session, matching clients that predate
// per-session chat.
const sessionHeader = "X-Session-Id"

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chatclient", s.handleChat)
	mux.HandleFunc("POST /chat/reset", s.handleChatReset)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /actuator/health", s.handleActuatorHealth)
	mux.HandleFunc("GET /info", s.handleInfo)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

func (s *Server) sessionID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(sessionHeader))
	if id == "" {
		return domain.DefaultSessionID
	}
	return id
}

// handleChat accepts a plain-text query and answers with plain text. The
// degraded response still carries HTTP 500 so probes and callers can tell a
// failed turn from a successful one.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBody))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	query := strings.TrimSpace(string(body))
	if query == "" {
		http.Error(w, "Query cannot be empty", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	result := s.runner.Chat(ctx, s.sessionID(r), query)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if result.Degraded {
		w.WriteHeader(http.StatusInternalServerError)
	}
	io.WriteString(w, result.Response)
}

// handleChatReset clears the conversation memory for the caller's session.
func (s *Server) handleChatReset(w http.ResponseWriter, r *http.Request) {
	s.runner.Reset(s.sessionID(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Conversation memory reset",
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "genai-service",
		"version": version.Version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "UP",
		"service": "genai-service",
	})
}

// handleActuatorHealth mimics the Spring Boot actuator shape so existing
// platform probes keep working.
func (s *Server) handleActuatorHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "UP",
		"components": map[string]any{
			"vectorStore": map[string]any{
				"status":    upDown(s.index.Count() > 0),
				"documents": s.index.Count(),
			},
			"chatClient": map[string]any{
				"status": upDown(s.runner.Enabled()),
			},
		},
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     "genai-service",
		"description": "Spring PetClinic GenAI Service",
		"version":     version.Version,
		"llm":         "OpenAI / Azure OpenAI",
		"features": []string{
			"Conversational AI chatbot",
			"Function calling (list owners, add owner, list vets, add pet)",
			"RAG with vector store for vet data",
			"Conversation memory",
		},
		"environment": map[string]any{
			"provider":              s.cfg.LLM.Provider(),
			"customers_service_url": s.cfg.Services.CustomersURL,
			"vets_service_url":      s.cfg.Services.VetsURL,
			"indexed_vets":          s.index.Count(),
		},
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func upDown(up bool) string {
	if up {
		return "UP"
	}
	return "DOWN"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
