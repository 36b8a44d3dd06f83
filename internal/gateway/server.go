// Package gateway is the Epigraph HTTP server: a JSON API over the task
// board, the conversation history and the assistant itself.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avezard/epigraph/internal/history"
	"github.com/avezard/epigraph/internal/taskgraph"
)

// Assistant handles one conversation turn. Satisfied by *agent.Loop.
type Assistant interface {
	HandleUserMessage(ctx context.Context, text string) (string, error)
}

// Server is the Epigraph gateway HTTP server.
type Server struct {
	httpServer *http.Server
	store      *taskgraph.Store
	turns      *history.Store
	assistant  Assistant
	host       string
	port       int
}

// NewServer creates a new gateway server. turns and assistant may be nil;
// the corresponding endpoints then answer 503.
func NewServer(store *taskgraph.Store, turns *history.Store, assistant Assistant, host string, port int) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	s := &Server{
		store:     store,
		turns:     turns,
		assistant: assistant,
		host:      host,
		port:      port,
	}

	// Routes
	r.Get("/api/health", s.handleHealth)

	r.Get("/api/tasks", s.handleListTasks)
	r.Post("/api/tasks", s.handleCreateTask)
	r.Get("/api/tasks/{id}", s.handleGetTask)
	r.Patch("/api/tasks/{id}", s.handleUpdateTask)
	r.Delete("/api/tasks/{id}", s.handleDeleteTask)
	r.Put("/api/tasks/{id}/relations", s.handleSetRelations)

	r.Post("/api/chat", s.handleChat)

	r.Get("/api/history", s.handleHistory)
	r.Delete("/api/history", s.handleClearHistory)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}

	return s
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("Epigraph gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := taskgraph.Status(r.URL.Query().Get("status"))
	if status != "" && !taskgraph.ValidStatus(status) {
		writeError(w, fmt.Errorf("%w: unknown status %q", taskgraph.ErrValidation, status))
		return
	}

	list, err := s.store.List(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createTaskRequest struct {
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status,omitempty"`
	ParentIDs   []int64 `json:"parent_ids,omitempty"`
	ChildIDs    []int64 `json:"child_ids,omitempty"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body: %v", taskgraph.ErrValidation, err))
		return
	}

	task, err := s.store.Create(r.Context(), taskgraph.CreateParams{
		Type:        taskgraph.TaskType(req.Type),
		Title:       req.Title,
		Description: req.Description,
		Status:      taskgraph.Status(req.Status),
		ParentIDs:   req.ParentIDs,
		ChildIDs:    req.ChildIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type updateTaskRequest struct {
	Type        *string `json:"type"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body: %v", taskgraph.ErrValidation, err))
		return
	}

	params := taskgraph.UpdateParams{}
	if req.Type != nil {
		t := taskgraph.TaskType(*req.Type)
		params.Type = &t
	}
	params.Title = req.Title
	params.Description = req.Description
	if req.Status != nil {
		st := taskgraph.Status(*req.Status)
		params.Status = &st
	}

	task, err := s.store.Update(r.Context(), id, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type relationsRequest struct {
	ParentIDs []int64 `json:"parent_ids"`
	ChildIDs  []int64 `json:"child_ids"`
}

// handleSetRelations replaces the relations of a task. An omitted side is
// left untouched; an empty array clears it.
func (s *Server) handleSetRelations(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req relationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body: %v", taskgraph.ErrValidation, err))
		return
	}
	if err := s.store.SetRelations(r.Context(), id, req.ParentIDs, req.ChildIDs); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		http.Error(w, "assistant not available", http.StatusServiceUnavailable)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, fmt.Errorf("%w: message is required", taskgraph.ErrValidation))
		return
	}

	reply, err := s.assistant.HandleUserMessage(r.Context(), req.Message)
	if err != nil {
		slog.Error("chat turn failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if s.turns != nil {
		if err := s.turns.Append(r.Context(), req.Message, reply); err != nil {
			slog.Warn("failed to persist conversation turn", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.turns == nil {
		http.Error(w, "history not available", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	turns, err := s.turns.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.turns == nil {
		http.Error(w, "history not available", http.StatusServiceUnavailable)
		return
	}
	if err := s.turns.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// taskID extracts and parses the {id} route parameter. On failure it writes
// the error response itself and returns ok=false.
func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: invalid task id %q", taskgraph.ErrValidation, raw))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, taskgraph.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, taskgraph.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
