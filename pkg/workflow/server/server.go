// Package server exposes the Workflow Orchestrator over HTTP using chi,
// matching the registry service's gateway conventions.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/internal/errors"
	"github.com/ckoons/tekton-core/pkg/integration/webhook"
	"github.com/ckoons/tekton-core/pkg/workflow"
)

// Server wires a workflow.Repository and *workflow.Engine into an HTTP
// API: definition CRUD, execution lifecycle (start/pause/resume/cancel),
// and the inter-component /workflow push endpoint. The repository may be
// the in-memory *workflow.Store or the Postgres-backed implementation in
// pkg/datastorage/repository/workflow.
type Server struct {
	router *chi.Mux
	store  workflow.Repository
	engine *workflow.Engine
	logger *logrus.Logger

	mu          sync.Mutex
	controllers map[string]*workflow.Controller
	pushHandler func(workflow.PushEnvelope) error
	push        *webhook.Handler
}

// New builds a Server and mounts its routes. pushHandler processes
// inbound /workflow push envelopes (e.g. a sprint status advance); it
// may be nil to accept and ignore pushes.
func New(store workflow.Repository, engine *workflow.Engine, logger *logrus.Logger, pushHandler func(workflow.PushEnvelope) error) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		store:       store,
		engine:      engine,
		logger:      logger,
		controllers: make(map[string]*workflow.Controller),
		pushHandler: pushHandler,
	}
	s.push = workflow.NewPushWebhookHandler(func(ctx context.Context, env workflow.PushEnvelope) error {
		if s.pushHandler == nil {
			return nil
		}
		return s.pushHandler(env)
	}, logger)

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/workflows", func(r chi.Router) {
		r.Post("/", s.handleCreateDefinition)
		r.Get("/", s.handleListDefinitions)
		r.Get("/{id}", s.handleGetDefinition)
		r.Post("/{id}/executions", s.handleStartExecution)
		r.Get("/{id}/executions", s.handleListExecutions)
	})
	s.router.Route("/executions", func(r chi.Router) {
		r.Get("/{executionID}", s.handleGetExecution)
		r.Post("/{executionID}/pause", s.handlePause)
		r.Post("/{executionID}/resume", s.handleResume)
		r.Post("/{executionID}/cancel", s.handleCancel)
	})
	s.router.Post("/workflow", s.handlePush)

	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	var def workflow.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, errors.NewValidationError("malformed workflow definition body"))
		return
	}
	if err := s.store.SaveDefinition(r.Context(), def); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListDefinitions())
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, err := s.store.GetDefinition(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

type startExecutionRequest struct {
	Inputs map[string]interface{} `json:"inputs"`
}

func (s *Server) handleStartExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, err := s.store.GetDefinition(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req startExecutionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.NewValidationError("malformed execution request body"))
			return
		}
	}

	exec := &workflow.Execution{
		ExecutionID: uuid.NewString(),
		WorkflowID:  def.ID,
		Inputs:      req.Inputs,
		Status:      workflow.ExecutionRunning,
		StartedAt:   time.Now(),
		TaskStates:  make(map[string]workflow.TaskState, len(def.Tasks)),
	}
	for taskID := range def.Tasks {
		exec.TaskStates[taskID] = workflow.TaskState{Status: workflow.TaskPending}
	}
	if err := s.store.SaveExecution(r.Context(), exec); err != nil {
		writeError(w, err)
		return
	}

	ctl := &workflow.Controller{}
	s.mu.Lock()
	s.controllers[exec.ExecutionID] = ctl
	s.mu.Unlock()

	// Runs past the request's lifetime: detach from r.Context(), which is
	// cancelled the moment this handler returns.
	go s.runDetached(def, exec, ctl)

	writeJSON(w, http.StatusAccepted, exec)
}

func (s *Server) runDetached(def workflow.Definition, exec *workflow.Execution, ctl *workflow.Controller) {
	ctx := context.Background()
	if err := s.engine.Run(ctx, def, exec, ctl); err != nil && s.logger != nil {
		s.logger.WithError(err).WithField("execution_id", exec.ExecutionID).Warn("workflow execution ended with error")
	}
	s.store.SaveExecution(ctx, exec)
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, s.store.ListExecutionsForWorkflow(id))
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	exec, err := s.store.GetExecution(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (s *Server) controllerFor(executionID string) (*workflow.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctl, ok := s.controllers[executionID]
	return ctl, ok
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	ctl, ok := s.controllerFor(id)
	if !ok {
		writeError(w, errors.NewNotFoundError("execution controller "+id))
		return
	}
	ctl.Pause()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	exec, err := s.store.GetExecution(id)
	if err != nil {
		writeError(w, err)
		return
	}
	def, err := s.store.GetDefinition(exec.WorkflowID)
	if err != nil {
		writeError(w, err)
		return
	}

	ctl, ok := s.controllerFor(id)
	if !ok {
		ctl = &workflow.Controller{}
		s.mu.Lock()
		s.controllers[id] = ctl
		s.mu.Unlock()
	}
	ctl.Resume()
	exec.Status = workflow.ExecutionRunning

	go s.runDetached(def, exec, ctl)

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionID")
	ctl, ok := s.controllerFor(id)
	if !ok {
		writeError(w, errors.NewNotFoundError("execution controller "+id))
		return
	}
	ctl.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	s.push.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.GetStatusCode(err), map[string]string{
		"error": errors.SafeErrorMessage(err),
	})
}
