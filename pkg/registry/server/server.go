// Package server exposes the Service Registry & Routing Fabric over HTTP
// using chi, the router the rest of the pack's gateway-style services use.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ckoons/tekton-core/internal/errors"
	"github.com/ckoons/tekton-core/pkg/registry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Server wires a *registry.Registry into an HTTP API: registration,
// heartbeat, resolve, capability/fallback binding, and an SSE event stream.
type Server struct {
	router *chi.Mux
	reg    *registry.Registry
	logger *logrus.Logger
}

// New builds a Server and mounts its routes.
func New(reg *registry.Registry, logger *logrus.Logger) *Server {
	s := &Server{router: chi.NewRouter(), reg: reg, logger: logger}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/registry", func(r chi.Router) {
		r.Post("/components", s.handleRegister)
		r.Delete("/components/{id}", s.handleUnregister)
		r.Post("/components/{id}/heartbeat", s.handleHeartbeat)
		r.Get("/components", s.handleList)
		r.Get("/components/{id}", s.handleGet)
		r.Get("/resolve/{capability}", s.handleResolve)
		r.Post("/fallbacks", s.handleRegisterFallback)
		r.Get("/events", s.handleEvents)
	})

	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, errors.NewValidationError("could not read registration body"))
		return
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		writeError(w, errors.NewValidationError("malformed registration body"))
		return
	}
	if err := validateComponentDoc(doc); err != nil {
		writeError(w, errors.NewValidationError("registration body failed schema validation: "+err.Error()))
		return
	}

	var component registry.Component
	if err := json.Unmarshal(body, &component); err != nil {
		writeError(w, errors.NewValidationError("malformed registration body"))
		return
	}

	if err := s.reg.Register(r.Context(), component); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, component)
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	instanceUUID := r.URL.Query().Get("instance_uuid")
	if instanceUUID == "" {
		writeError(w, errors.NewValidationError("instance_uuid is required"))
		return
	}
	if err := s.reg.Unregister(r.Context(), id, instanceUUID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	instanceUUID := r.URL.Query().Get("instance_uuid")
	if instanceUUID == "" {
		writeError(w, errors.NewValidationError("instance_uuid is required"))
		return
	}
	if err := s.reg.Heartbeat(r.Context(), id, instanceUUID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.List())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	component, err := s.reg.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, component)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	capability := chi.URLParam(r, "capability")
	component, err := s.reg.Resolve(capability)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, component)
}

func (s *Server) handleRegisterFallback(w http.ResponseWriter, r *http.Request) {
	var binding registry.FallbackBinding
	if err := json.NewDecoder(r.Body).Decode(&binding); err != nil {
		writeError(w, errors.NewValidationError("malformed fallback binding body"))
		return
	}
	s.reg.RegisterFallback(binding)
	writeJSON(w, http.StatusCreated, binding)
}

// handleEvents streams registry change events as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New(errors.ErrorTypeInternal, "streaming unsupported"))
		return
	}

	events, unsubscribe := s.reg.Subscribe(16)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
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
