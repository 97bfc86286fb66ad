// Package server exposes the Context/Memory Management Core over HTTP
// using chi, matching the workflow and registry services' gateway
// conventions.
package server

import (
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
	"github.com/ckoons/tekton-core/pkg/contextapi"
	"github.com/ckoons/tekton-core/pkg/metrics"
)

// Server wires per-CI Catalogs and BudgetRecords into an HTTP API:
// memory insertion, scored/packed recall, budget status, and the
// sunset/sunrise protocol.
type Server struct {
	router     *chi.Mux
	logger     *logrus.Logger
	thresholds contextapi.Thresholds
	detector   *contextapi.Detector

	newCatalog func(scope string) *contextapi.Catalog

	mu       sync.Mutex
	catalogs map[string]*contextapi.Catalog
	budgets  map[string]*contextapi.BudgetRecord

	maxInjectionTokens int
	defaultHardLimit   int
}

// New builds a Server. newCatalog constructs a scoped Catalog on first
// use for a CI (or the empty string for the shared global scope).
func New(logger *logrus.Logger, thresholds contextapi.Thresholds, detector *contextapi.Detector, newCatalog func(scope string) *contextapi.Catalog, maxInjectionTokens, defaultHardLimit int) *Server {
	if maxInjectionTokens <= 0 {
		maxInjectionTokens = contextapi.DefaultMaxInjectionTokens
	}
	s := &Server{
		router:             chi.NewRouter(),
		logger:             logger,
		thresholds:         thresholds,
		detector:           detector,
		newCatalog:         newCatalog,
		catalogs:           make(map[string]*contextapi.Catalog),
		budgets:            make(map[string]*contextapi.BudgetRecord),
		maxInjectionTokens: maxInjectionTokens,
		defaultHardLimit:   defaultHardLimit,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/ci/{ci}/memory", func(r chi.Router) {
		r.Post("/", s.handleInsert)
		r.Get("/select", s.handleSelect)
	})
	s.router.Route("/ci/{ci}/budget", func(r chi.Router) {
		r.Get("/", s.handleBudget)
		r.Post("/turn", s.handleRecordTurn)
		r.Post("/sunrise", s.handleSunrise)
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

func (s *Server) catalogFor(ci string) *contextapi.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.catalogs[ci]; ok {
		return c
	}
	c := s.newCatalog(ci)
	s.catalogs[ci] = c
	return c
}

func (s *Server) budgetFor(ci, model string) *contextapi.BudgetRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.budgets[ci]; ok {
		return b
	}
	b := contextapi.NewBudgetRecord(ci, model, s.defaultHardLimit, s.thresholds)
	s.budgets[ci] = b
	return b
}

type insertRequest struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Summary    string   `json:"summary"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	Priority   int      `json:"priority"`
	References []string `json:"references"`
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	ci := chi.URLParam(r, "ci")

	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("malformed memory item body"))
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	item := &contextapi.MemoryItem{
		ID:         id,
		CISource:   ci,
		Kind:       contextapi.ItemKind(req.Kind),
		Summary:    req.Summary,
		Content:    req.Content,
		Tags:       req.Tags,
		Priority:   req.Priority,
		References: req.References,
	}

	if err := s.catalogFor(ci).Insert(item, time.Now()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	ci := chi.URLParam(r, "ci")
	if s.detector != nil {
		if err := contextapi.RejectIfAsleep(s.budgetFor(ci, "")); err != nil {
			writeError(w, err)
			return
		}
	}

	tags := r.URL.Query()["tag"]
	budget := s.maxInjectionTokens

	packStart := time.Now()
	defer func() { metrics.PackingDuration.Observe(time.Since(packStart).Seconds()) }()

	packed := s.catalogFor(ci).SelectAndPack(contextapi.SelectionInput{
		CIName:      ci,
		ContextTags: tags,
		Now:         time.Now(),
	}, budget)

	writeJSON(w, http.StatusOK, packed)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	ci := chi.URLParam(r, "ci")
	writeJSON(w, http.StatusOK, s.budgetFor(ci, ""))
}

type recordTurnRequest struct {
	Model    string `json:"model"`
	Consumed int    `json:"consumed"`
	Dropped  int    `json:"dropped"`
	Output   string `json:"output"`
}

func (s *Server) handleRecordTurn(w http.ResponseWriter, r *http.Request) {
	ci := chi.URLParam(r, "ci")

	var req recordTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("malformed turn body"))
		return
	}

	b := s.budgetFor(ci, req.Model)
	if err := contextapi.RejectIfAsleep(b); err != nil {
		writeError(w, err)
		return
	}

	if err := b.RecordTurn(req.Consumed, req.Dropped, s.thresholds); err != nil {
		if s.detector != nil {
			contextapi.Sunset(b, req.Output, time.Now())
			metrics.ItemsSunset.WithLabelValues("context_exhausted").Inc()
		}
		writeError(w, err)
		return
	}

	if s.detector != nil && (s.detector.Matches(req.Output) || b.NeedsSunset(s.thresholds)) {
		reason := "threshold"
		if s.detector.Matches(req.Output) {
			reason = "signature"
		}
		contextapi.Sunset(b, req.Output, time.Now())
		metrics.ItemsSunset.WithLabelValues(reason).Inc()
	}

	if b.HardLimit > 0 {
		metrics.BudgetUtilization.WithLabelValues(ci).Set(float64(b.CurrentTokens) / float64(b.HardLimit))
	}

	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSunrise(w http.ResponseWriter, r *http.Request) {
	ci := chi.URLParam(r, "ci")
	b := s.budgetFor(ci, "")

	sunsetAt := b.SunsetAt
	if err := contextapi.Sunrise(b); err != nil {
		writeError(w, err)
		return
	}

	var items []*contextapi.MemoryItem
	if !sunsetAt.IsZero() {
		items = s.catalogFor(ci).ItemsSince(sunsetAt)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"budget": b,
		"delta":  contextapi.SunriseDelta(items),
	})
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
