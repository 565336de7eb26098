// Package server exposes the proposal engine and the view mapper over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/roofsolar/internal/proposal"
	"github.com/sells-group/roofsolar/internal/roof"
	"github.com/sells-group/roofsolar/internal/store"
)

// maxBodyBytes caps request bodies; survey payloads with thousands of panels
// stay well below it.
const maxBodyBytes = 8 << 20

// Options configures a Server.
type Options struct {
	Engine *proposal.Engine
	// Store is optional. Without it nothing is persisted and lookups return 501.
	Store       store.Store
	Scene       roof.SceneOptions
	CORSOrigins []string
	// Persist stores every result unless the request opts out.
	Persist bool
}

// Server holds the handlers' dependencies.
type Server struct {
	engine  *proposal.Engine
	store   store.Store
	scene   roof.SceneOptions
	origins []string
	persist bool
	log     *zap.Logger
}

// New builds a Server. A nil engine uses the default tariff.
func New(opts Options) *Server {
	if opts.Engine == nil {
		opts.Engine = proposal.DefaultEngine()
	}
	if opts.Scene.VerticalExaggeration == 0 {
		opts.Scene = roof.DefaultSceneOptions()
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{
		engine:  opts.Engine,
		store:   opts.Store,
		scene:   opts.Scene,
		origins: opts.CORSOrigins,
		persist: opts.Persist,
		log:     zap.L().With(zap.String("component", "server")),
	}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/proposals", func(r chi.Router) {
			r.Post("/", s.createProposal)
			r.Get("/", s.listProposals)
			r.Post("/sensitivity", s.sensitivity)
			r.Get("/{id}", s.getProposal)
		})
		r.Route("/views", func(r chi.Router) {
			r.Post("/", s.createView)
			r.Get("/{id}", s.getView)
			r.Get("/{id}/segments", s.listViewSegments)
			r.Delete("/{id}", s.deleteView)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// errorBody is the JSON shape of every failure.
type errorBody struct {
	Error  string                `json:"error"`
	Fields []proposal.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// shouldPersist resolves the ?persist= query flag against the server default.
func (s *Server) shouldPersist(r *http.Request) bool {
	if s.store == nil {
		return false
	}
	if v := r.URL.Query().Get("persist"); v != "" {
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}
	return s.persist
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "storage is not configured")
		return false
	}
	return true
}

func (s *Server) storeFailure(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error("store failure", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "storage failure")
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
