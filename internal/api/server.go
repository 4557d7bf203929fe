package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/danbi-lab/sonar/internal/events"
	"github.com/danbi-lab/sonar/internal/review"
	"github.com/danbi-lab/sonar/internal/signal"
	"github.com/danbi-lab/sonar/internal/store"
)

// ReverifyFunc re-runs verification over rejected signals and reports how
// many were re-checked.
type ReverifyFunc func(ctx context.Context) (int, error)

// Server is the single-operator localhost review API. No authentication by
// design; it binds for one human on one machine.
type Server struct {
	router     *chi.Mux
	port       int
	db         *store.Store // nil: serve signals from the JSON files instead
	signalsDir string
	reviews    *review.Store
	reverify   ReverifyFunc
	events     *events.Client
	logger     *slog.Logger
}

func NewServer(port int, db *store.Store, signalsDir string, reviews *review.Store,
	reverify ReverifyFunc, ev *events.Client, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:     router,
		port:       port,
		db:         db,
		signalsDir: signalsDir,
		reviews:    reviews,
		reverify:   reverify,
		events:     ev,
		logger:     logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/signals", s.listSignals)
	router.Get("/api/reviews", s.listReviews)
	router.Post("/api/review", s.postReview)
	router.Post("/api/reverify-rejected", s.postReverify)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("review API starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listSignals serves signals from the database when available, otherwise
// from the per-video JSON files.
func (s *Server) listSignals(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		signals, err := s.db.ListSignals(r.Context())
		if err != nil {
			s.logger.Error("failed to list signals", "error", err)
			writeError(w, http.StatusInternalServerError, "list signals failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"signals": signals, "count": len(signals)})
		return
	}

	signals, err := s.signalsFromFiles()
	if err != nil {
		s.logger.Error("failed to read signal files", "error", err)
		writeError(w, http.StatusInternalServerError, "read signal files failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": signals, "count": len(signals)})
}

func (s *Server) signalsFromFiles() ([]signal.Merged, error) {
	entries, err := os.ReadDir(s.signalsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var all []signal.Merged
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.signalsDir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable signal file", "file", e.Name(), "error", err)
			continue
		}
		var merged []signal.Merged
		if err := json.Unmarshal(data, &merged); err != nil {
			s.logger.Warn("skipping unparseable signal file", "file", e.Name(), "error", err)
			continue
		}
		all = append(all, merged...)
	}
	return all, nil
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	decisions, err := s.reviews.Load()
	if err != nil {
		s.logger.Error("failed to load reviews", "error", err)
		writeError(w, http.StatusInternalServerError, "load reviews failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": decisions, "count": len(decisions)})
}

type reviewRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (s *Server) postReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.reviews.Set(req.ID, req.Status, req.Reason); err != nil {
		s.logger.Error("failed to set review", "id", req.ID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Mirror into the database so SQL consumers see the decision.
	if s.db != nil {
		if err := s.db.UpdateReviewStatus(r.Context(), req.ID, req.Status, req.Reason); err != nil {
			s.logger.Error("failed to mirror review status", "id", req.ID, "error", err)
		}
	}

	if s.events != nil {
		evt := events.ReviewDecided{
			SignalKey: req.ID,
			Status:    req.Status,
			Reason:    req.Reason,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.events.Publish(events.SubjectReviewDecided, evt); err != nil {
			s.logger.Warn("failed to publish review decision", "id", req.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": req.Status})
}

// postReverify kicks off background re-verification of rejected signals and
// returns immediately.
func (s *Server) postReverify(w http.ResponseWriter, r *http.Request) {
	if s.reverify == nil {
		writeError(w, http.StatusServiceUnavailable, "re-verification not configured")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		n, err := s.reverify(ctx)
		if err != nil {
			s.logger.Error("re-verification failed", "rechecked", n, "error", err)
			return
		}
		s.logger.Info("re-verification complete", "rechecked", n)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
