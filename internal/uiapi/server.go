package uiapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/awaistahir/energyscore/internal/monitor"
	"github.com/awaistahir/energyscore/internal/score"
	"github.com/awaistahir/energyscore/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	store   *store.Store
	monitor *monitor.Monitor
}

func NewServer(store *store.Store, mon *monitor.Monitor) *Server {
	return &Server{
		store:   store,
		monitor: mon,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for local development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/sensors", s.handleGetSensors)
		r.Post("/sensors", s.handleCreateSensor)
		r.Delete("/sensors/{name}", s.handleDeleteSensor)
		r.Get("/sensors/{name}/score", s.handleGetScore)
		r.Get("/sensors/{name}/cost", s.handleGetCost)
		r.Get("/sensors/{name}/savings", s.handleGetSavings)
		r.Post("/sensors/{name}/refresh", s.handleRefresh)
	})

	return r
}

// sensorState renders one sensor output as a state value plus its attribute
// bag. The state of the cost and savings sensors is "unknown" until their
// first valid delta.
type sensorState struct {
	State      interface{} `json:"state"`
	Attributes interface{} `json:"attributes"`
}

func numericState(v float64, known bool) interface{} {
	if !known {
		return monitor.UnknownState
	}
	return v
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": "1.0.0",
		"sensors": len(s.monitor.Sensors()),
	})
}

func (s *Server) handleGetSensors(w http.ResponseWriter, r *http.Request) {
	configs, err := s.store.GetSensors()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	var cfg score.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.monitor.AddSensor(cfg); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, cfg)
}

func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.monitor.RemoveSensor(name); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "name": name})
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snap, _, _, ok := s.monitor.Snapshots(name)
	if !ok {
		respondError(w, http.StatusNotFound, "sensor not found")
		return
	}
	respondJSON(w, http.StatusOK, sensorState{State: snap.Score, Attributes: snap})
}

func (s *Server) handleGetCost(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	_, snap, _, ok := s.monitor.Snapshots(name)
	if !ok {
		respondError(w, http.StatusNotFound, "sensor not found")
		return
	}
	respondJSON(w, http.StatusOK, sensorState{State: numericState(snap.Cost, snap.Known), Attributes: snap})
}

func (s *Server) handleGetSavings(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	_, _, snap, ok := s.monitor.Snapshots(name)
	if !ok {
		respondError(w, http.StatusNotFound, "sensor not found")
		return
	}
	respondJSON(w, http.StatusOK, sensorState{State: numericState(snap.PotentialSavings, snap.Known), Attributes: snap})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.monitor.RefreshOne(r.Context(), name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	snap, _, _, _ := s.monitor.Snapshots(name)
	respondJSON(w, http.StatusOK, sensorState{State: snap.Score, Attributes: snap})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
