// Package httpapi exposes the operator and dashboard surface: manual
// override endpoints, intersection reset, the administrative directory, the
// bootstrap read, and the websocket subscribe stream.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
	"github.com/tiger/traffic-signal-controller/internal/bus"
	"github.com/tiger/traffic-signal-controller/internal/control"
	"github.com/tiger/traffic-signal-controller/internal/signal"
	"github.com/tiger/traffic-signal-controller/internal/store"
)

// Controls is the operator command surface.
type Controls interface {
	Override(ctx context.Context, lightID int64, req trafficv1.ManualOverrideRequest) error
	ClearManual(ctx context.Context, lightID int64) error
	Reset(ctx context.Context, intersectionID int64) error
	SetDuration(ctx context.Context, lightID int64, seconds int) error
	SetDensity(ctx context.Context, lightID int64, value int) error
	SyncStates(ctx context.Context) (map[int64]trafficv1.SignalState, error)
}

// Directory is the administrative CRUD surface.
type Directory interface {
	CreateCity(ctx context.Context, name string, code string) (signal.City, error)
	ListCities(ctx context.Context) ([]signal.City, error)
	CreateArea(ctx context.Context, cityID int64, name string, code string) (signal.TrafficArea, error)
	ListAreas(ctx context.Context) ([]signal.TrafficArea, error)
	CreateIntersection(ctx context.Context, areaID int64, name string, code string, location string) (signal.Intersection, error)
	ListIntersections(ctx context.Context) ([]signal.Intersection, error)
}

// Server mounts the HTTP surface on a chi router.
type Server struct {
	controls  Controls
	directory Directory
	hub       *bus.Hub
	log       *zap.Logger
	gatherer  prometheus.Gatherer
	upgrader  websocket.Upgrader
	router    chi.Router
}

// New builds the server and its routes.
func New(controls Controls, directory Directory, hub *bus.Hub, log *zap.Logger, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		controls:  controls,
		directory: directory,
		hub:       hub,
		log:       log,
		gatherer:  gatherer,
		upgrader: websocket.Upgrader{
			// Dashboards are served from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

// Handler returns the mounted router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, trafficv1.MessageResponse{Message: "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/admin/traffic-lights/{lightID}", func(r chi.Router) {
			r.Post("/manual", s.handleOverride)
			r.Delete("/manual", s.handleClearManual)
			r.Put("/duration", s.handleSetDuration)
		})
		r.Post("/intersections/{intersectionID}/reset", s.handleReset)

		r.Post("/frontend/simulate/{lightID}/density", s.handleSetDensity)
		r.Get("/frontend/sync", s.handleSync)
		r.Get("/ws", s.handleSubscribe)

		r.Post("/cities", s.handleCreateCity)
		r.Get("/cities", s.handleListCities)
		r.Post("/areas", s.handleCreateArea)
		r.Get("/areas", s.handleListAreas)
		r.Post("/intersections", s.handleCreateIntersection)
		r.Get("/intersections", s.handleListIntersections)
	})
	return r
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	lightID, ok := pathID(w, r, "lightID")
	if !ok {
		return
	}
	var req trafficv1.ManualOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.controls.Override(r.Context(), lightID, req); err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trafficv1.MessageResponse{Message: "Manual override applied"})
}

func (s *Server) handleClearManual(w http.ResponseWriter, r *http.Request) {
	lightID, ok := pathID(w, r, "lightID")
	if !ok {
		return
	}
	if err := s.controls.ClearManual(r.Context(), lightID); err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trafficv1.MessageResponse{Message: "Manual override reset"})
}

func (s *Server) handleSetDuration(w http.ResponseWriter, r *http.Request) {
	lightID, ok := pathID(w, r, "lightID")
	if !ok {
		return
	}
	seconds, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "duration must be an integer")
		return
	}
	if err := s.controls.SetDuration(r.Context(), lightID, seconds); err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trafficv1.MessageResponse{Message: "Duration updated"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	intersectionID, ok := pathID(w, r, "intersectionID")
	if !ok {
		return
	}
	if err := s.controls.Reset(r.Context(), intersectionID); err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trafficv1.MessageResponse{Message: "Intersection reset to automatic mode"})
}

func (s *Server) handleSetDensity(w http.ResponseWriter, r *http.Request) {
	lightID, ok := pathID(w, r, "lightID")
	if !ok {
		return
	}
	value, err := strconv.Atoi(r.URL.Query().Get("value"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "value must be an integer")
		return
	}
	if err := s.controls.SetDensity(r.Context(), lightID, value); err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trafficv1.MessageResponse{Message: "Density updated"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	states, err := s.controls.SyncStates(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

// handleSubscribe upgrades the connection and pins it to the broadcast hub
// until the peer goes away. Inbound messages are drained and ignored.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	sub := bus.NewConnSubscriber(conn)
	id := s.hub.Subscribe(sub)
	defer func() {
		s.hub.Unsubscribe(id)
		sub.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, control.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
