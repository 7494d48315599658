// Package api serves the read-only HTTP view of resolved client locations.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/benmeehan/fleet-locator/internal/store"
	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// ErrNotFound is reported when a requested client is not known.
var ErrNotFound = errors.New("client not found")

// Server exposes the store and resolver over HTTP.
type Server struct {
	store    *store.Store
	resolver *location.Resolver
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

// NewServer creates a Server. A nil gatherer disables the /metrics route.
func NewServer(st *store.Store, resolver *location.Resolver, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	return &Server{
		store:    st,
		resolver: resolver,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Router defines all API routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/clients", s.listClients).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}/location", s.clientLocation).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.listDevices).Methods(http.MethodGet)

	if s.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return router
}

// Handler returns the router wrapped with CORS for allowedOrigins.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.Router())
}

func (s *Server) listClients(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.ClientIDs())
}

func (s *Server) clientLocation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	client, ok := s.store.Client(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, ErrNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, s.resolver.Resolve(client, s.store.DevicesFor(id)))
}

// listDevices returns every device with a coordinate filled in where one
// can be extracted, for map display.
func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.store.Devices()
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		devices = s.store.DevicesFor(clientID)
	}
	s.writeJSON(w, http.StatusOK, s.resolver.Enrich(devices))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Error encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
