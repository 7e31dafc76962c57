// Package server exposes the race pipeline over a JSON HTTP API.
package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gofrs/uuid/v5"
	"github.com/ohler55/ojg/oj"
	"github.com/rs/cors"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/log"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/service"
	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/storage"
)

const maxUploadSize = 256 << 20

type (
	Server struct {
		races *service.RaceService
		l     *log.Logger
	}
	Option func(*Server)
)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.l = l }
}

func New(races *service.RaceService, opts ...Option) *Server {
	ret := &Server{races: races, l: log.Default().Named("server")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Handler builds the routed handler including CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/races", s.handleUpload)
	mux.HandleFunc("GET /api/races", s.handleList)
	mux.HandleFunc("GET /api/races/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/races/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/races/{id}/laps/{lap}", s.handleLap)
	mux.HandleFunc("GET /api/races/{id}/comparison", s.handleComparison)
	mux.HandleFunc("GET /api/races/{id}/fuel", s.handleFuel)
	mux.HandleFunc("GET /api/races/{id}/fuel/comparison", s.handleFuelComparison)
	mux.HandleFunc("GET /api/races/{id}/fuel/efficiency", s.handleFuelEfficiency)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return newCORS().Handler(mux)
}

type uploadRequest struct {
	Name string `json:"name"`
	// zlib compressed capture, base64 encoded
	Data string `json:"data"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req uploadRequest
	if err := oj.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	compressed, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid base64 payload: %w", err))
		return
	}
	if len(compressed) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("empty capture payload"))
		return
	}
	race, err := s.races.UploadRace(r.Context(), req.Name, compressed)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, race)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	races, err := s.races.ListRaces(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, races)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.raceID(w, r)
	if !ok {
		return
	}
	race, err := s.races.GetRace(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, race)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.raceID(w, r)
	if !ok {
		return
	}
	if err := s.races.DeleteRace(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLap(w http.ResponseWriter, r *http.Request) {
	id, ok := s.raceID(w, r)
	if !ok {
		return
	}
	lapNo, err := strconv.Atoi(r.PathValue("lap"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid lap number: %w", err))
		return
	}
	lap, err := s.races.LoadLap(r.Context(), id, lapNo)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lap)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	id, ok := s.raceID(w, r)
	if !ok {
		return
	}
	lap1, lap2, ok := s.lapPair(w, r)
	if !ok {
		return
	}
	res, err := s.races.CompareLaps(r.Context(), id, lap1, lap2)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFuel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.raceID(w, r)
	if !ok {
		return
	}
	lapNo, ok := s.lapParam(w, r, "lap")
	if !ok {
		return
	}
	res, err := s.races.FuelAnalysis(r.Context(), id, lapNo)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFuelComparison(w http.ResponseWriter, r *http.Request) {
	id, ok := s.raceID(w, r)
	if !ok {
		return
	}
	lap1, lap2, ok := s.lapPair(w, r)
	if !ok {
		return
	}
	res, err := s.races.FuelComparison(r.Context(), id, lap1, lap2)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFuelEfficiency(w http.ResponseWriter, r *http.Request) {
	id, ok := s.raceID(w, r)
	if !ok {
		return
	}
	lapNo, ok := s.lapParam(w, r, "lap")
	if !ok {
		return
	}
	res, err := s.races.FuelEfficiency(r.Context(), id, lapNo)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) raceID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid race id: %w", err))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) lapParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	val, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		s.writeError(w, http.StatusBadRequest,
			fmt.Errorf("invalid %s query parameter: %w", name, err))
		return 0, false
	}
	return val, true
}

func (s *Server) lapPair(w http.ResponseWriter, r *http.Request) (lap1, lap2 int, ok bool) {
	if lap1, ok = s.lapParam(w, r, "lap1"); !ok {
		return 0, 0, false
	}
	if lap2, ok = s.lapParam(w, r, "lap2"); !ok {
		return 0, 0, false
	}
	return lap1, lap2, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrRaceNotFound),
		errors.Is(err, service.ErrLapNotFound),
		errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, service.ErrRaceNotReady):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.l.Error("request failed", log.ErrorField(err))
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	data, err := oj.Marshal(payload)
	if err != nil {
		s.l.Error("marshaling response", log.ErrorField(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		s.l.Warn("writing response", log.ErrorField(err))
	}
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			// Allow all origins, which effectively disables CORS.
			return true
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         7200,
	})
}
