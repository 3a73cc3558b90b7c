// Package api exposes the HTTP interface for the rank grid service.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankgrid/internal/export"
	"github.com/sells-group/rankgrid/internal/job"
	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/internal/resolve"
	"github.com/sells-group/rankgrid/pkg/dataforseo"
	"github.com/sells-group/rankgrid/pkg/places"
)

var errRunNotFound = eris.New("api: run not found")

// ServerConfig carries the submission defaults applied to runs started
// over HTTP.
type ServerConfig struct {
	GridSize      int
	SpacingMeters float64
	Submit        job.SubmitOptions
	ResolveRadius float64
}

// Server wires HTTP handlers to the run manager and provider clients.
type Server struct {
	router  chi.Router
	manager *Manager
	api     dataforseo.Client
	placer  places.Client // optional
	cfg     ServerConfig
}

// NewServer constructs a Server with middleware and routes. The places
// client may be nil; resolution then returns 503.
func NewServer(manager *Manager, api dataforseo.Client, placer places.Client, cfg ServerConfig) *Server {
	s := &Server{
		manager: manager,
		api:     api,
		placer:  placer,
		cfg:     cfg,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Route("/grid", func(r chi.Router) {
			r.Post("/start", s.startGrid)
			r.Post("/poll", s.pollGrid)
			r.Get("/top", s.topCompetitors)
			r.Post("/stop", s.stopGrid)
		})
		r.Post("/place/resolve", s.resolvePlace)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startRequest struct {
	Keyword       string               `json:"keyword"`
	Lat           float64              `json:"lat"`
	Lng           float64              `json:"lng"`
	GridSize      int                  `json:"grid_size,omitempty"`
	SpacingMeters float64              `json:"spacing_meters,omitempty"`
	Depth         int                  `json:"depth,omitempty"`
	Target        model.TargetBusiness `json:"target"`
}

type taskView struct {
	TaskID string  `json:"task_id"`
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Status string  `json:"status"`
	Rank   *int    `json:"rank"`
	Error  string  `json:"error,omitempty"`
}

type runView struct {
	RunID  string     `json:"run_id"`
	Status string     `json:"status"`
	Done   int        `json:"done"`
	Total  int        `json:"total"`
	Tasks  []taskView `json:"tasks"`
}

func viewOf(j *model.Job) runView {
	view := runView{
		RunID:  j.ID,
		Status: string(j.Status),
		Done:   j.DoneCount(),
		Total:  len(j.Tasks),
	}
	for _, t := range j.Tasks {
		view.Tasks = append(view.Tasks, taskView{
			TaskID: t.TaskID,
			Row:    t.Cell.Row,
			Col:    t.Cell.Col,
			Lat:    t.Cell.Coordinate.Latitude,
			Lng:    t.Cell.Coordinate.Longitude,
			Status: string(t.Status),
			Rank:   t.Rank,
			Error:  t.Error,
		})
	}
	return view
}

func (s *Server) startGrid(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	if !req.Target.HasSignal() {
		writeError(w, http.StatusBadRequest, "target needs at least one of place_id, cid, phone, website, name")
		return
	}

	gridSize := req.GridSize
	if gridSize == 0 {
		gridSize = s.cfg.GridSize
	}
	if gridSize < 1 || gridSize%2 == 0 {
		writeError(w, http.StatusBadRequest, "grid_size must be a positive odd number")
		return
	}
	spacing := req.SpacingMeters
	if spacing == 0 {
		spacing = s.cfg.SpacingMeters
	}
	opts := s.cfg.Submit
	if req.Depth > 0 {
		opts.Depth = req.Depth
	}

	center := model.Coordinate{Latitude: req.Lat, Longitude: req.Lng}
	j, err := s.manager.Start(r.Context(), req.Keyword, center, gridSize, spacing, req.Target, opts)
	if err != nil {
		zap.L().Error("grid start failed", zap.String("keyword", req.Keyword), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, viewOf(j))
}

type pollRequest struct {
	RunID string `json:"run_id"`
}

func (s *Server) pollGrid(w http.ResponseWriter, r *http.Request) {
	var req pollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.RunID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	j, err := s.manager.Snapshot(r.Context(), req.RunID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(j))
}

func (s *Server) stopGrid(w http.ResponseWriter, r *http.Request) {
	var req pollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !s.manager.Stop(req.RunID) {
		writeError(w, http.StatusNotFound, "run not active")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) topCompetitors(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "missing ?id=")
		return
	}
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	res, err := s.api.GetTask(r.Context(), taskID)
	if err != nil {
		zap.L().Warn("top fetch failed", zap.String("task_id", taskID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "provider fetch failed")
		return
	}

	records := job.Records(res.Items)
	// A deeper record list may reveal a rank the first poll missed.
	s.manager.CorrectRank(r.Context(), taskID, records)

	items := export.FromRecords(records, limit)
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="competitors.csv"`)
		if err := export.WriteCSV(w, items); err != nil {
			zap.L().Error("csv write failed", zap.Error(err))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total": len(res.Items),
		"items": items,
		"top3":  export.PadTop(items, 3),
	})
}

type resolveRequest struct {
	Name     string  `json:"name"`
	Location string  `json:"location,omitempty"`
	RadiusM  float64 `json:"radius_m,omitempty"`
}

func (s *Server) resolvePlace(w http.ResponseWriter, r *http.Request) {
	if s.placer == nil {
		writeError(w, http.StatusServiceUnavailable, "place resolution is not configured")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	radius := req.RadiusM
	if radius == 0 {
		radius = s.cfg.ResolveRadius
	}

	result, err := resolve.Resolve(r.Context(), s.placer, req.Name, req.Location, radius)
	if err != nil {
		zap.L().Warn("place resolve failed", zap.String("name", req.Name), zap.Error(err))
		writeError(w, http.StatusBadGateway, "place resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
