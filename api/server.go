package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/inconshreveable/log15"

	"github.com/wricardo/mcp-training/jigsaw/game/config"
	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
	"github.com/wricardo/mcp-training/jigsaw/game/service"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
	"github.com/wricardo/mcp-training/jigsaw/game/tiles"
	"github.com/wricardo/mcp-training/jigsaw/logging"
	"github.com/wricardo/mcp-training/jigsaw/transport/websocket"
)

// MaxTileSize caps the size query parameter of tile requests.
const MaxTileSize = 1024

// TileRenderer renders one piece of a puzzle image as PNG
type TileRenderer interface {
	Tile(ctx context.Context, imageRef string, p engine.Piece, size int) ([]byte, error)
}

// Option configures the server
type Option func(*Server)

// WithTiles enables the piece tile endpoint
func WithTiles(r TileRenderer) Option {
	return func(s *Server) { s.tiles = r }
}

// WithLogger sets the server logger
func WithLogger(l log15.Logger) Option {
	return func(s *Server) { s.log = l.New("component", "api") }
}

// WithStaticDir serves files from dir for paths outside the API
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// Server represents the REST API server
type Server struct {
	service   service.PuzzleService
	hub       *websocket.Hub
	tiles     TileRenderer
	staticDir string
	router    *mux.Router
	log       log15.Logger
}

// NewServer creates a new API server. When hub is not nil the server also
// handles pointer events sent by websocket clients.
func NewServer(puzzleService service.PuzzleService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: puzzleService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if hub != nil {
		hub.SetInboundHandler(s.handleInbound)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Puzzles
	api.HandleFunc("/puzzles", s.handleOpenPuzzle).Methods("POST")
	api.HandleFunc("/puzzles", s.handleListPuzzles).Methods("GET")
	api.HandleFunc("/puzzles/{id}", s.handleGetPuzzle).Methods("GET")
	api.HandleFunc("/puzzles/{id}", s.handleClosePuzzle).Methods("DELETE")
	api.HandleFunc("/puzzles/{id}/pointer", s.handlePointer).Methods("POST")
	api.HandleFunc("/puzzles/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/puzzles/{id}/pieces/{piece:[0-9]+}.png", s.handleTile).Methods("GET")

	// Saved progress (fixed paths before {id})
	api.HandleFunc("/progress", s.handleListProgress).Methods("GET")
	api.HandleFunc("/progress/stats", s.handleProgressStats).Methods("GET")
	api.HandleFunc("/progress/status", s.handleSubjectStatus).Methods("GET")
	api.HandleFunc("/progress/{id}", s.handleGetProgress).Methods("GET")
	api.HandleFunc("/progress/{id}", s.handleClearProgress).Methods("DELETE")

	// Presets
	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")
	api.HandleFunc("/presets/{name}", s.handleGetPreset).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
}

// Router exposes the router so callers can mount extra handlers
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPuzzleNotFound),
		errors.Is(err, service.ErrProgressNotFound),
		errors.Is(err, config.ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, engine.ErrInvalidGridSize),
		errors.Is(err, engine.ErrMissingImage),
		errors.Is(err, engine.ErrInvalidSettings),
		errors.Is(err, progress.ErrInvalidKind),
		errors.Is(err, session.ErrMissingSubject):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Puzzle handlers

func (s *Server) handleOpenPuzzle(w http.ResponseWriter, r *http.Request) {
	var req service.OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.OpenPuzzle(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.log.Info("Opened puzzle", "puzzle", info.ID, "pieces", info.State.TotalPieces,
		"placed", info.State.PlacedCount, "resumed", info.State.Resumed)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListPuzzles(w http.ResponseWriter, r *http.Request) {
	puzzles, err := s.service.ListPuzzles(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(puzzles, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = puzzles[i].CreatedAt, puzzles[j].CreatedAt
		} else {
			ti, tj = puzzles[i].LastAccessedAt, puzzles[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(puzzles)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(puzzles) {
		puzzles = puzzles[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(puzzles),
		"total":   total,
		"puzzles": puzzles,
		"sort":    sortBy,
		"order":   order,
	})
}

func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetPuzzle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleClosePuzzle(w http.ResponseWriter, r *http.Request) {
	puzzleID := mux.Vars(r)["id"]
	if err := s.service.ClosePuzzle(r.Context(), puzzleID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Puzzle %s closed", puzzleID),
	})
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	puzzleID := mux.Vars(r)["id"]

	var req service.PointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.pointer(r.Context(), puzzleID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// pointer applies a pointer event and pushes changed state to websocket
// clients.
func (s *Server) pointer(ctx context.Context, puzzleID string, req service.PointerRequest) (*service.PointerResult, error) {
	result, err := s.service.Pointer(ctx, puzzleID, req)
	if err != nil {
		return nil, err
	}

	if result.Transition.Changed() {
		if s.hub != nil {
			s.hub.BroadcastState(puzzleID, result.State)
		}
		if result.Transition != engine.TransitionDrag {
			s.log.Debug("Pointer", "puzzle", puzzleID, "action", req.Action,
				"transition", result.Transition, "placed", result.State.PlacedCount,
				"total", result.State.TotalPieces)
		}
	}
	return result, nil
}

// handleInbound handles pointer events received over websocket
func (s *Server) handleInbound(puzzleID string, payload []byte) error {
	var req service.PointerRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("invalid pointer message: %w", err)
	}
	_, err := s.pointer(context.Background(), puzzleID, req)
	return err
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	puzzleID := mux.Vars(r)["id"]

	info, err := s.service.Reset(r.Context(), puzzleID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastState(puzzleID, info.State)
		s.hub.BroadcastEvent(puzzleID, websocket.EventPuzzleReset, service.MessageReset)
	}
	s.log.Info(service.MessageReset, "puzzle", puzzleID, "started_at", info.State.StartedAt)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": service.MessageReset,
		"puzzle":  info,
	})
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	if s.tiles == nil {
		respondError(w, http.StatusNotImplemented, "Tile rendering is disabled")
		return
	}
	vars := mux.Vars(r)

	pieceID, err := strconv.Atoi(vars["piece"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid piece id")
		return
	}
	size := 0
	if v := r.URL.Query().Get("size"); v != "" {
		size, err = strconv.Atoi(v)
		if err != nil || size < 0 || size > MaxTileSize {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("size must be between 0 and %d", MaxTileSize))
			return
		}
	}

	info, err := s.service.GetPuzzle(r.Context(), vars["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	idx := engine.FindPiece(info.State.Pieces, pieceID)
	if idx < 0 {
		respondError(w, http.StatusNotFound, fmt.Sprintf("piece %d not found", pieceID))
		return
	}

	data, err := s.tiles.Tile(r.Context(), info.State.ImageRef, info.State.Pieces[idx], size)
	if errors.Is(err, tiles.ErrForbiddenRef) || errors.Is(err, tiles.ErrRemoteDisabled) {
		respondError(w, http.StatusForbidden, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Progress handlers

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.service.ListProgress(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := summaries[:0]
		for _, sum := range summaries {
			if string(sum.Status) == status {
				filtered = append(filtered, sum)
			}
		}
		summaries = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(summaries),
		"progress": summaries,
	})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetProgress(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleClearProgress(w http.ResponseWriter, r *http.Request) {
	puzzleID := mux.Vars(r)["id"]
	if err := s.service.ClearProgress(r.Context(), puzzleID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Progress for %s cleared", puzzleID),
	})
}

func (s *Server) handleProgressStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.ProgressStats(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSubjectStatus(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	statuses, err := s.service.SubjectStatus(r.Context(), subject)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"subject":  subject,
		"statuses": statuses,
	})
}

// Preset handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, presets)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	preset, err := s.service.LoadPreset(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, preset)
}

// WebSocket Handler
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	puzzleID := r.URL.Query().Get("puzzle")
	if puzzleID == "" {
		http.Error(w, "Puzzle ID required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetPuzzle(r.Context(), puzzleID)
	if err != nil {
		http.Error(w, "Invalid puzzle", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, info.ID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
