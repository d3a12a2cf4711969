package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/jigsaw/game/config"
	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
	"github.com/wricardo/mcp-training/jigsaw/game/service"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
	"github.com/wricardo/mcp-training/jigsaw/game/tiles"
	"github.com/wricardo/mcp-training/jigsaw/transport/websocket"
)

// MockPuzzleService implements service.PuzzleService for testing
type MockPuzzleService struct {
	OpenPuzzleFunc    func(ctx context.Context, req service.OpenRequest) (*service.PuzzleInfo, error)
	GetPuzzleFunc     func(ctx context.Context, puzzleID string) (*service.PuzzleInfo, error)
	ListPuzzlesFunc   func(ctx context.Context) ([]*service.PuzzleInfo, error)
	ClosePuzzleFunc   func(ctx context.Context, puzzleID string) error
	PointerFunc       func(ctx context.Context, puzzleID string, req service.PointerRequest) (*service.PointerResult, error)
	ResetFunc         func(ctx context.Context, puzzleID string) (*service.PuzzleInfo, error)
	ListProgressFunc  func(ctx context.Context) ([]progress.Summary, error)
	GetProgressFunc   func(ctx context.Context, puzzleID string) (*progress.Record, error)
	ClearProgressFunc func(ctx context.Context, puzzleID string) error
	ProgressStatsFunc func(ctx context.Context) (*progress.Stats, error)
	SubjectStatusFunc func(ctx context.Context, subjectID string) (map[progress.Kind]progress.Status, error)
	ListPresetsFunc   func(ctx context.Context) ([]*service.PresetInfo, error)
	LoadPresetFunc    func(ctx context.Context, name string) (*engine.Preset, error)
}

func (m *MockPuzzleService) OpenPuzzle(ctx context.Context, req service.OpenRequest) (*service.PuzzleInfo, error) {
	if m.OpenPuzzleFunc != nil {
		return m.OpenPuzzleFunc(ctx, req)
	}
	return testInfo(req.SubjectID + "-" + req.Kind), nil
}

func (m *MockPuzzleService) GetPuzzle(ctx context.Context, puzzleID string) (*service.PuzzleInfo, error) {
	if m.GetPuzzleFunc != nil {
		return m.GetPuzzleFunc(ctx, puzzleID)
	}
	return nil, fmt.Errorf("%w: %s", service.ErrPuzzleNotFound, puzzleID)
}

func (m *MockPuzzleService) ListPuzzles(ctx context.Context) ([]*service.PuzzleInfo, error) {
	if m.ListPuzzlesFunc != nil {
		return m.ListPuzzlesFunc(ctx)
	}
	return []*service.PuzzleInfo{}, nil
}

func (m *MockPuzzleService) ClosePuzzle(ctx context.Context, puzzleID string) error {
	if m.ClosePuzzleFunc != nil {
		return m.ClosePuzzleFunc(ctx, puzzleID)
	}
	return nil
}

func (m *MockPuzzleService) Pointer(ctx context.Context, puzzleID string, req service.PointerRequest) (*service.PointerResult, error) {
	if m.PointerFunc != nil {
		return m.PointerFunc(ctx, puzzleID, req)
	}
	return &service.PointerResult{State: testInfo(puzzleID).State}, nil
}

func (m *MockPuzzleService) Reset(ctx context.Context, puzzleID string) (*service.PuzzleInfo, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, puzzleID)
	}
	return testInfo(puzzleID), nil
}

func (m *MockPuzzleService) ListProgress(ctx context.Context) ([]progress.Summary, error) {
	if m.ListProgressFunc != nil {
		return m.ListProgressFunc(ctx)
	}
	return []progress.Summary{}, nil
}

func (m *MockPuzzleService) GetProgress(ctx context.Context, puzzleID string) (*progress.Record, error) {
	if m.GetProgressFunc != nil {
		return m.GetProgressFunc(ctx, puzzleID)
	}
	return nil, fmt.Errorf("%w: %s", service.ErrProgressNotFound, puzzleID)
}

func (m *MockPuzzleService) ClearProgress(ctx context.Context, puzzleID string) error {
	if m.ClearProgressFunc != nil {
		return m.ClearProgressFunc(ctx, puzzleID)
	}
	return nil
}

func (m *MockPuzzleService) ProgressStats(ctx context.Context) (*progress.Stats, error) {
	if m.ProgressStatsFunc != nil {
		return m.ProgressStatsFunc(ctx)
	}
	return &progress.Stats{}, nil
}

func (m *MockPuzzleService) SubjectStatus(ctx context.Context, subjectID string) (map[progress.Kind]progress.Status, error) {
	if m.SubjectStatusFunc != nil {
		return m.SubjectStatusFunc(ctx, subjectID)
	}
	return map[progress.Kind]progress.Status{}, nil
}

func (m *MockPuzzleService) ListPresets(ctx context.Context) ([]*service.PresetInfo, error) {
	if m.ListPresetsFunc != nil {
		return m.ListPresetsFunc(ctx)
	}
	return []*service.PresetInfo{}, nil
}

func (m *MockPuzzleService) LoadPreset(ctx context.Context, name string) (*engine.Preset, error) {
	if m.LoadPresetFunc != nil {
		return m.LoadPresetFunc(ctx, name)
	}
	return nil, fmt.Errorf("%w: %s", config.ErrPresetNotFound, name)
}

// Helper functions
func testInfo(id string) *service.PuzzleInfo {
	pieces, _ := engine.Generate(2, "usa.png", engine.DefaultRand)
	return &service.PuzzleInfo{
		ID:             id,
		SubjectID:      "USA",
		Kind:           "image",
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
		State: &session.State{
			PuzzleID:    id,
			ImageRef:    "usa.png",
			Pieces:      pieces,
			TotalPieces: len(pieces),
		},
	}
}

func setupTestServer(svc service.PuzzleService, opts ...Option) *Server {
	return NewServer(svc, websocket.NewHub(nil), opts...)
}

func makeRequest(method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func TestOpenPuzzle(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockPuzzleService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Open puzzle",
			requestBody: map[string]interface{}{"subject_id": "USA", "kind": "image", "image_ref": "usa.png", "grid_size": 4},
			setupMock: func(m *MockPuzzleService) {
				m.OpenPuzzleFunc = func(ctx context.Context, req service.OpenRequest) (*service.PuzzleInfo, error) {
					if req.GridSize != 4 || req.ImageRef != "usa.png" || req.Threshold != nil {
						t.Errorf("Unexpected request: %+v", req)
					}
					return testInfo("USA-image"), nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.PuzzleInfo
				parseResponse(t, w, &resp)
				if resp.ID != "USA-image" {
					t.Errorf("Expected puzzle ID USA-image, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Zero threshold",
			requestBody: map[string]interface{}{"subject_id": "USA", "image_ref": "usa.png", "threshold": 0},
			setupMock: func(m *MockPuzzleService) {
				m.OpenPuzzleFunc = func(ctx context.Context, req service.OpenRequest) (*service.PuzzleInfo, error) {
					if req.Threshold == nil || *req.Threshold != 0 {
						t.Errorf("Expected explicit zero threshold, got %v", req.Threshold)
					}
					return testInfo("USA-image"), nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Invalid body",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid grid size",
			requestBody: map[string]interface{}{"subject_id": "USA", "image_ref": "usa.png", "grid_size": -1},
			setupMock: func(m *MockPuzzleService) {
				m.OpenPuzzleFunc = func(ctx context.Context, req service.OpenRequest) (*service.PuzzleInfo, error) {
					return nil, fmt.Errorf("failed to open puzzle: %w", engine.ErrInvalidGridSize)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Handle service error",
			requestBody: map[string]interface{}{"subject_id": "USA"},
			setupMock: func(m *MockPuzzleService) {
				m.OpenPuzzleFunc = func(ctx context.Context, req service.OpenRequest) (*service.PuzzleInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockPuzzleService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/puzzles", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListPuzzles(t *testing.T) {
	now := time.Now()
	mockService := &MockPuzzleService{
		ListPuzzlesFunc: func(ctx context.Context) ([]*service.PuzzleInfo, error) {
			a, b, c := testInfo("A-image"), testInfo("B-image"), testInfo("C-image")
			a.LastAccessedAt, b.LastAccessedAt, c.LastAccessedAt = now.Add(-time.Hour), now, now.Add(-time.Minute)
			a.CreatedAt, b.CreatedAt, c.CreatedAt = now, now.Add(-time.Hour), now.Add(-time.Minute)
			return []*service.PuzzleInfo{a, b, c}, nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		query    string
		expected []string
		total    int
	}{
		{"", []string{"B-image", "C-image", "A-image"}, 3},
		{"?order=asc", []string{"A-image", "C-image", "B-image"}, 3},
		{"?sort=created", []string{"A-image", "C-image", "B-image"}, 3},
		{"?limit=1", []string{"B-image"}, 3},
	}

	for _, tt := range tests {
		t.Run("query"+tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/puzzles"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count   int                  `json:"count"`
				Total   int                  `json:"total"`
				Puzzles []service.PuzzleInfo `json:"puzzles"`
			}
			parseResponse(t, w, &resp)
			if resp.Total != tt.total || resp.Count != len(tt.expected) {
				t.Errorf("Unexpected count/total: %d/%d", resp.Count, resp.Total)
			}
			for i, id := range tt.expected {
				if resp.Puzzles[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Puzzles[i].ID)
				}
			}
		})
	}
}

func TestGetAndClosePuzzle(t *testing.T) {
	mockService := &MockPuzzleService{
		GetPuzzleFunc: func(ctx context.Context, puzzleID string) (*service.PuzzleInfo, error) {
			if puzzleID == "USA-image" {
				return testInfo(puzzleID), nil
			}
			return nil, fmt.Errorf("%w: %s", service.ErrPuzzleNotFound, puzzleID)
		},
		ClosePuzzleFunc: func(ctx context.Context, puzzleID string) error {
			if puzzleID != "USA-image" {
				return fmt.Errorf("%w: %s", service.ErrPuzzleNotFound, puzzleID)
			}
			return nil
		},
	}
	server := setupTestServer(mockService)

	tests := []struct {
		method, path string
		expected     int
	}{
		{"GET", "/api/puzzles/USA-image", http.StatusOK},
		{"GET", "/api/puzzles/usa-image", http.StatusNotFound},
		{"DELETE", "/api/puzzles/USA-image", http.StatusOK},
		{"DELETE", "/api/puzzles/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestPointer(t *testing.T) {
	var got service.PointerRequest
	mockService := &MockPuzzleService{
		PointerFunc: func(ctx context.Context, puzzleID string, req service.PointerRequest) (*service.PointerResult, error) {
			got = req
			if req.Action == "bogus" {
				return nil, fmt.Errorf("%w: unknown pointer action", service.ErrInvalidRequest)
			}
			return &service.PointerResult{Transition: engine.TransitionGrab, State: testInfo(puzzleID).State}, nil
		},
	}
	server := setupTestServer(mockService)

	body := map[string]interface{}{
		"action":   "down",
		"piece_id": 3,
		"client_x": 150,
		"client_y": 200,
		"bounds":   map[string]float64{"left": 100, "top": 100, "width": 400, "height": 400},
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/puzzles/USA-image/pointer", body))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got.PieceID == nil || *got.PieceID != 3 || got.ClientX != 150 || got.Bounds.Width != 400 {
		t.Errorf("Request not decoded correctly: %+v", got)
	}

	var resp service.PointerResult
	parseResponse(t, w, &resp)
	if resp.Transition != engine.TransitionGrab {
		t.Errorf("Expected grab transition, got %s", resp.Transition)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/puzzles/USA-image/pointer", map[string]string{"action": "bogus"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestReset(t *testing.T) {
	mockService := &MockPuzzleService{}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/puzzles/USA-image/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Message string             `json:"message"`
		Puzzle  service.PuzzleInfo `json:"puzzle"`
	}
	parseResponse(t, w, &resp)
	if resp.Message != service.MessageReset {
		t.Errorf("Expected %q, got %q", service.MessageReset, resp.Message)
	}
	if resp.Puzzle.ID != "USA-image" {
		t.Errorf("Expected puzzle USA-image, got %s", resp.Puzzle.ID)
	}
}

func TestProgressEndpoints(t *testing.T) {
	completed := progress.Summary{PuzzleID: "USA-image", Status: progress.StatusCompleted}
	started := progress.Summary{PuzzleID: "FRA-map", Status: progress.StatusInProgress}
	mockService := &MockPuzzleService{
		ListProgressFunc: func(ctx context.Context) ([]progress.Summary, error) {
			return []progress.Summary{completed, started}, nil
		},
		GetProgressFunc: func(ctx context.Context, puzzleID string) (*progress.Record, error) {
			if puzzleID == "USA-image" {
				return &progress.Record{PuzzleID: puzzleID, IsCompleted: true}, nil
			}
			return nil, fmt.Errorf("%w: %s", service.ErrProgressNotFound, puzzleID)
		},
		ProgressStatsFunc: func(ctx context.Context) (*progress.Stats, error) {
			return &progress.Stats{Total: 2, Completed: 1, InProgress: 1}, nil
		},
		SubjectStatusFunc: func(ctx context.Context, subjectID string) (map[progress.Kind]progress.Status, error) {
			if subjectID == "" {
				return nil, fmt.Errorf("%w: subject is required", service.ErrInvalidRequest)
			}
			return map[progress.Kind]progress.Status{
				progress.KindImage: progress.StatusCompleted,
				progress.KindMap:   progress.StatusNotStarted,
			}, nil
		},
	}
	server := setupTestServer(mockService)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/progress?status=completed", nil))
		var resp struct {
			Count    int                `json:"count"`
			Progress []progress.Summary `json:"progress"`
		}
		parseResponse(t, w, &resp)
		if resp.Count != 1 || resp.Progress[0].PuzzleID != "USA-image" {
			t.Errorf("Unexpected filtered list: %+v", resp)
		}
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/progress/USA-image", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		w = httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/progress/BRA-map", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("stats", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/progress/stats", nil))
		var stats progress.Stats
		parseResponse(t, w, &stats)
		if stats.Total != 2 || stats.Completed != 1 {
			t.Errorf("Unexpected stats: %+v", stats)
		}
	})

	t.Run("status", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/progress/status?subject=USA", nil))
		var resp struct {
			Subject  string            `json:"subject"`
			Statuses map[string]string `json:"statuses"`
		}
		parseResponse(t, w, &resp)
		if resp.Statuses["image"] != "completed" || resp.Statuses["map"] != "not-started" {
			t.Errorf("Unexpected statuses: %+v", resp.Statuses)
		}

		w = httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/progress/status", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("clear", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("DELETE", "/api/progress/USA-image", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}

func TestPresets(t *testing.T) {
	mockService := &MockPuzzleService{
		ListPresetsFunc: func(ctx context.Context) ([]*service.PresetInfo, error) {
			return []*service.PresetInfo{{PresetID: "classic", GridSize: 3}}, nil
		},
		LoadPresetFunc: func(ctx context.Context, name string) (*engine.Preset, error) {
			if name == "classic" {
				return &engine.Preset{Name: "classic", Settings: engine.DefaultSettings()}, nil
			}
			return nil, fmt.Errorf("%w: %s", config.ErrPresetNotFound, name)
		},
	}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/presets", nil))
	var presets []service.PresetInfo
	parseResponse(t, w, &presets)
	if len(presets) != 1 || presets[0].PresetID != "classic" {
		t.Errorf("Unexpected presets: %+v", presets)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/presets/classic", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/presets/impossible", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

type fakeTiles struct {
	ref   string
	piece engine.Piece
	size  int
	err   error
}

func (f *fakeTiles) Tile(ctx context.Context, imageRef string, p engine.Piece, size int) ([]byte, error) {
	f.ref, f.piece, f.size = imageRef, p, size
	if f.err != nil {
		return nil, f.err
	}
	return []byte("\x89PNG"), nil
}

func TestTile(t *testing.T) {
	mockService := &MockPuzzleService{
		GetPuzzleFunc: func(ctx context.Context, puzzleID string) (*service.PuzzleInfo, error) {
			return testInfo(puzzleID), nil
		},
	}

	t.Run("disabled", func(t *testing.T) {
		w := httptest.NewRecorder()
		setupTestServer(mockService).ServeHTTP(w, makeRequest("GET", "/api/puzzles/USA-image/pieces/1.png", nil))
		if w.Code != http.StatusNotImplemented {
			t.Errorf("Expected status 501, got %d", w.Code)
		}
	})

	tiles := &fakeTiles{}
	server := setupTestServer(mockService, WithTiles(tiles))

	tests := []struct {
		path     string
		expected int
	}{
		{"/api/puzzles/USA-image/pieces/3.png?size=64", http.StatusOK},
		{"/api/puzzles/USA-image/pieces/9.png", http.StatusNotFound},
		{"/api/puzzles/USA-image/pieces/1.png?size=5000", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", tt.path, nil))
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}

	if tiles.ref != "usa.png" || tiles.piece.ID != 3 || tiles.size != 64 {
		t.Errorf("Renderer called with %q piece %d size %d", tiles.ref, tiles.piece.ID, tiles.size)
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		expectedStatus int
	}{
		{"Missing puzzle parameter", "", http.StatusBadRequest},
		{"Invalid puzzle", "?puzzle=invalid", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(&MockPuzzleService{})
			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/ws"+tt.queryParams, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	setupTestServer(&MockPuzzleService{}).ServeHTTP(w, makeRequest("GET", "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("Unexpected health response: %d %s", w.Code, w.Body.String())
	}
}

// fixedRand scatters every piece to the same spot.
type fixedRand struct{}

func (fixedRand) Float64() float64 { return 0.5 }

func newIntegrationServer(t *testing.T) (*Server, *progress.Store) {
	t.Helper()
	presets, err := config.NewManager("../presets")
	if err != nil {
		t.Fatalf("Failed to create preset manager: %v", err)
	}
	store := progress.NewStore(progress.NewMemoryBackend(), nil)
	sessions := session.NewManager(store, nil)
	svc := service.NewPuzzleService(sessions, store, presets, service.WithRand(fixedRand{}))
	return NewServer(svc, nil), store
}

func TestSolvePuzzleOverHTTP(t *testing.T) {
	server, store := newIntegrationServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/puzzles", map[string]interface{}{
		"subject_id": "USA", "kind": "image", "image_ref": "usa.png", "grid_size": 2,
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var info service.PuzzleInfo
	parseResponse(t, w, &info)
	if info.ID != "USA-image" || info.State.TotalPieces != 4 {
		t.Fatalf("Unexpected puzzle: %+v", info)
	}

	// Container is 400x400 at (0,0), so 1 percent is 4 pixels.
	bounds := map[string]float64{"left": 0, "top": 0, "width": 400, "height": 400}
	var last service.PointerResult
	for _, p := range info.State.Pieces {
		steps := []map[string]interface{}{
			{"action": "down", "piece_id": p.ID, "client_x": p.X * 4, "client_y": p.Y * 4, "bounds": bounds},
			{"action": "move", "client_x": p.CorrectX * 4, "client_y": p.CorrectY * 4, "bounds": bounds},
			{"action": "up"},
		}
		for _, step := range steps {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/puzzles/USA-image/pointer", step))
			if w.Code != http.StatusOK {
				t.Fatalf("Pointer failed: %d %s", w.Code, w.Body.String())
			}
			last = service.PointerResult{}
			parseResponse(t, w, &last)
		}
		if last.Transition != engine.TransitionSnap {
			t.Errorf("Piece %d: expected snap, got %s", p.ID, last.Transition)
		}
	}

	if !last.Completed || last.Message != service.MessageCompleted {
		t.Errorf("Expected completion on last drop, got %+v", last)
	}

	rec, ok := store.Get("USA-image")
	if !ok || !rec.IsCompleted || rec.CompletedAt == nil {
		t.Errorf("Expected completed record, got %+v", rec)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/progress/status?subject=USA", nil))
	if !strings.Contains(w.Body.String(), `"image":"completed"`) {
		t.Errorf("Unexpected status body: %s", w.Body.String())
	}
}

func TestTile_RefusedImageRef(t *testing.T) {
	mockService := &MockPuzzleService{
		GetPuzzleFunc: func(ctx context.Context, puzzleID string) (*service.PuzzleInfo, error) {
			return testInfo(puzzleID), nil
		},
	}

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"outside images dir", fmt.Errorf("%w: /etc/passwd", tiles.ErrForbiddenRef), http.StatusForbidden},
		{"remote disabled", fmt.Errorf("%w: http://10.0.0.1/x.png", tiles.ErrRemoteDisabled), http.StatusForbidden},
		{"decode failure", errors.New("failed to decode image"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(mockService, WithTiles(&fakeTiles{err: tt.err}))
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/puzzles/USA-image/pieces/1.png", nil))
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}
