package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
	"github.com/wricardo/mcp-training/jigsaw/game/service"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
)

// boardBounds makes client coordinates equal to board percentages.
var boardBounds = engine.Rect{Left: 0, Top: 0, Width: engine.FullScale, Height: engine.FullScale}

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Jigsaw Puzzle",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Jigsaw Puzzle - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Drag every scattered piece to its correct position. A piece snaps into place
when it is dropped within the snap threshold of its correct position.

AVAILABLE TOOLS:
- open_puzzle: Open or resume a puzzle for a subject (e.g. USA) and kind (image/map)
- puzzle_state: Show pieces, positions and progress
- list_puzzles: List open puzzles
- close_puzzle: Close an open puzzle (progress is kept)
- drag_piece: Drag one piece to a board position in one call
- pointer_event: Send a single low-level pointer event
- reset_puzzle: Scatter the pieces again
- list_progress / progress_stats / subject_status / clear_progress: Saved progress
- list_presets: Difficulty presets
- puzzle_instructions: Full rules

Coordinates are percentages of the board (0-100), measured from the top-left.`),
	)

	c.registerTools()
}

func puzzleIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Puzzle ID, e.g. USA-image",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Puzzle management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "open_puzzle",
		Description: "Open a puzzle, resuming saved progress when it exists",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"subject_id": map[string]interface{}{
					"type":        "string",
					"description": "Subject the puzzle belongs to, e.g. a country code like USA",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Puzzle kind: image (default) or map",
					"enum":        []string{"image", "map"},
				},
				"image_ref": map[string]interface{}{
					"type":        "string",
					"description": "Image URL or path",
				},
				"preset": map[string]interface{}{
					"type":        "string",
					"description": "Difficulty preset (optional, see list_presets)",
				},
				"grid_size": map[string]interface{}{
					"type":        "integer",
					"description": "Pieces per row, overrides the preset (optional)",
				},
				"threshold": map[string]interface{}{
					"type":        "number",
					"description": "Snap distance in percent, overrides the preset (optional, 0 means exact)",
				},
			},
			Required: []string{"subject_id", "image_ref"},
		},
	}, c.handleOpenPuzzle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_puzzles",
		Description: "List all open puzzles",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPuzzles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "puzzle_state",
		Description: "Get the current state of a puzzle",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": puzzleIDProperty(),
			},
			Required: []string{"puzzle_id"},
		},
	}, c.handlePuzzleState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "close_puzzle",
		Description: "Close an open puzzle. Saved progress is kept",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": puzzleIDProperty(),
			},
			Required: []string{"puzzle_id"},
		},
	}, c.handleClosePuzzle)

	// Interaction
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "drag_piece",
		Description: "Drag a piece so its top-left corner lands at (x, y) and release it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": puzzleIDProperty(),
				"piece_id": map[string]interface{}{
					"type":        "integer",
					"description": "Piece to drag",
				},
				"x": map[string]interface{}{
					"type":        "number",
					"description": "Target left edge in percent (0-100)",
				},
				"y": map[string]interface{}{
					"type":        "number",
					"description": "Target top edge in percent (0-100)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Why you are making this move",
				},
			},
			Required: []string{"puzzle_id", "piece_id", "x", "y"},
		},
	}, c.handleDragPiece)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "pointer_event",
		Description: "Send one pointer event (down, move, up, leave) in board percentages",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": puzzleIDProperty(),
				"action": map[string]interface{}{
					"type":        "string",
					"description": "Pointer action",
					"enum":        []string{"down", "move", "up", "leave"},
				},
				"piece_id": map[string]interface{}{
					"type":        "integer",
					"description": "Piece under the pointer (required for down)",
				},
				"x": map[string]interface{}{
					"type":        "number",
					"description": "Pointer x in percent",
				},
				"y": map[string]interface{}{
					"type":        "number",
					"description": "Pointer y in percent",
				},
			},
			Required: []string{"puzzle_id", "action"},
		},
	}, c.handlePointerEvent)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_puzzle",
		Description: "Scatter all pieces again and restart the timer",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": puzzleIDProperty(),
			},
			Required: []string{"puzzle_id"},
		},
	}, c.handleResetPuzzle)

	// Saved progress
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_progress",
		Description: "List saved progress for every puzzle",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Filter by status (optional)",
					"enum":        []string{"in-progress", "completed"},
				},
			},
		},
	}, c.handleListProgress)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "progress_stats",
		Description: "Completion counts and solve time statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleProgressStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "subject_status",
		Description: "Status of each puzzle kind for a subject",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"subject_id": map[string]interface{}{
					"type":        "string",
					"description": "Subject, e.g. USA",
				},
			},
			Required: []string{"subject_id"},
		},
	}, c.handleSubjectStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "clear_progress",
		Description: "Delete the saved progress of a puzzle",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": puzzleIDProperty(),
			},
			Required: []string{"puzzle_id"},
		},
	}, c.handleClearProgress)

	// Presets and help
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List available difficulty presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "puzzle_instructions",
		Description: "Get complete rules and tips for solving puzzles",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handlePuzzleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func puzzlePath(puzzleID string, suffix string) string {
	return "/api/puzzles/" + url.PathEscape(puzzleID) + suffix
}

// Tool handlers

func (c *Client) handleOpenPuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	body := service.OpenRequest{
		SubjectID: cast.ToString(args["subject_id"]),
		Kind:      cast.ToString(args["kind"]),
		ImageRef:  cast.ToString(args["image_ref"]),
		Preset:    cast.ToString(args["preset"]),
		GridSize:  cast.ToInt(args["grid_size"]),
	}
	if v, ok := args["threshold"]; ok && v != nil {
		threshold := cast.ToFloat64(v)
		body.Threshold = &threshold
	}

	var info service.PuzzleInfo
	if err := c.apiCall(ctx, "POST", "/api/puzzles", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	header := "Opened new puzzle"
	if info.State != nil && info.State.Resumed {
		header = "Resumed saved puzzle"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s\n\n%s", header, info.ID, formatPuzzleState(info.State))), nil
}

func (c *Client) handleListPuzzles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int                  `json:"count"`
		Puzzles []service.PuzzleInfo `json:"puzzles"`
	}
	if err := c.apiCall(ctx, "GET", "/api/puzzles", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Open Puzzles (%d):\n\n", response.Count)
	for _, p := range response.Puzzles {
		placed, total := 0, 0
		if p.State != nil {
			placed, total = p.State.PlacedCount, p.State.TotalPieces
		}
		result += fmt.Sprintf("- %s (%d/%d placed, last used %s)\n",
			p.ID, placed, total, p.LastAccessedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handlePuzzleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	puzzleID := cast.ToString(request.GetArguments()["puzzle_id"])

	var info service.PuzzleInfo
	if err := c.apiCall(ctx, "GET", puzzlePath(puzzleID, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPuzzleState(info.State)), nil
}

func (c *Client) handleClosePuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	puzzleID := cast.ToString(request.GetArguments()["puzzle_id"])

	var resp map[string]string
	if err := c.apiCall(ctx, "DELETE", puzzlePath(puzzleID, ""), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(resp["message"]), nil
}

func (c *Client) handleDragPiece(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	puzzleID := cast.ToString(args["puzzle_id"])
	pieceID := cast.ToInt(args["piece_id"])
	x := cast.ToFloat64(args["x"])
	y := cast.ToFloat64(args["y"])

	// Intent is rubber duck debugging for the agent; the server ignores it.
	_ = cast.ToString(args["intent"])

	var info service.PuzzleInfo
	if err := c.apiCall(ctx, "GET", puzzlePath(puzzleID, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idx := engine.FindPiece(info.State.Pieces, pieceID)
	if idx < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("piece %d not found in %s", pieceID, puzzleID)), nil
	}
	piece := info.State.Pieces[idx]

	// Grabbing the top-left corner gives a zero grab offset, so the last
	// move puts the corner exactly at (x, y).
	steps := []service.PointerRequest{
		{Action: "down", PieceID: &pieceID, ClientX: piece.X, ClientY: piece.Y, Bounds: boardBounds},
		{Action: "move", ClientX: x, ClientY: y, Bounds: boardBounds},
		{Action: "up", ClientX: x, ClientY: y, Bounds: boardBounds},
	}
	var result service.PointerResult
	for _, step := range steps {
		result = service.PointerResult{}
		if err := c.apiCall(ctx, "POST", puzzlePath(puzzleID, "/pointer"), step, &result); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if step.Action == "down" && result.Transition != engine.TransitionGrab {
			return mcp.NewToolResultError(fmt.Sprintf("could not pick up piece %d (placed pieces and completed puzzles cannot be dragged)", pieceID)), nil
		}
	}

	return mcp.NewToolResultText(formatPointerResult(pieceID, &result)), nil
}

func (c *Client) handlePointerEvent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	puzzleID := cast.ToString(args["puzzle_id"])

	body := service.PointerRequest{
		Action:  cast.ToString(args["action"]),
		ClientX: cast.ToFloat64(args["x"]),
		ClientY: cast.ToFloat64(args["y"]),
		Bounds:  boardBounds,
	}
	pieceID := -1
	if raw, ok := args["piece_id"]; ok && raw != nil {
		pieceID = cast.ToInt(raw)
		body.PieceID = &pieceID
	}

	var result service.PointerResult
	if err := c.apiCall(ctx, "POST", puzzlePath(puzzleID, "/pointer"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPointerResult(pieceID, &result)), nil
}

func (c *Client) handleResetPuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	puzzleID := cast.ToString(request.GetArguments()["puzzle_id"])

	var response struct {
		Message string             `json:"message"`
		Puzzle  service.PuzzleInfo `json:"puzzle"`
	}
	if err := c.apiCall(ctx, "POST", puzzlePath(puzzleID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatPuzzleState(response.Puzzle.State))), nil
}

func (c *Client) handleListProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/progress"
	if status := cast.ToString(request.GetArguments()["status"]); status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var response struct {
		Count    int                `json:"count"`
		Progress []progress.Summary `json:"progress"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Saved Puzzles (%d):\n\n", response.Count)
	for _, s := range response.Progress {
		fmt.Fprintf(&b, "- %s [%s] %d/%d placed", s.PuzzleID, s.Status, s.PlacedCount, s.TotalPieces)
		if s.DurationMs > 0 {
			fmt.Fprintf(&b, ", solved in %s", formatDuration(s.DurationMs))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleProgressStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats progress.Stats
	if err := c.apiCall(ctx, "GET", "/api/progress/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStats(&stats)), nil
}

func (c *Client) handleSubjectStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subject := cast.ToString(request.GetArguments()["subject_id"])

	var response struct {
		Subject  string                            `json:"subject"`
		Statuses map[progress.Kind]progress.Status `json:"statuses"`
	}
	if err := c.apiCall(ctx, "GET", "/api/progress/status?subject="+url.QueryEscape(subject), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", response.Subject)
	for _, k := range progress.Kinds {
		fmt.Fprintf(&b, "- %s: %s\n", k, response.Statuses[k])
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleClearProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	puzzleID := cast.ToString(request.GetArguments()["puzzle_id"])

	var resp map[string]string
	if err := c.apiCall(ctx, "DELETE", "/api/progress/"+url.PathEscape(puzzleID), nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(resp["message"]), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []service.PresetInfo
	if err := c.apiCall(ctx, "GET", "/api/presets", nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Presets:\n\n"
	for _, p := range presets {
		result += fmt.Sprintf("- %s: %dx%d, snap within %.1f%%", p.PresetID, p.GridSize, p.GridSize, p.Threshold)
		if p.Description != "" {
			result += " - " + p.Description
		}
		result += "\n"
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handlePuzzleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Jigsaw Puzzle - Complete Instructions

OBJECTIVE:
The source image is cut into a square grid of equal rectangular pieces that
start scattered over the board. Move every piece to its correct position.

COORDINATES:
- The board is 100 x 100 percent; (0, 0) is the top-left corner.
- A piece's position (x, y) is its top-left corner.
- Each piece is 100/N percent wide and tall on an N x N grid.
- The correct position of piece id k is column k mod N, row k div N,
  i.e. correct = (col * 100/N, row * 100/N).

PLACEMENT:
- On release a piece snaps to its correct position when both |x - correctX|
  and |y - correctY| are within the snap threshold (10 by default).
- Snapped pieces are locked and cannot be picked up again.
- Pieces are clamped so they never leave the board.

DRAGGING:
- drag_piece does a full down/move/up in one call. It is the easiest tool.
- pointer_event lets you control each step: "down" on a piece, any number of
  "move" events, then "up". "leave" also releases the piece.
- Only one piece can be dragged at a time.

PROGRESS:
- Progress is saved after every change and resumed by open_puzzle.
- reset_puzzle scatters the pieces again and restarts the timer.
- The puzzle is completed when every piece is placed; it then ignores drags
  until reset.

STRATEGY:
1. Call puzzle_state to read each piece's position and correct position.
2. drag_piece each unplaced piece to its correct (x, y).
3. Check the placed counter; completion is reported on the final drop.`

// Formatting helpers

func formatPuzzleState(state *session.State) string {
	if state == nil {
		return "No puzzle state available"
	}

	var b strings.Builder
	status := "in progress"
	if state.IsCompleted {
		status = "COMPLETED"
	}
	fmt.Fprintf(&b, "Puzzle: %s | Placed: %d/%d | Status: %s\n",
		state.PuzzleID, state.PlacedCount, state.TotalPieces, status)
	fmt.Fprintf(&b, "Grid: %dx%d | Snap threshold: %.1f | Image: %s\n",
		state.Settings.GridSize, state.Settings.GridSize, state.Settings.Threshold, state.ImageRef)
	if state.Drag.Dragging() {
		fmt.Fprintf(&b, "Dragging piece %d\n", state.Drag.ActivePieceID)
	}
	if !state.Persisted {
		b.WriteString("WARNING: last save failed\n")
	}

	b.WriteString("\nPieces (id: position -> correct position):\n")
	for _, p := range state.Pieces {
		if p.IsPlaced {
			fmt.Fprintf(&b, "  %2d: placed at (%.1f, %.1f)\n", p.ID, p.X, p.Y)
			continue
		}
		fmt.Fprintf(&b, "  %2d: (%.1f, %.1f) -> (%.1f, %.1f)\n", p.ID, p.X, p.Y, p.CorrectX, p.CorrectY)
	}

	if state.IsCompleted {
		b.WriteString("\n🎉 PUZZLE COMPLETED!")
	}
	return b.String()
}

func formatPointerResult(pieceID int, result *service.PointerResult) string {
	var b strings.Builder
	switch result.Transition {
	case engine.TransitionSnap:
		fmt.Fprintf(&b, "✅ Piece %d snapped into place.\n", pieceID)
	case engine.TransitionDrop:
		fmt.Fprintf(&b, "Piece %d dropped, not close enough to its correct position.\n", pieceID)
	case engine.TransitionGrab:
		fmt.Fprintf(&b, "Picked up piece %d.\n", pieceID)
	case engine.TransitionDrag:
		b.WriteString("Moved.\n")
	default:
		b.WriteString("No change.\n")
	}
	if result.Message != "" {
		b.WriteString(result.Message + "\n")
	}
	if result.State != nil {
		fmt.Fprintf(&b, "Placed: %d/%d\n", result.State.PlacedCount, result.State.TotalPieces)
		if idx := engine.FindPiece(result.State.Pieces, pieceID); idx >= 0 {
			p := result.State.Pieces[idx]
			fmt.Fprintf(&b, "Piece %d is at (%.1f, %.1f), correct (%.1f, %.1f)\n", p.ID, p.X, p.Y, p.CorrectX, p.CorrectY)
		}
	}
	return b.String()
}

func formatStats(s *progress.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Puzzles: %d saved, %d completed, %d in progress\n", s.Total, s.Completed, s.InProgress)
	if s.Completed > 0 {
		fmt.Fprintf(&b, "Solve time: mean %.1fs, median %.1fs, fastest %.1fs, slowest %.1fs",
			s.MeanSolveSeconds, s.MedianSolveSeconds, s.FastestSolveSeconds, s.SlowestSolveSeconds)
		if s.Completed > 1 {
			fmt.Fprintf(&b, ", stddev %.1fs", s.StdDevSolveSeconds)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}
