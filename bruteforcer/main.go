// Command bruteforcer solves a puzzle over the REST API without looking at
// the answer: it drops each loose piece on every free grid slot until the
// server reports a snap. With --strategy direct it drags straight to the
// correct position instead, which is useful for load testing.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/service"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
	"github.com/wricardo/mcp-training/jigsaw/logging"
)

// boardBounds is the virtual container the client pretends to render in;
// client coordinates are board percentages times ten.
var boardBounds = engine.Rect{Left: 0, Top: 0, Width: 1000, Height: 1000}

// Client talks to one puzzle on the server
type Client struct {
	baseURL  string
	puzzleID string
	client   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// OpenPuzzle opens (or resumes) a puzzle and remembers its id.
func (c *Client) OpenPuzzle(ctx context.Context, req service.OpenRequest) (*session.State, error) {
	var info service.PuzzleInfo
	if err := c.do(ctx, http.MethodPost, "/api/puzzles", req, &info); err != nil {
		return nil, err
	}
	c.puzzleID = info.ID
	return info.State, nil
}

func (c *Client) GetState(ctx context.Context) (*session.State, error) {
	var info service.PuzzleInfo
	if err := c.do(ctx, http.MethodGet, "/api/puzzles/"+c.puzzleID, nil, &info); err != nil {
		return nil, err
	}
	return info.State, nil
}

func (c *Client) Reset(ctx context.Context) (*session.State, error) {
	var resp struct {
		Message string             `json:"message"`
		Puzzle  service.PuzzleInfo `json:"puzzle"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/puzzles/"+c.puzzleID+"/reset", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Puzzle.State, nil
}

func (c *Client) pointer(ctx context.Context, req service.PointerRequest) (*service.PointerResult, error) {
	req.Bounds = boardBounds
	var result service.PointerResult
	if err := c.do(ctx, http.MethodPost, "/api/puzzles/"+c.puzzleID+"/pointer", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Drag grabs a piece by its center and drops it with its top-left corner at
// (x, y) in board percent.
func (c *Client) Drag(ctx context.Context, p engine.Piece, x, y float64) (*service.PointerResult, error) {
	id := p.ID
	grabX, grabY := p.Width/2, p.Height/2

	down, err := c.pointer(ctx, service.PointerRequest{
		Action:  "down",
		PieceID: &id,
		ClientX: toClient(p.X + grabX),
		ClientY: toClient(p.Y + grabY),
	})
	if err != nil {
		return nil, err
	}
	if down.Transition != engine.TransitionGrab {
		return down, fmt.Errorf("could not pick up piece %d (%s)", id, down.Transition)
	}

	if _, err := c.pointer(ctx, service.PointerRequest{
		Action:  "move",
		ClientX: toClient(x + grabX),
		ClientY: toClient(y + grabY),
	}); err != nil {
		return nil, err
	}
	return c.pointer(ctx, service.PointerRequest{
		Action:  "up",
		ClientX: toClient(x + grabX),
		ClientY: toClient(y + grabY),
	})
}

func toClient(percent float64) float64 {
	return boardBounds.Left + percent*boardBounds.Width/engine.FullScale
}

// Report summarizes a run.
type Report struct {
	PuzzleID  string
	Drags     int
	Misses    int
	Completed bool
	Elapsed   time.Duration
}

// Solve drives strategy until the puzzle is complete or maxDrags is spent.
func Solve(ctx context.Context, c *Client, strategy Strategy, maxDrags int, delay time.Duration, logger log15.Logger) (Report, error) {
	start := time.Now()
	report := Report{PuzzleID: c.puzzleID}

	state, err := c.GetState(ctx)
	if err != nil {
		return report, err
	}
	strategy.Reset(state)

	for report.Drags < maxDrags && !state.IsCompleted {
		move, ok := strategy.Next(state)
		if !ok {
			return report, fmt.Errorf("strategy %s ran out of moves with %d/%d placed", strategy.Name(), state.PlacedCount, state.TotalPieces)
		}

		piece := state.Pieces[engine.FindPiece(state.Pieces, move.PieceID)]
		result, err := c.Drag(ctx, piece, move.X, move.Y)
		if err != nil {
			return report, err
		}
		report.Drags++

		placed := result.State.Pieces[engine.FindPiece(result.State.Pieces, move.PieceID)].IsPlaced
		strategy.Observe(move, placed)
		if !placed {
			report.Misses++
		}
		logger.Debug("Drag", "piece", move.PieceID, "x", move.X, "y", move.Y,
			"transition", result.Transition, "placed", result.State.PlacedCount, "total", result.State.TotalPieces)

		state = result.State
		if delay > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	report.Completed = state.IsCompleted
	report.Elapsed = time.Since(start)
	return report, nil
}

func main() {
	cmd := &cli.Command{
		Name:  "bruteforcer",
		Usage: "Solve a puzzle over the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Puzzle server URL", Sources: cli.EnvVars("JIGSAW_URL")},
			&cli.StringFlag{Name: "subject", Value: "USA", Usage: "Subject id"},
			&cli.StringFlag{Name: "kind", Value: "image", Usage: "Puzzle kind: image or map"},
			&cli.StringFlag{Name: "image", Value: "usa.png", Usage: "Image reference"},
			&cli.StringFlag{Name: "preset", Usage: "Difficulty preset"},
			&cli.StringFlag{Name: "strategy", Value: "systematic", Usage: "systematic or direct"},
			&cli.BoolFlag{Name: "keep", Usage: "Continue from saved progress instead of resetting"},
			&cli.IntFlag{Name: "max-drags", Value: 10000, Usage: "Maximum drags before giving up"},
			&cli.DurationFlag{Name: "delay", Usage: "Delay between drags"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bruteforcer: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := "info"
	if cmd.Bool("v") {
		level = "debug"
	}
	logger := logging.New(logging.Options{Level: level, Format: "terminal"})

	strategy, err := NewStrategy(cmd.String("strategy"))
	if err != nil {
		return err
	}

	logger.Info("Connecting to puzzle server", "url", cmd.String("url"))
	client := NewClient(cmd.String("url"))

	state, err := client.OpenPuzzle(ctx, service.OpenRequest{
		SubjectID: cmd.String("subject"),
		Kind:      cmd.String("kind"),
		ImageRef:  cmd.String("image"),
		Preset:    cmd.String("preset"),
	})
	if err != nil {
		return fmt.Errorf("failed to open puzzle: %w", err)
	}
	logger.Info("Puzzle opened", "puzzle", state.PuzzleID, "pieces", state.TotalPieces,
		"placed", state.PlacedCount, "resumed", state.Resumed)

	if !cmd.Bool("keep") {
		if _, err := client.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset puzzle: %w", err)
		}
		logger.Info("Puzzle reset")
	}

	report, err := Solve(ctx, client, strategy, cmd.Int("max-drags"), cmd.Duration("delay"), logger)
	if err != nil {
		return err
	}
	if !report.Completed {
		return fmt.Errorf("gave up after %d drags", report.Drags)
	}
	logger.Info("Puzzle solved", "puzzle", report.PuzzleID, "strategy", strategy.Name(),
		"drags", report.Drags, "misses", report.Misses, "elapsed", report.Elapsed.Round(time.Millisecond))
	return nil
}
