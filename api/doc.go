// Package api provides the HTTP REST API for the jigsaw puzzle engine.
//
// Endpoints:
//
// Puzzles:
//   - POST /api/puzzles - Open or resume a puzzle
//   - GET /api/puzzles - List open puzzles (sort, order, limit)
//   - GET /api/puzzles/{id} - Get puzzle state
//   - DELETE /api/puzzles/{id} - Close an open puzzle, keeping its progress
//   - POST /api/puzzles/{id}/pointer - Apply a mouse or touch event
//   - POST /api/puzzles/{id}/reset - Scatter the pieces again
//   - GET /api/puzzles/{id}/pieces/{piece}.png - Render one piece (size query)
//
// Saved progress:
//   - GET /api/progress - Summaries of every saved puzzle (status filter)
//   - GET /api/progress/{id} - Raw saved record
//   - DELETE /api/progress/{id} - Clear saved progress
//   - GET /api/progress/stats - Solve statistics
//   - GET /api/progress/status?subject=USA - Status per puzzle kind
//
// Presets:
//   - GET /api/presets - List difficulty presets
//   - GET /api/presets/{name} - Get one preset
//
// Live updates:
//   - GET /ws?puzzle={id} - WebSocket; receives state updates and accepts
//     pointer events in the same JSON shape as the pointer endpoint
//   - GET /health - Liveness probe
//
// Pointer events carry the container bounds so the server can convert client
// coordinates to board percentages:
//
//	{
//	  "action": "down|move|up|leave",
//	  "input": "mouse|touch",
//	  "piece_id": 4,
//	  "client_x": 312, "client_y": 188,
//	  "touches": [{"client_x": 312, "client_y": 188}],
//	  "bounds": {"left": 100, "top": 80, "width": 600, "height": 600}
//	}
//
// Errors are returned as JSON with an HTTP status code:
//
//	{"error": "puzzle not found: USA-image"}
package api
