// Package mcp exposes the puzzle REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes one or more REST
// requests against a running server, and responses are rendered as text
// an agent can read. Board coordinates in tool arguments are percentages,
// sent with a 100x100 container so no pixel conversion is needed.
//
// Tools:
//   - open_puzzle, puzzle_state, list_puzzles, close_puzzle
//   - drag_piece: down on the piece corner, move, up
//   - pointer_event: one raw pointer event
//   - reset_puzzle
//   - list_progress, progress_stats, subject_status, clear_progress
//   - list_presets, puzzle_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
