// Package service provides the puzzle operations shared by every transport.
//
// PuzzleService sits between the transports (HTTP, WebSocket, MCP, terminal)
// and the session layer. It resolves difficulty presets, opens puzzles,
// translates pointer requests into session events and exposes saved
// progress, statuses and statistics.
//
// Usage:
//
//	store := progress.NewStore(backend, logger)
//	sessions := session.NewManager(store, logger)
//	presets, _ := config.NewManager("presets")
//	svc := service.NewPuzzleService(sessions, store, presets,
//		service.WithCompletionHook(func(st session.State) { ... }))
//
//	info, err := svc.OpenPuzzle(ctx, service.OpenRequest{
//		SubjectID: "USA",
//		Kind:      "image",
//		ImageRef:  "https://flags.example/usa.png",
//	})
package service
