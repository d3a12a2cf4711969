// Package websocket pushes live puzzle state to browsers and accepts pointer
// events from them.
//
// A central Hub groups connections by puzzle id (?puzzle=USA-image). Every
// state change is broadcast as a JSON Message:
//
//	{"puzzle_id": "USA-image", "event": "state_update", "state": {...}}
//
// and completion or reset produce "puzzle_completed" / "puzzle_reset" events.
// Messages a client sends are passed to the InboundHandler installed by the
// HTTP layer, which decodes them as pointer requests.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run()
//	hub.SetInboundHandler(func(puzzleID string, payload []byte) error { ... })
package websocket
