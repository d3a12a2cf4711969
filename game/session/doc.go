// Package session runs open puzzles.
//
// A Session owns one puzzle's board and drag state. It loads saved progress
// on Open, feeds pointer events through engine.DragController, detects the
// completion edge and saves after every change. Handlers are serialized with
// a per-session mutex, so one session can be driven from several transports.
//
// Manager keeps the open sessions keyed by puzzle id ("USA-image"), closes
// idle ones and runs a shared completion hook for every session it opened.
//
// Usage:
//
//	store := progress.NewStore(progress.NewMemoryBackend(), logger)
//	manager := session.NewManager(store, logger)
//
//	sess, err := manager.Open(session.OpenOptions{
//		SubjectID: "USA",
//		Kind:      progress.KindImage,
//		ImageRef:  "https://flags.example/usa.png",
//	})
//	if err != nil {
//		return err
//	}
//
//	bounds := engine.Rect{Width: 600, Height: 600}
//	sess.PointerDown(4, engine.MouseInput{Kind: engine.ActionPress, ClientX: 10, ClientY: 10}, bounds)
//	sess.PointerMove(engine.MouseInput{Kind: engine.ActionMove, ClientX: 200, ClientY: 205}, bounds)
//	update := sess.PointerUp(engine.MouseInput{Kind: engine.ActionRelease})
package session
