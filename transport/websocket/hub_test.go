package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
)

func testClient(hub *Hub, puzzleID string) *Client {
	return &Client{
		id:       "test",
		hub:      hub,
		puzzleID: puzzleID,
		send:     make(chan []byte, bufferSize),
	}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub(nil)
	client1 := testClient(hub, "USA-image")
	client2 := testClient(hub, "USA-image")

	hub.registerClient(client1)
	hub.registerClient(client2)
	if hub.ClientCount("USA-image") != 2 {
		t.Errorf("Expected 2 clients, got %d", hub.ClientCount("USA-image"))
	}

	hub.unregisterClient(client1)
	if !hub.puzzles["USA-image"][client2] {
		t.Error("client2 should still be registered")
	}

	hub.unregisterClient(client2)
	if _, exists := hub.puzzles["USA-image"]; exists {
		t.Error("Puzzle should have been cleaned up after last client unregistered")
	}

	// Unregistering twice must not panic on the closed channel.
	hub.unregisterClient(client2)
}

func TestHubBroadcastState(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := testClient(hub, "USA-image")
	other := testClient(hub, "BRA-image")
	hub.registerClient(client)
	hub.registerClient(other)

	state := &session.State{
		PuzzleID:    "USA-image",
		Pieces:      []engine.Piece{{ID: 4, X: 33.3, Y: 33.3, IsPlaced: true}},
		PlacedCount: 1,
		TotalPieces: 9,
	}
	hub.BroadcastState("USA-image", state)

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.PuzzleID != "USA-image" || message.Event != EventStateUpdate {
			t.Errorf("Unexpected message header: %+v", message)
		}
		if message.State == nil || message.State.PlacedCount != 1 || !message.State.Pieces[0].IsPlaced {
			t.Error("State not correctly transmitted")
		}
	case <-time.After(time.Second):
		t.Fatal("No message received within timeout")
	}

	select {
	case <-other.send:
		t.Error("Clients of other puzzles must not receive the update")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub(nil)

	hub.BroadcastEvent("USA-image", EventPuzzleCompleted, "Puzzle completed!")

	select {
	case message := <-hub.broadcast:
		if message.PuzzleID != "USA-image" || message.Event != EventPuzzleCompleted {
			t.Errorf("Unexpected message: %+v", message)
		}
		if message.Data != "Puzzle completed!" {
			t.Errorf("Expected data, got %v", message.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No broadcast message queued")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	slow := &Client{id: "slow", hub: hub, puzzleID: "USA-image", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{PuzzleID: "USA-image", Event: EventStateUpdate})

	if hub.ClientCount("USA-image") != 0 {
		t.Error("Expected slow client to be dropped")
	}
}

func newTestServer(hub *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("puzzle"))
	}))
}

func dial(t *testing.T, server *httptest.Server, puzzleID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?puzzle=" + puzzleID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestWebSocketLifecycle(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	server := newTestServer(hub)
	defer server.Close()

	conn := dial(t, server, "ws-test")
	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 })

	hub.BroadcastState("ws-test", &session.State{PuzzleID: "ws-test", TotalPieces: 9})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if message.State == nil || message.State.TotalPieces != 9 {
		t.Errorf("Unexpected state: %+v", message.State)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

func TestWebSocketInbound(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	received := make(chan string, 1)
	hub.SetInboundHandler(func(puzzleID string, payload []byte) error {
		if strings.Contains(string(payload), "bad") {
			return errors.New("bad pointer request")
		}
		received <- puzzleID + ":" + string(payload)
		return nil
	})

	server := newTestServer(hub)
	defer server.Close()
	conn := dial(t, server, "USA-image")
	defer conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("USA-image") == 1 })

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"up"}`)); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	select {
	case got := <-received:
		if got != `USA-image:{"action":"up"}` {
			t.Errorf("Unexpected inbound message: %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Inbound handler not called")
	}

	conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"bad"}`))
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Expected error reply: %v", err)
	}
	var message Message
	json.Unmarshal(data, &message)
	if message.Event != EventError || message.Data != "bad pointer request" {
		t.Errorf("Unexpected error reply: %+v", message)
	}
}
