package subtitles_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"plenum/internal/api"
	"plenum/internal/reconnect"
	"plenum/internal/subtitles"
)

// wsServer is a one-connection-at-a-time WebSocket test backend.
type wsServer struct {
	t        *testing.T
	upgrader websocket.Upgrader
	mu       sync.Mutex
	conn     *websocket.Conn
	accepted chan struct{}
	srv      *httptest.Server
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	server := &wsServer{t: t, accepted: make(chan struct{}, 8)}
	server.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/ws/meetings/") {
			http.NotFound(w, r)
			return
		}
		conn, err := server.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		server.mu.Lock()
		server.conn = conn
		server.mu.Unlock()
		server.accepted <- struct{}{}
		// Keep the read side open so client pings/closes are consumed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(server.srv.Close)
	return server
}

func (s *wsServer) wsBase() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) waitAccept(t *testing.T) {
	t.Helper()
	select {
	case <-s.accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
	}
}

func (s *wsServer) send(t *testing.T, eventType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(api.SubtitleEvent{Type: eventType, Payload: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		t.Fatal("no active connection")
	}
	if err := conn.WriteMessage(websocket.TextMessage, envelope); err != nil {
		t.Fatalf("write message: %v", err)
	}
}

func (s *wsServer) sendRaw(data string) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(data))
	}
}

func (s *wsServer) dropConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func startClient(t *testing.T, server *wsServer, opts subtitles.Options) *subtitles.Client {
	t.Helper()
	client, err := subtitles.NewClient(server.wsBase(), 1, opts)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	t.Cleanup(client.Stop)
	server.waitAccept(t)
	return client
}

func waitFor(t *testing.T, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(message)
}

func TestClientAppliesHistoryAndCreatedEvents(t *testing.T) {
	server := newWSServer(t)
	client := startClient(t, server, subtitles.Options{ReconnectDelay: time.Hour})

	waitFor(t, client.Connected, "client never reported connected")

	server.send(t, api.SubtitleEventHistory, api.SubtitleHistoryPayload{
		Subtitles: []api.Subtitle{{ID: 1, Text: "one"}, {ID: 2, Text: "two"}},
	})
	waitFor(t, func() bool { return len(client.Subtitles()) == 2 }, "history never applied")

	server.send(t, api.SubtitleEventCreated, api.Subtitle{ID: 3, Text: "three"})
	waitFor(t, func() bool { return len(client.Subtitles()) == 3 }, "created event never applied")

	display := client.Subtitles()
	if display[0].ID != 3 || display[2].ID != 1 {
		t.Fatalf("display not most-recent-first: %+v", display)
	}
}

func TestClientInterimSupersession(t *testing.T) {
	server := newWSServer(t)
	client := startClient(t, server, subtitles.Options{ReconnectDelay: time.Hour})
	waitFor(t, client.Connected, "client never reported connected")

	server.send(t, api.SubtitleEventInterim, api.SubtitleInterimPayload{Text: "partial one"})
	waitFor(t, func() bool { return client.Interim() == "partial one" }, "interim never applied")

	server.send(t, api.SubtitleEventInterim, api.SubtitleInterimPayload{Text: "partial two"})
	waitFor(t, func() bool { return client.Interim() == "partial two" }, "interim never replaced")

	server.send(t, api.SubtitleEventCreated, api.Subtitle{ID: 9, Text: "final"})
	waitFor(t, func() bool { return client.Interim() == "" && len(client.Subtitles()) == 1 },
		"created event did not supersede interim")
}

func TestClientDropsMalformedFrames(t *testing.T) {
	server := newWSServer(t)
	client := startClient(t, server, subtitles.Options{ReconnectDelay: time.Hour})
	waitFor(t, client.Connected, "client never reported connected")

	server.sendRaw("{not json")
	server.sendRaw(`{"type":"subtitle_created","payload":"not an object"}`)
	server.send(t, api.SubtitleEventCreated, api.Subtitle{ID: 1, Text: "still works"})

	waitFor(t, func() bool { return len(client.Subtitles()) == 1 }, "stream did not survive malformed frames")
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	server := newWSServer(t)
	client := startClient(t, server, subtitles.Options{ReconnectDelay: 20 * time.Millisecond})
	waitFor(t, client.Connected, "client never reported connected")

	server.dropConn()
	waitFor(t, func() bool { return !client.Connected() }, "drop never observed")

	server.waitAccept(t)
	waitFor(t, client.Connected, "client never reconnected")
}

func TestManualReconnectRejectedWhileOpen(t *testing.T) {
	server := newWSServer(t)
	client := startClient(t, server, subtitles.Options{ReconnectDelay: time.Hour})
	waitFor(t, client.Connected, "client never reported connected")

	if client.Reconnect() {
		t.Fatal("Reconnect while open must be a no-op")
	}
	if got := client.State(); got != reconnect.StateOpen {
		t.Fatalf("state after rejected reconnect = %v", got)
	}
}

func TestManualReconnectFromClosedSkipsDelay(t *testing.T) {
	server := newWSServer(t)
	client := startClient(t, server, subtitles.Options{ReconnectDelay: time.Hour})
	waitFor(t, client.Connected, "client never reported connected")

	server.dropConn()
	waitFor(t, func() bool { return client.State() == reconnect.StateClosed }, "close never observed")

	if !client.Reconnect() {
		t.Fatal("Reconnect from closed should be permitted")
	}
	server.waitAccept(t)
	waitFor(t, client.Connected, "manual reconnect never established")
}

func TestStopPreventsLateMutation(t *testing.T) {
	server := newWSServer(t)
	client := startClient(t, server, subtitles.Options{ReconnectDelay: 10 * time.Millisecond})
	waitFor(t, client.Connected, "client never reported connected")

	server.send(t, api.SubtitleEventCreated, api.Subtitle{ID: 1, Text: "before stop"})
	waitFor(t, func() bool { return len(client.Subtitles()) == 1 }, "pre-stop event never applied")

	client.Stop()

	// Events pushed after teardown must not reach observable state, and
	// the closed stream must not be re-dialed.
	server.sendRaw(`{"type":"subtitle_created","payload":{"id":2,"text":"after stop"}}`)
	time.Sleep(50 * time.Millisecond)

	if got := len(client.Subtitles()); got != 1 {
		t.Fatalf("post-stop event mutated buffer: %d entries", got)
	}
	if client.Connected() {
		t.Fatal("client reports connected after Stop")
	}
	if got := client.State(); got != reconnect.StateIdle {
		t.Fatalf("supervisor not terminal after Stop: %v", got)
	}

	select {
	case <-server.accepted:
		t.Fatal("client re-dialed after Stop")
	default:
	}
}
