package server_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sketchboard/drawing"
	"sketchboard/protocol"
	"sketchboard/server"
)

func startRelay(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(server.Router(server.NewBoard(), ""))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, typ protocol.MessageType, payload any, userID string) {
	t.Helper()
	m, err := protocol.New(typ, payload, userID, time.Now().UnixMilli())
	if err != nil {
		t.Fatal(err)
	}
	raw, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatal(err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	m, err := protocol.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func joinSession(t *testing.T, url, userID string) *websocket.Conn {
	t.Helper()
	conn := dial(t, url)
	sendFrame(t, conn, protocol.TypeUserJoined, protocol.JoinPayload{UserID: userID, Name: userID}, userID)
	return conn
}

// Two sessions exchange an add and a delete; a third session joining
// afterwards sees an empty canvas. The first frame A receives after
// B's join broadcast must be B's delete, proving A's own add was
// never echoed back.
func TestRelayEndToEnd(t *testing.T) {
	_, url := startRelay(t)

	a := joinSession(t, url, "a")
	if m := readFrame(t, a); m.Type != protocol.TypeInitialState {
		t.Fatalf("a's first frame = %s", m.Type)
	}

	b := joinSession(t, url, "b")
	snap, err := readFrame(t, b).Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Elements) != 0 || len(snap.Users) != 2 {
		t.Fatalf("b's snapshot: %d elements, %d users", len(snap.Elements), len(snap.Users))
	}
	if m := readFrame(t, a); m.Type != protocol.TypeUserJoined {
		t.Fatalf("a expected b's join, got %s", m.Type)
	}

	el := drawing.Element{
		ID:     "a-1",
		Type:   drawing.TypePen,
		Points: []drawing.Point{{X: 0, Y: 0}, {X: 5, Y: 5}},
		Style:  drawing.Style{Stroke: "#000", StrokeWidth: 2},
		UserID: "a",
	}
	sendFrame(t, a, protocol.TypeElementAdded, el, "a")

	m := readFrame(t, b)
	if m.Type != protocol.TypeElementAdded {
		t.Fatalf("b got %s", m.Type)
	}
	got, err := m.Element()
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "a-1" {
		t.Fatalf("b got element %s", got.ID)
	}

	sendFrame(t, b, protocol.TypeElementDeleted, protocol.DeletePayload{ID: "a-1"}, "b")

	m = readFrame(t, a)
	if m.Type != protocol.TypeElementDeleted {
		t.Fatalf("a got %s, want element_deleted (and never its own add)", m.Type)
	}
	del, err := m.Delete()
	if err != nil {
		t.Fatal(err)
	}
	if del.ID != "a-1" {
		t.Fatalf("a got delete for %s", del.ID)
	}

	c := joinSession(t, url, "c")
	snap, err = readFrame(t, c).Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Elements) != 0 {
		t.Fatalf("late joiner snapshot has %d elements, want 0", len(snap.Elements))
	}
	if len(snap.Users) != 3 {
		t.Fatalf("late joiner snapshot has %d users, want 3", len(snap.Users))
	}
}

func TestRelayBroadcastsUserLeftOnClose(t *testing.T) {
	_, url := startRelay(t)

	a := joinSession(t, url, "a")
	readFrame(t, a)

	b := joinSession(t, url, "b")
	readFrame(t, b)
	readFrame(t, a) // b's join

	b.Close()

	m := readFrame(t, a)
	if m.Type != protocol.TypeUserLeft {
		t.Fatalf("a got %s, want user_left", m.Type)
	}
	left, err := m.Leave()
	if err != nil {
		t.Fatal(err)
	}
	if left.UserID != "b" {
		t.Fatalf("user_left for %s", left.UserID)
	}
}

func TestRelaySurvivesMalformedFrames(t *testing.T) {
	_, url := startRelay(t)

	a := joinSession(t, url, "a")
	readFrame(t, a)

	if err := a.WriteMessage(websocket.TextMessage, []byte(`{broken`)); err != nil {
		t.Fatal(err)
	}

	// The connection stays open and the relay keeps working.
	b := joinSession(t, url, "b")
	readFrame(t, b)
	if m := readFrame(t, a); m.Type != protocol.TypeUserJoined {
		t.Fatalf("a got %s after sending garbage", m.Type)
	}
}
