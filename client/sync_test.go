package client_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"sketchboard/client"
	"sketchboard/drawing"
	"sketchboard/server"
)

func startRelay(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(server.Router(server.NewBoard(), ""))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func startSync(t *testing.T, ctx context.Context, url, userID string) *client.Sync {
	t.Helper()
	s := client.New(url, userID, "user "+userID, drawing.NewDocument())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	t.Cleanup(func() {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("Run did not stop on cancellation")
		}
	})
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func hasUser(s *client.Sync, id string) bool {
	for _, u := range s.Users() {
		if u.ID == id {
			return true
		}
	}
	return false
}

func penElement(userID, id string) drawing.Element {
	return drawing.Element{
		ID:     id,
		Type:   drawing.TypePen,
		Points: []drawing.Point{{X: 0, Y: 0}, {X: 10, Y: 0}},
		Style:  drawing.Style{Stroke: "#e74c3c", StrokeWidth: 2},
		UserID: userID,
	}
}

func TestSyncTwoReplicasConverge(t *testing.T) {
	url := startRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := startSync(t, ctx, url, "a")
	waitFor(t, "a connected", func() bool { return a.State() == client.Connected })

	b := startSync(t, ctx, url, "b")
	// a seeing b's join means the relay registered b's session.
	waitFor(t, "a sees b", func() bool { return hasUser(a, "b") })
	waitFor(t, "b sees a", func() bool { return hasUser(b, "a") })

	a.AddElement(penElement("a", "a-1"))
	waitFor(t, "b's replica gains a-1", func() bool { return b.Document().Len() == 1 })
	if got := b.Document().Elements()[0]; got.ID != "a-1" {
		t.Fatalf("b has %s", got.ID)
	}

	b.RemoveElement("a-1")
	waitFor(t, "a's replica loses a-1", func() bool { return a.Document().Len() == 0 })

	// A participant joining now starts from an empty canvas.
	c := startSync(t, ctx, url, "c")
	waitFor(t, "c sees both peers", func() bool { return hasUser(c, "a") && hasUser(c, "b") })
	if n := c.Document().Len(); n != 0 {
		t.Fatalf("late joiner has %d elements, want 0", n)
	}
}

func TestSyncRemoteEditsBypassLocalUndo(t *testing.T) {
	url := startRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := startSync(t, ctx, url, "a")
	b := startSync(t, ctx, url, "b")
	waitFor(t, "a sees b", func() bool { return hasUser(a, "b") })

	a.AddElement(penElement("a", "a-1"))
	waitFor(t, "b gains a-1", func() bool { return b.Document().Len() == 1 })

	if b.Document().CanUndo() {
		t.Fatal("remote add must not create a local undo step")
	}

	b.AddElement(penElement("b", "b-1"))
	waitFor(t, "a gains b-1", func() bool { return a.Document().Len() == 2 })

	b.Document().Undo()
	elements := b.Document().Elements()
	if len(elements) != 1 || elements[0].ID != "a-1" {
		t.Fatalf("undo removed the remote element: %+v", elements)
	}
}

func TestSyncCursorRoster(t *testing.T) {
	url := startRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := startSync(t, ctx, url, "a")
	b := startSync(t, ctx, url, "b")
	waitFor(t, "b sees a", func() bool { return hasUser(b, "a") })

	a.MoveCursor(drawing.Point{X: 12, Y: 34})
	waitFor(t, "b sees a's cursor", func() bool {
		for _, u := range b.Users() {
			if u.ID == "a" && u.Cursor != nil && u.Cursor.X == 12 {
				return true
			}
		}
		return false
	})
}

func TestSyncEraseSweep(t *testing.T) {
	url := startRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := startSync(t, ctx, url, "a")
	b := startSync(t, ctx, url, "b")
	waitFor(t, "a sees b", func() bool { return hasUser(a, "b") })

	a.AddElement(penElement("a", "a-1")) // segment along y=0
	waitFor(t, "b gains a-1", func() bool { return b.Document().Len() == 1 })

	// Sampled eraser points straddle the stroke without landing on it.
	deleted := b.Erase([]drawing.Point{{X: 3, Y: 8}, {X: 6, Y: -8}})
	if len(deleted) != 1 || deleted[0] != "a-1" {
		t.Fatalf("erase deleted %v", deleted)
	}
	waitFor(t, "a loses a-1", func() bool { return a.Document().Len() == 0 })
}

func TestSyncStateTransitions(t *testing.T) {
	url := startRelay(t)
	ctx, cancel := context.WithCancel(context.Background())

	a := startSync(t, ctx, url, "a")
	waitFor(t, "a connected", func() bool { return a.State() == client.Connected })

	cancel()
	waitFor(t, "a disconnected", func() bool { return a.State() == client.Disconnected })
}

func TestSyncSendWhileDisconnectedIsBestEffort(t *testing.T) {
	doc := drawing.NewDocument()
	s := client.New("ws://localhost:1/ws", "a", "a", doc)

	// Never connected: the local apply still happens, the send is
	// silently dropped, and nothing is rolled back.
	s.AddElement(penElement("a", "a-1"))
	if doc.Len() != 1 {
		t.Fatal("optimistic apply must not depend on the connection")
	}
	if s.State() != client.Disconnected {
		t.Fatalf("state = %v", s.State())
	}
}
