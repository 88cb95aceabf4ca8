// Package client keeps a local drawing.Document in step with a relay:
// remote mutations are applied to the replica as they arrive, local
// mutations are applied optimistically and forwarded best-effort.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sketchboard/drawing"
	"sketchboard/protocol"
)

// State of the connection loop.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// RetryDelay is the fixed pause between reconnect attempts. There is
// no backoff and no attempt limit.
const RetryDelay = 3 * time.Second

// Sync connects one participant to the relay. All exported methods
// are safe for concurrent use; the network send is never awaited by
// the local mutation, and a failed send is not rolled back.
type Sync struct {
	url    string
	userID string
	name   string
	doc    *drawing.Document

	// OnMessage, when set before Run, observes every applied remote
	// message. Used by the presentation layer to trigger redraws.
	OnMessage func(protocol.Message)

	mu    sync.Mutex
	conn  *websocket.Conn
	state State
	users map[string]drawing.User
}

func New(url, userID, name string, doc *drawing.Document) *Sync {
	return &Sync{
		url:    url,
		userID: userID,
		name:   name,
		doc:    doc,
		users:  make(map[string]drawing.User),
	}
}

func (s *Sync) Document() *drawing.Document { return s.doc }

func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Users returns a copy of the peer roster, excluding this client.
func (s *Sync) Users() []drawing.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]drawing.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}

// Run drives the connection loop until ctx is cancelled: dial, join,
// read until the connection drops, wait the fixed delay, repeat.
// Cancellation closes the live connection and stops the loop.
func (s *Sync) Run(ctx context.Context) {
	for {
		if err := s.connectOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("connection lost", "err", err)
		}
		s.setState(Disconnected)

		select {
		case <-time.After(RetryDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sync) connectOnce(ctx context.Context) error {
	s.setState(Connecting)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.state = Connected
	s.mu.Unlock()

	// Unblock the read loop when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := s.send(protocol.TypeUserJoined, protocol.JoinPayload{UserID: s.userID, Name: s.name}); err != nil {
		conn.Close()
		return err
	}

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		s.apply(raw)
	}
}

// apply folds one inbound frame into the replica. Remote mutations
// bypass the Document's undo history on purpose: another author's
// edit must never become a step in this participant's undo stack.
func (s *Sync) apply(raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		slog.Error("dropping malformed frame", "err", err)
		return
	}

	switch msg.Type {
	case protocol.TypeInitialState:
		snap, err := msg.Snapshot()
		if err != nil {
			slog.Error("dropping initial_state", "err", err)
			return
		}
		s.doc.ReplaceAll(snap.Elements)
		s.mu.Lock()
		s.users = make(map[string]drawing.User, len(snap.Users))
		for _, u := range snap.Users {
			if u.ID != s.userID {
				s.users[u.ID] = u
			}
		}
		s.mu.Unlock()

	case protocol.TypeElementAdded:
		el, err := msg.Element()
		if err != nil {
			slog.Error("dropping element_added", "err", err)
			return
		}
		s.doc.ApplyRemoteAdd(el)

	case protocol.TypeElementDeleted:
		p, err := msg.Delete()
		if err != nil {
			slog.Error("dropping element_deleted", "err", err)
			return
		}
		s.doc.ApplyRemoteRemove(p.ID)

	case protocol.TypeElementUpdated:
		patch, err := msg.Element()
		if err != nil {
			slog.Error("dropping element_updated", "err", err)
			return
		}
		s.doc.ApplyRemoteUpdate(patch.ID, patch)

	case protocol.TypeClearCanvas:
		s.doc.ApplyRemoteClear()

	case protocol.TypeCursorMoved:
		p, err := msg.Cursor()
		if err != nil {
			slog.Error("dropping cursor_moved", "err", err)
			return
		}
		s.mu.Lock()
		if u, ok := s.users[msg.UserID]; ok {
			pos := p.Position
			u.Cursor = &pos
			s.users[msg.UserID] = u
		}
		s.mu.Unlock()

	case protocol.TypeUserJoined:
		p, err := msg.Join()
		if err != nil {
			slog.Error("dropping user_joined", "err", err)
			return
		}
		id := p.UserID
		if id == "" {
			id = msg.UserID
		}
		s.mu.Lock()
		if _, ok := s.users[id]; !ok {
			s.users[id] = drawing.User{
				ID:    id,
				Name:  p.Name,
				Color: fmt.Sprintf("hsl(%.0f, 70%%, 60%%)", rand.Float64()*360),
			}
		}
		s.mu.Unlock()

	case protocol.TypeUserLeft:
		p, err := msg.Leave()
		if err != nil {
			slog.Error("dropping user_left", "err", err)
			return
		}
		s.mu.Lock()
		delete(s.users, p.UserID)
		s.mu.Unlock()

	default:
		slog.Info("ignoring message", "type", msg.Type)
	}

	if s.OnMessage != nil {
		s.OnMessage(msg)
	}
}

// AddElement applies a locally drawn element and forwards it.
func (s *Sync) AddElement(el drawing.Element) {
	s.doc.Add(el)
	s.sendAsync(protocol.TypeElementAdded, el)
}

// RemoveElement deletes by id locally and forwards the deletion.
func (s *Sync) RemoveElement(id string) {
	s.doc.Remove(id)
	s.sendAsync(protocol.TypeElementDeleted, protocol.DeletePayload{ID: id})
}

// UpdateElement merges a patch locally and forwards it. The patch
// must carry the target id.
func (s *Sync) UpdateElement(id string, patch drawing.Element) {
	patch.ID = id
	s.doc.Update(id, patch)
	s.sendAsync(protocol.TypeElementUpdated, patch)
}

// Clear empties the canvas locally and forwards the clear.
func (s *Sync) Clear() {
	s.doc.Clear()
	s.sendAsync(protocol.TypeClearCanvas, struct{}{})
}

// Erase removes every element the eraser's swept path touched,
// locally and on the relay, and returns the deleted ids.
func (s *Sync) Erase(path []drawing.Point) []string {
	var hit []string
	for _, el := range s.doc.Elements() {
		if drawing.EraserIntersects(path, el) {
			hit = append(hit, el.ID)
		}
	}
	for _, id := range hit {
		s.RemoveElement(id)
	}
	return hit
}

// MoveCursor forwards the local cursor position. Nothing is applied
// locally; the replica only tracks peer cursors.
func (s *Sync) MoveCursor(p drawing.Point) {
	s.sendAsync(protocol.TypeCursorMoved, protocol.CursorPayload{Position: p})
}

// sendAsync is the fire-and-forget path for local mutations: a send
// failure is logged, never surfaced, never rolled back.
func (s *Sync) sendAsync(t protocol.MessageType, payload any) {
	if err := s.send(t, payload); err != nil {
		slog.Error("send failed", "type", t, "err", err)
	}
}

func (s *Sync) send(t protocol.MessageType, payload any) error {
	msg, err := protocol.New(t, payload, s.userID, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	frame, err := msg.Encode()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.state != Connected {
		return fmt.Errorf("send %s: not connected", t)
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Sync) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
