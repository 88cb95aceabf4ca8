package server

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"sketchboard/drawing"
	"sketchboard/protocol"
)

// session is a registered participant: its live connection plus
// bookkeeping metadata.
type session struct {
	client   *Client
	lastSeen time.Time
}

// Board holds the canonical shared state: the element list and the
// roster of connected participants. A single mutex is held for the
// whole of each inbound message's handling, so mutations form one
// total order and every recipient observes broadcasts in that order.
type Board struct {
	mu       sync.Mutex
	elements []drawing.Element
	sessions map[string]*session
	users    map[string]drawing.User
	hue      func() float64
}

func NewBoard() *Board {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Board{
		sessions: make(map[string]*session),
		users:    make(map[string]drawing.User),
		hue:      func() float64 { return rng.Float64() * 360 },
	}
}

// Elements returns a copy of the canonical element list.
func (b *Board) Elements() []drawing.Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]drawing.Element, len(b.elements))
	copy(out, b.elements)
	return out
}

// Users returns a copy of the current roster.
func (b *Board) Users() []drawing.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]drawing.User, 0, len(b.users))
	for _, u := range b.users {
		out = append(out, u)
	}
	return out
}

func (b *Board) userList() []drawing.User {
	out := make([]drawing.User, 0, len(b.users))
	for _, u := range b.users {
		out = append(out, u)
	}
	return out
}

// Handle processes one inbound frame from c. Malformed frames are
// logged and dropped; unknown type tags are ignored. The connection
// stays open either way.
func (b *Board) Handle(c *Client, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		slog.Error("dropping malformed frame", "err", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[msg.UserID]; ok {
		s.lastSeen = time.Now()
	}

	switch msg.Type {
	case protocol.TypeUserJoined:
		b.handleJoin(c, msg, raw)

	case protocol.TypeElementAdded:
		el, err := msg.Element()
		if err != nil {
			slog.Error("dropping element_added", "err", err)
			return
		}
		// Accepted as-is: the relay does not validate element shape.
		b.elements = append(b.elements, el)
		b.broadcast(raw, c)

	case protocol.TypeElementDeleted:
		p, err := msg.Delete()
		if err != nil {
			slog.Error("dropping element_deleted", "err", err)
			return
		}
		b.elements = removeFirst(b.elements, p.ID)
		b.broadcast(raw, c)

	case protocol.TypeElementUpdated:
		patch, err := msg.Element()
		if err != nil {
			slog.Error("dropping element_updated", "err", err)
			return
		}
		b.mergeElement(patch)
		b.broadcast(raw, c)

	case protocol.TypeCursorMoved:
		p, err := msg.Cursor()
		if err != nil {
			slog.Error("dropping cursor_moved", "err", err)
			return
		}
		// Unknown sessions skip the roster update but still relay.
		if u, ok := b.users[msg.UserID]; ok {
			pos := p.Position
			u.Cursor = &pos
			b.users[msg.UserID] = u
		}
		b.broadcast(raw, c)

	case protocol.TypeClearCanvas:
		b.elements = nil
		b.broadcast(raw, c)

	default:
		slog.Info("ignoring message", "type", msg.Type, "user", msg.UserID)
	}
}

// handleJoin registers a participant and replies with the full
// canonical state. The snapshot is enqueued to the joining connection
// before the session is registered for broadcasts, so the first thing
// a new participant observes is a snapshot that precedes every
// subsequent mutation it will be sent. Callers hold b.mu.
func (b *Board) handleJoin(c *Client, msg protocol.Message, raw []byte) {
	p, err := msg.Join()
	if err != nil {
		slog.Error("dropping user_joined", "err", err)
		return
	}

	userID := msg.UserID
	name := p.Name
	if name == "" {
		name = "User " + shortID(userID)
	}

	b.users[userID] = drawing.User{
		ID:    userID,
		Name:  name,
		Color: fmt.Sprintf("hsl(%.0f, 70%%, 60%%)", b.hue()),
	}

	// The snapshot goes to the joining connection before its session
	// can receive broadcasts, so the roster includes the joiner but
	// the first frame it observes is always this snapshot.
	snap := protocol.Snapshot{Elements: append([]drawing.Element{}, b.elements...), Users: b.userList()}
	reply, err := protocol.New(protocol.TypeInitialState, snap, protocol.ServerUserID, nowMillis())
	if err != nil {
		slog.Error("encoding initial_state", "err", err)
		delete(b.users, userID)
		return
	}
	frame, err := reply.Encode()
	if err != nil {
		slog.Error("encoding initial_state", "err", err)
		delete(b.users, userID)
		return
	}
	c.enqueue(frame)

	c.userID = userID
	b.sessions[userID] = &session{client: c, lastSeen: time.Now()}

	b.broadcast(raw, c)
	slog.Info("user joined", "user", userID, "name", name, "sessions", len(b.sessions))
}

// Disconnect removes c's session, if it ever registered, and tells
// the remaining participants.
func (b *Board) Disconnect(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[c.userID]
	if !ok || s.client != c {
		return
	}
	delete(b.sessions, c.userID)
	delete(b.users, c.userID)

	msg, err := protocol.New(protocol.TypeUserLeft, protocol.LeavePayload{UserID: c.userID}, protocol.ServerUserID, nowMillis())
	if err != nil {
		slog.Error("encoding user_left", "err", err)
		return
	}
	frame, err := msg.Encode()
	if err != nil {
		slog.Error("encoding user_left", "err", err)
		return
	}
	b.broadcast(frame, c)
	slog.Info("user left", "user", c.userID, "sessions", len(b.sessions))
}

// broadcast enqueues frame to every registered session except the
// originator. Delivery is best-effort: a session whose send buffer is
// full is skipped without affecting the others. Callers hold b.mu.
func (b *Board) broadcast(frame []byte, from *Client) {
	for id, s := range b.sessions {
		if s.client == from {
			continue
		}
		if !s.client.enqueue(frame) {
			slog.Warn("send buffer full, skipping recipient", "user", id)
		}
	}
}

func (b *Board) mergeElement(patch drawing.Element) {
	for i := range b.elements {
		if b.elements[i].ID != patch.ID {
			continue
		}
		el := b.elements[i]
		if patch.Type != "" {
			el.Type = patch.Type
		}
		if patch.Points != nil {
			el.Points = patch.Points
		}
		if patch.Style != (drawing.Style{}) {
			el.Style = patch.Style
		}
		if patch.Text != "" {
			el.Text = patch.Text
		}
		b.elements[i] = el
		return
	}
}

func removeFirst(elements []drawing.Element, id string) []drawing.Element {
	for i := range elements {
		if elements[i].ID == id {
			return append(elements[:i:i], elements[i+1:]...)
		}
	}
	return elements
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
