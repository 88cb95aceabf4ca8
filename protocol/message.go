// Package protocol defines the JSON frames exchanged between the
// relay and its participants: one object per text frame, with a type
// tag selecting the payload shape.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"sketchboard/drawing"
)

type MessageType string

const (
	TypeInitialState   MessageType = "initial_state"
	TypeElementAdded   MessageType = "element_added"
	TypeElementUpdated MessageType = "element_updated"
	TypeElementDeleted MessageType = "element_deleted"
	TypeCursorMoved    MessageType = "cursor_moved"
	TypeUserJoined     MessageType = "user_joined"
	TypeUserLeft       MessageType = "user_left"
	TypeClearCanvas    MessageType = "clear_canvas"
)

// ServerUserID marks messages originated by the relay itself.
const ServerUserID = "server"

var ErrUnknownType = errors.New("unknown message type")

// Message is the envelope common to every frame. Data is left raw
// until the caller asks for the payload matching the type tag.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	UserID    string          `json:"userId"`
	Timestamp int64           `json:"timestamp"`
}

// Snapshot is the full canonical state sent once to a joining
// participant, before any broadcast it will subsequently receive.
type Snapshot struct {
	Elements []drawing.Element `json:"elements"`
	Users    []drawing.User    `json:"users"`
}

// DeletePayload carries the id of a removed element.
type DeletePayload struct {
	ID string `json:"id"`
}

// CursorPayload carries a participant's latest cursor position.
type CursorPayload struct {
	Position drawing.Point `json:"position"`
}

// JoinPayload announces a new participant.
type JoinPayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// LeavePayload announces a departed participant. Synthesized by the
// relay on disconnect.
type LeavePayload struct {
	UserID string `json:"userId"`
}

// Decode parses a raw frame into its envelope. The payload stays raw;
// an unknown type tag is not an error here so that callers can choose
// to ignore it (see Known).
func Decode(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}
	return m, nil
}

// Known reports whether the type tag is one this protocol defines.
func (m Message) Known() bool {
	switch m.Type {
	case TypeInitialState, TypeElementAdded, TypeElementUpdated,
		TypeElementDeleted, TypeCursorMoved, TypeUserJoined,
		TypeUserLeft, TypeClearCanvas:
		return true
	}
	return false
}

func (m Message) payload(tag MessageType, v any) error {
	if m.Type != tag {
		return fmt.Errorf("%w: want %s, have %s", ErrUnknownType, tag, m.Type)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", tag, err)
	}
	return nil
}

func (m Message) Snapshot() (Snapshot, error) {
	var s Snapshot
	err := m.payload(TypeInitialState, &s)
	return s, err
}

// Element decodes the payload of element_added and element_updated
// frames. For updates the result is a partial element.
func (m Message) Element() (drawing.Element, error) {
	var el drawing.Element
	if m.Type != TypeElementAdded && m.Type != TypeElementUpdated {
		return el, fmt.Errorf("%w: no element payload in %s", ErrUnknownType, m.Type)
	}
	if err := json.Unmarshal(m.Data, &el); err != nil {
		return el, fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return el, nil
}

func (m Message) Delete() (DeletePayload, error) {
	var p DeletePayload
	err := m.payload(TypeElementDeleted, &p)
	return p, err
}

func (m Message) Cursor() (CursorPayload, error) {
	var p CursorPayload
	err := m.payload(TypeCursorMoved, &p)
	return p, err
}

func (m Message) Join() (JoinPayload, error) {
	var p JoinPayload
	err := m.payload(TypeUserJoined, &p)
	return p, err
}

func (m Message) Leave() (LeavePayload, error) {
	var p LeavePayload
	err := m.payload(TypeUserLeft, &p)
	return p, err
}

// New builds an envelope around an already-encodable payload.
func New(t MessageType, payload any, userID string, millis int64) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return Message{Type: t, Data: raw, UserID: userID, Timestamp: millis}, nil
}

// Encode serializes the envelope to one wire frame.
func (m Message) Encode() ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return raw, nil
}
