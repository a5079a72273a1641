// Package relay is the long-lived fan-out tier. It accepts websocket
// subscribers, scopes them to board rooms after a membership check against
// the API, and forwards events arriving on the HTTP ingress.
package relay

import (
	"sync"

	"github.com/boardstream/project/internal/contracts"
)

// Session is one connected subscriber. Deliver must not block; slow
// sessions are expected to drop the message or disconnect themselves.
type Session interface {
	Deliver(msg contracts.SocketMessage)
}

// Rooms tracks which sessions subscribed to which boards. All state is
// in-process; a session's subscriptions vanish with its connection.
type Rooms struct {
	mu      sync.RWMutex
	all     map[Session]struct{}
	byBoard map[string]map[Session]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		all:     map[Session]struct{}{},
		byBoard: map[string]map[Session]struct{}{},
	}
}

func (r *Rooms) Register(s Session) {
	r.mu.Lock()
	r.all[s] = struct{}{}
	r.mu.Unlock()
}

// Unregister removes the session from every room and from the global set.
func (r *Rooms) Unregister(s Session) {
	r.mu.Lock()
	delete(r.all, s)
	for boardID, members := range r.byBoard {
		delete(members, s)
		if len(members) == 0 {
			delete(r.byBoard, boardID)
		}
	}
	r.mu.Unlock()
}

func (r *Rooms) Join(boardID string, s Session) {
	r.mu.Lock()
	members, ok := r.byBoard[boardID]
	if !ok {
		members = map[Session]struct{}{}
		r.byBoard[boardID] = members
	}
	members[s] = struct{}{}
	r.mu.Unlock()
}

func (r *Rooms) Leave(boardID string, s Session) {
	r.mu.Lock()
	if members, ok := r.byBoard[boardID]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(r.byBoard, boardID)
		}
	}
	r.mu.Unlock()
}

// Emit delivers an event to every session in the board's room, wrapped in
// the standard envelope.
func (r *Rooms) Emit(boardID, event string, data any) int {
	msg := contracts.SocketMessage{
		Event:   event,
		Payload: contracts.Envelope{BoardID: boardID, Data: data},
	}
	r.mu.RLock()
	members := r.byBoard[boardID]
	targets := make([]Session, 0, len(members))
	for s := range members {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		s.Deliver(msg)
	}
	return len(targets)
}

// EmitAll delivers an event to every connected session regardless of rooms.
func (r *Rooms) EmitAll(event string, data any) int {
	msg := contracts.SocketMessage{
		Event:   event,
		Payload: contracts.Envelope{Data: data},
	}
	r.mu.RLock()
	targets := make([]Session, 0, len(r.all))
	for s := range r.all {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		s.Deliver(msg)
	}
	return len(targets)
}

func (r *Rooms) Connected() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

func (r *Rooms) RoomSize(boardID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byBoard[boardID])
}
