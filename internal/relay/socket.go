package relay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/boardstream/project/internal/contracts"
	"github.com/boardstream/project/internal/platform/auth"
)

const (
	writeTimeout = 10 * time.Second
	// sendBuffer bounds per-session queueing. A session that falls this far
	// behind starts losing messages instead of stalling the emit path.
	sendBuffer = 64
)

type socketSession struct {
	conn   *websocket.Conn
	send   chan contracts.SocketMessage
	closed chan struct{}
	once   sync.Once

	id     string
	userID string
	token  string
}

func newSocketSession(conn *websocket.Conn, userID, token string) *socketSession {
	return &socketSession{
		conn:   conn,
		send:   make(chan contracts.SocketMessage, sendBuffer),
		closed: make(chan struct{}),
		id:     uuid.NewString(),
		userID: userID,
		token:  token,
	}
}

// Deliver queues a message without blocking. Messages to a full session
// are dropped; the client resyncs from the API on reconnect.
func (ss *socketSession) Deliver(msg contracts.SocketMessage) {
	select {
	case ss.send <- msg:
	case <-ss.closed:
	default:
	}
}

func (ss *socketSession) close() {
	ss.once.Do(func() {
		close(ss.closed)
		ss.conn.Close()
	})
}

func (ss *socketSession) writePump() {
	for {
		select {
		case msg := <-ss.send:
			ss.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ss.conn.WriteJSON(msg); err != nil {
				ss.close()
				return
			}
		case <-ss.closed:
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	claims, err := s.Auth.Parse(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ss := newSocketSession(conn, claims.Subject, token)
	s.Rooms.Register(ss)
	if s.connected != nil {
		s.connected.Inc()
	}
	s.Log.Info("socket connected",
		zap.String("sessionId", ss.id),
		zap.String("userId", ss.userID))

	go ss.writePump()
	defer func() {
		s.Rooms.Unregister(ss)
		ss.close()
		if s.connected != nil {
			s.connected.Dec()
		}
		s.Log.Info("socket disconnected",
			zap.String("sessionId", ss.id),
			zap.String("userId", ss.userID))
	}()

	for {
		var msg contracts.SocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "join-board":
			s.handleJoin(r.Context(), ss, msg.BoardID)
		case "leave-board":
			s.Rooms.Leave(msg.BoardID, ss)
		}
	}
}

// handleJoin applies the join protocol: a missing board id, a lookup the
// API could not answer, and a negative membership answer each get their own
// denial reason so clients can react differently.
func (s *Server) handleJoin(ctx context.Context, ss *socketSession, boardID string) {
	deny := func(reason string) {
		ss.Deliver(contracts.SocketMessage{
			Event: contracts.EventJoinDenied,
			Payload: map[string]string{
				"boardId": boardID,
				"reason":  reason,
			},
		})
	}

	if boardID == "" {
		deny(contracts.DenyMissingBoardID)
		return
	}

	ok, err := s.Oracle.CanJoin(ctx, ss.token, boardID)
	if err != nil {
		s.Log.Warn("membership lookup failed",
			zap.String("userId", ss.userID),
			zap.String("boardId", boardID),
			zap.Error(err))
		deny(contracts.DenyFailedLookup)
		return
	}
	if !ok {
		deny(contracts.DenyNotMember)
		return
	}

	s.Rooms.Join(boardID, ss)
	ss.Deliver(contracts.SocketMessage{
		Event:   contracts.EventJoined,
		Payload: map[string]string{"boardId": boardID},
	})
	s.Log.Info("joined board room",
		zap.String("userId", ss.userID),
		zap.String("boardId", boardID))
}
