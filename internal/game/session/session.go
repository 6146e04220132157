package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/circle/internal/telnet"
)

// outboxSize bounds per-session pending output. When a client falls this
// far behind, further messages are dropped rather than letting the
// mutation path wait on a slow socket.
const outboxSize = 64

// Session is one connected client. Output flows through the outbox
// channel and a dedicated writer goroutine; the mutation path only ever
// enqueues.
type Session struct {
	// ID is a stable identifier for logs, distinct from the player.
	ID string

	conn   *telnet.Conn
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	playerID string
	// passwordHash and account timestamps ride along from login so the
	// final snapshot can be rebuilt without re-reading disk.
	passwordHash  string
	createdAt     time.Time
	rentSettledAt time.Time

	outbox     chan string
	outboxOnce sync.Once
	writerDone chan struct{}
}

func newSession(conn *telnet.Conn, logger *zap.Logger) *Session {
	s := &Session{
		ID:         uuid.NewString()[:8],
		conn:       conn,
		logger:     logger,
		state:      StateNegotiating,
		outbox:     make(chan string, outboxSize),
		writerDone: make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PlayerID returns the live entity ID, or empty before login completes.
func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

// setState advances the lifecycle. Reports false when the session is
// already at or past the requested state, which makes Closing idempotent.
func (s *Session) setState(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state >= next {
		return false
	}
	s.state = next
	return true
}

// Send queues a line of output. Safe from any goroutine; never blocks.
// Output to a session that is closing, or whose outbox is full, is
// dropped.
func (s *Session) Send(text string) {
	s.mu.Lock()
	closing := s.state >= StateClosing
	s.mu.Unlock()
	if closing {
		return
	}

	select {
	case s.outbox <- text:
	default:
		s.logger.Warn("session outbox full, dropping output",
			zap.String("session", s.ID))
	}
}

// closeOutbox stops the writer after it drains what is already queued.
func (s *Session) closeOutbox() {
	s.outboxOnce.Do(func() { close(s.outbox) })
	<-s.writerDone
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	for text := range s.outbox {
		if err := s.conn.WriteLine(text); err != nil {
			s.logger.Debug("session write failed",
				zap.String("session", s.ID),
				zap.Error(err))
			// Drain the rest so closeOutbox never waits on a dead socket.
			for range s.outbox {
			}
			return
		}
	}
}
