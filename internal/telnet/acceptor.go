// Package telnet provides the line-oriented TCP front door for the circle
// server: connection acceptance, Telnet protocol handling, and ANSI styling.
package telnet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/circle/internal/config"
)

// SessionHandler processes a connected client session.
// Implementations own the full lifecycle of a single client: login flow,
// command loop, and teardown.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// refusalMessage is sent to connections beyond the session cap before the
// socket is closed. No session is created for a refused connection.
const refusalMessage = "The game is full right now. Please try again later."

// Acceptor listens for connections on a TCP port, enforces the concurrent
// session cap, and dispatches each admitted connection to a SessionHandler.
type Acceptor struct {
	cfg     config.ServerConfig
	handler SessionHandler
	logger  *zap.Logger

	active   atomic.Int64
	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewAcceptor creates an acceptor with the given configuration.
//
// Precondition: cfg must have a valid port and max_sessions; handler and logger must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with ListenAndServe.
func NewAcceptor(cfg config.ServerConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		quit:    make(chan struct{}),
	}
}

// ListenAndServe starts the TCP listener and accepts connections until Stop
// is called. This method blocks until the acceptor is stopped.
//
// Precondition: The acceptor must not already be running.
// Postcondition: The listener is closed when this method returns.
func (a *Acceptor) ListenAndServe() error {
	start := time.Now()

	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	a.logger.Info("acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.Int("max_sessions", a.cfg.MaxSessions),
		zap.Duration("startup", time.Since(start)),
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-a.quit:
				return nil
			default:
				a.logger.Error("accepting connection", zap.Error(err))
				continue
			}
		}

		if int(a.active.Load()) >= a.cfg.MaxSessions {
			a.refuse(conn)
			continue
		}

		a.active.Add(1)
		a.wg.Add(1)
		go a.handleConn(conn)
	}
}

// refuse turns away a connection beyond the session cap. The refusal is
// written directly to the raw socket; no session state is ever created.
func (a *Acceptor) refuse(raw net.Conn) {
	a.logger.Warn("connection refused at session cap",
		zap.String("remote_addr", raw.RemoteAddr().String()),
		zap.Int("max_sessions", a.cfg.MaxSessions),
	)
	_ = raw.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, _ = fmt.Fprintf(raw, "%s\r\n", refusalMessage)
	_ = raw.Close()
}

// handleConn processes a single admitted TCP connection.
func (a *Acceptor) handleConn(raw net.Conn) {
	defer a.wg.Done()
	defer a.active.Add(-1)
	start := time.Now()
	addr := raw.RemoteAddr().String()

	a.logger.Info("client connected",
		zap.String("remote_addr", addr),
		zap.Int64("active", a.active.Load()),
	)

	conn := NewConn(raw, a.cfg.IdleTimeout, a.cfg.WriteTimeout)
	defer conn.Close()

	if err := conn.Negotiate(); err != nil {
		a.logger.Error("telnet negotiation failed",
			zap.String("remote_addr", addr),
			zap.Error(err),
		)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel context when quit signal received
	go func() {
		select {
		case <-a.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.handler.HandleSession(ctx, conn); err != nil {
		a.logger.Debug("session ended",
			zap.String("remote_addr", addr),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		a.logger.Info("session ended cleanly",
			zap.String("remote_addr", addr),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// Stop gracefully stops the acceptor, closing the listener and waiting
// for all active sessions to finish.
//
// Postcondition: All connections are closed and goroutines have exited.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	a.running = false

	close(a.quit)
	if a.listener != nil {
		a.listener.Close()
	}
	a.wg.Wait()

	a.logger.Info("acceptor stopped")
}

// Addr returns the actual listening address, or empty string if not yet listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// ActiveSessions returns the number of currently admitted connections.
func (a *Acceptor) ActiveSessions() int {
	return int(a.active.Load())
}

// IsRunning reports whether the acceptor is currently accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
