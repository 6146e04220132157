package telnet

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/circle/internal/config"
)

// echoHandler is a test SessionHandler that echoes lines back to the client.
type echoHandler struct {
	sessionCount atomic.Int32
}

func (h *echoHandler) HandleSession(_ context.Context, conn *Conn) error {
	h.sessionCount.Add(1)
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		if line == "quit" {
			_ = conn.WriteLine("bye")
			return nil
		}
		_ = conn.WriteLine("echo: " + line)
	}
}

// blockingHandler holds sessions open until the test releases them.
type blockingHandler struct {
	sessionCount atomic.Int32
	release      chan struct{}
}

func (h *blockingHandler) HandleSession(ctx context.Context, _ *Conn) error {
	h.sessionCount.Add(1)
	select {
	case <-h.release:
	case <-ctx.Done():
	}
	return nil
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         0, // random port
		MaxSessions:  300,
		IdleTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func startAcceptor(t *testing.T, acc *Acceptor) string {
	t.Helper()
	go func() { _ = acc.ListenAndServe() }()
	deadline := time.After(2 * time.Second)
	for {
		if acc.IsRunning() && acc.Addr() != "" {
			return acc.Addr()
		}
		select {
		case <-deadline:
			t.Fatal("acceptor did not start in time")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestAcceptor_EchoSession(t *testing.T) {
	logger := zaptest.NewLogger(t)
	handler := &echoHandler{}
	acc := NewAcceptor(testServerConfig(), handler, logger)
	addr := startAcceptor(t, acc)
	defer acc.Stop()

	conn := dial(t, addr)

	// Drain initial telnet negotiation bytes, then talk.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	negotiation := make([]byte, 3)
	_, err := reader.Read(negotiation)
	require.NoError(t, err)

	_, err = conn.Write([]byte("hello\r\n"))
	require.NoError(t, err)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", strings.TrimRight(line, "\r\n"))

	_, _ = conn.Write([]byte("quit\r\n"))
}

func TestAcceptor_RefusesBeyondSessionCap(t *testing.T) {
	logger := zaptest.NewLogger(t)
	handler := &blockingHandler{release: make(chan struct{})}
	cfg := testServerConfig()
	cfg.MaxSessions = 2

	acc := NewAcceptor(cfg, handler, logger)
	addr := startAcceptor(t, acc)
	defer func() {
		close(handler.release)
		acc.Stop()
	}()

	// Fill the cap.
	dial(t, addr)
	dial(t, addr)
	require.Eventually(t, func() bool {
		return handler.sessionCount.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)

	// The third connection gets a refusal line and a closed socket, and
	// never reaches the handler.
	third := dial(t, addr)
	_ = third.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(third)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "full")

	// Socket closes after the refusal.
	_, err = reader.ReadString('\n')
	assert.Error(t, err)

	assert.Equal(t, int32(2), handler.sessionCount.Load())
}

func TestAcceptor_StopClosesListener(t *testing.T) {
	logger := zaptest.NewLogger(t)
	acc := NewAcceptor(testServerConfig(), &echoHandler{}, logger)
	addr := startAcceptor(t, acc)

	acc.Stop()
	assert.False(t, acc.IsRunning())

	_, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	assert.Error(t, err)
}
