package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/circle/internal/config"
	"github.com/cory-johannsen/circle/internal/game/command"
	"github.com/cory-johannsen/circle/internal/game/engine"
	"github.com/cory-johannsen/circle/internal/game/world"
	"github.com/cory-johannsen/circle/internal/persist"
	"github.com/cory-johannsen/circle/internal/telnet"
)

// maxPasswordAttempts is how many wrong passwords a connection may try
// before it is dropped.
const maxPasswordAttempts = 3

// maxLoginRounds bounds the name/creation dialogue so a client cannot
// loop the prompt forever.
const maxLoginRounds = 5

// maxProtocolViolations is how many consecutive oversized lines the
// command loop tolerates before dropping the connection. Any valid line
// resets the count.
const maxProtocolViolations = 5

const welcomeBanner = `
` + telnet.Bold + telnet.BrightCyan + `
   ██████╗██╗██████╗  ██████╗██╗     ███████╗
  ██╔════╝██║██╔══██╗██╔════╝██║     ██╔════╝
  ██║     ██║██████╔╝██║     ██║     █████╗
  ██║     ██║██╔══██╗██║     ██║     ██╔══╝
  ╚██████╗██║██║  ██║╚██████╗███████╗███████╗
   ╚═════╝╚═╝╚═╝  ╚═╝ ╚═════╝╚══════╝╚══════╝` + telnet.Reset + `

` + telnet.BrightYellow + `  A persistent world of rooms, rogues, and rent collectors.` + telnet.Reset + `
`

// SaveQueue accepts detached player snapshots for durable writing.
type SaveQueue interface {
	Enqueue(rec *persist.PlayerRecord)
}

// Manager owns every live session. It implements telnet.SessionHandler
// for the accept path and command.Notifier for the output path.
type Manager struct {
	cfg     config.GameConfig
	engine  *engine.Engine
	players *persist.PlayerStore
	saves   SaveQueue
	logger  *zap.Logger

	cmdCtx *command.Context

	mu       sync.RWMutex
	byPlayer map[string]*Session
}

// NewManager creates a Manager wired to the engine and player store.
// hooks may be nil when scripting is disabled.
func NewManager(cfg config.GameConfig, eng *engine.Engine, players *persist.PlayerStore, saves SaveQueue, hooks command.Hooks, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		engine:   eng,
		players:  players,
		saves:    saves,
		logger:   logger,
		byPlayer: make(map[string]*Session),
	}
	m.cmdCtx = &command.Context{
		World:       eng.World(),
		Events:      eng.Events(),
		Registry:    command.DefaultRegistry(),
		Out:         m,
		Hooks:       hooks,
		RequestSave: m.requestSave,
		Logger:      logger,
	}
	return m
}

// Context returns the command context shared by every session.
func (m *Manager) Context() *command.Context { return m.cmdCtx }

// SessionCount returns the number of sessions with a live player.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byPlayer)
}

// Send implements command.Notifier. Output addressed to entities without
// a session, mobs included, is silently dropped.
func (m *Manager) Send(entityID, text string) {
	m.mu.RLock()
	s := m.byPlayer[entityID]
	m.mu.RUnlock()
	if s != nil {
		s.Send(text)
	}
}

// HandleSession implements telnet.SessionHandler: the login dialogue,
// the command loop, and teardown. It returns when the client quits, the
// link dies, the idle timer fires, or the server shuts down.
func (m *Manager) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	s := newSession(conn, m.logger)
	defer m.teardown(s)

	// A shutdown must unblock the pending ReadLine; closing the socket
	// is the only way to do that.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "The world dissolves around you. Goodbye!"))
		_ = conn.Close()
	})
	defer stop()

	if err := conn.Write([]byte(welcomeBanner)); err != nil {
		return fmt.Errorf("sending banner: %w", err)
	}

	rec, err := m.login(s, conn)
	if err != nil || rec == nil {
		return err
	}

	if err := m.enterWorld(s, rec); err != nil {
		_ = conn.WriteLine("The world refused you entry. Try again later.")
		return err
	}
	return m.commandLoop(s, conn)
}

// login runs the name and password dialogue.
//
// Postcondition: Returns the player's record with rent settled, or
// (nil, nil) when the connection should simply be dropped.
func (m *Manager) login(s *Session, conn *telnet.Conn) (*persist.PlayerRecord, error) {
	for round := 0; round < maxLoginRounds; round++ {
		if err := conn.WritePrompt("By what name do you wish to be known? "); err != nil {
			return nil, err
		}
		name, err := conn.ReadLine()
		if errors.Is(err, telnet.ErrLineTooLong) {
			_ = conn.WriteLine("That name is far too long.")
			continue
		}
		if err != nil {
			return nil, loginReadErr(conn, err)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		// Receiving a name moves the session out of negotiation.
		s.setState(StateAuthenticating)
		if !persist.ValidName(name) {
			_ = conn.WriteLine("Names must be 3 to 12 letters, nothing else.")
			continue
		}
		name = capitalizeName(name)
		playerID := strings.ToLower(name)

		if m.sessionFor(playerID) != nil {
			_ = conn.WriteLine("That character is already in the game.")
			continue
		}

		rec, err := m.players.Load(name)
		switch {
		case err == nil:
			rec, err = m.checkPassword(conn, rec)
			if err != nil || rec == nil {
				return nil, err
			}
		case errors.Is(err, persist.ErrPlayerNotFound):
			if !m.cfg.AllowNewCharacters {
				_ = conn.WriteLine("There is no character by that name, and the gates are closed to newcomers.")
				continue
			}
			rec, err = m.createCharacter(conn, name)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				continue
			}
		default:
			return nil, fmt.Errorf("loading player %q: %w", name, err)
		}

		if charged, forfeited := persist.SettleRent(rec, time.Now(), m.cfg.RentPerDay); forfeited {
			_ = conn.WriteLine("You could not pay your rent! Your belongings have been sold to cover the bill.")
		} else if charged > 0 {
			_ = conn.WriteLine(fmt.Sprintf("The receptionist collects %d coins of rent.", charged))
		}

		s.mu.Lock()
		s.passwordHash = rec.PasswordHash
		s.createdAt = rec.CreatedAt
		s.rentSettledAt = rec.RentSettledAt
		s.mu.Unlock()
		return rec, nil
	}

	_ = conn.WriteLine("Come back when you have settled on a name.")
	return nil, nil
}

// checkPassword gives an existing character maxPasswordAttempts tries.
//
// Postcondition: Returns the record on success, (nil, nil) after the
// last failed attempt.
func (m *Manager) checkPassword(conn *telnet.Conn, rec *persist.PlayerRecord) (*persist.PlayerRecord, error) {
	for attempt := 1; attempt <= maxPasswordAttempts; attempt++ {
		if err := conn.WritePrompt("Password: "); err != nil {
			return nil, err
		}
		password, err := conn.ReadPassword()
		if errors.Is(err, telnet.ErrLineTooLong) {
			_ = conn.WriteLine("That cannot be your password.")
			continue
		}
		if err != nil {
			return nil, loginReadErr(conn, err)
		}
		if persist.CheckPassword(rec.PasswordHash, password) {
			return rec, nil
		}
		_ = conn.WriteLine("Wrong password.")
		m.logger.Warn("failed password attempt",
			zap.String("player", rec.Name),
			zap.String("remote_addr", conn.RemoteAddr().String()),
			zap.Int("attempt", attempt))
	}
	_ = conn.WriteLine("Too many wrong passwords. Goodbye.")
	return nil, nil
}

// createCharacter runs the new-character dialogue and reserves the name
// by writing the initial record.
//
// Postcondition: Returns the new record, or (nil, nil) when the client
// backed out of the name.
func (m *Manager) createCharacter(conn *telnet.Conn, name string) (*persist.PlayerRecord, error) {
	if err := conn.WritePrompt(fmt.Sprintf("Did I get that right, %s (Y/N)? ", name)); err != nil {
		return nil, err
	}
	answer, err := conn.ReadLine()
	if errors.Is(err, telnet.ErrLineTooLong) {
		return nil, nil // back to the name prompt
	}
	if err != nil {
		return nil, loginReadErr(conn, err)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
		return nil, nil
	}

	var hash string
	for attempt := 1; ; attempt++ {
		if err := conn.WritePrompt(fmt.Sprintf("Give me a password for %s: ", name)); err != nil {
			return nil, err
		}
		password, err := conn.ReadPassword()
		if errors.Is(err, telnet.ErrLineTooLong) {
			_ = conn.WriteLine("That password is far too long.")
			if attempt >= maxPasswordAttempts {
				return nil, nil
			}
			continue
		}
		if err != nil {
			return nil, loginReadErr(conn, err)
		}
		if len(password) < 3 {
			_ = conn.WriteLine("Too short. Three characters at minimum.")
			if attempt >= maxPasswordAttempts {
				return nil, nil
			}
			continue
		}

		if err := conn.WritePrompt("Please retype the password: "); err != nil {
			return nil, err
		}
		again, err := conn.ReadPassword()
		if errors.Is(err, telnet.ErrLineTooLong) {
			_ = conn.WriteLine("Passwords don't match. Start over.")
			if attempt >= maxPasswordAttempts {
				return nil, nil
			}
			continue
		}
		if err != nil {
			return nil, loginReadErr(conn, err)
		}
		if password != again {
			_ = conn.WriteLine("Passwords don't match. Start over.")
			if attempt >= maxPasswordAttempts {
				return nil, nil
			}
			continue
		}

		hash, err = persist.HashPassword(password)
		if err != nil {
			return nil, err
		}
		break
	}

	now := time.Now()
	rec := &persist.PlayerRecord{
		Name:         name,
		PasswordHash: hash,
		RoomID:       m.engine.World().StartRoom(),
		Stats: map[string]int{
			world.StatHP:    20,
			world.StatMaxHP: 20,
			world.StatGold:  100,
			world.StatLevel: 1,
		},
		CreatedAt:     now,
		RentSettledAt: now,
	}
	if err := m.players.Save(rec); err != nil {
		return nil, fmt.Errorf("saving new character %q: %w", name, err)
	}

	m.logger.Info("new character created",
		zap.String("player", name),
		zap.String("remote_addr", conn.RemoteAddr().String()))
	_ = conn.WriteLine(fmt.Sprintf("Welcome to the world, %s!", name))
	return rec, nil
}

// enterWorld claims the player slot, spawns the entity on the mutation
// path, and shows the opening room.
func (m *Manager) enterWorld(s *Session, rec *persist.PlayerRecord) error {
	playerID := strings.ToLower(rec.Name)

	if err := m.claim(playerID, s); err != nil {
		return err
	}

	err := m.engine.Do("enter world", func() error {
		if _, err := rec.Spawn(m.engine.World(), playerID); err != nil {
			return err
		}
		m.announce(playerID, fmt.Sprintf("%s has entered the game.", rec.Name))
		return nil
	})
	if err != nil {
		m.release(playerID, s)
		return err
	}

	s.mu.Lock()
	s.playerID = playerID
	s.state = StatePlaying
	s.mu.Unlock()

	m.logger.Info("player entered world",
		zap.String("player", playerID),
		zap.String("session", s.ID))

	s.Send(telnet.Colorize(telnet.BrightGreen, fmt.Sprintf("Welcome back, %s!", rec.Name)))
	_, _ = m.engine.ExecuteCommand(m.cmdCtx, playerID, "look")
	return nil
}

func (m *Manager) commandLoop(s *Session, conn *telnet.Conn) error {
	violations := 0
	for {
		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "> ")); err != nil {
			return nil
		}

		line, err := conn.ReadLine()
		if errors.Is(err, telnet.ErrLineTooLong) {
			violations++
			if violations >= maxProtocolViolations {
				m.logger.Warn("dropping session after repeated oversized lines",
					zap.String("player", s.PlayerID()),
					zap.Int("violations", violations))
				_ = conn.WriteLine("Too many oversized lines. Goodbye.")
				return nil
			}
			s.Send("Line too long. Input ignored.")
			continue
		}
		if telnet.IsTimeout(err) {
			_ = conn.WriteLine("Idle too long. The world moves on without you.")
			return nil
		}
		if err != nil {
			return nil // link dead
		}
		violations = 0

		quit, err := m.engine.ExecuteCommand(m.cmdCtx, s.PlayerID(), line)
		if err != nil {
			m.logger.Error("command execution failed",
				zap.String("player", s.PlayerID()),
				zap.Error(err))
			continue
		}
		if quit {
			return nil
		}
	}
}

// teardown removes the player from the world, queues the final save, and
// shuts the output pump down. Safe to call from any path, any number of
// times; only the first call does work.
func (m *Manager) teardown(s *Session) {
	if !s.setState(StateClosing) {
		return
	}

	playerID := s.PlayerID()
	if playerID != "" {
		s.mu.Lock()
		hash, createdAt, settledAt := s.passwordHash, s.createdAt, s.rentSettledAt
		s.mu.Unlock()

		var rec *persist.PlayerRecord
		err := m.engine.Do("leave world", func() error {
			snap, err := persist.Snapshot(m.engine.World(), playerID, hash, createdAt, settledAt)
			if err != nil {
				return err
			}
			rec = snap

			removed := m.engine.Events().CancelTarget(playerID)
			if removed > 0 {
				m.logger.Debug("cancelled pending events",
					zap.String("player", playerID),
					zap.Int("events", removed))
			}

			m.announce(playerID, fmt.Sprintf("%s has left the game.", rec.Name))
			if _, err := m.engine.World().RemoveEntityTree(playerID); err != nil {
				return err
			}
			return nil
		})
		if err != nil {
			m.logger.Error("player teardown failed",
				zap.String("player", playerID),
				zap.Error(err))
		}
		if rec != nil {
			m.saves.Enqueue(rec)
		}
		m.release(playerID, s)
	}

	s.closeOutbox()
	s.setState(StateClosed)
	m.logger.Info("session closed", zap.String("session", s.ID))
}

// requestSave snapshots a live player and queues the write. Runs on the
// mutation path via the save command.
func (m *Manager) requestSave(entityID string) {
	s := m.sessionFor(entityID)
	if s == nil {
		return
	}
	s.mu.Lock()
	hash, createdAt, settledAt := s.passwordHash, s.createdAt, s.rentSettledAt
	s.mu.Unlock()

	rec, err := persist.Snapshot(m.engine.World(), entityID, hash, createdAt, settledAt)
	if err != nil {
		m.logger.Error("snapshot for save failed",
			zap.String("player", entityID),
			zap.Error(err))
		return
	}
	m.saves.Enqueue(rec)
}

// CollectSnapshots builds detached records for every online player, on
// the mutation path. The autosaver calls this on its sweep.
func (m *Manager) CollectSnapshots() []*persist.PlayerRecord {
	var recs []*persist.PlayerRecord
	err := m.engine.Do("autosave snapshot", func() error {
		for _, playerID := range m.engine.World().OnlinePlayers() {
			s := m.sessionFor(playerID)
			if s == nil {
				continue
			}
			s.mu.Lock()
			hash, createdAt, settledAt := s.passwordHash, s.createdAt, s.rentSettledAt
			s.mu.Unlock()

			rec, err := persist.Snapshot(m.engine.World(), playerID, hash, createdAt, settledAt)
			if err != nil {
				m.logger.Error("autosave snapshot failed",
					zap.String("player", playerID),
					zap.Error(err))
				continue
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("autosave sweep skipped", zap.Error(err))
	}
	return recs
}

// announce delivers text to everyone sharing a room with the player,
// the player excluded. Must run on the mutation path.
func (m *Manager) announce(playerID, text string) {
	e, ok := m.engine.World().Entity(playerID)
	if !ok || e.RoomID == "" {
		return
	}
	for _, id := range m.engine.World().EntitiesInRoom(e.RoomID) {
		if id == playerID {
			continue
		}
		m.Send(id, text)
	}
}

func (m *Manager) sessionFor(playerID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byPlayer[playerID]
}

// claim reserves the player slot for a session.
func (m *Manager) claim(playerID string, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byPlayer[playerID]; taken {
		return fmt.Errorf("player %q already has a session", playerID)
	}
	m.byPlayer[playerID] = s
	return nil
}

// release frees the player slot if this session still owns it.
func (m *Manager) release(playerID string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byPlayer[playerID] == s {
		delete(m.byPlayer, playerID)
	}
}

// loginReadErr normalizes read failures during the login dialogue: an
// idle timeout gets a farewell, everything else is a dead link.
func loginReadErr(conn *telnet.Conn, err error) error {
	if telnet.IsTimeout(err) {
		_ = conn.WriteLine("Too slow. Come back when you are ready.")
		return nil
	}
	return nil
}

// capitalizeName normalizes a character name: first letter upper, rest
// lower.
func capitalizeName(name string) string {
	lower := strings.ToLower(name)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
