// Package command provides the command interpreter: parsing a line of
// player input into a verb plus arguments, resolving the verb against a
// flat registry, and executing the handler against the world store.
// Handlers always run on the engine's mutation path.
package command

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/circle/internal/game/event"
	"github.com/cory-johannsen/circle/internal/game/world"
)

// Categories for organizing commands.
const (
	CategoryMovement      = "movement"
	CategoryWorld         = "world"
	CategoryItems         = "items"
	CategoryCommunication = "communication"
	CategorySystem        = "system"
)

// ErrQuit is returned by the quit handler. The session loop treats it as
// a request to begin teardown; it is never shown to other sessions.
var ErrQuit = errors.New("quit requested")

// Error is a command precondition failure: invalid target, missing exit,
// insufficient capability. It carries user-visible text for the acting
// session only and never reaches other sessions or the log.
type Error struct {
	msg string
}

// Errorf builds a command Error with formatted user-visible text.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string { return e.msg }

// Notifier delivers output text to the session controlling an entity.
// Sends to entities without a session (mobs, items) are silently dropped.
type Notifier interface {
	Send(entityID, text string)
}

// Hooks is the scripting surface commands invoke on world transitions.
// A nil Hooks disables scripted reactions.
type Hooks interface {
	// OnEnter fires after an entity finishes entering a room.
	OnEnter(roomID, entityID string)
}

// Context carries everything a command handler may touch. One Context is
// built at wiring time and shared; all its uses are serialized by the
// mutation path.
type Context struct {
	World    *world.Store
	Events   *event.Queue
	Registry *Registry
	Out      Notifier
	Hooks    Hooks
	// RequestSave enqueues a durable snapshot of a player entity.
	// May be nil in tests.
	RequestSave func(entityID string)
	Logger      *zap.Logger
}

// HandlerFunc executes a command for the acting entity.
type HandlerFunc func(ctx *Context, actorID string, in ParseResult) error

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command. Aliases resolve
	// exactly, never by prefix.
	Aliases []string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command for the help listing.
	Category string
	// Handler executes the command.
	Handler HandlerFunc
}

// BuiltinCommands returns all built-in commands for the engine.
func BuiltinCommands() []Command {
	return []Command{
		// Movement commands
		{Name: "north", Aliases: []string{"n"}, Help: "Move north", Category: CategoryMovement, Handler: Move},
		{Name: "south", Aliases: []string{"s"}, Help: "Move south", Category: CategoryMovement, Handler: Move},
		{Name: "east", Aliases: []string{"e"}, Help: "Move east", Category: CategoryMovement, Handler: Move},
		{Name: "west", Aliases: []string{"w"}, Help: "Move west", Category: CategoryMovement, Handler: Move},
		{Name: "up", Aliases: []string{"u"}, Help: "Move up", Category: CategoryMovement, Handler: Move},
		{Name: "down", Aliases: []string{"d"}, Help: "Move down", Category: CategoryMovement, Handler: Move},

		// World commands
		{Name: "look", Aliases: []string{"l"}, Help: "Look around the current room", Category: CategoryWorld, Handler: Look},
		{Name: "exits", Aliases: nil, Help: "List available exits", Category: CategoryWorld, Handler: Exits},
		{Name: "examine", Aliases: []string{"ex"}, Help: "Examine something here or in your inventory", Category: CategoryWorld, Handler: Examine},

		// Item commands
		{Name: "get", Aliases: []string{"take"}, Help: "Pick up an item (get <item> [container])", Category: CategoryItems, Handler: Get},
		{Name: "drop", Aliases: nil, Help: "Drop an item you are carrying", Category: CategoryItems, Handler: Drop},
		{Name: "put", Aliases: nil, Help: "Put an item into a container (put <item> <container>)", Category: CategoryItems, Handler: Put},
		{Name: "inventory", Aliases: []string{"inv", "i"}, Help: "List what you are carrying", Category: CategoryItems, Handler: Inventory},

		// Communication commands
		{Name: "say", Aliases: []string{"'"}, Help: "Say something to the room", Category: CategoryCommunication, Handler: Say},
		{Name: "emote", Aliases: []string{"em"}, Help: "Perform an emote action", Category: CategoryCommunication, Handler: Emote},

		// System commands
		{Name: "who", Aliases: nil, Help: "List connected players", Category: CategorySystem, Handler: Who},
		{Name: "score", Aliases: []string{"sc"}, Help: "Show your vital statistics", Category: CategorySystem, Handler: Score},
		{Name: "save", Aliases: nil, Help: "Save your character now", Category: CategorySystem, Handler: Save},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: Help},
		{Name: "quit", Aliases: nil, Help: "Leave the game", Category: CategorySystem, Handler: Quit},
	}
}

// Execute parses and runs one line of input for the acting entity.
// Precondition failures are delivered to the actor only; unexpected
// handler errors are logged and the actor sees a generic message. The
// world is never left partially mutated by a failed precondition.
//
// Postcondition: Returns ErrQuit when the actor asked to leave, nil
// otherwise.
func Execute(ctx *Context, actorID, line string) error {
	in := Parse(line)
	if in.Command == "" {
		return nil
	}

	cmd, ambiguous, ok := ctx.Registry.Resolve(in.Command)
	if !ok {
		if len(ambiguous) > 0 {
			ctx.Out.Send(actorID, fmt.Sprintf("Which did you mean: %s?", joinWords(ambiguous)))
		} else {
			ctx.Out.Send(actorID, "Huh?!")
		}
		return nil
	}

	// Handlers see the canonical verb, not the typed abbreviation.
	in.Command = cmd.Name
	err := cmd.Handler(ctx, actorID, in)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuit) {
		return ErrQuit
	}
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		ctx.Out.Send(actorID, cmdErr.Error())
		return nil
	}

	ctx.Logger.Error("command handler failed",
		zap.String("command", cmd.Name),
		zap.String("actor", actorID),
		zap.Error(err),
	)
	ctx.Out.Send(actorID, "Something went wrong. It has been logged.")
	return nil
}

func joinWords(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += ", "
		}
		out += w
	}
	return out
}

// actor resolves the acting entity, which must be present in a room.
func actor(ctx *Context, actorID string) (*world.Entity, *world.Room, error) {
	e, ok := ctx.World.Entity(actorID)
	if !ok {
		return nil, nil, fmt.Errorf("acting entity %q not found", actorID)
	}
	room, ok := ctx.World.Room(e.RoomID)
	if !ok {
		return nil, nil, fmt.Errorf("actor %q is not in any room", actorID)
	}
	return e, room, nil
}

// sendToRoom delivers text to every entity in the room except excludeID.
// Delivery order follows the room's presence order.
func sendToRoom(ctx *Context, roomID, excludeID, text string) {
	for _, id := range ctx.World.EntitiesInRoom(roomID) {
		if id == excludeID {
			continue
		}
		ctx.Out.Send(id, text)
	}
}
