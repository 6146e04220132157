package command

import (
	"fmt"

	"github.com/cory-johannsen/circle/internal/game/world"
)

// Move walks the actor through the exit named by the command verb. The
// six movement commands all share this handler; the verb itself carries
// the direction.
//
// Precondition: The exit must exist, be unlocked, and the destination
// must admit the actor.
// Postcondition: On success the actor is in the destination room, both
// rooms have been notified, and the actor has seen the new room. On any
// precondition failure the actor has not moved.
func Move(ctx *Context, actorID string, in ParseResult) error {
	e, room, err := actor(ctx, actorID)
	if err != nil {
		return err
	}

	dir, ok := world.ParseDirection(in.Command)
	if !ok {
		return fmt.Errorf("movement handler bound to non-direction verb %q", in.Command)
	}

	exit, ok := room.ExitForDirection(dir)
	if !ok {
		return Errorf("Alas, you cannot go that way...")
	}
	if exit.Locked {
		return Errorf("The way %s seems to be locked.", dir)
	}

	target, err := ctx.World.Navigate(room.ID, dir)
	if err != nil {
		return err
	}

	if allowed, reason := ctx.World.CanEnter(actorID, target.ID); !allowed {
		return Errorf("%s", reason)
	}

	sendToRoom(ctx, room.ID, actorID, fmt.Sprintf("%s leaves %s.", e.Name, dir))

	if err := ctx.World.MoveEntity(actorID, target.ID); err != nil {
		return err
	}

	sendToRoom(ctx, target.ID, actorID, fmt.Sprintf("%s arrives %s.", e.Name, arrivalPhrase(dir)))
	sendRoomView(ctx, actorID, target)

	if ctx.Hooks != nil {
		ctx.Hooks.OnEnter(target.ID, actorID)
	}
	return nil
}

// arrivalPhrase describes where the mover came from, seen from the
// destination room.
func arrivalPhrase(dir world.Direction) string {
	switch dir.Opposite() {
	case world.Up:
		return "from above"
	case world.Down:
		return "from below"
	case "":
		return "from somewhere"
	default:
		return fmt.Sprintf("from the %s", dir.Opposite())
	}
}
