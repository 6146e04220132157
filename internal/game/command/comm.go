package command

import "fmt"

// Say speaks to everyone in the current room. The spoken text keeps its
// original spacing and casing.
func Say(ctx *Context, actorID string, in ParseResult) error {
	e, room, err := actor(ctx, actorID)
	if err != nil {
		return err
	}
	if in.RawArgs == "" {
		return Errorf("Say what?")
	}

	ctx.Out.Send(actorID, fmt.Sprintf("You say, '%s'", in.RawArgs))
	sendToRoom(ctx, room.ID, actorID, fmt.Sprintf("%s says, '%s'", e.Name, in.RawArgs))
	return nil
}

// Emote shows a freeform action to everyone in the room, the actor
// included.
func Emote(ctx *Context, actorID string, in ParseResult) error {
	e, room, err := actor(ctx, actorID)
	if err != nil {
		return err
	}
	if in.RawArgs == "" {
		return Errorf("Emote what?")
	}

	text := fmt.Sprintf("%s %s", e.Name, in.RawArgs)
	ctx.Out.Send(actorID, text)
	sendToRoom(ctx, room.ID, actorID, text)
	return nil
}
