package command

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/circle/internal/game/world"
)

// Get picks up an item from the room, or out of a container when a
// second word names one. Containers are searched in the actor's
// inventory first, then in the room.
//
// Precondition: The item must resolve and must not be an actor.
// Postcondition: On success the item is in the actor's inventory and the
// room has been notified.
func Get(ctx *Context, actorID string, in ParseResult) error {
	e, room, err := actor(ctx, actorID)
	if err != nil {
		return err
	}
	if len(in.Args) == 0 {
		return Errorf("Get what?")
	}
	word := in.Args[0]

	if len(in.Args) >= 2 {
		return getFromContainer(ctx, e, room, word, in.Args[1])
	}

	item, ok := ctx.World.FindInRoom(room.ID, word, actorID)
	if !ok {
		return Errorf("You do not see %q here.", word)
	}
	if item.IsActor() {
		return Errorf("%s would object to that.", item.Name)
	}
	if err := ctx.World.GiveEntity(item.ID, actorID); err != nil {
		return err
	}

	ctx.Out.Send(actorID, fmt.Sprintf("You get %s.", item.Name))
	sendToRoom(ctx, room.ID, actorID, fmt.Sprintf("%s gets %s.", e.Name, item.Name))
	return nil
}

func getFromContainer(ctx *Context, e *world.Entity, room *world.Room, itemWord, containerWord string) error {
	container, ok := ctx.World.FindHeld(e.ID, containerWord)
	if !ok {
		container, ok = ctx.World.FindInRoom(room.ID, containerWord, e.ID)
	}
	if !ok {
		return Errorf("You do not see %q here.", containerWord)
	}
	if !container.CanHold() || container.IsActor() {
		return Errorf("%s is not a container.", container.Name)
	}

	item, ok := ctx.World.FindHeld(container.ID, itemWord)
	if !ok {
		return Errorf("There is no %q in %s.", itemWord, container.Name)
	}
	if err := ctx.World.GiveEntity(item.ID, e.ID); err != nil {
		return err
	}

	ctx.Out.Send(e.ID, fmt.Sprintf("You get %s from %s.", item.Name, container.Name))
	sendToRoom(ctx, room.ID, e.ID, fmt.Sprintf("%s gets %s from %s.", e.Name, item.Name, container.Name))
	return nil
}

// Drop puts a carried item down in the current room.
func Drop(ctx *Context, actorID string, in ParseResult) error {
	e, room, err := actor(ctx, actorID)
	if err != nil {
		return err
	}
	if len(in.Args) == 0 {
		return Errorf("Drop what?")
	}

	item, ok := ctx.World.FindHeld(actorID, in.Args[0])
	if !ok {
		return Errorf("You are not carrying %q.", in.Args[0])
	}
	if err := ctx.World.MoveEntity(item.ID, room.ID); err != nil {
		return err
	}

	ctx.Out.Send(actorID, fmt.Sprintf("You drop %s.", item.Name))
	sendToRoom(ctx, room.ID, actorID, fmt.Sprintf("%s drops %s.", e.Name, item.Name))
	return nil
}

// Put moves a carried item into a container held by the actor or present
// in the room.
//
// Precondition: Both words must resolve; the container must be able to
// hold things and must not be the item itself.
func Put(ctx *Context, actorID string, in ParseResult) error {
	e, room, err := actor(ctx, actorID)
	if err != nil {
		return err
	}
	if len(in.Args) < 2 {
		return Errorf("Put what where? (put <item> <container>)")
	}

	item, ok := ctx.World.FindHeld(actorID, in.Args[0])
	if !ok {
		return Errorf("You are not carrying %q.", in.Args[0])
	}

	container, ok := ctx.World.FindHeld(actorID, in.Args[1])
	if !ok {
		container, ok = ctx.World.FindInRoom(room.ID, in.Args[1], actorID)
	}
	if !ok {
		return Errorf("You do not see %q here.", in.Args[1])
	}
	if container.ID == item.ID {
		return Errorf("You can't put something inside itself.")
	}
	if !container.CanHold() || container.IsActor() {
		return Errorf("%s is not a container.", container.Name)
	}
	if err := ctx.World.GiveEntity(item.ID, container.ID); err != nil {
		return err
	}

	ctx.Out.Send(actorID, fmt.Sprintf("You put %s in %s.", item.Name, container.Name))
	sendToRoom(ctx, room.ID, actorID, fmt.Sprintf("%s puts %s in %s.", e.Name, item.Name, container.Name))
	return nil
}

// Inventory lists everything the actor carries, in pickup order.
func Inventory(ctx *Context, actorID string, in ParseResult) error {
	e, _, err := actor(ctx, actorID)
	if err != nil {
		return err
	}

	if len(e.Contents) == 0 {
		ctx.Out.Send(actorID, "You are not carrying anything.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("You are carrying:")
	for _, id := range e.Contents {
		if item, ok := ctx.World.Entity(id); ok {
			sb.WriteString(fmt.Sprintf("\r\n  %s", item.Name))
		}
	}
	ctx.Out.Send(actorID, sb.String())
	return nil
}
