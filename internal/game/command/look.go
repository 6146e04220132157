package command

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/circle/internal/game/world"
)

// Look shows the current room, or examines a target when one is named.
func Look(ctx *Context, actorID string, in ParseResult) error {
	_, room, err := actor(ctx, actorID)
	if err != nil {
		return err
	}
	if len(in.Args) > 0 {
		return Examine(ctx, actorID, in)
	}
	sendRoomView(ctx, actorID, room)
	return nil
}

// Exits lists the visible exits of the current room with their
// destination titles.
func Exits(ctx *Context, actorID string, in ParseResult) error {
	_, room, err := actor(ctx, actorID)
	if err != nil {
		return err
	}

	visible := room.VisibleExits()
	if len(visible) == 0 {
		ctx.Out.Send(actorID, "There are no obvious exits.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Obvious exits:")
	for _, exit := range visible {
		title := "somewhere"
		if target, ok := ctx.World.Room(exit.TargetRoom); ok {
			title = target.Title
		}
		sb.WriteString(fmt.Sprintf("\r\n  %-5s - %s", capitalize(string(exit.Direction)), title))
	}
	ctx.Out.Send(actorID, sb.String())
	return nil
}

// Examine inspects something in the room or in the actor's inventory.
//
// Precondition: A target word must be given and must resolve here or in
// the actor's inventory.
func Examine(ctx *Context, actorID string, in ParseResult) error {
	_, room, err := actor(ctx, actorID)
	if err != nil {
		return err
	}
	if len(in.Args) == 0 {
		return Errorf("Examine what?")
	}

	word := in.Args[0]
	target, ok := ctx.World.FindInRoom(room.ID, word, actorID)
	if !ok {
		target, ok = ctx.World.FindHeld(actorID, word)
	}
	if !ok {
		return Errorf("You do not see %q here.", word)
	}

	var sb strings.Builder
	sb.WriteString(describeEntity(target))
	if target.CanHold() {
		sb.WriteString("\r\n")
		sb.WriteString(describeContents(ctx, target))
	}
	ctx.Out.Send(actorID, sb.String())
	return nil
}

// sendRoomView delivers the full room rendering to the viewer: title,
// description, exits line, and everything present besides the viewer.
func sendRoomView(ctx *Context, viewerID string, room *world.Room) {
	var sb strings.Builder
	sb.WriteString(room.Title)
	sb.WriteString("\r\n")
	sb.WriteString(room.Description)
	sb.WriteString("\r\n")
	sb.WriteString(exitLine(room))

	for _, id := range ctx.World.EntitiesInRoom(room.ID) {
		if id == viewerID {
			continue
		}
		e, ok := ctx.World.Entity(id)
		if !ok {
			continue
		}
		sb.WriteString("\r\n")
		if e.IsActor() {
			sb.WriteString(fmt.Sprintf("%s is here.", e.Name))
		} else {
			sb.WriteString(fmt.Sprintf("%s lies here.", e.Name))
		}
	}
	ctx.Out.Send(viewerID, sb.String())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func exitLine(room *world.Room) string {
	visible := room.VisibleExits()
	if len(visible) == 0 {
		return "[ Exits: none ]"
	}
	words := make([]string, len(visible))
	for i, exit := range visible {
		words[i] = string(exit.Direction)
	}
	return fmt.Sprintf("[ Exits: %s ]", strings.Join(words, " "))
}

func describeEntity(e *world.Entity) string {
	switch e.Kind {
	case world.KindPlayer:
		return fmt.Sprintf("%s, an adventurer like yourself.", e.Name)
	case world.KindMob:
		return fmt.Sprintf("You look %s over carefully.", e.Name)
	case world.KindContainer:
		return fmt.Sprintf("%s, sturdy enough to hold things.", e.Name)
	default:
		return fmt.Sprintf("%s, nothing special about it.", e.Name)
	}
}

func describeContents(ctx *Context, holder *world.Entity) string {
	if len(holder.Contents) == 0 {
		return "It is empty."
	}
	var sb strings.Builder
	sb.WriteString("It contains:")
	for _, id := range holder.Contents {
		if item, ok := ctx.World.Entity(id); ok {
			sb.WriteString(fmt.Sprintf("\r\n  %s", item.Name))
		}
	}
	return sb.String()
}
