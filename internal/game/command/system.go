package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/circle/internal/game/world"
)

// Who lists every player currently in the world.
func Who(ctx *Context, actorID string, in ParseResult) error {
	ids := ctx.World.OnlinePlayers()

	var sb strings.Builder
	sb.WriteString("Players online:")
	count := 0
	for _, id := range ids {
		p, ok := ctx.World.Entity(id)
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("\r\n  [%2d] %s", p.Stat(world.StatLevel), p.Name))
		count++
	}
	sb.WriteString(fmt.Sprintf("\r\n%d player(s) online.", count))
	ctx.Out.Send(actorID, sb.String())
	return nil
}

// Score shows the actor's vital statistics.
func Score(ctx *Context, actorID string, in ParseResult) error {
	e, room, err := actor(ctx, actorID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are %s, level %d.", e.Name, e.Stat(world.StatLevel)))
	sb.WriteString(fmt.Sprintf("\r\nHit points: %d/%d", e.Stat(world.StatHP), e.Stat(world.StatMaxHP)))
	sb.WriteString(fmt.Sprintf("\r\nGold: %d coins", e.Stat(world.StatGold)))
	sb.WriteString(fmt.Sprintf("\r\nYou are standing in %s.", room.Title))
	ctx.Out.Send(actorID, sb.String())
	return nil
}

// Save requests an immediate durable snapshot of the actor.
func Save(ctx *Context, actorID string, in ParseResult) error {
	e, _, err := actor(ctx, actorID)
	if err != nil {
		return err
	}
	if ctx.RequestSave != nil {
		ctx.RequestSave(actorID)
	}
	ctx.Out.Send(actorID, fmt.Sprintf("Saving %s.", e.Name))
	return nil
}

// Help lists all commands grouped by category, or shows the help text of
// a single named command.
func Help(ctx *Context, actorID string, in ParseResult) error {
	if len(in.Args) > 0 {
		cmd, _, ok := ctx.Registry.Resolve(strings.ToLower(in.Args[0]))
		if !ok {
			return Errorf("No help available for %q.", in.Args[0])
		}
		text := fmt.Sprintf("%s - %s", cmd.Name, cmd.Help)
		if len(cmd.Aliases) > 0 {
			text += fmt.Sprintf("\r\nAliases: %s", strings.Join(cmd.Aliases, ", "))
		}
		ctx.Out.Send(actorID, text)
		return nil
	}

	byCategory := ctx.Registry.CommandsByCategory()
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var sb strings.Builder
	sb.WriteString("Available commands:")
	for _, cat := range categories {
		sb.WriteString(fmt.Sprintf("\r\n%s:", capitalize(cat)))
		for _, cmd := range byCategory[cat] {
			sb.WriteString(fmt.Sprintf("\r\n  %-10s %s", cmd.Name, cmd.Help))
		}
	}
	ctx.Out.Send(actorID, sb.String())
	return nil
}

// Quit says goodbye and signals the session to begin teardown. The
// session layer saves the character and removes it from the world.
func Quit(ctx *Context, actorID string, in ParseResult) error {
	ctx.Out.Send(actorID, "Goodbye! Come back soon.")
	return ErrQuit
}
