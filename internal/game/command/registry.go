package command

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps command names and aliases to Command definitions.
// Lookup falls back to longest-unambiguous-prefix matching on canonical
// names, so "inv" finds "inventory" as long as no other command shares
// the prefix.
type Registry struct {
	commands map[string]*Command // canonical name → command
	aliases  map[string]string   // alias → canonical name
	names    []string            // sorted canonical names, for prefix scans
}

// NewRegistry creates a Registry populated with the given commands.
//
// Precondition: No two commands may share a canonical name or alias.
// Postcondition: Returns a Registry or an error on name/alias collisions.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{
		commands: make(map[string]*Command, len(cmds)),
		aliases:  make(map[string]string),
	}

	for i := range cmds {
		cmd := &cmds[i]
		if _, exists := r.commands[cmd.Name]; exists {
			return nil, fmt.Errorf("duplicate command name: %q", cmd.Name)
		}
		if _, exists := r.aliases[cmd.Name]; exists {
			return nil, fmt.Errorf("command name %q conflicts with an existing alias", cmd.Name)
		}
		r.commands[cmd.Name] = cmd
		r.names = append(r.names, cmd.Name)

		for _, alias := range cmd.Aliases {
			if _, exists := r.commands[alias]; exists {
				return nil, fmt.Errorf("alias %q conflicts with command name %q", alias, alias)
			}
			if existing, exists := r.aliases[alias]; exists {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, existing, cmd.Name)
			}
			r.aliases[alias] = cmd.Name
		}
	}

	sort.Strings(r.names)
	return r, nil
}

// DefaultRegistry creates a Registry with all built-in commands.
//
// Postcondition: Returns a Registry with all built-in commands registered.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by exact name, exact alias, or unique
// canonical-name prefix, in that order.
//
// Postcondition: Returns (command, nil, true) on a match;
// (nil, candidates, false) when the prefix is ambiguous;
// (nil, nil, false) when nothing matches.
func (r *Registry) Resolve(input string) (*Command, []string, bool) {
	if cmd, ok := r.commands[input]; ok {
		return cmd, nil, true
	}
	if canonical, ok := r.aliases[input]; ok {
		return r.commands[canonical], nil, true
	}

	var matches []string
	for _, name := range r.names {
		if strings.HasPrefix(name, input) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return r.commands[matches[0]], nil, true
	case 0:
		return nil, nil, false
	default:
		return nil, matches, false
	}
}

// Commands returns all registered commands in canonical-name order.
func (r *Registry) Commands() []*Command {
	result := make([]*Command, 0, len(r.names))
	for _, name := range r.names {
		result = append(result, r.commands[name])
	}
	return result
}

// CommandsByCategory returns commands grouped by category.
func (r *Registry) CommandsByCategory() map[string][]*Command {
	categories := make(map[string][]*Command)
	for _, cmd := range r.Commands() {
		categories[cmd.Category] = append(categories[cmd.Category], cmd)
	}
	return categories
}
