// Package scripting provides a sandboxed GopherLua environment for
// zone scripts. Zones react to the world through hook functions
// (on_enter, on_tick) and a small injected API; the package itself has
// no dependency on the game packages, all interactions go through
// Manager callback fields.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes a single
// hook invocation may execute when no zone override is configured.
const DefaultInstructionLimit = 100_000

// countingContext cancels itself after Done() has been called limit
// times. GopherLua's main loop calls Done() once per opcode, which makes
// this an exact, deterministic instruction budget.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

// newCountingContext returns a context that cancels after limit calls to
// Done().
//
// Precondition: limit > 0.
func newCountingContext(limit int) context.Context {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{
		Context:   base,
		cancel:    cancel,
		remaining: rem,
	}
}

// NewSandboxedState creates a GopherLua LState with only the safe parts
// of the stdlib loaded (base, table, string, math) and the escape
// hatches removed: no dofile, loadfile, load, collectgarbage, or
// require. The caller owns the LState and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}

// armBudget gives the LState a fresh instruction budget. Call before
// every scripted execution; a hook that blew its budget last time does
// not poison the next one.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
func armBudget(L *lua.LState, instLimit int) {
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	L.SetContext(newCountingContext(limit))
}
