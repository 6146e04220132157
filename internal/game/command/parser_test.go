package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParse_EmptyLine(t *testing.T) {
	assert.Equal(t, ParseResult{}, Parse(""))
	assert.Equal(t, ParseResult{}, Parse("   "))
}

func TestParse_CommandOnly(t *testing.T) {
	in := Parse("LOOK")
	assert.Equal(t, "look", in.Command)
	assert.Empty(t, in.Args)
	assert.Empty(t, in.RawArgs)
}

func TestParse_CommandWithArgs(t *testing.T) {
	in := Parse("get sword bag")
	assert.Equal(t, "get", in.Command)
	assert.Equal(t, []string{"sword", "bag"}, in.Args)
	assert.Equal(t, "sword bag", in.RawArgs)
}

func TestParse_RawArgsPreservesSpacing(t *testing.T) {
	in := Parse("say Hello,  World!")
	assert.Equal(t, "say", in.Command)
	assert.Equal(t, "Hello,  World!", in.RawArgs)
}

func TestParse_LowercasesVerbOnly(t *testing.T) {
	in := Parse("Say HELLO")
	assert.Equal(t, "say", in.Command)
	assert.Equal(t, "HELLO", in.RawArgs)
}

func TestParse_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		line := rapid.StringMatching(`[a-zA-Z' ]{0,40}`).Draw(t, "line")
		in := Parse(line)
		if in.Command == "" {
			assert.Empty(t, in.Args)
			assert.Empty(t, in.RawArgs)
			return
		}
		assert.Equal(t, strings.ToLower(in.Command), in.Command)
		assert.NotContains(t, in.Command, " ")
		assert.Len(t, in.Args, len(strings.Fields(in.RawArgs)))
	})
}
