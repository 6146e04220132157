package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(ctx *Context, actorID string, in ParseResult) error { return nil }

func TestNewRegistry_RejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry([]Command{
		{Name: "look", Handler: nopHandler},
		{Name: "look", Handler: nopHandler},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate command name")
}

func TestNewRegistry_RejectsDuplicateAliases(t *testing.T) {
	_, err := NewRegistry([]Command{
		{Name: "look", Aliases: []string{"l"}, Handler: nopHandler},
		{Name: "leave", Aliases: []string{"l"}, Handler: nopHandler},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate alias")
}

func TestResolve_ExactNameAndAlias(t *testing.T) {
	r := DefaultRegistry()

	cmd, _, ok := r.Resolve("look")
	require.True(t, ok)
	assert.Equal(t, "look", cmd.Name)

	cmd, _, ok = r.Resolve("l")
	require.True(t, ok)
	assert.Equal(t, "look", cmd.Name)

	cmd, _, ok = r.Resolve("'")
	require.True(t, ok)
	assert.Equal(t, "say", cmd.Name)
}

func TestResolve_UniquePrefix(t *testing.T) {
	r := DefaultRegistry()

	cmd, _, ok := r.Resolve("inv")
	require.True(t, ok)
	assert.Equal(t, "inventory", cmd.Name)

	cmd, _, ok = r.Resolve("sco")
	require.True(t, ok)
	assert.Equal(t, "score", cmd.Name)
}

func TestResolve_AmbiguousPrefixReportsCandidates(t *testing.T) {
	r := DefaultRegistry()

	// "sa" could be "save" or "say".
	cmd, candidates, ok := r.Resolve("sa")
	assert.False(t, ok)
	assert.Nil(t, cmd)
	assert.ElementsMatch(t, []string{"save", "say"}, candidates)
}

func TestResolve_ExactNameBeatsPrefix(t *testing.T) {
	r, err := NewRegistry([]Command{
		{Name: "ex", Handler: nopHandler},
		{Name: "exits", Handler: nopHandler},
		{Name: "examine", Handler: nopHandler},
	})
	require.NoError(t, err)

	cmd, _, ok := r.Resolve("ex")
	require.True(t, ok)
	assert.Equal(t, "ex", cmd.Name)
}

func TestResolve_UnknownWord(t *testing.T) {
	r := DefaultRegistry()
	cmd, candidates, ok := r.Resolve("frobnicate")
	assert.False(t, ok)
	assert.Nil(t, cmd)
	assert.Nil(t, candidates)
}

func TestResolve_AliasesDoNotPrefixMatch(t *testing.T) {
	r, err := NewRegistry([]Command{
		{Name: "look", Aliases: []string{"peer"}, Handler: nopHandler},
	})
	require.NoError(t, err)

	// "pe" is a prefix of the alias only, not of any canonical name.
	_, _, ok := r.Resolve("pe")
	assert.False(t, ok)
}

func TestCommandsByCategory(t *testing.T) {
	r := DefaultRegistry()
	byCat := r.CommandsByCategory()
	assert.NotEmpty(t, byCat[CategoryMovement])
	assert.NotEmpty(t, byCat[CategorySystem])

	total := 0
	for _, cmds := range byCat {
		total += len(cmds)
	}
	assert.Len(t, r.Commands(), total)
}
