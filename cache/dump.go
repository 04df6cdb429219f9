package cache

import (
	"strconv"

	"github.com/pterm/pterm"
)

// Dump renders the compiled-grammar cache's current occupancy — every
// resident key, oldest-to-newest — as a pretty tree (gorgo's
// CFSMState.Dump() pattern, repointed at cache occupancy instead of an
// automaton state). Debugging-only; never on the hot compile path.
func (c *CompiledGrammarCache) Dump() (string, error) {
	ll := pterm.LeveledList{
		{Level: 0, Text: "compiled-grammar cache (" + strconv.Itoa(c.lru.Len()) + " resident)"},
	}
	for _, key := range c.lru.Keys() {
		ll = append(ll, pterm.LeveledListItem{Level: 1, Text: key})
	}
	root := pterm.NewTreeFromLeveledList(ll)
	return pterm.DefaultTree.WithRoot(root).Srender()
}

// Dump renders every mask-cache shard's occupancy as a pretty tree.
func (m *MaskCache) Dump() (string, error) {
	ll := pterm.LeveledList{
		{Level: 0, Text: "mask cache (" + strconv.Itoa(len(m.shards)) + " shards)"},
	}
	for i, shard := range m.shards {
		ll = append(ll, pterm.LeveledListItem{Level: 1, Text: "shard " + strconv.Itoa(i) + " (" + strconv.Itoa(shard.Len()) + " resident)"})
		for _, key := range shard.Keys() {
			ll = append(ll, pterm.LeveledListItem{Level: 2, Text: key})
		}
	}
	root := pterm.NewTreeFromLeveledList(ll)
	return pterm.DefaultTree.WithRoot(root).Srender()
}
