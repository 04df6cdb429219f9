/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package earley

import (
	"strconv"

	"github.com/pterm/pterm"

	"github.com/latticeforge/cdc/grammar"
)

// Dump renders the current Earley chart — one level per completed
// terminal, each listing the items still live in that set — as a pretty
// tree (mirrors gorgo's CFSMState.Dump(), repointed from an LR automaton's
// states at an Earley parse's sets). Intended for interactive debugging,
// never for a hot-path call.
func (ps *ParserState) Dump() (string, error) {
	var ll pterm.LeveledList
	for i, s := range ps.states {
		ll = append(ll, pterm.LeveledListItem{Level: 0, Text: stateLabel(i)})
		for _, v := range s.Values() {
			ll = append(ll, pterm.LeveledListItem{Level: 1, Text: v.(grammar.Item).String()})
		}
	}
	root := pterm.NewTreeFromLeveledList(ll)
	return pterm.DefaultTree.WithRoot(root).Srender()
}

func stateLabel(i int) string {
	return "S" + strconv.Itoa(i)
}
