package repair

import (
	"strconv"

	"github.com/pterm/pterm"
)

// Dump renders a Result's attempt-by-attempt trace — decode outcome,
// diagnostics, and the rung tried next — as a pretty tree (gorgo's
// CFSMState.Dump() pattern, repointed at a repair-ladder run instead of an
// LR automaton state). Debugging-only.
func (r Result) Dump() (string, error) {
	ll := pterm.LeveledList{
		{Level: 0, Text: "repair trace: phase=" + string(r.Phase)},
	}
	for _, a := range r.Attempts {
		label := "attempt " + strconv.Itoa(a.AttemptNumber) + ": " + string(a.Outcome.Status)
		ll = append(ll, pterm.LeveledListItem{Level: 1, Text: label})
		for _, d := range a.Diagnostics {
			ll = append(ll, pterm.LeveledListItem{Level: 2, Text: string(d.Kind) + ": " + d.Message})
		}
		if a.Rung != "" {
			ll = append(ll, pterm.LeveledListItem{Level: 2, Text: "next rung: " + a.Rung})
		}
	}
	root := pterm.NewTreeFromLeveledList(ll)
	return pterm.DefaultTree.WithRoot(root).Srender()
}
