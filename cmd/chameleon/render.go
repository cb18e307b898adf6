package main

import (
	"fmt"

	"github.com/nsg-ethz/chameleon/pkg/cli"
	"github.com/nsg-ethz/chameleon/pkg/command"
	"github.com/nsg-ethz/chameleon/pkg/decompose"
)

// renderDecomposition prints c's rounds as a single table, stage by stage:
// atomic-before (per prefix), main, atomic-after (per prefix).
func renderDecomposition(c *compiled) {
	t := cli.NewTable("STAGE", "ROUND", "PREFIX", "ROUTER", "PEER", "KIND", "VALUE")

	for _, p := range sortedPrefixes(c.decomp.AtomicBefore) {
		addRounds(t, "atomic-before", fmt.Sprint(p), c.decomp.AtomicBefore[p])
	}
	addRounds(t, "main", "-", c.decomp.MainCommands)
	for _, p := range sortedPrefixes(c.decomp.AtomicAfter) {
		addRounds(t, "atomic-after", fmt.Sprint(p), c.decomp.AtomicAfter[p])
	}

	t.Flush()

	fmt.Printf("\n%s: %d atomic-before round(s), %d main round(s), %d atomic-after round(s)\n",
		bold(c.scn.Name), countRounds(c.decomp.AtomicBefore), len(c.decomp.MainCommands), countRounds(c.decomp.AtomicAfter))
}

func addRounds(t *cli.Table, stage, prefix string, rounds []decompose.Round[int]) {
	for i, round := range rounds {
		for _, ac := range round {
			t.Row(stage, fmt.Sprint(i), prefix, fmt.Sprint(ac.Command.Router), fmt.Sprint(ac.Command.Peer), ac.Command.Kind.String(), fmt.Sprint(ac.Command.Value))
		}
		if len(round) == 0 {
			t.Row(stage, fmt.Sprint(i), prefix, "-", "-", command.Empty.String(), "-")
		}
	}
}

func countRounds(byPrefix map[int][]decompose.Round[int]) int {
	n := 0
	for _, rounds := range byPrefix {
		n += len(rounds)
	}
	return n
}
