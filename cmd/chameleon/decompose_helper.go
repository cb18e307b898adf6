package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/nsg-ethz/chameleon/pkg/decompose"
	"github.com/nsg-ethz/chameleon/pkg/network"
	"github.com/nsg-ethz/chameleon/pkg/scenario"
	"github.com/nsg-ethz/chameleon/pkg/scheduler"
)

// compiled bundles a loaded scenario with its before/after networks and
// compiled decomposition, the shared starting point for plan, simulate,
// execute and scenario run.
type compiled struct {
	scn    *scenario.Scenario
	before *network.Network[int]
	after  *network.Network[int]
	decomp *decompose.Decomposition[int]
}

// loadAndCompile loads the scenario at path, builds its before/after
// networks, and runs the decomposition compiler over its diff.
func loadAndCompile(path string) (*compiled, error) {
	scn, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	before, err := scn.Build()
	if err != nil {
		return nil, fmt.Errorf("building initial network: %w", err)
	}
	after, err := scn.BuildAfter()
	if err != nil {
		return nil, fmt.Errorf("building target network: %w", err)
	}
	diff, err := scn.DiffEntries()
	if err != nil {
		return nil, fmt.Errorf("converting diff: %w", err)
	}

	opts := solverOptions()
	decomp, err := decompose.Compile(before, after, diff, opts)
	if err != nil {
		return nil, fmt.Errorf("compiling decomposition: %w", err)
	}
	return &compiled{scn: scn, before: before, after: after, decomp: decomp}, nil
}

// solverOptions derives scheduler.Options from the root flags and settings,
// falling back to the settings defaults when --timeout or
// --temp-session-cap is unset.
func solverOptions() scheduler.Options {
	timeoutSec := app.timeoutSec
	if timeoutSec <= 0 && app.settings != nil {
		timeoutSec = app.settings.GetDefaultTimeoutSeconds()
	}
	opts := scheduler.Options{Timeout: time.Duration(timeoutSec) * time.Second}
	tempCap := app.tempCap
	if tempCap <= 0 && app.settings != nil {
		tempCap = app.settings.DefaultTempSessionCap
	}
	if tempCap > 0 {
		opts.TempSessionCap = &tempCap
	}
	return opts
}

// sortedPrefixes returns the keys of an AtomicBefore/AtomicAfter map in a
// stable order, so table output does not jitter between runs.
func sortedPrefixes(rounds map[int][]decompose.Round[int]) []int {
	keys := make([]int, 0, len(rounds))
	for p := range rounds {
		keys = append(keys, p)
	}
	sort.Ints(keys)
	return keys
}
