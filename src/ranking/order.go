package ranking

import (
	"math"
	"sort"

	"prbuild-agent/src/provider"
)

// SortDefinitions returns the display order of defs without modifying the input.
// Grouped definitions come first, by group name; ungrouped ones follow. Within
// a group Order ascends and a missing Order sorts last. Ties keep
// configuration order.
func SortDefinitions(defs []provider.BuildDefinition) []provider.BuildDefinition {
	idx := SortIndex(defs)
	out := make([]provider.BuildDefinition, len(idx))
	for i, j := range idx {
		out[i] = defs[j]
	}
	return out
}

// SortIndex returns the permutation SortDefinitions applies, so callers can
// reorder data held alongside the definitions.
func SortIndex(defs []provider.BuildDefinition) []int {
	idx := make([]int, len(defs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return Less(defs[idx[a]], defs[idx[b]])
	})
	return idx
}

// Less is the display ordering of two definitions, without the
// configuration-order tie break.
func Less(a, b provider.BuildDefinition) bool {
	if (a.Group == "") != (b.Group == "") {
		return a.Group != ""
	}
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return orderKey(a) < orderKey(b)
}

func orderKey(d provider.BuildDefinition) float64 {
	if d.Order == nil {
		return math.Inf(1)
	}
	return float64(*d.Order)
}

// Partition splits an already sorted list into runs sharing a group key.
// It returns the start index of each run.
func Partition(defs []provider.BuildDefinition) []int {
	var starts []int
	for i, d := range defs {
		if i == 0 || d.Group != defs[i-1].Group {
			starts = append(starts, i)
		}
	}
	return starts
}
