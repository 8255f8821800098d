// Package scoring provides the overall-score aggregator and the score history log.
package scoring

import (
	"math"
	"sort"
)

// RecomputeOverall returns the rounded arithmetic mean of scores.
// An empty list yields previous unchanged.
func RecomputeOverall(scores []int, previous int) int {
	if len(scores) == 0 {
		return previous
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	mean := float64(sum) / float64(len(scores))
	// Half rounds up, matching how the producer rounds its own scores.
	return int(math.Floor(mean + 0.5))
}

// RecomputeFromMap is RecomputeOverall over the values of a section score map.
func RecomputeFromMap(scores map[string]int, previous int) int {
	values := make([]int, 0, len(scores))
	for _, name := range sortedKeys(scores) {
		values = append(values, scores[name])
	}
	return RecomputeOverall(values, previous)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
