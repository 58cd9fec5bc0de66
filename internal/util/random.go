// Package util holds small helpers shared by the generator packages:
// logging, random draws and resource cleanup.
package util

import "math/rand"

// RandIntRange returns a random int in [lo, hi]. A reversed range yields lo.
func RandIntRange(r *rand.Rand, lo int, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Chance reports true with the given percent probability.
func Chance(r *rand.Rand, percent int) bool {
	switch {
	case percent <= 0:
		return false
	case percent >= 100:
		return true
	}
	return r.Intn(100) < percent
}

// PickWeighted returns an index drawn proportionally to weights. Weights
// that are not positive are never picked unless all of them are, in which
// case the pick is uniform.
func PickWeighted(r *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		total += max(w, 0)
	}
	if total == 0 {
		return r.Intn(len(weights))
	}
	roll := r.Intn(total)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if roll < w {
			return i
		}
		roll -= w
	}
	return len(weights) - 1
}

// DaysInMonth returns the day count of month (1-12) in a Gregorian year.
func DaysInMonth(year int, month int) int {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	}
	return 31
}
