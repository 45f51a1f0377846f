package pool

import "time"

// preloadSnapshot is the read-only view a worker plans from.
type preloadSnapshot struct {
	epoch    uint64
	count    int
	active   int
	now      time.Time
	cooldown time.Duration
	warmed   map[int]time.Time
	loadedAt map[int]time.Time
}

func (s preloadSnapshot) fresh(at time.Time) bool {
	return !at.IsZero() && s.now.Sub(at) < s.cooldown
}

// planPreload lists the indices to warm around index, nearest first.
func planPreload(snap preloadSnapshot, index, radius int) []int {
	var out []int
	for d := 1; d <= radius; d++ {
		for _, idx := range [2]int{index - d, index + d} {
			if idx < 0 || idx >= snap.count || idx == snap.active {
				continue
			}
			if snap.fresh(snap.warmed[idx]) || snap.fresh(snap.loadedAt[idx]) {
				continue
			}
			out = append(out, idx)
		}
	}
	if index >= 0 && index < snap.count && index != snap.active &&
		!snap.fresh(snap.warmed[index]) && !snap.fresh(snap.loadedAt[index]) {
		out = append([]int{index}, out...)
	}
	return out
}
