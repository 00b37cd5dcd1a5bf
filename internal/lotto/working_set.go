package lotto

import "sort"

// WorkingSet accumulates the numbers of the ticket being drawn.
type WorkingSet struct {
	members map[int]struct{}
}

// NewWorkingSet seeds a working set. Seed numbers are taken as given;
// range and count checks belong to input validation.
func NewWorkingSet(seed []int) *WorkingSet {
	ws := &WorkingSet{members: make(map[int]struct{}, TicketSize)}
	for _, n := range seed {
		ws.members[n] = struct{}{}
	}
	return ws
}

func (ws *WorkingSet) Len() int {
	return len(ws.members)
}

func (ws *WorkingSet) Contains(n int) bool {
	_, ok := ws.members[n]
	return ok
}

// Add inserts n and reports whether it was new.
func (ws *WorkingSet) Add(n int) bool {
	if ws.Contains(n) {
		return false
	}
	ws.members[n] = struct{}{}
	return true
}

// Overlaps reports whether any of numbers is already held.
func (ws *WorkingSet) Overlaps(numbers []int) bool {
	for _, n := range numbers {
		if ws.Contains(n) {
			return true
		}
	}
	return false
}

// Sorted returns the members in ascending order.
func (ws *WorkingSet) Sorted() []int {
	out := make([]int, 0, len(ws.members))
	for n := range ws.members {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
