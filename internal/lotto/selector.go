package lotto

import "math/rand/v2"

// DefaultFoldsPerPool is how many groups one pool may fold into one draw.
const DefaultFoldsPerPool = 1

// PoolRule ties a pool to its contribution cap.
type PoolRule struct {
	Kind PoolKind `json:"kind"`
	Cap  int      `json:"cap"`
}

// DefaultPlan is the pool priority order tried on every pass.
var DefaultPlan = []PoolRule{
	{Kind: PoolPairs, Cap: 5},
	{Kind: PoolConsecutivePairs, Cap: 4},
	{Kind: PoolTriplets, Cap: 3},
	{Kind: PoolConsecutiveTriplets, Cap: 2},
	{Kind: PoolQuads, Cap: 1},
}

// Quota counts the groups folded into a single draw, per category and per
// pool. A pool may fold while both its own count stays under
// min(cap, foldsPerPool) and its category count stays under cap.
type Quota struct {
	categories   map[Category]int
	pools        map[PoolKind]int
	foldsPerPool int
}

func NewQuota(foldsPerPool int) *Quota {
	if foldsPerPool <= 0 {
		foldsPerPool = DefaultFoldsPerPool
	}
	return &Quota{
		categories:   make(map[Category]int, 3),
		pools:        make(map[PoolKind]int, len(PoolKinds)),
		foldsPerPool: foldsPerPool,
	}
}

// Allows reports whether rule's pool may fold another group.
func (q *Quota) Allows(rule PoolRule) bool {
	limit := rule.Cap
	if q.foldsPerPool < limit {
		limit = q.foldsPerPool
	}
	return q.pools[rule.Kind] < limit && q.categories[rule.Kind.Category()] < rule.Cap
}

func (q *Quota) record(kind PoolKind) {
	q.pools[kind]++
	q.categories[kind.Category()]++
}

// Category returns the folds recorded against c.
func (q *Quota) Category(c Category) int {
	return q.categories[c]
}

// Pool returns the folds recorded against kind.
func (q *Quota) Pool(kind PoolKind) int {
	return q.pools[kind]
}

// GroupSelector folds whole groups from a pool into a working set.
type GroupSelector struct {
	rng *rand.Rand
}

func NewGroupSelector(src rand.Source) *GroupSelector {
	return &GroupSelector{rng: rand.New(src)}
}

// TrySelect picks one group of pool that shares no number with ws, uniformly
// at random, and adds all of its numbers when they fit under maxSize. It
// never adds part of a group. The chosen group is returned when it was
// folded in.
func (s *GroupSelector) TrySelect(rule PoolRule, pool GroupPool, ws *WorkingSet, maxSize int, quota *Quota) (Group, bool) {
	if ws.Len() >= maxSize || !quota.Allows(rule) {
		return Group{}, false
	}

	eligible := make([]Group, 0, len(pool))
	for _, g := range pool {
		if !ws.Overlaps(g.Numbers) {
			eligible = append(eligible, g)
		}
	}
	if len(eligible) == 0 {
		return Group{}, false
	}

	choice := eligible[s.rng.IntN(len(eligible))]
	if ws.Len()+len(choice.Numbers) > maxSize {
		return Group{}, false
	}
	for _, n := range choice.Numbers {
		ws.Add(n)
	}
	quota.record(rule.Kind)
	return choice, true
}
