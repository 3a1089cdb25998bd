package metacache

import (
	"sync"
	"time"
)

// DefaultMaxGenerations bounds live generations when no bound is configured.
const DefaultMaxGenerations = 5

// GenerationInfo describes a live generation.
type GenerationInfo struct {
	ID          string    `json:"id" yaml:"id"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	Descriptors int       `json:"descriptors" yaml:"descriptors"`
}

// maxRetired bounds how many evicted ids a tracker remembers.
const maxRetired = 256

// tracker records generations in discovery order. Generation ids are
// opaque, so insertion order stands in for age. Evicted ids are retired
// and never tracked again.
type tracker struct {
	mu      sync.Mutex
	max     int
	order   []GenerationInfo
	evicted uint64

	retired      map[string]struct{}
	retiredOrder []string
}

func newTracker(max int) *tracker {
	if max <= 0 {
		max = DefaultMaxGenerations
	}
	return &tracker{max: max, retired: make(map[string]struct{})}
}

// isRetired reports whether id was evicted earlier.
func (t *tracker) isRetired(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.retired[id]
	return ok
}

// track records id if unseen. When that pushes the count past the bound,
// the oldest generation is dropped from tracking and returned. Retired ids
// are refused with accepted false.
func (t *tracker) track(id string, now time.Time) (evicted string, didEvict, accepted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.retired[id]; ok {
		return "", false, false
	}
	for _, g := range t.order {
		if g.ID == id {
			return "", false, true
		}
	}
	t.order = append(t.order, GenerationInfo{ID: id, CreatedAt: now})
	if len(t.order) <= t.max {
		return "", false, true
	}

	evicted = t.order[0].ID
	t.order = append(t.order[:0:0], t.order[1:]...)
	t.evicted++
	t.retire(evicted)
	return evicted, true, true
}

func (t *tracker) retire(id string) {
	t.retired[id] = struct{}{}
	t.retiredOrder = append(t.retiredOrder, id)
	if len(t.retiredOrder) > maxRetired {
		delete(t.retired, t.retiredOrder[0])
		t.retiredOrder = t.retiredOrder[1:]
	}
}

func (t *tracker) snapshot() ([]GenerationInfo, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]GenerationInfo, len(t.order))
	copy(out, t.order)
	return out, t.evicted
}

// childMemo distinguishes "computed, no children" from "not computed".
type childMemo struct {
	computed bool
	children map[string]ChildSummary
}

// partition holds everything cached under one generation.
type partition struct {
	byBusinessKey map[string]*ObjectDescriptor
	byTableName   map[string]*ObjectDescriptor
	children      map[int64]childMemo
}

func newPartition() *partition {
	return &partition{
		byBusinessKey: make(map[string]*ObjectDescriptor),
		byTableName:   make(map[string]*ObjectDescriptor),
		children:      make(map[int64]childMemo),
	}
}

// descriptorCount counts distinct descriptors.
func (p *partition) descriptorCount() int {
	seen := make(map[*ObjectDescriptor]struct{}, len(p.byBusinessKey))
	for _, d := range p.byBusinessKey {
		seen[d] = struct{}{}
	}
	for _, d := range p.byTableName {
		seen[d] = struct{}{}
	}
	return len(seen)
}

func (p *partition) index(idx lookupIndex) map[string]*ObjectDescriptor {
	if idx == indexTableName {
		return p.byTableName
	}
	return p.byBusinessKey
}
