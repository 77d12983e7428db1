// breadcrumbs.go implements the bounded, insertion-ordered breadcrumb trail.

package faultline

import "sync"

// BreadcrumbManager holds a bounded, insertion-ordered trail of breadcrumbs.
// When the trail exceeds its capacity the oldest entries are discarded.
// Safe for concurrent use.
type BreadcrumbManager struct {
	mu     sync.Mutex
	max    int
	crumbs []Breadcrumb
}

// NewBreadcrumbManager creates a trail retaining at most max entries.
// Non-positive max falls back to the default of 100.
func NewBreadcrumbManager(max int) *BreadcrumbManager {
	if max <= 0 {
		max = defaultMaxBreadcrumbs
	}
	return &BreadcrumbManager{max: max}
}

// Add appends a breadcrumb to the end of the trail, evicting from the front
// when the trail is full.
func (b *BreadcrumbManager) Add(crumb Breadcrumb) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.crumbs = append(b.crumbs, crumb)
	if len(b.crumbs) > b.max {
		b.crumbs = b.crumbs[len(b.crumbs)-b.max:]
	}
}

// GetAll returns a snapshot of the trail in insertion order.
// Breadcrumb data maps are copied so callers cannot corrupt stored entries.
func (b *BreadcrumbManager) GetAll() []Breadcrumb {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.crumbs) == 0 {
		return nil
	}
	out := make([]Breadcrumb, len(b.crumbs))
	copy(out, b.crumbs)
	for i := range out {
		out[i].Data = cloneAnyMap(out[i].Data)
	}
	return out
}

// Clear empties the trail.
func (b *BreadcrumbManager) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.crumbs = nil
}

// Count returns the current number of entries.
func (b *BreadcrumbManager) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.crumbs)
}
