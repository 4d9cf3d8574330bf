package realtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Row is anything a Projection can hold
type Row interface {
	Key() string
	Version() time.Time
}

// Change is an Event decoded into typed rows
type Change[T Row] struct {
	Type    EventType
	Old     *T
	New     *T
	Version time.Time
}

// DecodeChange unmarshals an event's rows into T
func DecodeChange[T Row](ev Event) (Change[T], error) {
	ch := Change[T]{Type: ev.Type, Version: ev.Version}
	if len(ev.Old) > 0 {
		var row T
		if err := json.Unmarshal(ev.Old, &row); err != nil {
			return Change[T]{}, fmt.Errorf("decode old %s row: %w", ev.Table, err)
		}
		ch.Old = &row
	}
	if len(ev.New) > 0 {
		var row T
		if err := json.Unmarshal(ev.New, &row); err != nil {
			return Change[T]{}, fmt.Errorf("decode new %s row: %w", ev.Table, err)
		}
		ch.New = &row
	}
	return ch, nil
}

// Projection is a keyed, versioned view of a table. Changes are folded in
// last-writer-wins by row version, so arrival order does not matter.
type Projection[T Row] struct {
	mu         sync.RWMutex
	rows       map[string]T
	tombstones map[string]time.Time
	less       func(a, b T) bool
	limit      int
}

// NewProjection creates a projection ordered by less and trimmed to limit rows by List.
// A limit of zero keeps every row.
func NewProjection[T Row](less func(a, b T) bool, limit int) *Projection[T] {
	return &Projection[T]{
		rows:       make(map[string]T),
		tombstones: make(map[string]time.Time),
		less:       less,
		limit:      limit,
	}
}

// Apply folds one change into the projection and reports whether it changed anything
func (p *Projection[T]) Apply(ch Change[T]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ch.Type {
	case EventInsert, EventUpdate:
		if ch.New == nil {
			return false
		}
		return p.upsert(*ch.New)
	case EventDelete:
		if ch.Old == nil {
			return false
		}
		version := ch.Version
		if version.IsZero() {
			version = (*ch.Old).Version()
		}
		return p.remove((*ch.Old).Key(), version)
	}
	return false
}

func (p *Projection[T]) upsert(row T) bool {
	key := row.Key()
	if deletedAt, ok := p.tombstones[key]; ok {
		if !row.Version().After(deletedAt) {
			return false
		}
		delete(p.tombstones, key)
	}
	if cur, ok := p.rows[key]; ok && row.Version().Before(cur.Version()) {
		return false
	}
	p.rows[key] = row
	return true
}

func (p *Projection[T]) remove(key string, version time.Time) bool {
	if cur, ok := p.rows[key]; ok && cur.Version().After(version) {
		return false
	}
	if deletedAt, ok := p.tombstones[key]; !ok || version.After(deletedAt) {
		p.tombstones[key] = version
	}
	if _, ok := p.rows[key]; !ok {
		return false
	}
	delete(p.rows, key)
	return true
}

// Reconcile merges a refetched snapshot taken at asOf. Rows missing from the
// snapshot are dropped unless a change newer than asOf has already arrived for them.
func (p *Projection[T]) Reconcile(snapshot []T, asOf time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[string]struct{}, len(snapshot))
	for _, row := range snapshot {
		seen[row.Key()] = struct{}{}
		p.upsert(row)
	}

	for key, row := range p.rows {
		if _, ok := seen[key]; ok {
			continue
		}
		if !row.Version().After(asOf) {
			delete(p.rows, key)
		}
	}

	for key, deletedAt := range p.tombstones {
		if !deletedAt.After(asOf) {
			delete(p.tombstones, key)
		}
	}
}

// List returns the rows in projection order, trimmed to the page size
func (p *Projection[T]) List() []T {
	p.mu.RLock()
	out := make([]T, 0, len(p.rows))
	for _, row := range p.rows {
		out = append(out, row)
	}
	p.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if p.less(out[i], out[j]) {
			return true
		}
		if p.less(out[j], out[i]) {
			return false
		}
		return out[i].Key() < out[j].Key()
	})
	if p.limit > 0 && len(out) > p.limit {
		out = out[:p.limit]
	}
	return out
}

// All returns every row regardless of page size, in projection order
func (p *Projection[T]) All() []T {
	p.mu.RLock()
	out := make([]T, 0, len(p.rows))
	for _, row := range p.rows {
		out = append(out, row)
	}
	p.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return p.less(out[i], out[j]) })
	return out
}

// Get returns the row stored under key
func (p *Projection[T]) Get(key string) (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	row, ok := p.rows[key]
	return row, ok
}

// Len is the number of rows held, ignoring the page size
func (p *Projection[T]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rows)
}
