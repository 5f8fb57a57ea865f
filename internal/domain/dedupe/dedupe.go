// Package dedupe rejects re-submission of an identical import while the
// first one is remembered.
package dedupe

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

const defaultMaxSize = 1024

// Fingerprint identifies a submission by file digest, profile name and
// match target. Names are compared case-insensitively.
func Fingerprint(digest, profile, target string) string {
	h := sha256.New()
	for _, part := range []string{digest, profile, target} {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(part))))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Deduper maps fingerprints to the job that claimed them.
type Deduper interface {
	// Claim records key for jobID unless it is already held. It returns the
	// holder and true for a duplicate.
	Claim(ctx context.Context, key, jobID string) (string, bool)

	// Release forgets key so the same submission can run again.
	Release(ctx context.Context, key string)

	Size() int
}

type entry struct {
	key   string
	jobID string
}

// InMemoryDeduper implements Deduper with a map plus an insertion-ordered
// list for eviction.
type InMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a deduper.
func NewInMemoryDeduper(opts ...Option) *InMemoryDeduper {
	d := &InMemoryDeduper{
		maxSize: defaultMaxSize,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Claim implements Deduper.
func (d *InMemoryDeduper) Claim(_ context.Context, key, jobID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(*entry).jobID, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		if oldest := d.order.Front(); oldest != nil {
			delete(d.seen, oldest.Value.(*entry).key)
			d.order.Remove(oldest)
		}
	}
	d.seen[key] = d.order.PushBack(&entry{key: key, jobID: jobID})
	return jobID, false
}

// Release implements Deduper.
func (d *InMemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

// Size returns the number of remembered submissions.
func (d *InMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
