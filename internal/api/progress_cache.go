package api

import (
	"sync"
)

// ProgressCache keeps the most recent lifecycle event per run so a
// subscriber that attaches mid-solve sees the current state right away
// instead of waiting for the next progress tick.
type ProgressCache struct {
	mu sync.Mutex
	// key: tenant|runId
	m map[string]Event
}

// NewProgressCache constructs a ProgressCache.
func NewProgressCache() *ProgressCache { return &ProgressCache{m: map[string]Event{}} }

func (c *ProgressCache) key(tenant, runID string) string { return tenant + "|" + runID }

// Put stores or replaces the latest event for a run.
func (c *ProgressCache) Put(tenant, runID string, evt Event) {
	if runID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[c.key(tenant, runID)] = evt
}

// Get returns the latest event for a run, if any.
func (c *ProgressCache) Get(tenant, runID string) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	evt, ok := c.m[c.key(tenant, runID)]
	return evt, ok
}
