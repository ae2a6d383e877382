// Package watch keeps an in-memory catalog of venue documents in sync with
// the venues directory and reports external changes.
package watch

import (
	"sort"
	"sync"
)

// Catalog maps venue names to the checksum of their document.
type Catalog struct {
	mu   sync.RWMutex
	sums map[string]string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{sums: make(map[string]string)}
}

// Checksum returns the recorded checksum of a venue document.
func (c *Catalog) Checksum(venue string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sum, ok := c.sums[venue]
	return sum, ok
}

// Venues returns the catalogued venue names in lexical order.
func (c *Catalog) Venues() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.sums))
	for name := range c.sums {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of catalogued venues.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sums)
}

// set records sum for venue and returns the change kind ("created" or
// "updated"), or "" when the checksum is unchanged.
func (c *Catalog) set(venue, sum string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.sums[venue]
	c.sums[venue] = sum
	switch {
	case !ok:
		return "created"
	case prev != sum:
		return "updated"
	default:
		return ""
	}
}

func (c *Catalog) remove(venue string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sums[venue]; !ok {
		return false
	}
	delete(c.sums, venue)
	return true
}

func (c *Catalog) snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.sums))
	for k, v := range c.sums {
		out[k] = v
	}
	return out
}
