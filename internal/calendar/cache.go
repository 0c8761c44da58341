package calendar

import (
	"strings"
	"sync"
)

// EventCache is a session-scoped index of events, keyed by event ID and by
// lowercased title. It is a derived view and never a source of truth.
//
// Every cached event is reachable through its ID and, while its title is
// unchanged, through the title alias. Re-caching an event under a new title
// drops the old alias.
type EventCache struct {
	mu      sync.RWMutex
	byID    map[string]Event
	byTitle map[string]string // lowercased title -> event ID
}

// NewEventCache returns an empty cache.
func NewEventCache() *EventCache {
	return &EventCache{
		byID:    make(map[string]Event),
		byTitle: make(map[string]string),
	}
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Put stores a snapshot of ev under both keys. An existing alias for the
// same title is overwritten, so the most recently cached event wins.
func (c *EventCache) Put(ev Event) {
	if ev.ID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.byID[ev.ID]; ok {
		if old := titleKey(prev.Summary); old != titleKey(ev.Summary) && c.byTitle[old] == ev.ID {
			delete(c.byTitle, old)
		}
	}

	c.byID[ev.ID] = ev.clone()
	if key := titleKey(ev.Summary); key != "" {
		c.byTitle[key] = ev.ID
	}
}

// ByID returns the event cached under id.
func (c *EventCache) ByID(id string) (Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ev, ok := c.byID[id]
	if !ok {
		return Event{}, false
	}
	return ev.clone(), true
}

// ByTitle returns the event cached under the case-insensitive title.
func (c *EventCache) ByTitle(title string) (Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byTitle[titleKey(title)]
	if !ok {
		return Event{}, false
	}
	ev, ok := c.byID[id]
	if !ok {
		return Event{}, false
	}
	return ev.clone(), true
}

// Lookup tries identifier as an ID first, then as a title.
func (c *EventCache) Lookup(identifier string) (Event, bool) {
	if ev, ok := c.ByID(identifier); ok {
		return ev, true
	}
	return c.ByTitle(identifier)
}

// Remove drops the event and its title alias.
func (c *EventCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, ok := c.byID[id]
	if !ok {
		return
	}
	delete(c.byID, id)
	if key := titleKey(ev.Summary); c.byTitle[key] == id {
		delete(c.byTitle, key)
	}
}

// Len returns the number of cached events.
func (c *EventCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
