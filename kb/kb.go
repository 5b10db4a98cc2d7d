package kb

import (
	"fmt"
	"slices"
	"sync"

	"github.com/signalsfoundry/gnss-acquisition/model"
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventSatelliteAdded EventType = iota
	EventSatelliteUpdated
	EventSatelliteRemoved
)

func (t EventType) String() string {
	switch t {
	case EventSatelliteAdded:
		return "added"
	case EventSatelliteUpdated:
		return "updated"
	case EventSatelliteRemoved:
		return "removed"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted to subscribers when a satellite definition changes.
type Event struct {
	Type      EventType
	Satellite model.SatelliteDefinition
}

// Catalog is an in-memory, thread-safe store of searchable satellites
// keyed by PRN.
type Catalog struct {
	mu sync.RWMutex

	satellites map[int]model.SatelliteDefinition

	subs   map[int]func(Event)
	nextID int
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		satellites: make(map[int]model.SatelliteDefinition),
		subs:       make(map[int]func(Event)),
	}
}

// AddSatellite adds a new satellite. It returns an error if the PRN is not
// positive or already present.
func (c *Catalog) AddSatellite(s model.SatelliteDefinition) error {
	if s.PRN <= 0 {
		return fmt.Errorf("satellite PRN must be positive, got %d", s.PRN)
	}
	c.mu.Lock()
	if _, exists := c.satellites[s.PRN]; exists {
		c.mu.Unlock()
		return fmt.Errorf("satellite with PRN %d already exists", s.PRN)
	}
	c.satellites[s.PRN] = s
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventSatelliteAdded, Satellite: s})
	return nil
}

// UpdateSatellite replaces an existing definition, typically with a fresher TLE.
func (c *Catalog) UpdateSatellite(s model.SatelliteDefinition) error {
	c.mu.Lock()
	if _, ok := c.satellites[s.PRN]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("satellite with PRN %d not found", s.PRN)
	}
	c.satellites[s.PRN] = s
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventSatelliteUpdated, Satellite: s})
	return nil
}

// RemoveSatellite drops a satellite from the catalog.
func (c *Catalog) RemoveSatellite(prn int) error {
	c.mu.Lock()
	s, ok := c.satellites[prn]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("satellite with PRN %d not found", prn)
	}
	delete(c.satellites, prn)
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventSatelliteRemoved, Satellite: s})
	return nil
}

// GetSatellite returns the definition for prn.
func (c *Catalog) GetSatellite(prn int) (model.SatelliteDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.satellites[prn]
	return s, ok
}

// ListSatellites returns a snapshot of all definitions ordered by PRN.
func (c *Catalog) ListSatellites() []model.SatelliteDefinition {
	c.mu.RLock()
	res := make([]model.SatelliteDefinition, 0, len(c.satellites))
	for _, s := range c.satellites {
		res = append(res, s)
	}
	c.mu.RUnlock()

	slices.SortFunc(res, func(a, b model.SatelliteDefinition) int { return a.PRN - b.PRN })
	return res
}

// PRNs returns the catalogued PRNs in ascending order.
func (c *Catalog) PRNs() []int {
	c.mu.RLock()
	res := make([]int, 0, len(c.satellites))
	for prn := range c.satellites {
		res = append(res, prn)
	}
	c.mu.RUnlock()

	slices.Sort(res)
	return res
}

// Len returns the number of catalogued satellites.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.satellites)
}

// Subscribe registers a callback for catalog events. It returns an unsubscribe function.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// snapshotSubs must be called with c.mu held.
func (c *Catalog) snapshotSubs() []func(Event) {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.subs[id])
	}
	return out
}

// Subscribers run outside the lock so they may call back into the catalog.
func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}
