package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gekko3d/levelview"
)

var ErrSlotBusy = errors.New("cache slot is being built")

type SlotState uint8

const (
	SlotEmpty SlotState = iota
	SlotBuilding
	SlotReady
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotBuilding:
		return "building"
	case SlotReady:
		return "ready"
	}
	return fmt.Sprintf("SlotState(%d)", uint8(s))
}

type cacheSlot struct {
	state  SlotState
	handle BundleHandle
	builds int
}

// DrawCache holds named bundles of static geometry for one viewport. A slot
// is built on first use and replayed until it is invalidated. The cache
// exclusively owns every bundle it requested from the device.
type DrawCache struct {
	device  Device
	logger  levelview.Logger
	slots   map[string]*cacheSlot
	scratch *Geometry
}

func NewDrawCache(device Device, logger levelview.Logger) *DrawCache {
	return &DrawCache{
		device:  device,
		logger:  levelview.OrNop(logger),
		slots:   make(map[string]*cacheSlot),
		scratch: NewGeometry(),
	}
}

// GetOrBuild returns the bundle for key, invoking build to record it only
// when the slot is empty. A failed upload leaves the slot empty so the next
// frame retries.
func (c *DrawCache) GetOrBuild(key string, build func(g *Geometry)) (BundleHandle, error) {
	s, ok := c.slots[key]
	if !ok {
		s = &cacheSlot{}
		c.slots[key] = s
	}
	switch s.state {
	case SlotReady:
		return s.handle, nil
	case SlotBuilding:
		return NoBundle, fmt.Errorf("%w: %s", ErrSlotBusy, key)
	}

	s.state = SlotBuilding
	g := c.scratch
	c.scratch = nil
	if g == nil {
		// nested build of another slot
		g = NewGeometry()
	}
	g.Reset()
	build(g)

	h, err := c.device.CreateBundle(key, g)
	if c.scratch == nil {
		c.scratch = g
	}
	if err != nil {
		s.state = SlotEmpty
		return NoBundle, fmt.Errorf("failed to build cache slot %s: %w", key, err)
	}
	s.state = SlotReady
	s.handle = h
	s.builds++
	c.logger.Debugf("cache slot %s built: %d vertices in %d batches", key, g.VertexCount(), len(g.Batches))
	return h, nil
}

// Invalidate releases the slot's bundle. Invalidating an empty or unknown
// slot is a no-op.
func (c *DrawCache) Invalidate(key string) {
	s, ok := c.slots[key]
	if !ok || s.state != SlotReady {
		return
	}
	c.device.ReleaseBundle(s.handle)
	s.handle = NoBundle
	s.state = SlotEmpty
}

// DisposeAll invalidates every slot. Safe to call repeatedly.
func (c *DrawCache) DisposeAll() {
	for key := range c.slots {
		c.Invalidate(key)
	}
}

func (c *DrawCache) State(key string) SlotState {
	if s, ok := c.slots[key]; ok {
		return s.state
	}
	return SlotEmpty
}

// Builds reports how many times the slot has been (re)built.
func (c *DrawCache) Builds(key string) int {
	if s, ok := c.slots[key]; ok {
		return s.builds
	}
	return 0
}

// Keys lists the known slots in sorted order.
func (c *DrawCache) Keys() []string {
	keys := make([]string, 0, len(c.slots))
	for k := range c.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
