package property

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
)

// Source fetches raw property records from an open session.
type Source interface {
	AllProperties() ([]sdk.RawProperty, error)
	SelectedProperties(codes []uint32) ([]sdk.RawProperty, error)
}

// Property is the cached state of one device property.
type Property struct {
	Code     Code
	Kind     Kind
	Current  Value
	Writable bool
	// Possible is empty when the device does not enumerate a domain.
	Possible []Value
}

// Contains reports whether v is one of the possible values.
func (p Property) Contains(v Value) bool {
	for _, pv := range p.Possible {
		if pv.Raw() == v.Raw() {
			return true
		}
	}
	return false
}

// Cache is the typed property table of the current session. It is safe for
// concurrent use: the event loop refreshes it while sequences read it.
type Cache struct {
	src Source

	mu      sync.RWMutex
	entries map[Code]*Property
	loads   uint64
}

// NewCache creates an empty cache reading from src.
func NewCache(src Source) *Cache {
	return &Cache{src: src, entries: make(map[Code]*Property)}
}

// Load refreshes the cache. With no codes it requests a full dump, otherwise
// only the listed codes. On any transport or decode error the cache is left
// as it was.
//
// The possible-value list of an existing entry is decoded again only when
// the device reports a different number of values. A domain whose contents
// change without its size changing keeps its previous list.
func (c *Cache) Load(codes ...Code) error {
	var (
		raws []sdk.RawProperty
		err  error
	)
	if len(codes) == 0 {
		raws, err = c.src.AllProperties()
	} else {
		req := make([]uint32, len(codes))
		for i, code := range codes {
			req[i] = uint32(code)
		}
		raws, err = c.src.SelectedProperties(req)
	}
	if err != nil {
		return fmt.Errorf("load properties: %w", err)
	}

	staged := make([]decoded, 0, len(raws))
	for _, r := range raws {
		d, supported, err := decodeRecord(r)
		if err != nil {
			return fmt.Errorf("load properties: %w", err)
		}
		if supported {
			staged = append(staged, d)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range staged {
		spec := registry[d.code]
		p, ok := c.entries[d.code]
		if !ok {
			p = &Property{Code: d.code, Kind: spec.Kind}
			c.entries[d.code] = p
		}
		p.Current = d.current
		p.Writable = d.writable
		if !ok || len(p.Possible) != len(d.possible) {
			p.Possible = make([]Value, len(d.possible))
			for i, raw := range d.possible {
				p.Possible[i] = spec.Decode(raw)
			}
		}
	}
	c.loads++
	return nil
}

// Get returns a copy of the cached entry for code.
func (c *Cache) Get(code Code) (Property, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[code]
	if !ok {
		return Property{}, false
	}
	return p.clone(), true
}

// Current returns the cached current value of code.
func (c *Cache) Current(code Code) (Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[code]
	if !ok {
		return nil, false
	}
	return p.Current, true
}

// CurrentRaw returns the cached raw current value of code.
func (c *Cache) CurrentRaw(code Code) (uint64, bool) {
	v, ok := c.Current(code)
	if !ok {
		return 0, false
	}
	return v.Raw(), true
}

// Writable reports whether the device last reported code as settable.
func (c *Cache) Writable(code Code) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[code]
	return ok && p.Writable
}

// Possible returns the cached possible-value list of code.
func (c *Cache) Possible(code Code) []Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[code]
	if !ok {
		return nil
	}
	return append([]Value(nil), p.Possible...)
}

// Mode returns the control mode reported by the device. Remote is assumed
// until the device says otherwise.
func (c *Cache) Mode() sdk.Mode {
	raw, ok := c.CurrentRaw(SdkControlMode)
	if ok && raw == ControlContentsTransfer {
		return sdk.ModeContentsTransfer
	}
	return sdk.ModeRemote
}

// ZoomSpeedRange returns the continuous zoom speed interval. ok is false when
// the device reports fewer than two bounds, meaning only discrete
// stop/wide/tele control is available.
func (c *Cache) ZoomSpeedRange() (lo, hi int64, ok bool) {
	vals := c.Possible(ZoomSpeedRange)
	if len(vals) < 2 {
		return 0, 0, false
	}
	lo, hi = int64(vals[0].(Int)), int64(vals[1].(Int))
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, true
}

// Snapshot returns copies of every cached entry ordered by code.
func (c *Cache) Snapshot() []Property {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Property, 0, len(c.entries))
	for _, p := range c.entries {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Loads returns the number of successful refreshes since the last Reset.
func (c *Cache) Loads() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loads
}

// Reset discards every entry. Called when the session ends.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[Code]*Property)
	c.loads = 0
	c.mu.Unlock()
}

func (p *Property) clone() Property {
	cp := *p
	cp.Possible = append([]Value(nil), p.Possible...)
	return cp
}
