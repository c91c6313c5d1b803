package graph

import "sync"

type uninitialized struct{}

func (uninitialized) String() string { return "<uninitialized>" }

// Uninitialized is the value of a binding that has never been stored.
var Uninitialized any = uninitialized{}

// Cell is the storage behind a single binding. Importers share the exporter's
// cell, so a Store is observed by every module that imports the binding.
type Cell struct {
	value any
	set   bool
	mu    sync.RWMutex
}

// NewCell returns an uninitialized cell.
func NewCell() *Cell {
	return &Cell{}
}

// Load returns the current value, or Uninitialized.
func (c *Cell) Load() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set {
		return Uninitialized
	}
	return c.value
}

// Store replaces the current value.
func (c *Cell) Store(v any) {
	c.mu.Lock()
	c.value = v
	c.set = true
	c.mu.Unlock()
}

// Initialized reports whether a value was ever stored.
func (c *Cell) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set
}
