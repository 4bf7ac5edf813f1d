// Package memory implements the ability to read and write the checkpoint to
// memory.
package memory

import (
	"sync"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/checkpoint"
)

// Memory represents the serialization implementation for reading and storing
// the checkpoint in memory. This implements the checkpoint.Storage interface.
type Memory struct {
	mu     sync.RWMutex
	cp     checkpoint.Checkpoint
	writes int
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		cp: checkpoint.Empty(),
	}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Read returns a copy of the last checkpoint written.
func (m *Memory) Read() (checkpoint.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.cp.Clone(), nil
}

// Write keeps a copy of the specified checkpoint.
func (m *Memory) Write(cp checkpoint.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cp = cp.Clone()
	m.writes++

	return nil
}

// Writes returns the number of times the checkpoint was written.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.writes
}
