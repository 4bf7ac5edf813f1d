// Package checkpoint maintains the progress of the relay and the set of
// proofs produced so far.
package checkpoint

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrNotFound is returned when no proof exists for a block.
var ErrNotFound = errors.New("proof not found")

// Storage interface represents the behavior required to be implemented by any
// package providing support for reading and writing the checkpoint.
type Storage interface {
	Read() (Checkpoint, error)
	Write(cp Checkpoint) error
	Close() error
}

// =============================================================================

// Checkpoint represents the persisted state of the relay.
type Checkpoint struct {
	CurrentEpoch    uint64                     `json:"currentEpoch"`
	LastBlockNumber uint64                     `json:"lastBlockNumber"`
	Proofs          map[uint64]json.RawMessage `json:"proofs"`
}

// Empty returns a checkpoint with nothing recorded.
func Empty() Checkpoint {
	return Checkpoint{
		Proofs: make(map[uint64]json.RawMessage),
	}
}

// Clone returns a deep copy of the checkpoint.
func (cp Checkpoint) Clone() Checkpoint {
	cpy := Checkpoint{
		CurrentEpoch:    cp.CurrentEpoch,
		LastBlockNumber: cp.LastBlockNumber,
		Proofs:          make(map[uint64]json.RawMessage, len(cp.Proofs)),
	}
	for num, proof := range cp.Proofs {
		cpy.Proofs[num] = append(json.RawMessage(nil), proof...)
	}
	return cpy
}

// =============================================================================

// Store manages concurrent access to the checkpoint and writes it through
// the configured storage on request.
type Store struct {
	mu      sync.RWMutex
	cp      Checkpoint
	storage Storage
}

// New constructs a store and loads the existing checkpoint from storage.
func New(storage Storage) (*Store, error) {
	cp, err := storage.Read()
	if err != nil {
		return nil, err
	}

	if cp.Proofs == nil {
		cp.Proofs = make(map[uint64]json.RawMessage)
	}

	return &Store{
		cp:      cp,
		storage: storage,
	}, nil
}

// Head returns the last chain head and epoch recorded.
func (s *Store) Head() (number uint64, epoch uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cp.LastBlockNumber, s.cp.CurrentEpoch
}

// SetHead records the chain head and its epoch.
func (s *Store) SetHead(number uint64, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cp.LastBlockNumber = number
	s.cp.CurrentEpoch = epoch
}

// AddProof stores the proof for the specified block, replacing any proof
// already stored.
func (s *Store) AddProof(number uint64, proof json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cp.Proofs[number] = append(json.RawMessage(nil), proof...)
}

// Proof returns the proof stored for the specified block.
func (s *Store) Proof(number uint64) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proof, exists := s.cp.Proofs[number]
	if !exists {
		return nil, ErrNotFound
	}

	return append(json.RawMessage(nil), proof...), nil
}

// HasProof reports if a proof is stored for the specified block.
func (s *Store) HasProof(number uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.cp.Proofs[number]
	return exists
}

// LastProven returns the highest block with a stored proof. The boolean is
// false when no proofs are stored.
func (s *Store) LastProven() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last uint64
	var found bool
	for num := range s.cp.Proofs {
		if !found || num > last {
			last = num
			found = true
		}
	}

	return last, found
}

// ProofCount returns the number of proofs stored.
func (s *Store) ProofCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.cp.Proofs)
}

// Copy returns a copy of the current checkpoint.
func (s *Store) Copy() Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cp.Clone()
}

// Persist writes the current checkpoint to storage.
func (s *Store) Persist() error {
	return s.storage.Write(s.Copy())
}

// Close persists the checkpoint one last time and closes the storage.
func (s *Store) Close() error {
	if err := s.Persist(); err != nil {
		s.storage.Close()
		return err
	}

	return s.storage.Close()
}
