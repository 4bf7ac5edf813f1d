// Package relay is the core API for the header relay and implements the
// rules for following the chain and producing ethash proofs.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/checkpoint"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/ethash"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/header"
	"github.com/ethereum/go-ethereum/common"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for following the chain head, producing proofs
// and generating DAGs.
type Worker interface {
	Shutdown()
	SignalGenerateDAG(epoch uint64)
}

// Node interface represents the behavior required from the Ethereum node
// the headers are read from.
type Node interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Header(ctx context.Context, number uint64) (header.BlockHeader, common.Hash, error)
}

// Prover interface represents the behavior required from the ethash proof
// tooling.
type Prover interface {
	Proof(ctx context.Context, rlpHex string) (json.RawMessage, error)
	GenerateDAG(ctx context.Context, epoch uint64) error
}

// =============================================================================

// Config represents the configuration required to start the relay.
type Config struct {
	Node         Node
	Prover       Prover
	Store        *checkpoint.Store
	EpochLength  uint64
	PersistEvery uint64
	StartBlock   *uint64
	EvHandler    EventHandler
}

// Head represents what is known about the chain head after an update.
type Head struct {
	Number         uint64
	Epoch          uint64
	NextEpochBlock uint64
	GenerateDAG    bool
}

// Status represents the progress of the relay.
type Status struct {
	Head           uint64
	Epoch          uint64
	NextBlock      uint64
	NextEpochBlock uint64
	Proofs         int
}

// Block represents a header fetched from the node along with its encodings.
type Block struct {
	Header   header.BlockHeader
	RLP      string
	Hash     common.Hash
	Reported common.Hash
}

// Relay manages following the chain and the proofs produced.
type Relay struct {
	node         Node
	prover       Prover
	store        *checkpoint.Store
	epochLength  uint64
	persistEvery uint64
	evHandler    EventHandler

	mu        sync.Mutex
	nextBlock uint64

	Worker Worker
}

// New constructs a relay. The first block to prove is the configured start
// block, otherwise the block after the last one proven in the checkpoint,
// otherwise the current chain head. A nil start block means not configured.
func New(ctx context.Context, cfg Config) (*Relay, error) {
	if cfg.Node == nil || cfg.Prover == nil || cfg.Store == nil {
		return nil, errors.New("node, prover and store are required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	epochLength := cfg.EpochLength
	if epochLength == 0 {
		epochLength = ethash.DefaultEpochLength
	}

	var nextBlock uint64
	switch last, proven := cfg.Store.LastProven(); {
	case cfg.StartBlock != nil:
		nextBlock = *cfg.StartBlock

	case proven:
		nextBlock = last + 1

	default:
		num, err := cfg.Node.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading chain head: %w", err)
		}
		nextBlock = num
	}

	ev("relay: new: starting at block[%d]", nextBlock)

	r := Relay{
		node:         cfg.Node,
		prover:       cfg.Prover,
		store:        cfg.Store,
		epochLength:  epochLength,
		persistEvery: cfg.PersistEvery,
		evHandler:    ev,
		nextBlock:    nextBlock,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the relay.

	return &r, nil
}

// Shutdown cleanly brings the relay down.
func (r *Relay) Shutdown() error {

	// Make sure the checkpoint is written and the storage is closed.
	defer func() {
		if err := r.store.Close(); err != nil {
			r.evHandler("relay: shutdown: close store: ERROR: %s", err)
		}
	}()

	// Stop all relay activity.
	if r.Worker != nil {
		r.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// UpdateHead reads the chain head from the node and records it with its
// epoch in the checkpoint.
func (r *Relay) UpdateHead(ctx context.Context) (Head, error) {
	num, err := r.node.BlockNumber(ctx)
	if err != nil {
		return Head{}, fmt.Errorf("reading chain head: %w", err)
	}

	head := Head{
		Number:         num,
		Epoch:          ethash.Epoch(num, r.epochLength),
		NextEpochBlock: ethash.NextEpochBlock(num, r.epochLength),
		GenerateDAG:    ethash.ShouldGenerateDAG(num, r.epochLength),
	}

	r.store.SetHead(head.Number, head.Epoch)

	r.evHandler("relay: updateHead: block[%d] epoch[%d] nextEpochBlock[%d]", head.Number, head.Epoch, head.NextEpochBlock)

	return head, nil
}

// ProcessNextBlock produces the proof for the next block to relay. It returns
// false when that block is past the chain head and there is nothing to do.
func (r *Relay) ProcessNextBlock(ctx context.Context) (bool, error) {
	latest, err := r.node.BlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("reading chain head: %w", err)
	}

	num := r.NextBlock()
	if num > latest {
		return false, nil
	}

	if r.store.HasProof(num) {
		r.evHandler("relay: processNextBlock: block[%d]: proof exists, skipping", num)
		r.advance(num)
		return true, nil
	}

	blk, err := r.EncodeBlock(ctx, num)
	if err != nil {
		return false, err
	}

	// Headers after London carry fields this codec doesn't encode so their
	// hash can't match.
	if blk.Reported != (common.Hash{}) && blk.Hash != blk.Reported {
		r.evHandler("relay: processNextBlock: block[%d]: hash mismatch: computed[%s] reported[%s]", num, blk.Hash, blk.Reported)
	}

	proof, err := r.prover.Proof(ctx, blk.RLP)
	if err != nil {
		return false, fmt.Errorf("block %d: proof: %w", num, err)
	}

	r.store.AddProof(num, proof)
	r.evHandler("relay: processNextBlock: block[%d]: proof stored", num)

	r.advance(num)

	if r.persistEvery > 0 && num%r.persistEvery == 0 {
		if err := r.store.Persist(); err != nil {
			return true, fmt.Errorf("persisting checkpoint: %w", err)
		}
		r.evHandler("relay: processNextBlock: checkpoint persisted at block[%d]", num)
	}

	return true, nil
}

// GenerateDAG builds the DAG for the specified epoch.
func (r *Relay) GenerateDAG(ctx context.Context, epoch uint64) error {
	return r.prover.GenerateDAG(ctx, epoch)
}

// EncodeBlock fetches the specified block header from the node and encodes it.
func (r *Relay) EncodeBlock(ctx context.Context, number uint64) (Block, error) {
	h, reported, err := r.node.Header(ctx, number)
	if err != nil {
		return Block{}, fmt.Errorf("block %d: %w", number, err)
	}

	rlpHex, err := header.EncodeHex(h)
	if err != nil {
		return Block{}, fmt.Errorf("block %d: encode: %w", number, err)
	}

	hash, err := header.Hash(h)
	if err != nil {
		return Block{}, fmt.Errorf("block %d: hash: %w", number, err)
	}

	blk := Block{
		Header:   h,
		RLP:      rlpHex,
		Hash:     hash,
		Reported: reported,
	}

	return blk, nil
}

// =============================================================================

// Proof returns the proof stored for the specified block.
func (r *Relay) Proof(number uint64) (json.RawMessage, error) {
	return r.store.Proof(number)
}

// NextBlock returns the next block the relay will prove.
func (r *Relay) NextBlock() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.nextBlock
}

// EpochLength returns the number of blocks in an epoch.
func (r *Relay) EpochLength() uint64 {
	return r.epochLength
}

// Status returns the current progress of the relay.
func (r *Relay) Status() Status {
	head, epoch := r.store.Head()

	return Status{
		Head:           head,
		Epoch:          epoch,
		NextBlock:      r.NextBlock(),
		NextEpochBlock: ethash.NextEpochBlock(head, r.epochLength),
		Proofs:         r.store.ProofCount(),
	}
}

// advance moves the relay past the specified block.
func (r *Relay) advance(number uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nextBlock == number {
		r.nextBlock++
	}
}
