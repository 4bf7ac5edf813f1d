// Package worker implements following the chain head, proof production and
// DAG generation for the relay.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/relay"
)

// Default intervals used when none are provided.
const (
	defaultPollingDelay  = 10 * time.Minute
	defaultProofInterval = 3 * time.Second
)

// =============================================================================

// Worker manages the background workflows for the relay.
type Worker struct {
	relay       *relay.Relay
	wg          sync.WaitGroup
	headTicker  *time.Ticker
	proofTicker *time.Ticker
	shut        chan struct{}
	generateDAG chan uint64
	ctx         context.Context
	cancel      context.CancelFunc
	evHandler   relay.EventHandler
}

// Run creates a worker, registers the worker with the relay package, and
// starts up all the background processes.
func Run(r *relay.Relay, pollingDelay time.Duration, proofInterval time.Duration, evHandler relay.EventHandler) {
	if pollingDelay <= 0 {
		pollingDelay = defaultPollingDelay
	}
	if proofInterval <= 0 {
		proofInterval = defaultProofInterval
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		relay:       r,
		headTicker:  time.NewTicker(pollingDelay),
		proofTicker: time.NewTicker(proofInterval),
		shut:        make(chan struct{}),
		generateDAG: make(chan uint64, 1),
		ctx:         ctx,
		cancel:      cancel,
		evHandler:   ev,
	}

	// Register this worker with the relay package.
	r.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.headOperations,
		w.proofOperations,
		w.dagOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	// Learn the chain head now instead of waiting a full polling delay.
	w.runHeadOperation()
}

// =============================================================================
// These methods implement the relay.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop tickers")
	w.headTicker.Stop()
	w.proofTicker.Stop()

	w.evHandler("worker: shutdown: cancel running operations")
	w.cancel()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalGenerateDAG requests the DAG for the specified epoch. If a signal is
// already pending, this one is dropped since only one DAG is generated at
// a time.
func (w *Worker) SignalGenerateDAG(epoch uint64) {
	select {
	case w.generateDAG <- epoch:
		w.evHandler("worker: SignalGenerateDAG: epoch[%d] signaled", epoch)
	default:
		w.evHandler("worker: SignalGenerateDAG: epoch[%d]: generation already pending", epoch)
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
