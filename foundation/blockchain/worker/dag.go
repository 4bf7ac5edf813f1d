package worker

import "time"

// dagOperations handles generating DAGs. Only this G generates so a single
// generation runs at a time.
func (w *Worker) dagOperations() {
	w.evHandler("worker: dagOperations: G started")
	defer w.evHandler("worker: dagOperations: G completed")

	var (
		generated bool
		lastEpoch uint64
	)

	for {
		select {
		case epoch := <-w.generateDAG:
			if w.isShutdown() {
				continue
			}

			if generated && epoch <= lastEpoch {
				w.evHandler("worker: dagOperations: epoch[%d]: already generated", epoch)
				continue
			}

			if w.runDAGOperation(epoch) {
				generated = true
				lastEpoch = epoch
			}

		case <-w.shut:
			w.evHandler("worker: dagOperations: received shut signal")
			return
		}
	}
}

// runDAGOperation generates the DAG for the specified epoch and reports if
// the generation succeeded.
func (w *Worker) runDAGOperation(epoch uint64) bool {
	w.evHandler("worker: runDAGOperation: epoch[%d]: started", epoch)
	defer w.evHandler("worker: runDAGOperation: epoch[%d]: completed", epoch)

	t := time.Now()
	err := w.relay.GenerateDAG(w.ctx, epoch)
	duration := time.Since(t)

	w.evHandler("worker: runDAGOperation: epoch[%d]: duration[%v]", epoch, duration)

	if err != nil {
		switch {
		case w.ctx.Err() != nil:
			w.evHandler("worker: runDAGOperation: epoch[%d]: CANCEL: complete", epoch)
		default:
			w.evHandler("worker: runDAGOperation: epoch[%d]: ERROR: %s", epoch, err)
		}
		return false
	}

	return true
}
