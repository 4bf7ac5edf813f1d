package worker

// proofOperations handles producing proofs for new blocks.
func (w *Worker) proofOperations() {
	w.evHandler("worker: proofOperations: G started")
	defer w.evHandler("worker: proofOperations: G completed")

	for {
		select {
		case <-w.proofTicker.C:
			if !w.isShutdown() {
				w.runProofOperation()
			}
		case <-w.shut:
			w.evHandler("worker: proofOperations: received shut signal")
			return
		}
	}
}

// runProofOperation proves the next block if the chain has reached it.
func (w *Worker) runProofOperation() {
	worked, err := w.relay.ProcessNextBlock(w.ctx)
	if err != nil {
		if w.ctx.Err() != nil {
			return
		}
		w.evHandler("worker: runProofOperation: block[%d]: ERROR: %s", w.relay.NextBlock(), err)
		return
	}

	if !worked {
		w.evHandler("worker: runProofOperation: waiting for block[%d]", w.relay.NextBlock())
	}
}
