package worker

// headOperations handles following the chain head.
func (w *Worker) headOperations() {
	w.evHandler("worker: headOperations: G started")
	defer w.evHandler("worker: headOperations: G completed")

	for {
		select {
		case <-w.headTicker.C:
			if !w.isShutdown() {
				w.runHeadOperation()
			}
		case <-w.shut:
			w.evHandler("worker: headOperations: received shut signal")
			return
		}
	}
}

// runHeadOperation records the chain head and asks for the DAG of the next
// epoch once the head is past the halfway point of the current one.
func (w *Worker) runHeadOperation() {
	w.evHandler("worker: runHeadOperation: started")
	defer w.evHandler("worker: runHeadOperation: completed")

	head, err := w.relay.UpdateHead(w.ctx)
	if err != nil {
		w.evHandler("worker: runHeadOperation: ERROR: %s", err)
		return
	}

	if head.GenerateDAG {
		w.SignalGenerateDAG(head.Epoch + 1)
	}
}
