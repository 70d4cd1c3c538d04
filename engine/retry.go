package engine

// retryOrReject applies the decode-start / handoff-start retry
// protocol: the caller has already unwound any allocation it made on
// failingGPU before calling this (both capacity checks that land here
// fail atomically, charging nothing, so there is nothing further to
// unwind here). srcGPU is whichever accelerator currently owns the
// request's KV bytes and will be the source of the retried handoff
// (spec.md §4.7).
func (e *Engine) retryOrReject(reqIdx, failingGPU, srcGPU int) {
	req := e.Requests[reqIdx]
	req.RetryCount++
	e.Metrics.RetryAttempts++

	if req.RetryCount <= e.Bundle.MaxAdmissionRetries {
		reservation := e.GPUs[srcGPU].ledger[reqIdx]
		if alt := e.findAlternateGPU(failingGPU, reservation); alt != noGPU {
			e.Metrics.RetrySuccesses++
			delayMs := e.Bundle.HandoffLatencyUs / 1000
			e.schedule(Event{TimeMs: e.Clock + delayMs, Kind: EventHandoffStart, ReqIdx: reqIdx, GPU: alt, SrcGPU: srcGPU})
			return
		}
	}

	req.Status = StatusRejected
	e.Metrics.Rejected++
	e.record(EventReject, reqIdx, failingGPU)
	e.GPUs[srcGPU].freeAll(reqIdx)
	e.tryStartPrefill(failingGPU)
}

// tryDispatchGlobalQueue drains the global fallback queue opportunistically:
// terminal heads are popped silently, a live head that has no eligible
// alternate accelerator stops the scan, and a live head whose capacity
// cannot be secured is left at the front for the next opportunity
// (spec.md §4.7).
func (e *Engine) tryDispatchGlobalQueue() {
	for len(e.globalQueue) > 0 {
		reqIdx := e.globalQueue[0]
		req := e.Requests[reqIdx]
		if req.Status.IsTerminal() {
			e.globalQueue = e.globalQueue[1:]
			continue
		}

		reservation := e.reservationBytes(req)
		alt := e.findAlternateGPU(noGPU, reservation)
		if alt == noGPU {
			return
		}
		if !e.ensureCapacityFor(e.GPUs[alt], reqIdx, reservation) {
			return
		}

		e.globalQueue = e.globalQueue[1:]
		e.admitRequestToGPU(reqIdx, alt, reservation)
	}
}
