package engine

// handleArrival admits a new request: pick a primary accelerator, fall
// back to an alternate or the global queue if the primary is not
// eligible, then secure capacity and either start prefill immediately
// or enqueue (spec.md §4.3).
func (e *Engine) handleArrival(ev Event) {
	reqIdx := ev.ReqIdx
	req := e.Requests[reqIdx]
	reservation := e.reservationBytes(req)

	primary := e.selectPrimaryGPU()
	chosen := primary
	if !e.queueEligible(e.GPUs[primary]) || !e.capacityEligible(e.GPUs[primary], reservation) {
		chosen = e.findAlternateGPU(primary, reservation)
	}
	if chosen == noGPU {
		if !e.canEverFit(reservation) {
			e.rejectRequest(reqIdx, noGPU)
			return
		}
		e.pushGlobalQueue(reqIdx)
		return
	}

	gpu := e.GPUs[chosen]
	if !e.ensureCapacityFor(gpu, reqIdx, reservation) {
		e.rejectRequest(reqIdx, noGPU)
		return
	}
	e.admitRequestToGPU(reqIdx, chosen, reservation)
}

// queueEligible reports whether gpu has room under the policy's
// per-accelerator max-queue depth (waiting + active, not VRAM capacity).
func (e *Engine) queueEligible(gpu *AcceleratorState) bool {
	return len(gpu.prefillWait)+gpu.ActivePrefill+gpu.ActiveDecode < e.Bundle.MaxQueue
}

// capacityEligible reports whether gpu can be considered a candidate
// for reservation bytes without yet running eviction: under Reject it
// must already fit; under Evict the real decision is deferred to
// ensure_capacity_for once an accelerator is actually chosen (spec.md
// §4.3/§4.4).
func (e *Engine) capacityEligible(gpu *AcceleratorState, reservation uint64) bool {
	if e.Bundle.MemoryPressure == MemoryPressureEvict {
		return true
	}
	return fits(gpu, reservation)
}

// findAlternateGPU scans every accelerator other than exclude, filters
// by queue eligibility and capacity eligibility, and returns the one
// with the lowest load score. Returns noGPU if none qualify.
func (e *Engine) findAlternateGPU(exclude int, reservation uint64) int {
	best := noGPU
	bestScore := 0
	for i, gpu := range e.GPUs {
		if i == exclude {
			continue
		}
		if !e.queueEligible(gpu) || !e.capacityEligible(gpu, reservation) {
			continue
		}
		score := gpu.loadScore()
		if best == noGPU || score < bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// admitRequestToGPU charges the reservation, marks the request Queued,
// registers it with the eviction tracking structures, and either
// pre-increments active_prefill and schedules StartPrefill now, or
// appends it to the accelerator's prefill wait list.
//
// Both the FIFO eviction queue and the LRU recency list are maintained
// from admission time regardless of which EvictionPolicy is active, so
// a request waiting in the prefill queue is already evictable under
// either policy; StartPrefill additionally touches LRU to refresh
// recency once compute actually starts.
func (e *Engine) admitRequestToGPU(reqIdx int, gpuIdx int, reservation uint64) {
	gpu := e.GPUs[gpuIdx]
	gpu.charge(reqIdx, reservation)

	req := e.Requests[reqIdx]
	req.Status = StatusQueued
	gpu.appendEvictQueue(reqIdx)
	gpu.lru.touch(reqIdx)

	if gpu.ActivePrefill+gpu.ActiveDecode < gpu.Cfg.MaxConcurrent {
		gpu.ActivePrefill++
		e.schedule(Event{TimeMs: e.Clock, Kind: EventStartPrefill, ReqIdx: reqIdx, GPU: gpuIdx, SrcGPU: noGPU})
		return
	}
	gpu.enqueuePrefillWait(reqIdx)
}

// canEverFit reports whether reservation could fit on some accelerator's
// raw capacity, evictions notwithstanding. A request that could never
// fit anywhere is rejected immediately rather than parked in the global
// queue forever waiting for an opportunity that will never come.
func (e *Engine) canEverFit(reservation uint64) bool {
	for _, gpu := range e.GPUs {
		if reservation <= gpu.Cfg.VRAMBytes {
			return true
		}
	}
	return false
}

// rejectRequest marks reqIdx Rejected, counts it, and emits a Reject
// record. gpu is the accelerator the Reject is attributed to, or noGPU
// if the request never reached one (e.g. no eligible accelerator and an
// empty global queue fallback never applied).
func (e *Engine) rejectRequest(reqIdx int, gpu int) {
	req := e.Requests[reqIdx]
	req.Status = StatusRejected
	e.Metrics.Rejected++
	e.record(EventReject, reqIdx, gpu)
}
