package engine

// reservationBytes computes the KV-cache byte reservation for a request:
// prompt tokens always count, generated tokens only under SafeReservation
// (spec.md §4.4).
func (e *Engine) reservationBytes(req *Request) uint64 {
	tokens := req.PromptTokens
	if e.Bundle.SafeReservation {
		tokens += req.GenTokens
	}
	if tokens < 0 {
		tokens = 0
	}
	return uint64(tokens) * e.Bundle.KVBytesPerToken
}

// ensureCapacityFor reports whether gpu can accommodate an additional
// reservation of bytes, evicting victims first if the MemoryPressure
// policy is Evict. It never evicts reqIdx itself. Returns false if the
// reservation cannot be made to fit.
func (e *Engine) ensureCapacityFor(gpu *AcceleratorState, reqIdx int, bytes uint64) bool {
	if fits(gpu, bytes) {
		return true
	}
	if e.Bundle.MemoryPressure != MemoryPressureEvict {
		return false
	}
	for !fits(gpu, bytes) {
		victim := e.evictOne(gpu, reqIdx)
		if victim < 0 {
			return false
		}
	}
	return true
}

func fits(gpu *AcceleratorState, bytes uint64) bool {
	return gpu.BytesUsed+bytes <= gpu.Cfg.VRAMBytes
}

// evictOne picks a victim on gpu per the configured EvictionPolicy,
// frees its held bytes, marks it Evicted, and returns its index. It
// never picks protect (the request currently being admitted) or a
// request already in a terminal state. Returns -1 if no victim exists.
func (e *Engine) evictOne(gpu *AcceleratorState, protect int) int {
	var victim int
	switch e.Bundle.Eviction {
	case EvictionLRU:
		victim = e.popLRUVictim(gpu, protect)
	default:
		victim = e.popFIFOVictim(gpu, protect)
	}
	if victim < 0 {
		return -1
	}

	req := e.Requests[victim]
	gpu.freeAll(victim)
	gpu.removeFromPrefillWait(victim)
	gpu.lru.remove(victim)
	switch req.Status {
	case StatusPrefill:
		gpu.ActivePrefill--
	case StatusDecode:
		gpu.ActiveDecode--
	}
	req.Status = StatusEvicted
	e.Metrics.Evicted++
	gpuIdx := gpuIndexOf(e.GPUs, gpu)
	e.record(EventEvict, victim, gpuIdx)
	e.tryStartPrefill(gpuIdx)
	return victim
}

// popFIFOVictim pops from the head of the insertion-order eviction
// queue, lazily skipping entries that are already terminal or that
// hold no bytes on this accelerator (spec.md §4.4). Apart from the eager
// removal on Finish, stale entries stay in the queue until they reach
// the head, where they are popped and dropped.
func (e *Engine) popFIFOVictim(gpu *AcceleratorState, protect int) int {
	for len(gpu.evictQueue) > 0 {
		candidate := gpu.evictQueue[0]
		gpu.evictQueue = gpu.evictQueue[1:]
		if candidate == protect {
			continue
		}
		if e.Requests[candidate].Status.IsTerminal() {
			continue
		}
		if gpu.ledger[candidate] == 0 {
			continue
		}
		return candidate
	}
	return -1
}

func (e *Engine) popLRUVictim(gpu *AcceleratorState, protect int) int {
	for {
		candidate := gpu.lru.popTail()
		if candidate < 0 {
			return -1
		}
		if candidate == protect {
			continue
		}
		if e.Requests[candidate].Status.IsTerminal() {
			continue
		}
		if gpu.ledger[candidate] == 0 {
			continue
		}
		return candidate
	}
}

func gpuIndexOf(gpus []*AcceleratorState, target *AcceleratorState) int {
	for i, g := range gpus {
		if g == target {
			return i
		}
	}
	return noGPU
}
