package engine

// tryStartPrefill pulls the next eligible request off gpu's prefill wait
// list into a freed concurrency slot, if one exists (spec.md §4.4/§4.5).
func (e *Engine) tryStartPrefill(gpuIdx int) {
	gpu := e.GPUs[gpuIdx]
	if gpu.ActivePrefill+gpu.ActiveDecode >= gpu.Cfg.MaxConcurrent {
		return
	}
	if len(gpu.prefillWait) == 0 {
		return
	}
	reqIdx := e.popNextFromWaitList(gpu)
	gpu.ActivePrefill++
	e.schedule(Event{TimeMs: e.Clock, Kind: EventStartPrefill, ReqIdx: reqIdx, GPU: gpuIdx, SrcGPU: noGPU})
}

// popNextFromWaitList removes and returns the next index per the
// scheduling mode: FIFO pops the front, ShortestRemaining pops the
// entry minimizing prompt_tokens+gen_tokens (spec.md §4.5).
func (e *Engine) popNextFromWaitList(gpu *AcceleratorState) int {
	if e.Bundle.Scheduling == SchedulingShortestRemaining {
		bestPos, bestSum := 0, -1
		for i, idx := range gpu.prefillWait {
			req := e.Requests[idx]
			sum := req.PromptTokens + req.GenTokens
			if bestSum == -1 || sum < bestSum {
				bestPos, bestSum = i, sum
			}
		}
		idx := gpu.prefillWait[bestPos]
		gpu.prefillWait = append(gpu.prefillWait[:bestPos], gpu.prefillWait[bestPos+1:]...)
		return idx
	}
	idx := gpu.prefillWait[0]
	gpu.prefillWait = gpu.prefillWait[1:]
	return idx
}

// handleStartPrefill transitions a request into Prefill, or if it went
// terminal while waiting (lazy skip), gives back the pre-incremented
// slot and tries to draw another (spec.md §4.5).
func (e *Engine) handleStartPrefill(ev Event) {
	reqIdx := ev.ReqIdx
	req := e.Requests[reqIdx]
	gpuIdx := ev.GPU
	gpu := e.GPUs[gpuIdx]

	if req.Status.IsTerminal() {
		decrementClamped(&gpu.ActivePrefill)
		e.tryStartPrefill(gpuIdx)
		return
	}

	req.Status = StatusPrefill
	req.StartPrefillMs = e.Clock
	req.PrefillGPU = gpuIdx
	gpu.lru.touch(reqIdx)
	e.record(EventStartPrefill, reqIdx, gpuIdx)

	durationMs := 1000 * float64(req.PromptTokens) / gpu.Cfg.PrefillTPS
	e.schedule(Event{TimeMs: e.Clock + durationMs, Kind: EventStartDecode, ReqIdx: reqIdx, GPU: gpuIdx, SrcGPU: noGPU})
}

// handleStartDecode consumes the prefill slot, routes the decode phase
// to a local or remote accelerator, and either transitions directly to
// Decode or kicks off the handoff pipeline (spec.md §4.5/§4.6).
func (e *Engine) handleStartDecode(ev Event) {
	reqIdx := ev.ReqIdx
	req := e.Requests[reqIdx]
	if req.Status.IsTerminal() {
		return
	}
	prefillGPU := ev.GPU
	decrementClamped(&e.GPUs[prefillGPU].ActivePrefill)

	decodeGPU := e.routeDecode(prefillGPU, req)
	if decodeGPU == prefillGPU {
		e.startLocalDecode(reqIdx, prefillGPU)
		return
	}

	delayMs := e.Bundle.HandoffLatencyUs / 1000
	e.schedule(Event{TimeMs: e.Clock + delayMs, Kind: EventHandoffStart, ReqIdx: reqIdx, GPU: decodeGPU, SrcGPU: prefillGPU})
	e.tryStartPrefill(prefillGPU)
}

// startLocalDecode handles the case where route_decode keeps the
// request on its prefill accelerator: increment active_decode, and
// under an unsafe reservation secure the gen-token bytes now.
func (e *Engine) startLocalDecode(reqIdx, gpuIdx int) {
	req := e.Requests[reqIdx]
	gpu := e.GPUs[gpuIdx]

	gpu.ActiveDecode++
	req.Status = StatusDecode
	req.StartDecodeMs = e.Clock
	req.DecodeGPU = gpuIdx

	if !e.Bundle.SafeReservation {
		reservation := uint64(req.GenTokens) * e.Bundle.KVBytesPerToken
		if !e.ensureCapacityFor(gpu, reqIdx, reservation) {
			decrementClamped(&gpu.ActiveDecode)
			e.retryOrReject(reqIdx, gpuIdx, gpuIdx)
			return
		}
		gpu.charge(reqIdx, reservation)
	}

	gpu.lru.touch(reqIdx)
	e.record(EventStartDecode, reqIdx, gpuIdx)
	duration := e.decodeDurationMs(gpu, req)
	e.schedule(Event{TimeMs: e.Clock + duration, Kind: EventFinish, ReqIdx: reqIdx, GPU: gpuIdx, SrcGPU: noGPU})
}

// decodeDurationMs models multiplicative slowdown with concurrent
// decoders, capped by decode_sharing_cap, using the active_decode count
// observed at the moment decode starts -- a snapshot, not a
// continuously integrated rate (spec.md §4.5).
func (e *Engine) decodeDurationMs(gpu *AcceleratorState, req *Request) float64 {
	share := clampInt(gpu.ActiveDecode, 1, gpu.Cfg.DecodeSharingCap)
	effectiveTPS := gpu.Cfg.DecodeTPS * gpu.Cfg.DecodeEfficiency / float64(share)
	return 1000 * float64(req.GenTokens) / effectiveTPS
}

// handleFinish completes a request's lifecycle: release its ledger,
// update terminal and extended metrics, and give the freed slot and any
// globally queued work a chance to progress (spec.md §4.5).
func (e *Engine) handleFinish(ev Event) {
	reqIdx := ev.ReqIdx
	req := e.Requests[reqIdx]
	if req.Status.IsTerminal() {
		return
	}
	gpuIdx := ev.GPU
	gpu := e.GPUs[gpuIdx]

	decrementClamped(&gpu.ActiveDecode)
	req.Status = StatusFinished
	req.FinishMs = e.Clock

	e.Metrics.Finished++
	e.Metrics.TotalTokensGenerated += uint64(req.GenTokens)
	gpu.TokensGenerated += uint64(req.GenTokens)
	gpu.RequestsFinished++
	e.Metrics.TokensPerGPU[gpuIdx] += uint64(req.GenTokens)
	e.Metrics.RequestsFinishedPerGPU[gpuIdx]++
	if req.PrefillGPU != req.DecodeGPU {
		e.Metrics.CrossGPUDecodes++
	}
	e.record(EventFinish, reqIdx, gpuIdx)

	gpu.freeAll(reqIdx)
	gpu.lru.remove(reqIdx)
	gpu.removeFromEvictQueue(reqIdx)
	if gpu.PeakBytesUsed > e.Metrics.PeakVRAMPerGPU[gpuIdx] {
		e.Metrics.PeakVRAMPerGPU[gpuIdx] = gpu.PeakBytesUsed
	}

	e.tryStartPrefill(gpuIdx)
	e.tryDispatchGlobalQueue()
}

func decrementClamped(counter *int) {
	if *counter > 0 {
		*counter--
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
