package engine

import "math"

// routeDecode picks the decode-phase accelerator for req given the
// accelerator it just finished prefill on: with a single accelerator it
// always stays local; otherwise every accelerator that can fit the
// full prompt+gen reservation is scored by load plus a handoff-cost
// term, and the minimum wins. If nothing fits, the request stays on
// prefillGPU (spec.md §4.6).
func (e *Engine) routeDecode(prefillGPU int, req *Request) int {
	if len(e.GPUs) == 1 {
		return prefillGPU
	}
	reservation := uint64(req.PromptTokens+req.GenTokens) * e.Bundle.KVBytesPerToken

	best := noGPU
	bestScore := math.Inf(1)
	for i, gpu := range e.GPUs {
		if !fits(gpu, reservation) {
			continue
		}
		score := float64(gpu.loadScore()) + e.Bundle.HandoffCostWeight*e.estimateHandoffMs(prefillGPU, i, req)
		if score < bestScore {
			best, bestScore = i, score
		}
	}
	if best == noGPU {
		return prefillGPU
	}
	return best
}

// estimateHandoffMs is zero on the diagonal; otherwise latency plus a
// bandwidth-bound transfer term. Bandwidth is expressed in GB/s and
// bytes are byte counts, hence the 1e6 divisor (spec.md §4.6) -- this
// numeric convention is preserved exactly rather than normalized to
// bytes/sec.
func (e *Engine) estimateHandoffMs(src, dest int, req *Request) float64 {
	if src == dest {
		return 0
	}
	bytes := float64(req.PromptTokens+req.GenTokens) * float64(e.Bundle.KVBytesPerToken)
	bandwidth := e.Topology.Bandwidth(src, dest)
	latency := e.Topology.Latency(src, dest)
	return latency + bytes/(bandwidth*1e6)
}

// handleHandoffStart secures capacity for the in-flight KV bytes on the
// destination; on failure it applies the retry protocol, on success the
// request is doubly charged (source still owns its copy until
// HandoffComplete) while the transfer is modeled (spec.md §4.6).
func (e *Engine) handleHandoffStart(ev Event) {
	reqIdx := ev.ReqIdx
	req := e.Requests[reqIdx]
	if req.Status.IsTerminal() {
		return
	}
	src, dest := ev.SrcGPU, ev.GPU
	bytesToCopy := e.GPUs[src].ledger[reqIdx]

	if !e.ensureCapacityFor(e.GPUs[dest], reqIdx, bytesToCopy) {
		e.retryOrReject(reqIdx, dest, src)
		return
	}

	e.GPUs[dest].charge(reqIdx, bytesToCopy)
	e.Metrics.HandoffsTotal++
	e.record(EventHandoffStart, reqIdx, dest)

	transferMs := e.estimateHandoffMs(src, dest, req)
	e.schedule(Event{TimeMs: e.Clock + transferMs, Kind: EventHandoffComplete, ReqIdx: reqIdx, GPU: dest, SrcGPU: src})
}

// handleHandoffComplete finishes the ownership transfer: the source
// ledger is released, an unsafe reservation is topped up with the
// gen-token allocation on the destination, and the request transitions
// into Decode there (spec.md §4.6).
func (e *Engine) handleHandoffComplete(ev Event) {
	reqIdx := ev.ReqIdx
	req := e.Requests[reqIdx]
	if req.Status.IsTerminal() {
		return
	}
	src, dest := ev.SrcGPU, ev.GPU
	e.GPUs[src].freeAll(reqIdx)
	destGPU := e.GPUs[dest]
	e.record(EventHandoffComplete, reqIdx, dest)

	if !e.Bundle.SafeReservation {
		reservation := uint64(req.GenTokens) * e.Bundle.KVBytesPerToken
		if !e.ensureCapacityFor(destGPU, reqIdx, reservation) {
			req.Status = StatusRejected
			e.Metrics.Rejected++
			e.record(EventReject, reqIdx, dest)
			destGPU.freeAll(reqIdx)
			return
		}
		destGPU.charge(reqIdx, reservation)
	}

	req.Status = StatusDecode
	req.DecodeGPU = dest
	req.StartDecodeMs = e.Clock
	destGPU.ActiveDecode++
	destGPU.lru.touch(reqIdx)
	e.record(EventStartDecode, reqIdx, dest)

	duration := e.decodeDurationMs(destGPU, req)
	e.schedule(Event{TimeMs: e.Clock + duration, Kind: EventFinish, ReqIdx: reqIdx, GPU: dest, SrcGPU: noGPU})
}
