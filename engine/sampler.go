package engine

// Sample is a periodic (or tail) time-series observation (spec.md §4.8).
type Sample struct {
	TimeMs            float64
	VRAMUsed          uint64
	ActivePrefill     int
	ActiveDecode      int
	PrefillQueueDepth int
	GlobalQueueDepth  int
	PerGPUVRAM        []uint64

	TokensGeneratedDelta uint64
	RejectsDelta         uint64
}

// sampleUntil emits one sample per grid point <= targetMs, then a tail
// sample at targetMs if the last emitted sample did not already land
// there. No two samples share a timestamp: when targetMs falls exactly on
// a grid point, the grid sample there stands in for the tail sample.
func (e *Engine) sampleUntil(targetMs float64) {
	for e.nextSampleMs <= targetMs {
		e.emitSample(e.nextSampleMs)
		e.nextSampleMs += e.Bundle.TimeseriesDtMs
	}
	if len(e.Samples) == 0 || e.Samples[len(e.Samples)-1].TimeMs < targetMs {
		e.emitSample(targetMs)
	}
}

func (e *Engine) emitSample(timeMs float64) {
	s := Sample{
		TimeMs:     timeMs,
		PerGPUVRAM: make([]uint64, len(e.GPUs)),
	}
	for i, gpu := range e.GPUs {
		s.VRAMUsed += gpu.BytesUsed
		s.ActivePrefill += gpu.ActivePrefill
		s.ActiveDecode += gpu.ActiveDecode
		s.PrefillQueueDepth += len(gpu.prefillWait)
		s.PerGPUVRAM[i] = gpu.BytesUsed
	}
	s.GlobalQueueDepth = len(e.globalQueue)
	s.TokensGeneratedDelta = e.Metrics.TotalTokensGenerated - e.lastTokensSampled
	s.RejectsDelta = uint64(e.Metrics.Rejected) - e.lastRejectsSampled
	e.Samples = append(e.Samples, s)
	e.lastTokensSampled = e.Metrics.TotalTokensGenerated
	e.lastRejectsSampled = uint64(e.Metrics.Rejected)
}
