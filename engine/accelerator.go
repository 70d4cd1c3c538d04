package engine

// AcceleratorConfig is the immutable per-accelerator hardware profile
// (spec.md §3).
type AcceleratorConfig struct {
	VRAMBytes         uint64
	MaxConcurrent     int
	PrefillTPS        float64
	DecodeTPS         float64
	DecodeSharingCap  int
	DecodeEfficiency  float64
}

// AcceleratorState is the mutable per-accelerator runtime state.
type AcceleratorState struct {
	Cfg AcceleratorConfig

	BytesUsed     uint64
	ActivePrefill int
	ActiveDecode  int

	prefillWait []int         // FIFO/shortest-remaining wait list of request indices
	evictQueue  []int         // FIFO insertion-order eviction queue
	lru         *lruArena     // LRU recency structure
	ledger      map[int]uint64 // request index -> bytes charged on this accelerator

	PeakBytesUsed uint64
	TokensGenerated uint64
	RequestsFinished int
}

func newAcceleratorState(cfg AcceleratorConfig, numRequests int) *AcceleratorState {
	return &AcceleratorState{
		Cfg:         cfg,
		prefillWait: make([]int, 0),
		evictQueue:  make([]int, 0),
		lru:         newLRUArena(numRequests),
		ledger:      make(map[int]uint64),
	}
}

// loadScore is active_prefill + active_decode + |prefill_queue| (spec.md §4.3).
func (a *AcceleratorState) loadScore() int {
	return a.ActivePrefill + a.ActiveDecode + len(a.prefillWait)
}

// charge adds bytes to the ledger entry for reqIdx and to BytesUsed,
// tracking the peak for extended metrics.
func (a *AcceleratorState) charge(reqIdx int, bytes uint64) {
	a.ledger[reqIdx] += bytes
	a.BytesUsed += bytes
	if a.BytesUsed > a.PeakBytesUsed {
		a.PeakBytesUsed = a.BytesUsed
	}
}

// free releases bytes for reqIdx from the ledger, saturating at zero --
// the defensive clamp spec.md §7.3 calls for against double-free.
func (a *AcceleratorState) free(reqIdx int, bytes uint64) {
	have := a.ledger[reqIdx]
	if bytes > have {
		bytes = have
	}
	a.ledger[reqIdx] = have - bytes
	if a.ledger[reqIdx] == 0 {
		delete(a.ledger, reqIdx)
	}
	if bytes > a.BytesUsed {
		a.BytesUsed = 0
	} else {
		a.BytesUsed -= bytes
	}
}

// freeAll releases every byte this accelerator holds for reqIdx.
func (a *AcceleratorState) freeAll(reqIdx int) {
	a.free(reqIdx, a.ledger[reqIdx])
}

func (a *AcceleratorState) enqueuePrefillWait(reqIdx int) {
	a.prefillWait = append(a.prefillWait, reqIdx)
}

func (a *AcceleratorState) removeFromPrefillWait(reqIdx int) {
	for i, v := range a.prefillWait {
		if v == reqIdx {
			a.prefillWait = append(a.prefillWait[:i], a.prefillWait[i+1:]...)
			return
		}
	}
}

func (a *AcceleratorState) appendEvictQueue(reqIdx int) {
	a.evictQueue = append(a.evictQueue, reqIdx)
}

// removeFromEvictQueue eagerly removes reqIdx from the FIFO eviction
// queue, called from Finish (spec.md §4.5) so a finished request is
// never considered even by the lazy-skip path in popFIFOVictim.
func (a *AcceleratorState) removeFromEvictQueue(reqIdx int) {
	for i, v := range a.evictQueue {
		if v == reqIdx {
			a.evictQueue = append(a.evictQueue[:i], a.evictQueue[i+1:]...)
			return
		}
	}
}
