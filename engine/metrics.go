package engine

// EventRecord is a logged occurrence, emitted for the external event-log
// collaborator (spec.md §6). Distinct from Event: an Event is a pending
// action in the heap, an EventRecord is a completed one in the log.
type EventRecord struct {
	TimeMs    float64
	Kind      EventKind
	RequestID string
	GPU       int
}

// Metrics holds the terminal counters and extended metrics spec.md §6
// asks the engine to produce.
type Metrics struct {
	Finished int
	Rejected int
	Evicted  int

	MakespanMs          float64
	TotalTokensGenerated uint64

	RetryAttempts       int
	RetrySuccesses      int
	HandoffsTotal       int
	CrossGPUDecodes     int
	MaxGlobalQueueDepth int

	PeakVRAMPerGPU         []uint64
	TokensPerGPU           []uint64
	RequestsFinishedPerGPU []int
}

func newMetrics(numGPUs int) *Metrics {
	return &Metrics{
		PeakVRAMPerGPU:         make([]uint64, numGPUs),
		TokensPerGPU:           make([]uint64, numGPUs),
		RequestsFinishedPerGPU: make([]int, numGPUs),
	}
}
