package engine

import "fmt"

// Engine is the discrete-event simulation core. It owns the event queue,
// the per-accelerator state, the request table, and every counter the
// spec asks for. Run is cooperative and single-threaded: the only
// scheduler is the virtual-time event queue (spec.md §5).
type Engine struct {
	Bundle   PolicyBundle
	Topology *Topology
	GPUs     []*AcceleratorState
	Requests []*Request

	queue *EventHeap
	Clock float64
	RNG   *RNG

	globalQueue         []int
	roundRobinNext      int

	Metrics  *Metrics
	EventLog []EventRecord
	Samples  []Sample

	nextSampleMs      float64
	lastTokensSampled uint64
	lastRejectsSampled uint64
}

// NewEngine builds an Engine for the given accelerator configs, topology
// links, policy bundle, and request trace. The RNG is constructed from
// bundle.Seed and injected, never a package-global (spec.md §9).
func NewEngine(bundle PolicyBundle, gpuConfigs []AcceleratorConfig, links []LinkSpec, specs []RequestSpec) (*Engine, error) {
	if len(gpuConfigs) == 0 {
		return nil, fmt.Errorf("at least one accelerator is required")
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	numRequests := len(specs)
	requests := make([]*Request, numRequests)
	for i, spec := range specs {
		requests[i] = newRequest(i, spec)
	}

	gpus := make([]*AcceleratorState, len(gpuConfigs))
	for i, cfg := range gpuConfigs {
		gpus[i] = newAcceleratorState(cfg, numRequests)
	}

	topo := NewTopology(len(gpuConfigs), bundle.DefaultLinkBandwidthGbps, bundle.DefaultLinkLatencyMs, links)

	e := &Engine{
		Bundle:       bundle,
		Topology:     topo,
		GPUs:         gpus,
		Requests:     requests,
		queue:        NewEventHeap(),
		RNG:          NewRNG(bundle.Seed),
		Metrics:      newMetrics(len(gpuConfigs)),
		nextSampleMs: bundle.TimeseriesDtMs,
	}

	for i, req := range requests {
		e.queue.Schedule(Event{TimeMs: req.ArrivalTimeMs, Kind: EventArrival, ReqIdx: i, GPU: noGPU, SrcGPU: noGPU})
	}
	return e, nil
}

// Run drains the event queue, interleaving periodic sampling, and
// returns the final Metrics.
func (e *Engine) Run() *Metrics {
	e.sampleUntil(0)
	for {
		ev, ok := e.queue.PopNext()
		if !ok {
			break
		}
		e.Clock = ev.TimeMs
		e.handleEvent(ev)
		e.sampleUntil(e.Clock)
	}
	e.Metrics.MakespanMs = e.Clock
	return e.Metrics
}

// pushGlobalQueue appends reqIdx to the global fallback queue and updates
// the running high-water mark.
func (e *Engine) pushGlobalQueue(reqIdx int) {
	e.globalQueue = append(e.globalQueue, reqIdx)
	if len(e.globalQueue) > e.Metrics.MaxGlobalQueueDepth {
		e.Metrics.MaxGlobalQueueDepth = len(e.globalQueue)
	}
	e.record(EventEnqueue, reqIdx, noGPU)
}

// popGlobalQueue removes and returns the head of the global fallback
// queue, or -1 if it is empty.
func (e *Engine) popGlobalQueue() int {
	if len(e.globalQueue) == 0 {
		return -1
	}
	idx := e.globalQueue[0]
	e.globalQueue = e.globalQueue[1:]
	return idx
}

// schedule inserts ev into the queue. Inserting at a time strictly
// before the current clock would violate monotonic dispatch order
// (spec.md §3 invariant); the engine never does this itself, and a
// caller doing so is a programming error worth surfacing loudly rather
// than silently reordering history.
func (e *Engine) schedule(ev Event) {
	if ev.TimeMs < e.Clock {
		panic(fmt.Sprintf("schedule: event time %f precedes clock %f", ev.TimeMs, e.Clock))
	}
	e.queue.Schedule(ev)
}

func (e *Engine) record(kind EventKind, reqIdx int, gpu int) {
	e.EventLog = append(e.EventLog, EventRecord{
		TimeMs:    e.Clock,
		Kind:      kind,
		RequestID: e.Requests[reqIdx].ID,
		GPU:       gpu,
	})
}

func (e *Engine) handleEvent(ev Event) {
	switch ev.Kind {
	case EventArrival:
		e.handleArrival(ev)
	case EventStartPrefill:
		e.handleStartPrefill(ev)
	case EventStartDecode:
		e.handleStartDecode(ev)
	case EventHandoffStart:
		e.handleHandoffStart(ev)
	case EventHandoffComplete:
		e.handleHandoffComplete(ev)
	case EventFinish:
		e.handleFinish(ev)
	default:
		// Enqueue/Reject/Evict are log-only kinds, never scheduled.
	}
}
