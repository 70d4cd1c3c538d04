package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func singleGPUBundle(kvBytesPerToken uint64, safeReservation bool) PolicyBundle {
	b := DefaultPolicyBundle()
	b.KVBytesPerToken = kvBytesPerToken
	b.SafeReservation = safeReservation
	b.Seed = 1
	return b
}

// TestEngine_SingleAccelerator_TwoBackToBackArrivals is scenario 1: both
// requests reach Finished with start/finish times computable directly
// from the prefill and decode duration formulas.
func TestEngine_SingleAccelerator_TwoBackToBackArrivals(t *testing.T) {
	cfg := AcceleratorConfig{
		VRAMBytes:        8 * 1024 * 1024 * 1024,
		MaxConcurrent:    2,
		PrefillTPS:       1000,
		DecodeTPS:        500,
		DecodeSharingCap: 8,
		DecodeEfficiency: 0.8,
	}
	bundle := singleGPUBundle(2048, true)
	specs := []RequestSpec{
		{ID: "req1", ArrivalTimeMs: 0, PromptTokens: 200, GenTokens: 400},
		{ID: "req2", ArrivalTimeMs: 50, PromptTokens: 150, GenTokens: 300},
	}

	eng, err := NewEngine(bundle, []AcceleratorConfig{cfg}, nil, specs)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	metrics := eng.Run()

	assert.Equal(t, 2, metrics.Finished)
	assert.Equal(t, 0, metrics.Rejected)
	assert.Equal(t, uint64(700), metrics.TotalTokensGenerated)

	req1, req2 := eng.Requests[0], eng.Requests[1]
	if req1.Status != StatusFinished || req2.Status != StatusFinished {
		t.Fatalf("expected both requests Finished, got %s and %s", req1.Status, req2.Status)
	}

	if req1.StartPrefillMs != 0 {
		t.Errorf("req1.StartPrefillMs = %v, want 0", req1.StartPrefillMs)
	}
	if req1.StartDecodeMs != 200 {
		t.Errorf("req1.StartDecodeMs = %v, want 200", req1.StartDecodeMs)
	}
	if req1.FinishMs != 1200 {
		t.Errorf("req1.FinishMs = %v, want 1200", req1.FinishMs)
	}

	if req2.StartPrefillMs != 50 {
		t.Errorf("req2.StartPrefillMs = %v, want 50", req2.StartPrefillMs)
	}
	if req2.StartDecodeMs != 200 {
		t.Errorf("req2.StartDecodeMs = %v, want 200", req2.StartDecodeMs)
	}
	if req2.FinishMs != 1700 {
		t.Errorf("req2.FinishMs = %v, want 1700", req2.FinishMs)
	}

	if metrics.MakespanMs != 1700 {
		t.Errorf("MakespanMs = %v, want 1700", metrics.MakespanMs)
	}
}

// TestEngine_CapacityBoundedReject is scenario 2: a single request whose
// reservation exceeds the only accelerator's full capacity is rejected
// on arrival, with no Finish ever recorded.
func TestEngine_CapacityBoundedReject(t *testing.T) {
	cfg := AcceleratorConfig{
		VRAMBytes:        2048 * 100,
		MaxConcurrent:    1,
		PrefillTPS:       1000,
		DecodeTPS:        500,
		DecodeSharingCap: 1,
		DecodeEfficiency: 1,
	}
	bundle := singleGPUBundle(2048, true)
	specs := []RequestSpec{
		{ID: "req1", ArrivalTimeMs: 0, PromptTokens: 1, GenTokens: 100},
	}

	eng, err := NewEngine(bundle, []AcceleratorConfig{cfg}, nil, specs)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	metrics := eng.Run()

	assert.Equal(t, 0, metrics.Finished)
	assert.Equal(t, 1, metrics.Rejected)
	if eng.Requests[0].Status != StatusRejected {
		t.Errorf("Status = %s, want Rejected", eng.Requests[0].Status)
	}

	rejects := 0
	for _, rec := range eng.EventLog {
		if rec.Kind == EventReject {
			rejects++
		}
		if rec.Kind == EventFinish {
			t.Error("no Finish event should be recorded")
		}
	}
	if rejects != 1 {
		t.Errorf("Reject events = %d, want 1", rejects)
	}
}

// TestEngine_LRUEvictionFires is scenario 3: with safe_reservation off,
// three prompt-only reservations exactly fill capacity; the fourth
// arrival evicts the least-recently-touched request.
func TestEngine_LRUEvictionFires(t *testing.T) {
	cfg := AcceleratorConfig{
		VRAMBytes:        2048 * 300,
		MaxConcurrent:    10,
		PrefillTPS:       1,
		DecodeTPS:        1,
		DecodeSharingCap: 10,
		DecodeEfficiency: 1,
	}
	bundle := singleGPUBundle(2048, false)
	bundle.MemoryPressure = MemoryPressureEvict
	bundle.Eviction = EvictionLRU

	specs := []RequestSpec{
		{ID: "req1", ArrivalTimeMs: 0, PromptTokens: 100, GenTokens: 100},
		{ID: "req2", ArrivalTimeMs: 10, PromptTokens: 100, GenTokens: 100},
		{ID: "req3", ArrivalTimeMs: 20, PromptTokens: 100, GenTokens: 100},
		{ID: "req4", ArrivalTimeMs: 25, PromptTokens: 100, GenTokens: 100},
	}

	eng, err := NewEngine(bundle, []AcceleratorConfig{cfg}, nil, specs)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	metrics := eng.Run()

	assert.Equal(t, 1, metrics.Evicted)
	if eng.Requests[0].Status != StatusEvicted {
		t.Errorf("req1.Status = %s, want Evicted", eng.Requests[0].Status)
	}
	for i, id := range []string{"req2", "req3", "req4"} {
		if eng.Requests[i+1].Status.IsTerminal() && eng.Requests[i+1].Status != StatusFinished {
			t.Errorf("%s.Status = %s, want a non-evicted terminal state", id, eng.Requests[i+1].Status)
		}
	}

	// req1 was evicted mid-Prefill (PrefillTPS=1 => a 100000ms prefill
	// duration, far longer than its t=25 eviction time). evictOne must
	// give back its concurrency slot, not just its VRAM bytes, or
	// ActivePrefill stays permanently inflated even after every other
	// request has finished.
	if eng.GPUs[0].ActivePrefill != 0 {
		t.Errorf("GPUs[0].ActivePrefill = %d, want 0 after eviction and all other requests finishing", eng.GPUs[0].ActivePrefill)
	}
}

// TestEngine_EvictOne_FreesConcurrencySlotAndDrawsQueuedWork exercises
// evictOne directly: a victim mid-Prefill is evicted, its slot is freed,
// and a request waiting on the prefill queue is immediately drawn in.
func TestEngine_EvictOne_FreesConcurrencySlotAndDrawsQueuedWork(t *testing.T) {
	cfg := AcceleratorConfig{
		VRAMBytes:        2048 * 100,
		MaxConcurrent:    1,
		PrefillTPS:       1,
		DecodeTPS:        1,
		DecodeSharingCap: 1,
		DecodeEfficiency: 1,
	}
	bundle := singleGPUBundle(2048, false)
	bundle.MemoryPressure = MemoryPressureEvict
	bundle.Eviction = EvictionFIFO

	specs := []RequestSpec{
		{ID: "req1", ArrivalTimeMs: 0, PromptTokens: 50, GenTokens: 50},
		{ID: "req2", ArrivalTimeMs: 1, PromptTokens: 50, GenTokens: 50},
	}
	eng, err := NewEngine(bundle, []AcceleratorConfig{cfg}, nil, specs)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	gpu := eng.GPUs[0]
	// Manually place req1 into Prefill occupying the single concurrency
	// slot, and queue req2 behind it, bypassing the scheduled run so the
	// eviction can be observed in isolation.
	req1 := eng.Requests[0]
	req1.Status = StatusPrefill
	gpu.ActivePrefill = 1
	gpu.charge(0, 2048*50)
	gpu.evictQueue = append(gpu.evictQueue, 0)

	req2 := eng.Requests[1]
	req2.Status = StatusQueued
	gpu.prefillWait = append(gpu.prefillWait, 1)

	victim := eng.evictOne(gpu, -1)
	if victim != 0 {
		t.Fatalf("evictOne() victim = %d, want 0", victim)
	}
	if gpu.ActivePrefill != 1 {
		t.Errorf("ActivePrefill = %d, want 1 (freed by eviction, then immediately re-drawn for req2)", gpu.ActivePrefill)
	}
	if len(gpu.prefillWait) != 0 {
		t.Errorf("prefillWait length = %d, want 0 (req2 drawn into the freed slot)", len(gpu.prefillWait))
	}
	foundStartPrefill := false
	for {
		ev, ok := eng.queue.PopNext()
		if !ok {
			break
		}
		if ev.Kind == EventStartPrefill && ev.ReqIdx == 1 {
			foundStartPrefill = true
		}
	}
	if !foundStartPrefill {
		t.Error("expected a scheduled EventStartPrefill for req2 after the freed slot was drawn")
	}
}

// TestEngine_GlobalQueueDispatch is scenario 5: two full accelerators at
// max_queue force an arrival into the global fallback queue; a Finish
// frees a slot and the queue head is dispatched in the same handler
// pass, returning global-queue depth to zero.
func TestEngine_GlobalQueueDispatch(t *testing.T) {
	cfg := AcceleratorConfig{
		VRAMBytes:        2048 * 1000,
		MaxConcurrent:    1,
		PrefillTPS:       1000,
		DecodeTPS:        1000,
		DecodeSharingCap: 1,
		DecodeEfficiency: 1,
	}
	bundle := singleGPUBundle(2048, true)
	bundle.MaxQueue = 1
	// RoutingRoundRobin always names accelerator 0 as primary; the second
	// occupant is pushed onto accelerator 1 by the alternate-selection
	// path, and a third arrival while both are full lands in the global
	// queue until one of them finishes.
	bundle.Routing = RoutingRoundRobin

	specs := []RequestSpec{
		{ID: "occupant0", ArrivalTimeMs: 0, PromptTokens: 100, GenTokens: 100},
		{ID: "occupant1", ArrivalTimeMs: 0, PromptTokens: 100, GenTokens: 100},
		{ID: "overflow", ArrivalTimeMs: 1, PromptTokens: 50, GenTokens: 50},
	}

	eng, err := NewEngine(bundle, []AcceleratorConfig{cfg, cfg}, nil, specs)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	metrics := eng.Run()

	if metrics.MaxGlobalQueueDepth < 1 {
		t.Errorf("MaxGlobalQueueDepth = %d, want >= 1", metrics.MaxGlobalQueueDepth)
	}
	if len(eng.globalQueue) != 0 {
		t.Errorf("final global queue depth = %d, want 0", len(eng.globalQueue))
	}
}

// TestEngine_TwoAcceleratorHandoff is scenario 4: an accelerator already
// hosting a decoder outscores a lightly-loaded peer, so route_decode
// picks the other accelerator and the handoff pipeline runs end to end.
func TestEngine_TwoAcceleratorHandoff(t *testing.T) {
	busyCfg := AcceleratorConfig{
		VRAMBytes:        2048 * 1000000,
		MaxConcurrent:    10,
		PrefillTPS:       1000,
		DecodeTPS:        1000,
		DecodeSharingCap: 1,
		DecodeEfficiency: 1,
	}
	idleCfg := busyCfg

	bundle := singleGPUBundle(2048, true)
	// Zero out the handoff-cost term so the decode-routing decision is
	// driven purely by load score: the busy accelerator's active decoder
	// must outweigh an idle peer with nothing competing against it.
	bundle.HandoffCostWeight = 0
	bundle.HandoffLatencyUs = 0
	// RoundRobin pins both requests to accelerator 0 at prefill time, so
	// "mover"'s decode-time routing decision is the thing under test,
	// independent of PowerOfTwoChoices' random primary pick.
	bundle.Routing = RoutingRoundRobin

	specs := []RequestSpec{
		{ID: "occupant", ArrivalTimeMs: 0, PromptTokens: 10, GenTokens: 100000},
		{ID: "mover", ArrivalTimeMs: 20, PromptTokens: 10, GenTokens: 10},
	}

	eng, err := NewEngine(bundle, []AcceleratorConfig{busyCfg, idleCfg}, nil, specs)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	metrics := eng.Run()

	if metrics.HandoffsTotal < 1 {
		t.Errorf("HandoffsTotal = %d, want >= 1", metrics.HandoffsTotal)
	}
	if metrics.CrossGPUDecodes < 1 {
		t.Errorf("CrossGPUDecodes = %d, want >= 1", metrics.CrossGPUDecodes)
	}

	mover := eng.Requests[1]
	if mover.PrefillGPU != 0 {
		t.Errorf("mover.PrefillGPU = %d, want 0", mover.PrefillGPU)
	}
	if mover.DecodeGPU != 1 {
		t.Errorf("mover.DecodeGPU = %d, want 1 (routed away from the busy accelerator)", mover.DecodeGPU)
	}

	var sawHandoffStart, sawHandoffComplete bool
	for _, rec := range eng.EventLog {
		if rec.Kind == EventHandoffStart && rec.RequestID == "mover" && rec.GPU == 1 {
			sawHandoffStart = true
		}
		if rec.Kind == EventHandoffComplete && rec.RequestID == "mover" {
			sawHandoffComplete = true
		}
	}
	if !sawHandoffStart {
		t.Error("expected a HandoffStart event for mover targeting accelerator 1")
	}
	if !sawHandoffComplete {
		t.Error("expected a HandoffComplete event for mover")
	}
}

// TestRouteDecode_StaysLocalWhenNothingElseFits verifies the boundary
// behavior that a handoff whose only viable destination is the source
// never schedules HandoffStart.
func TestRouteDecode_StaysLocalWhenNothingElseFits(t *testing.T) {
	cfg := AcceleratorConfig{VRAMBytes: 1000, MaxConcurrent: 1, PrefillTPS: 1, DecodeTPS: 1, DecodeSharingCap: 1, DecodeEfficiency: 1}
	bundle := singleGPUBundle(10, true)
	eng, err := NewEngine(bundle, []AcceleratorConfig{cfg, cfg}, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	eng.GPUs[1].BytesUsed = 999 // leaves no room for any nontrivial reservation
	req := &Request{PromptTokens: 50, GenTokens: 50}
	if got := eng.routeDecode(0, req); got != 0 {
		t.Errorf("routeDecode() = %d, want 0 (stay local)", got)
	}
}

// TestEngine_Determinism is scenario 6: running the same seed, trace,
// and config twice produces byte-identical counters and event logs.
func TestEngine_Determinism(t *testing.T) {
	cfg := AcceleratorConfig{
		VRAMBytes:        2048 * 10000,
		MaxConcurrent:    4,
		PrefillTPS:       500,
		DecodeTPS:        300,
		DecodeSharingCap: 4,
		DecodeEfficiency: 0.9,
	}
	bundle := singleGPUBundle(2048, true)
	bundle.Routing = RoutingPowerOfTwoChoices
	specs := []RequestSpec{
		{ID: "a", ArrivalTimeMs: 0, PromptTokens: 50, GenTokens: 50},
		{ID: "b", ArrivalTimeMs: 1, PromptTokens: 60, GenTokens: 40},
		{ID: "c", ArrivalTimeMs: 2, PromptTokens: 70, GenTokens: 30},
		{ID: "d", ArrivalTimeMs: 3, PromptTokens: 80, GenTokens: 20},
	}

	run := func() *Engine {
		eng, err := NewEngine(bundle, []AcceleratorConfig{cfg, cfg, cfg}, nil, specs)
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		eng.Run()
		return eng
	}

	e1 := run()
	e2 := run()
	assert.Equal(t, e1.Metrics, e2.Metrics)
	assert.Equal(t, e1.EventLog, e2.EventLog)
}
