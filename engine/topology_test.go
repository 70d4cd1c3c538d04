package engine

import (
	"math"
	"testing"
)

func TestTopology_DiagonalIsInfiniteBandwidthZeroLatency(t *testing.T) {
	topo := NewTopology(3, 10, 5, nil)
	for i := 0; i < 3; i++ {
		if !math.IsInf(topo.Bandwidth(i, i), 1) {
			t.Errorf("Bandwidth(%d,%d) = %v, want +Inf", i, i, topo.Bandwidth(i, i))
		}
		if topo.Latency(i, i) != 0 {
			t.Errorf("Latency(%d,%d) = %v, want 0", i, i, topo.Latency(i, i))
		}
	}
}

func TestTopology_DefaultsApplyWithNoLinks(t *testing.T) {
	topo := NewTopology(2, 100, 2, nil)
	if topo.Bandwidth(0, 1) != 100 {
		t.Errorf("Bandwidth(0,1) = %v, want 100", topo.Bandwidth(0, 1))
	}
	if topo.Latency(0, 1) != 2 {
		t.Errorf("Latency(0,1) = %v, want 2", topo.Latency(0, 1))
	}
}

func TestTopology_DeclaredLinkOverridesDefaultInBothDirections(t *testing.T) {
	topo := NewTopology(2, 10, 5, []LinkSpec{{Src: 0, Dst: 1, BandwidthGbps: 200, LatencyMs: 1}})
	if topo.Bandwidth(0, 1) != 200 || topo.Bandwidth(1, 0) != 200 {
		t.Errorf("Bandwidth(0,1)/(1,0) = %v/%v, want 200/200", topo.Bandwidth(0, 1), topo.Bandwidth(1, 0))
	}
	if topo.Latency(0, 1) != 1 || topo.Latency(1, 0) != 1 {
		t.Errorf("Latency(0,1)/(1,0) = %v/%v, want 1/1", topo.Latency(0, 1), topo.Latency(1, 0))
	}
}

func TestTopology_HarmonicSumClosureThroughIntermediate(t *testing.T) {
	// 0-1 has no direct link (falls back to a low default); 0-2 and 2-1
	// are both fast direct links, so the 0->2->1 path should win.
	links := []LinkSpec{
		{Src: 0, Dst: 2, BandwidthGbps: 100, LatencyMs: 1},
		{Src: 2, Dst: 1, BandwidthGbps: 100, LatencyMs: 1},
	}
	topo := NewTopology(3, 1, 50, links)

	wantBW := 1.0 / (1.0/100 + 1.0/100)
	if math.Abs(topo.Bandwidth(0, 1)-wantBW) > 1e-9 {
		t.Errorf("Bandwidth(0,1) = %v, want %v", topo.Bandwidth(0, 1), wantBW)
	}
	if topo.Latency(0, 1) != 2 {
		t.Errorf("Latency(0,1) = %v, want 2 (sum of hop latencies)", topo.Latency(0, 1))
	}
}
