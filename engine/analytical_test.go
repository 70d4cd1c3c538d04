package engine

import "testing"

func TestAnalyticalBaselines_AfterRun(t *testing.T) {
	cfg := AcceleratorConfig{
		VRAMBytes:        8 * 1024 * 1024 * 1024,
		MaxConcurrent:    4,
		PrefillTPS:       1000,
		DecodeTPS:        500,
		DecodeSharingCap: 4,
		DecodeEfficiency: 0.9,
	}
	bundle := DefaultPolicyBundle()
	bundle.KVBytesPerToken = 2048
	bundle.Seed = 1

	specs := []RequestSpec{
		{ID: "r0", ArrivalTimeMs: 0, PromptTokens: 100, GenTokens: 100},
		{ID: "r1", ArrivalTimeMs: 10, PromptTokens: 100, GenTokens: 100},
		{ID: "r2", ArrivalTimeMs: 20, PromptTokens: 100, GenTokens: 100},
	}
	eng, err := NewEngine(bundle, []AcceleratorConfig{cfg}, nil, specs)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	eng.Run()

	baselines := eng.AnalyticalBaselines(100, 100)
	if len(baselines) != 1 {
		t.Fatalf("len(baselines) = %d, want 1", len(baselines))
	}
	b := baselines[0]
	if !b.Valid {
		t.Fatalf("baseline not valid: %+v", b)
	}
	if b.ArrivalRatePerSec <= 0 {
		t.Errorf("ArrivalRatePerSec = %v, want > 0", b.ArrivalRatePerSec)
	}
	if b.AvgRespTimeMs <= 0 {
		t.Errorf("AvgRespTimeMs = %v, want > 0", b.AvgRespTimeMs)
	}
}

func TestAnalyticalBaselines_NoFinishedRequestsIsInvalid(t *testing.T) {
	cfg := AcceleratorConfig{
		VRAMBytes: 1, MaxConcurrent: 1, PrefillTPS: 1, DecodeTPS: 1, DecodeSharingCap: 1, DecodeEfficiency: 1,
	}
	bundle := DefaultPolicyBundle()
	eng, err := NewEngine(bundle, []AcceleratorConfig{cfg}, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	eng.Run()
	baselines := eng.AnalyticalBaselines(0, 0)
	if baselines[0].Valid {
		t.Errorf("baseline valid with no finished requests: %+v", baselines[0])
	}
}
