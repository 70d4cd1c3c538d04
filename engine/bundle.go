package engine

import "fmt"

// MemoryPressurePolicy selects what happens when a reservation does not fit.
type MemoryPressurePolicy string

const (
	MemoryPressureReject MemoryPressurePolicy = "reject"
	MemoryPressureEvict  MemoryPressurePolicy = "evict"
)

// EvictionPolicy selects how evict_one chooses a victim.
type EvictionPolicy string

const (
	EvictionFIFO EvictionPolicy = "fifo"
	EvictionLRU  EvictionPolicy = "lru"
)

// RoutingPolicy selects how a new arrival's primary accelerator is chosen.
type RoutingPolicy string

const (
	RoutingPowerOfTwoChoices RoutingPolicy = "power_of_two_choices"
	RoutingRoundRobin        RoutingPolicy = "round_robin"
	RoutingLeastLoaded       RoutingPolicy = "least_loaded"
)

// SchedulingMode selects how a freed slot draws from the prefill wait list.
type SchedulingMode string

const (
	SchedulingFIFO             SchedulingMode = "fifo"
	SchedulingShortestRemaining SchedulingMode = "shortest_remaining"
)

// ValidMemoryPressurePolicies, ValidEvictionPolicies, ValidRoutingPolicies,
// and ValidSchedulingModes are the recognized value sets, shared by
// Validate and the config package's key=value parser -- adapted from the
// teacher's sim/bundle.go Valid*Policies maps.
var (
	ValidMemoryPressurePolicies = map[MemoryPressurePolicy]bool{MemoryPressureReject: true, MemoryPressureEvict: true}
	ValidEvictionPolicies       = map[EvictionPolicy]bool{EvictionFIFO: true, EvictionLRU: true}
	ValidRoutingPolicies        = map[RoutingPolicy]bool{RoutingPowerOfTwoChoices: true, RoutingRoundRobin: true, RoutingLeastLoaded: true}
	ValidSchedulingModes        = map[SchedulingMode]bool{SchedulingFIFO: true, SchedulingShortestRemaining: true}
)

// PolicyBundle is the immutable-for-the-run policy configuration
// (spec.md §3).
type PolicyBundle struct {
	MemoryPressure MemoryPressurePolicy
	Eviction       EvictionPolicy
	Routing        RoutingPolicy
	Scheduling     SchedulingMode

	SafeReservation bool
	MaxQueue        int
	KVBytesPerToken uint64

	DefaultLinkBandwidthGbps float64
	DefaultLinkLatencyMs     float64
	HandoffCostWeight        float64
	HandoffLatencyUs         float64

	MaxAdmissionRetries int
	Seed                int64
	TimeseriesDtMs      float64
}

// DefaultPolicyBundle mirrors the key=value config defaults a missing
// config file falls back to (spec.md §7.1).
func DefaultPolicyBundle() PolicyBundle {
	return PolicyBundle{
		MemoryPressure:           MemoryPressureReject,
		Eviction:                 EvictionFIFO,
		Routing:                  RoutingPowerOfTwoChoices,
		Scheduling:               SchedulingFIFO,
		SafeReservation:          true,
		MaxQueue:                 1024,
		KVBytesPerToken:          2048,
		DefaultLinkBandwidthGbps: 100,
		DefaultLinkLatencyMs:     1,
		HandoffCostWeight:        1,
		HandoffLatencyUs:         0,
		MaxAdmissionRetries:      1,
		Seed:                     12345,
		TimeseriesDtMs:           20,
	}
}

// Validate checks that every policy field names a recognized value.
func (b PolicyBundle) Validate() error {
	if !ValidMemoryPressurePolicies[b.MemoryPressure] {
		return fmt.Errorf("unknown memory_pressure_policy %q", b.MemoryPressure)
	}
	if !ValidEvictionPolicies[b.Eviction] {
		return fmt.Errorf("unknown eviction_policy %q", b.Eviction)
	}
	if !ValidRoutingPolicies[b.Routing] {
		return fmt.Errorf("unknown routing_policy %q", b.Routing)
	}
	if !ValidSchedulingModes[b.Scheduling] {
		return fmt.Errorf("unknown scheduling %q", b.Scheduling)
	}
	if b.MaxQueue <= 0 {
		return fmt.Errorf("max_queue must be positive, got %d", b.MaxQueue)
	}
	if b.KVBytesPerToken == 0 {
		return fmt.Errorf("kv_bytes_per_token must be positive")
	}
	if b.TimeseriesDtMs <= 0 {
		return fmt.Errorf("timeseries_dt_ms must be positive, got %f", b.TimeseriesDtMs)
	}
	if b.MaxAdmissionRetries < 0 {
		return fmt.Errorf("max_admission_retries must be non-negative, got %d", b.MaxAdmissionRetries)
	}
	return nil
}
