package engine

import "fmt"

// RequestStatus is the lifecycle state of a Request.
type RequestStatus string

const (
	StatusArrived  RequestStatus = "arrived"
	StatusQueued   RequestStatus = "queued"
	StatusPrefill  RequestStatus = "prefill"
	StatusDecode   RequestStatus = "decode"
	StatusFinished RequestStatus = "finished"
	StatusRejected RequestStatus = "rejected"
	StatusEvicted  RequestStatus = "evicted"
)

// IsTerminal reports whether status is one of the three terminal states.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusRejected || s == StatusEvicted
}

// RequestSpec is the input record consumed from the trace collaborator
// (spec.md §6): everything known about a request before it enters the
// engine.
type RequestSpec struct {
	ID            string
	ArrivalTimeMs float64
	PromptTokens  int
	GenTokens     int
	Streaming     bool
}

// Request is the engine's mutable view of a request's lifecycle.
// Created once at load time from a RequestSpec, mutated only by
// handlers, never destroyed during a run.
type Request struct {
	ID            string
	ArrivalTimeMs float64
	PromptTokens  int
	GenTokens     int
	Streaming     bool

	Status RequestStatus

	StartPrefillMs float64
	StartDecodeMs  float64
	FinishMs       float64

	PrefillGPU int // -1 until assigned
	DecodeGPU  int // -1 until assigned

	RetryCount int
}

func newRequest(idx int, spec RequestSpec) *Request {
	return &Request{
		ID:            spec.ID,
		ArrivalTimeMs: spec.ArrivalTimeMs,
		PromptTokens:  spec.PromptTokens,
		GenTokens:     spec.GenTokens,
		Streaming:     spec.Streaming,
		Status:        StatusArrived,
		PrefillGPU:    -1,
		DecodeGPU:     -1,
	}
}

func (r *Request) String() string {
	return fmt.Sprintf("Request(id=%s status=%s prompt=%d gen=%d)", r.ID, r.Status, r.PromptTokens, r.GenTokens)
}
