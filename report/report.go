// Package report writes the four output artifacts the core produces for
// external collaborators (spec.md §6): a JSON summary, a CSV time-series,
// a JSON-lines event log, and a run-metadata file.
//
// Grounded on _examples/original_source/cpp/include/io_output.hpp's
// write_summary / write_timeseries_csv / write_events_jsonl /
// write_run_meta quartet, using encoding/json and encoding/csv the way
// the teacher's sim/workload_config.go and sim/cluster/metrics.go do.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/inference-sim/accel-sim/config"
	"github.com/inference-sim/accel-sim/engine"
)

// Summary is the terminal-counters-plus-extended-metrics JSON document,
// grounded on io_output.hpp's ExtendedMetrics struct (spec.md §6).
type Summary struct {
	Finished             int      `json:"finished"`
	Rejected             int      `json:"rejected"`
	Evicted              int      `json:"evicted"`
	MakespanMs           float64  `json:"makespan_ms"`
	TotalTokensGenerated uint64   `json:"total_tokens_generated"`

	RetryAttempts       int `json:"retry_attempts"`
	RetrySuccesses      int `json:"retry_successes"`
	HandoffsTotal       int `json:"handoffs_total"`
	CrossGPUDecodes     int `json:"cross_gpu_decodes"`
	MaxGlobalQueueDepth int `json:"max_global_queue_depth"`

	PeakVRAMPerGPU         []uint64 `json:"peak_vram_per_gpu"`
	TokensPerGPU           []uint64 `json:"tokens_per_gpu"`
	RequestsFinishedPerGPU []int    `json:"requests_finished_per_gpu"`
}

// NewSummary projects an engine.Metrics into the JSON-serializable Summary shape.
func NewSummary(m *engine.Metrics) Summary {
	return Summary{
		Finished:               m.Finished,
		Rejected:               m.Rejected,
		Evicted:                m.Evicted,
		MakespanMs:             m.MakespanMs,
		TotalTokensGenerated:   m.TotalTokensGenerated,
		RetryAttempts:          m.RetryAttempts,
		RetrySuccesses:         m.RetrySuccesses,
		HandoffsTotal:          m.HandoffsTotal,
		CrossGPUDecodes:        m.CrossGPUDecodes,
		MaxGlobalQueueDepth:    m.MaxGlobalQueueDepth,
		PeakVRAMPerGPU:         m.PeakVRAMPerGPU,
		TokensPerGPU:           m.TokensPerGPU,
		RequestsFinishedPerGPU: m.RequestsFinishedPerGPU,
	}
}

// WriteSummary writes outDir/summary.json.
func WriteSummary(outDir string, m *engine.Metrics) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	data, err := json.MarshalIndent(NewSummary(m), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	return os.WriteFile(filepath.Join(outDir, "summary.json"), data, 0o644)
}

// WriteTimeseriesCSV writes outDir/timeseries.csv: one header row plus
// one row per sample, with a per_gpu_vram_N column for each of numGPUs
// accelerators (io_output.hpp's write_timeseries_csv).
func WriteTimeseriesCSV(outDir string, samples []engine.Sample, numGPUs int) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(filepath.Join(outDir, "timeseries.csv"))
	if err != nil {
		return fmt.Errorf("creating timeseries.csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"time_ms", "vram_used", "active_prefill", "active_decode",
		"prefill_queue_depth", "global_queue_depth",
		"tokens_generated_delta", "rejects_delta",
	}
	for i := 0; i < numGPUs; i++ {
		header = append(header, "per_gpu_vram_"+strconv.Itoa(i))
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing timeseries header: %w", err)
	}

	for _, s := range samples {
		row := []string{
			strconv.FormatFloat(s.TimeMs, 'f', -1, 64),
			strconv.FormatUint(s.VRAMUsed, 10),
			strconv.Itoa(s.ActivePrefill),
			strconv.Itoa(s.ActiveDecode),
			strconv.Itoa(s.PrefillQueueDepth),
			strconv.Itoa(s.GlobalQueueDepth),
			strconv.FormatUint(s.TokensGeneratedDelta, 10),
			strconv.FormatUint(s.RejectsDelta, 10),
		}
		for _, v := range s.PerGPUVRAM {
			row = append(row, strconv.FormatUint(v, 10))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing timeseries row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// eventRecordJSON is the JSON-lines shape of one engine.EventRecord
// (spec.md §6: "ordered records (time_ms, kind, request_id, gpu_index)").
type eventRecordJSON struct {
	TimeMs    float64 `json:"time_ms"`
	Kind      string  `json:"kind"`
	RequestID string  `json:"request_id"`
	GPU       int     `json:"gpu_index"`
}

// WriteEventsJSONL writes outDir/events.jsonl, one JSON object per line
// in event order (io_output.hpp's write_events_jsonl).
func WriteEventsJSONL(outDir string, events []engine.EventRecord) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(filepath.Join(outDir, "events.jsonl"))
	if err != nil {
		return fmt.Errorf("creating events.jsonl: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, e := range events {
		rec := eventRecordJSON{TimeMs: e.TimeMs, Kind: e.Kind.String(), RequestID: e.RequestID, GPU: e.GPU}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding event record: %w", err)
		}
	}
	return nil
}

// RunMeta captures the resolved inputs of a run, so two report
// directories can be compared without re-reading the original config
// file (supplemented from io_output.hpp's write_run_meta -- present in
// the original's output contract but dropped from spec.md §6's
// collaborator description).
type RunMeta struct {
	ConfigPath string              `json:"config_path"`
	TracePath  string              `json:"trace_path"`
	Seed       int64               `json:"seed"`
	NumGPUs    int                 `json:"num_gpus"`
	Bundle     engine.PolicyBundle `json:"policy_bundle"`
}

// WriteRunMeta writes outDir/run_meta.json.
func WriteRunMeta(outDir, configPath, tracePath string, cfg config.Config) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	meta := RunMeta{
		ConfigPath: configPath,
		TracePath:  tracePath,
		Seed:       cfg.Bundle.Seed,
		NumGPUs:    cfg.NumGPUs,
		Bundle:     cfg.Bundle,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run meta: %w", err)
	}
	return os.WriteFile(filepath.Join(outDir, "run_meta.json"), data, 0o644)
}
