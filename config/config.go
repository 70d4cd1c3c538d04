// Package config loads the simulator's key=value configuration file into
// an engine.PolicyBundle, a list of engine.AcceleratorConfig (one per
// declared accelerator), and the declared engine.LinkSpec rows.
//
// Grounded on _examples/original_source/cpp/src/io_config.cpp: a missing
// file is not an error, it falls back to defaults (spec.md §7.1); a
// present file is scanned line by line, blank lines and '#' comments are
// skipped, and each remaining line is "key value..." tokens parsed by
// whitespace, not "key=value" despite spec.md's prose description.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/accel-sim/engine"
)

// Config is the fully parsed configuration record: the policy bundle,
// one AcceleratorConfig per declared accelerator (num_gpus of them, all
// sharing the same per-accelerator keys, matching the flat single-GPU
// key set the original_source format uses), and the declared topology
// links.
type Config struct {
	Bundle     engine.PolicyBundle
	GPUTemplate engine.AcceleratorConfig
	NumGPUs    int
	Links      []engine.LinkSpec
}

// GPUConfigs expands GPUTemplate into NumGPUs identical accelerator
// configs -- this format has no per-accelerator heterogeneity keys, only
// a count and one shared profile, matching io_config.cpp's single
// GPUConfig struct.
func (c Config) GPUConfigs() []engine.AcceleratorConfig {
	cfgs := make([]engine.AcceleratorConfig, c.NumGPUs)
	for i := range cfgs {
		cfgs[i] = c.GPUTemplate
	}
	return cfgs
}

// Default returns the configuration a missing file falls back to.
func Default() Config {
	return Config{
		Bundle:  engine.DefaultPolicyBundle(),
		NumGPUs: 1,
		GPUTemplate: engine.AcceleratorConfig{
			VRAMBytes:        24 * 1024 * 1024 * 1024,
			MaxConcurrent:    16,
			PrefillTPS:       1000,
			DecodeTPS:        500,
			DecodeSharingCap: 8,
			DecodeEfficiency: 1.0,
		},
	}
}

// Load reads path and parses it into a Config. A missing file is not an
// error: it logs a warning and returns Default() (spec.md §7.1). A
// present file that fails to open for any other reason, or that
// contains a malformed line, returns an error.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Warnf("config file %q not found, using defaults", path)
			return Default(), nil
		}
		return Config{}, fmt.Errorf("opening config %q: %w", path, err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		key := fields[0]
		rest := fields[1:]

		if key == "link" {
			link, err := parseLink(rest)
			if err != nil {
				return Config{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cfg.Links = append(cfg.Links, link)
			continue
		}

		if len(rest) == 0 {
			return Config{}, fmt.Errorf("line %d: key %q has no value", lineNo, key)
		}
		if err := applyKey(&cfg, key, rest[0]); err != nil {
			return Config{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := cfg.Bundle.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseLink(fields []string) (engine.LinkSpec, error) {
	if len(fields) != 4 {
		return engine.LinkSpec{}, fmt.Errorf("link row wants 4 fields (src dest bw_gbps latency_ms), got %d", len(fields))
	}
	src, err := strconv.Atoi(fields[0])
	if err != nil {
		return engine.LinkSpec{}, fmt.Errorf("link src: %w", err)
	}
	dst, err := strconv.Atoi(fields[1])
	if err != nil {
		return engine.LinkSpec{}, fmt.Errorf("link dest: %w", err)
	}
	bw, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return engine.LinkSpec{}, fmt.Errorf("link bw_gbps: %w", err)
	}
	lat, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return engine.LinkSpec{}, fmt.Errorf("link latency_ms: %w", err)
	}
	return engine.LinkSpec{Src: src, Dst: dst, BandwidthGbps: bw, LatencyMs: lat}, nil
}

func applyKey(cfg *Config, key, val string) error {
	switch key {
	case "scheduling":
		cfg.Bundle.Scheduling = engine.SchedulingMode(val)
	case "memory_pressure_policy":
		cfg.Bundle.MemoryPressure = engine.MemoryPressurePolicy(val)
	case "eviction_policy":
		cfg.Bundle.Eviction = engine.EvictionPolicy(val)
	case "routing_policy":
		cfg.Bundle.Routing = engine.RoutingPolicy(val)
	case "num_gpus":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("num_gpus: %w", err)
		}
		cfg.NumGPUs = n
	case "vram_bytes":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("vram_bytes: %w", err)
		}
		cfg.GPUTemplate.VRAMBytes = n
	case "max_concurrent":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("max_concurrent: %w", err)
		}
		cfg.GPUTemplate.MaxConcurrent = n
	case "prefill_tps":
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("prefill_tps: %w", err)
		}
		cfg.GPUTemplate.PrefillTPS = n
	case "decode_tps":
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("decode_tps: %w", err)
		}
		cfg.GPUTemplate.DecodeTPS = n
	case "decode_sharing_cap":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("decode_sharing_cap: %w", err)
		}
		cfg.GPUTemplate.DecodeSharingCap = n
	case "decode_efficiency":
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("decode_efficiency: %w", err)
		}
		cfg.GPUTemplate.DecodeEfficiency = n
	case "kv_bytes_per_token":
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("kv_bytes_per_token: %w", err)
		}
		cfg.Bundle.KVBytesPerToken = n
	case "timeseries_dt_ms":
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("timeseries_dt_ms: %w", err)
		}
		cfg.Bundle.TimeseriesDtMs = n
	case "seed":
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Bundle.Seed = n
	case "max_queue":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("max_queue: %w", err)
		}
		cfg.Bundle.MaxQueue = n
	case "safe_reservation":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("safe_reservation: %w", err)
		}
		cfg.Bundle.SafeReservation = n != 0
	case "handoff_latency_us":
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("handoff_latency_us: %w", err)
		}
		cfg.Bundle.HandoffLatencyUs = n
	case "handoff_bandwidth_gbps":
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("handoff_bandwidth_gbps: %w", err)
		}
		cfg.Bundle.DefaultLinkBandwidthGbps = n
	case "handoff_cost_weight":
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("handoff_cost_weight: %w", err)
		}
		cfg.Bundle.HandoffCostWeight = n
	case "max_admission_retries":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("max_admission_retries: %w", err)
		}
		cfg.Bundle.MaxAdmissionRetries = n
	default:
		logrus.Warnf("unrecognized config key %q, ignoring", key)
	}
	return nil
}
