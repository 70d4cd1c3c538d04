// hwcalib.go loads named hardware calibration profiles from a YAML
// lookup table, mirroring the teacher's cmd/default_config.go use of
// yaml.v3 with KnownFields(true) strict parsing against defaults.yaml.
// Where the teacher keys profiles by (GPU, tensor_parallelism,
// vllm_version) for vLLM coefficient lookup, this domain keys a profile
// by hardware name alone and stores AcceleratorConfig fields directly,
// since there is no tensor-parallel dimension in this simulator.
package calib

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/accel-sim/engine"
)

// HardwareProfile is one named entry in a hwcalib.yaml lookup table: a
// starting AcceleratorConfig to seed calibration from, for accelerators
// whose vendor datasheet numbers are known in advance.
type HardwareProfile struct {
	GPU              string  `yaml:"GPU"`
	VRAMBytes        uint64  `yaml:"vram_bytes"`
	MaxConcurrent    int     `yaml:"max_concurrent"`
	PrefillTPS       float64 `yaml:"prefill_tps"`
	DecodeTPS        float64 `yaml:"decode_tps"`
	DecodeSharingCap int     `yaml:"decode_sharing_cap"`
	DecodeEfficiency float64 `yaml:"decode_efficiency"`
}

// HardwareCalib is the full hwcalib.yaml structure. All top-level
// sections must be listed to satisfy KnownFields(true) strict parsing.
type HardwareCalib struct {
	Version  string                      `yaml:"version"`
	Profiles map[string]HardwareProfile `yaml:"profiles"`
}

// LoadHardwareCalib parses path into a HardwareCalib, rejecting unknown
// fields the way the teacher's defaults.yaml loader does.
func LoadHardwareCalib(path string) (HardwareCalib, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HardwareCalib{}, fmt.Errorf("reading hardware calibration file %q: %w", path, err)
	}
	var cal HardwareCalib
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cal); err != nil {
		return HardwareCalib{}, fmt.Errorf("parsing hardware calibration file %q: %w", path, err)
	}
	return cal, nil
}

// AcceleratorConfig converts a named profile into an
// engine.AcceleratorConfig seed, for a run or calibration that starts
// from a known accelerator's datasheet numbers rather than the config
// file's generic defaults.
func (p HardwareProfile) AcceleratorConfig() engine.AcceleratorConfig {
	return engine.AcceleratorConfig{
		VRAMBytes:        p.VRAMBytes,
		MaxConcurrent:    p.MaxConcurrent,
		PrefillTPS:       p.PrefillTPS,
		DecodeTPS:        p.DecodeTPS,
		DecodeSharingCap: p.DecodeSharingCap,
		DecodeEfficiency: p.DecodeEfficiency,
	}
}

// Lookup returns the named profile's AcceleratorConfig, or an error if
// the name is not in the table.
func (c HardwareCalib) Lookup(name string) (engine.AcceleratorConfig, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return engine.AcceleratorConfig{}, fmt.Errorf("no hardware profile named %q", name)
	}
	return p.AcceleratorConfig(), nil
}
