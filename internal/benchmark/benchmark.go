// Package benchmark loads benchmark definitions: the VM fleet shape, the
// workload commands, and where results land on each VM.
package benchmark

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Benchmark describes one benchmark run. The placement_group, vm, and disk
// sections are raw option maps; the selected provider's spec factories
// validate them.
type Benchmark struct {
	Name    string `yaml:"name"`
	VMCount int    `yaml:"vm_count"`

	// DisksPerVM scratch volumes are created alongside each VM
	DisksPerVM int `yaml:"disks_per_vm"`

	PlacementGroup map[string]any `yaml:"placement_group"`
	VM             map[string]any `yaml:"vm"`
	Disk           map[string]any `yaml:"disk"`

	// Workload commands run sequentially on every VM
	Workload []string `yaml:"workload"`

	// ResultsPath is the remote file or directory synced back after the
	// workload finishes. Empty disables syncing.
	ResultsPath string `yaml:"results_path"`
}

// Load reads and validates a benchmark definition from a YAML file
func Load(path string) (*Benchmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmark file: %w", err)
	}

	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid benchmark %s: %w", path, err)
	}
	return b, nil
}

// Parse parses and validates a benchmark definition
func Parse(data []byte) (*Benchmark, error) {
	b := &Benchmark{
		VMCount: 1,
	}
	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("failed to parse benchmark: %w", err)
	}

	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.PlacementGroup == nil {
		b.PlacementGroup = map[string]any{}
	}
	if b.VM == nil {
		b.VM = map[string]any{}
	}
	if b.Disk == nil {
		b.Disk = map[string]any{}
	}

	return b, nil
}

func (b *Benchmark) validate() error {
	if b.Name == "" {
		return fmt.Errorf("benchmark name is required")
	}
	if b.VMCount < 1 {
		return fmt.Errorf("vm_count must be at least 1")
	}
	if b.DisksPerVM < 0 {
		return fmt.Errorf("disks_per_vm must not be negative")
	}
	if len(b.Workload) == 0 {
		return fmt.Errorf("workload must contain at least one command")
	}
	return nil
}
