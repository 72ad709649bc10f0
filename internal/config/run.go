// Package config loads and validates the JSON run configuration for the
// volume export tool.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fieldvolt-data/fieldvol/internal/units"
	"github.com/fieldvolt-data/fieldvol/internal/voxel"
)

// RunConfig describes one export run. All fields are optional in the JSON;
// nil pointers fall back to defaults, so partial configs are safe.
type RunConfig struct {
	// Grid geometry
	VoxelSize *[3]float64 `json:"voxel_size,omitempty"` // microns per voxel
	Extent    *[3]float64 `json:"extent,omitempty"`     // symmetric padding, microns
	BoundsMin *[3]float64 `json:"bounds_min,omitempty"`
	BoundsMax *[3]float64 `json:"bounds_max,omitempty"`

	// Output naming and labels for the info sidecar
	OutputPrefix *string `json:"output_prefix,omitempty"`
	DataUnit     *string `json:"data_unit,omitempty"`
	ConfigLabel  *string `json:"config_label,omitempty"`
	ReportLabel  *string `json:"report_label,omitempty"`
	TargetLabel  *string `json:"target_label,omitempty"`

	// Simulated time range, inclusive of start, exclusive of end
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
	TimeStep  *float64 `json:"time_step,omitempty"`

	// Optional outputs
	WriteMhd   *bool   `json:"write_mhd,omitempty"`
	PlotSliceZ *int    `json:"plot_slice_z,omitempty"` // negative disables
	DBPath     *string `json:"db_path,omitempty"`      // empty disables the export index
}

func ptrFloat64(v float64) *float64         { return &v }
func ptrBool(v bool) *bool                  { return &v }
func ptrString(v string) *string            { return &v }
func ptrInt(v int) *int                     { return &v }
func ptrTriple(x, y, z float64) *[3]float64 { return &[3]float64{x, y, z} }

// DefaultRunConfig returns a config with every field populated with its
// default value.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		VoxelSize:    ptrTriple(1, 1, 1),
		Extent:       ptrTriple(0, 0, 0),
		BoundsMin:    ptrTriple(0, 0, 0),
		BoundsMax:    ptrTriple(0, 0, 0),
		OutputPrefix: ptrString("volume"),
		DataUnit:     ptrString(units.NanoAmpere),
		ConfigLabel:  ptrString(""),
		ReportLabel:  ptrString(""),
		TargetLabel:  ptrString(""),
		StartTime:    ptrFloat64(0),
		EndTime:      ptrFloat64(0),
		TimeStep:     ptrFloat64(0.1),
		WriteMhd:     ptrBool(false),
		PlotSliceZ:   ptrInt(-1),
		DBPath:       ptrString(""),
	}
}

// ApplyDefaults fills any nil field from DefaultRunConfig.
func (c *RunConfig) ApplyDefaults() {
	d := DefaultRunConfig()
	if c.VoxelSize == nil {
		c.VoxelSize = d.VoxelSize
	}
	if c.Extent == nil {
		c.Extent = d.Extent
	}
	if c.BoundsMin == nil {
		c.BoundsMin = d.BoundsMin
	}
	if c.BoundsMax == nil {
		c.BoundsMax = d.BoundsMax
	}
	if c.OutputPrefix == nil {
		c.OutputPrefix = d.OutputPrefix
	}
	if c.DataUnit == nil {
		c.DataUnit = d.DataUnit
	}
	if c.ConfigLabel == nil {
		c.ConfigLabel = d.ConfigLabel
	}
	if c.ReportLabel == nil {
		c.ReportLabel = d.ReportLabel
	}
	if c.TargetLabel == nil {
		c.TargetLabel = d.TargetLabel
	}
	if c.StartTime == nil {
		c.StartTime = d.StartTime
	}
	if c.EndTime == nil {
		c.EndTime = d.EndTime
	}
	if c.TimeStep == nil {
		c.TimeStep = d.TimeStep
	}
	if c.WriteMhd == nil {
		c.WriteMhd = d.WriteMhd
	}
	if c.PlotSliceZ == nil {
		c.PlotSliceZ = d.PlotSliceZ
	}
	if c.DBPath == nil {
		c.DBPath = d.DBPath
	}
}

// Validate checks the configuration values that are set. Geometry is checked
// only loosely here; voxel.NewVolume performs the authoritative check.
func (c *RunConfig) Validate() error {
	if c.VoxelSize != nil {
		for axis, vs := range c.VoxelSize {
			if vs <= 0 {
				return fmt.Errorf("voxel_size[%d] must be positive, got %v", axis, vs)
			}
		}
	}
	if c.BoundsMin != nil && c.BoundsMax != nil {
		for axis := range c.BoundsMin {
			if c.BoundsMax[axis] < c.BoundsMin[axis] {
				return fmt.Errorf("bounds_max[%d] (%v) below bounds_min[%d] (%v)",
					axis, c.BoundsMax[axis], axis, c.BoundsMin[axis])
			}
		}
	}
	if c.DataUnit != nil && !units.IsValid(*c.DataUnit) {
		return fmt.Errorf("data_unit must be one of %s, got %q", units.GetValidUnitsString(), *c.DataUnit)
	}
	if c.TimeStep != nil && *c.TimeStep <= 0 {
		return fmt.Errorf("time_step must be positive, got %v", *c.TimeStep)
	}
	if c.StartTime != nil && c.EndTime != nil && *c.EndTime < *c.StartTime {
		return fmt.Errorf("end_time (%v) before start_time (%v)", *c.EndTime, *c.StartTime)
	}
	return nil
}

// Geometry converts the config triples to voxel package types. Call after
// ApplyDefaults.
func (c *RunConfig) Geometry() (voxelSize, extent voxel.Vec3, bounds voxel.Bounds) {
	voxelSize = voxel.Vec3{X: c.VoxelSize[0], Y: c.VoxelSize[1], Z: c.VoxelSize[2]}
	extent = voxel.Vec3{X: c.Extent[0], Y: c.Extent[1], Z: c.Extent[2]}
	bounds = voxel.Bounds{
		Min: voxel.Vec3{X: c.BoundsMin[0], Y: c.BoundsMin[1], Z: c.BoundsMin[2]},
		Max: voxel.Vec3{X: c.BoundsMax[0], Y: c.BoundsMax[1], Z: c.BoundsMax[2]},
	}
	return voxelSize, extent, bounds
}

// maxConfigFileSize caps config reads; run configs are a few hundred bytes.
const maxConfigFileSize = 1 * 1024 * 1024

// LoadRunConfig loads a RunConfig from a JSON file, applies defaults for
// omitted fields and validates the result.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
