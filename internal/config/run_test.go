package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRunConfigPartial(t *testing.T) {
	path := writeConfig(t, `{
		"voxel_size": [0.5, 0.5, 0.5],
		"bounds_max": [100, 100, 100],
		"output_prefix": "lfp",
		"data_unit": "nA"
	}`)

	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("LoadRunConfig failed: %v", err)
	}

	if got := *cfg.VoxelSize; got != [3]float64{0.5, 0.5, 0.5} {
		t.Errorf("VoxelSize = %v", got)
	}
	// omitted fields take defaults
	if *cfg.TimeStep != 0.1 {
		t.Errorf("TimeStep default = %v, want 0.1", *cfg.TimeStep)
	}
	if *cfg.WriteMhd {
		t.Error("WriteMhd should default to false")
	}
	if *cfg.PlotSliceZ != -1 {
		t.Errorf("PlotSliceZ default = %v, want -1", *cfg.PlotSliceZ)
	}

	voxelSize, extent, bounds := cfg.Geometry()
	if voxelSize.X != 0.5 || extent.X != 0 || bounds.Max.X != 100 {
		t.Errorf("Geometry() = %v %v %v", voxelSize, extent, bounds)
	}
}

func TestLoadRunConfigEmptyObjectEqualsDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)
	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("LoadRunConfig failed: %v", err)
	}
	if diff := cmp.Diff(DefaultRunConfig(), cfg); diff != "" {
		t.Errorf("empty config differs from defaults (-want +got):\n%s", diff)
	}
}

func TestLoadRunConfigRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"voxel_size": `},
		{"zero voxel size", `{"voxel_size": [0, 1, 1]}`},
		{"inverted bounds", `{"bounds_min": [5, 0, 0], "bounds_max": [1, 1, 1]}`},
		{"unknown unit", `{"data_unit": "parsecs"}`},
		{"negative time step", `{"time_step": -0.1}`},
		{"end before start", `{"start_time": 10, "end_time": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadRunConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected load to fail")
			}
		})
	}
}

func TestLoadRunConfigRequiresJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRunConfig(path); err == nil {
		t.Error("expected non-.json path to be rejected")
	}
}

func TestLoadRunConfigMissingFile(t *testing.T) {
	if _, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected stat failure for missing file")
	}
}
