package voxel

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/fieldvolt-data/fieldvol/internal/fsutil"
)

func memVolume(t *testing.T, voxelSize, extent Vec3, bounds Bounds) (*Volume, *fsutil.MemoryFileSystem) {
	t.Helper()
	v := mustVolume(t, voxelSize, extent, bounds)
	m := fsutil.NewMemoryFileSystem()
	v.FS = m
	return v, m
}

func TestWriteToFileNames(t *testing.T) {
	v, m := memVolume(t, Vec3{1, 1, 1}, Vec3{0, 0, 0}, Bounds{Max: Vec3{2, 2, 2}})

	if err := v.WriteToFile(12.5, 0.1, "nA", "out/run", "circuit.cfg", "currents", "layer5"); err != nil {
		t.Fatalf("WriteToFile failed: %v", err)
	}

	if !m.Exists("out/run_volume_floats_12.5.raw") {
		t.Errorf("raw file missing, have %v", m.Names())
	}
	if !m.Exists("out/run_volume_info_12.5.txt") {
		t.Errorf("info file missing, have %v", m.Names())
	}
}

func TestWriteToFileRawContent(t *testing.T) {
	v, m := memVolume(t, Vec3{1, 1, 1}, Vec3{0, 0, 0}, Bounds{Max: Vec3{2, 2, 2}})
	data := v.Data()
	for i := range data {
		data[i] = float32(i)
	}

	if err := v.WriteToFile(1.0, 0.1, "nA", "run", "cfg", "rep", "tgt"); err != nil {
		t.Fatalf("WriteToFile failed: %v", err)
	}

	raw, err := m.ReadFile("run_volume_floats_1.0.raw")
	if err != nil {
		t.Fatalf("raw file unreadable: %v", err)
	}
	if want := int(4 * v.VoxelCount()); len(raw) != want {
		t.Fatalf("raw file is %d bytes, want %d", len(raw), want)
	}

	// headerless little-endian float32 stream, linear buffer order (x fastest)
	for i := 0; i < len(data); i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		if got := math.Float32frombits(bits); got != float32(i) {
			t.Fatalf("raw sample %d = %v, want %v", i, got, float32(i))
		}
	}
}

func TestWriteToFileInfoContent(t *testing.T) {
	v, m := memVolume(t, Vec3{0.5, 1, 2}, Vec3{0, 0, 0}, Bounds{Max: Vec3{4, 4, 4}})

	if err := v.WriteToFile(2.0, 0.25, "nA", "run", "circuit.cfg", "currents", "layer5"); err != nil {
		t.Fatalf("WriteToFile failed: %v", err)
	}

	info, err := m.ReadFile("run_volume_info_2.0.txt")
	if err != nil {
		t.Fatalf("info file unreadable: %v", err)
	}

	want := strings.Join([]string{
		"# File generated by fieldvol:",
		"# - Config: circuit.cfg",
		"# - Target: layer5",
		"# - Report: currents",
		"# - Time step: 0.25",
		"# - Units: nV",
		"# - SizeInVoxels: 8 4 2",
		"# - SizeInMicrons: 4 4 4",
		"#",
		"",
	}, "\n")
	if string(info) != want {
		t.Errorf("info sidecar mismatch:\ngot:\n%s\nwant:\n%s", info, want)
	}
}

func TestWriteToFileUnitRelabel(t *testing.T) {
	tests := []struct {
		unit string
		want string
	}{
		{"nA", "nV"},
		{"mV", "mV"},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			v, m := memVolume(t, Vec3{1, 1, 1}, Vec3{0, 0, 0}, Bounds{Max: Vec3{1, 1, 1}})
			if err := v.WriteToFile(0.0, 0.1, tt.unit, "u", "c", "r", "t"); err != nil {
				t.Fatalf("WriteToFile failed: %v", err)
			}
			info, err := m.ReadFile("u_volume_info_0.0.txt")
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(info), "# - Units: "+tt.want+"\n") {
				t.Errorf("unit %q not relabeled to %q in:\n%s", tt.unit, tt.want, info)
			}
		})
	}
}

func TestWriteToFileMhd(t *testing.T) {
	v, m := memVolume(t, Vec3{0.5, 1, 2}, Vec3{0, 0, 0}, Bounds{Max: Vec3{4, 4, 4}})

	if err := v.WriteToFileMhd(3.0, "nA", "out/run"); err != nil {
		t.Fatalf("WriteToFileMhd failed: %v", err)
	}

	// the raw name has no separator before the suffix on this path
	rawName := "out/run_volume_floats3.0.raw"
	raw, err := m.ReadFile(rawName)
	if err != nil {
		t.Fatalf("raw file unreadable: %v (have %v)", err, m.Names())
	}
	if want := int(4 * v.VoxelCount()); len(raw) != want {
		t.Errorf("raw file is %d bytes, want %d", len(raw), want)
	}

	hdr, err := m.ReadFile("out/run_volume_floats_3.0.mhd")
	if err != nil {
		t.Fatalf("mhd header unreadable: %v", err)
	}

	want := strings.Join([]string{
		"ObjectType = Image",
		"NDims = 3",
		"BinaryData = True",
		"BinaryDataByteOrderMSB = False",
		"CompressedData = False",
		"TransformMatrix = 1 0 0 0 1 0 0 0 1",
		"Offset = 0 0 0",
		"CenterOfRotation = 0 0 0",
		"AnatomicalOrientation = 0 0 0",
		"ElementSpacing = 0.5 1 2",
		"DimSize = 8 4 2",
		"ElementType = MET_FLOAT",
		"ElementDataFile = " + rawName,
		"",
	}, "\n")
	if string(hdr) != want {
		t.Errorf("mhd header mismatch:\ngot:\n%s\nwant:\n%s", hdr, want)
	}
}

func TestWritersSurfaceCreateFailure(t *testing.T) {
	v, m := memVolume(t, Vec3{1, 1, 1}, Vec3{0, 0, 0}, Bounds{Max: Vec3{1, 1, 1}})
	m.CreateErr = errors.New("permission denied")

	if err := v.WriteToFile(0.0, 0.1, "nA", "x", "c", "r", "t"); !errors.Is(err, ErrWriteFailure) {
		t.Errorf("WriteToFile err = %v, want ErrWriteFailure", err)
	}
	if err := v.WriteToFileMhd(0.0, "nA", "x"); !errors.Is(err, ErrWriteFailure) {
		t.Errorf("WriteToFileMhd err = %v, want ErrWriteFailure", err)
	}
}

func TestEndToEndReferenceVolume(t *testing.T) {
	// voxel (1,1,1), extent (2,2,2), box (0,0,0)-(8,8,8): a 10x10x10 grid
	// at origin (-1,-1,-1), 1000 samples, 4000-byte raw dumps on both paths.
	v, m := memVolume(t, Vec3{1, 1, 1}, Vec3{2, 2, 2}, Bounds{Max: Vec3{8, 8, 8}})

	if v.Size() != (Dims{10, 10, 10}) {
		t.Fatalf("Size() = %v", v.Size())
	}
	if v.Origin() != (Vec3{-1, -1, -1}) {
		t.Fatalf("Origin() = %v", v.Origin())
	}
	if v.VoxelCount() != 1000 {
		t.Fatalf("VoxelCount() = %d", v.VoxelCount())
	}

	if err := v.WriteToFile(5.0, 0.1, "nA", "ref", "c", "r", "t"); err != nil {
		t.Fatal(err)
	}
	if err := v.WriteToFileMhd(5.0, "nA", "ref"); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"ref_volume_floats_5.0.raw", "ref_volume_floats5.0.raw"} {
		info, err := m.Stat(name)
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if info.Size() != 4000 {
			t.Errorf("%s is %d bytes, want 4000", name, info.Size())
		}
	}
}

func TestEncodeSamplesChunking(t *testing.T) {
	// more samples than one chunk, to cross the chunk boundary
	n := rawWriteChunk + 17
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i % 251)
	}

	var sink strings.Builder
	if err := encodeSamples(&sink, samples); err != nil {
		t.Fatalf("encodeSamples failed: %v", err)
	}
	out := sink.String()
	if len(out) != n*4 {
		t.Fatalf("encoded %d bytes, want %d", len(out), n*4)
	}
	// spot-check a value just past the chunk boundary
	i := rawWriteChunk + 3
	bits := binary.LittleEndian.Uint32([]byte(out[i*4 : i*4+4]))
	if got := math.Float32frombits(bits); got != float32(i%251) {
		t.Errorf("sample %d decoded as %v, want %v", i, got, float32(i%251))
	}
}
