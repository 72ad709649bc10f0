package voxel

import (
	"errors"
	"fmt"
	"math"

	"github.com/fieldvolt-data/fieldvol/internal/fsutil"
	"github.com/fieldvolt-data/fieldvol/internal/monitoring"
)

var (
	// ErrInvalidGeometry reports a non-positive voxel size or a degenerate
	// bounding box at construction.
	ErrInvalidGeometry = errors.New("invalid volume geometry")

	// ErrWriteFailure reports that an output file could not be created or
	// fully written.
	ErrWriteFailure = errors.New("volume write failure")
)

// Vec3 is a physical triple in world units (microns).
type Vec3 struct {
	X, Y, Z float64
}

// Dims holds the voxel counts along each axis.
type Dims struct {
	X, Y, Z int
}

// Count returns the total voxel count, computed in 64 bits so large grids
// do not overflow.
func (d Dims) Count() int64 {
	return int64(d.X) * int64(d.Y) * int64(d.Z)
}

// Bounds is an axis-aligned bounding box in world units.
type Bounds struct {
	Min, Max Vec3
}

// Size returns the edge lengths of the box.
func (b Bounds) Size() Vec3 {
	return Vec3{b.Max.X - b.Min.X, b.Max.Y - b.Min.Y, b.Max.Z - b.Min.Z}
}

// Volume owns the grid geometry and the flat sample buffer. Geometry is
// immutable after construction; the buffer is fixed-length and mutated in
// place by external producers via Data.
type Volume struct {
	voxelSize Vec3
	dims      Dims
	origin    Vec3
	samples   []float32

	// FS is the filesystem used by the writers. Defaults to OSFileSystem;
	// tests swap in a MemoryFileSystem.
	FS fsutil.FileSystem
}

// NewVolume derives the discrete grid from the bounding box, symmetric
// extent padding and voxel size, and allocates a zero-filled sample buffer.
//
// For each axis: dims = round-half-up((max-min+extent)/voxelSize) and
// origin = min - extent/2. Non-positive or non-finite voxel sizes and
// inverted bounding boxes are rejected with ErrInvalidGeometry.
func NewVolume(voxelSize, extent Vec3, bounds Bounds) (*Volume, error) {
	for axis, vs := range [3]float64{voxelSize.X, voxelSize.Y, voxelSize.Z} {
		if !(vs > 0) || math.IsInf(vs, 0) {
			return nil, fmt.Errorf("%w: voxel size[%d] = %v, must be a positive finite value", ErrInvalidGeometry, axis, vs)
		}
	}
	size := bounds.Size()
	for axis, s := range [3]float64{size.X, size.Y, size.Z} {
		if s < 0 || math.IsNaN(s) {
			return nil, fmt.Errorf("%w: bounding box inverted on axis %d (size %v)", ErrInvalidGeometry, axis, s)
		}
	}

	dims := Dims{
		X: roundHalfUp((size.X + extent.X) / voxelSize.X),
		Y: roundHalfUp((size.Y + extent.Y) / voxelSize.Y),
		Z: roundHalfUp((size.Z + extent.Z) / voxelSize.Z),
	}
	if dims.X <= 0 || dims.Y <= 0 || dims.Z <= 0 {
		return nil, fmt.Errorf("%w: degenerate grid dimensions %v", ErrInvalidGeometry, dims)
	}

	v := &Volume{
		voxelSize: voxelSize,
		dims:      dims,
		origin: Vec3{
			X: bounds.Min.X - extent.X/2,
			Y: bounds.Min.Y - extent.Y/2,
			Z: bounds.Min.Z - extent.Z/2,
		},
		samples: make([]float32, dims.Count()),
		FS:      fsutil.OSFileSystem{},
	}

	monitoring.Logf("Volume size is [%d %d %d]", dims.X, dims.Y, dims.Z)
	return v, nil
}

// roundHalfUp mirrors the truncating (x + 0.5) conversion used to size the
// grid: half-way values round away from zero for the non-negative inputs
// produced by a valid geometry.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Clear sets every sample to value.
//
// Note this is a per-element assignment: Clear(0) produces all-zero bit
// patterns, and Clear(v) for any v produces samples equal to v. The historic
// byte-pattern fill for non-zero arguments is not preserved.
func (v *Volume) Clear(value float32) {
	if value == 0 {
		for i := range v.samples {
			v.samples[i] = 0
		}
		return
	}
	for i := range v.samples {
		v.samples[i] = value
	}
}

// Size returns the voxel counts along each axis.
func (v *Volume) Size() Dims {
	return v.dims
}

// Origin returns the world-space coordinate of the grid's minimum corner.
func (v *Volume) Origin() Vec3 {
	return v.origin
}

// VoxelSize returns the physical size of one cell along each axis.
func (v *Volume) VoxelSize() Vec3 {
	return v.voxelSize
}

// VoxelCount returns the total number of samples.
func (v *Volume) VoxelCount() int64 {
	return v.dims.Count()
}

// Data returns the sample buffer. The slice aliases the volume's own
// storage: producers write computed field values into it directly. It is
// never resized.
func (v *Volume) Data() []float32 {
	return v.samples
}

// IndexOf maps voxel coordinates to the linear buffer index. The x axis
// varies fastest: idx = x + y*dimX + z*dimX*dimY.
func (v *Volume) IndexOf(x, y, z int) int {
	return x + y*v.dims.X + z*v.dims.X*v.dims.Y
}

// VoxelAt maps a world-space position to voxel coordinates. ok is false when
// the position falls outside the grid.
func (v *Volume) VoxelAt(world Vec3) (x, y, z int, ok bool) {
	x = int(math.Floor((world.X - v.origin.X) / v.voxelSize.X))
	y = int(math.Floor((world.Y - v.origin.Y) / v.voxelSize.Y))
	z = int(math.Floor((world.Z - v.origin.Z) / v.voxelSize.Z))
	ok = x >= 0 && x < v.dims.X && y >= 0 && y < v.dims.Y && z >= 0 && z < v.dims.Z
	return x, y, z, ok
}

// fs returns the configured filesystem, falling back to the OS one so a
// zero-value FS field cannot panic the writers.
func (v *Volume) fs() fsutil.FileSystem {
	if v.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return v.FS
}
