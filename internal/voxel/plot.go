package voxel

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// sliceGrid adapts one z-slice of a Volume to plotter.GridXYZ. Columns map
// to the x axis and rows to the y axis, with cell centres in world units.
type sliceGrid struct {
	v *Volume
	z int
}

func (g sliceGrid) Dims() (c, r int) { return g.v.dims.X, g.v.dims.Y }

func (g sliceGrid) Z(c, r int) float64 {
	return float64(g.v.samples[g.v.IndexOf(c, r, g.z)])
}

func (g sliceGrid) X(c int) float64 {
	return g.v.origin.X + (float64(c)+0.5)*g.v.voxelSize.X
}

func (g sliceGrid) Y(r int) float64 {
	return g.v.origin.Y + (float64(r)+0.5)*g.v.voxelSize.Y
}

// PlotSlice renders the z-th slice of the volume as a heatmap image at path
// (format chosen by extension, e.g. .png). A quick look at the field without
// loading the raw dump into a volume viewer.
func (v *Volume) PlotSlice(z int, title, path string) error {
	if z < 0 || z >= v.dims.Z {
		return fmt.Errorf("slice %d out of range [0,%d)", z, v.dims.Z)
	}
	if v.dims.X == 0 || v.dims.Y == 0 {
		return fmt.Errorf("volume has an empty slice plane %v", v.dims)
	}

	hm := plotter.NewHeatMap(sliceGrid{v: v, z: z}, palette.Heat(16, 1))

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (microns)"
	p.Y.Label.Text = "y (microns)"
	p.Add(hm)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("%w: save plot %s: %v", ErrWriteFailure, path, err)
	}
	return nil
}
