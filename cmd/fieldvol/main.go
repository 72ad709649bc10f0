// fieldvol writes dense voxel field volumes to disk per simulated time step,
// as raw float dumps with either a metadata sidecar or a MetaImage header.
//
// The sample producer here is a synthetic Gaussian-blob source: it exists to
// smoke-test the export pipeline and downstream viewers, not to simulate
// anything. Real producers deposit values through voxel.Volume.Data in the
// same way.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/fieldvolt-data/fieldvol/internal/config"
	"github.com/fieldvolt-data/fieldvol/internal/timeutil"
	"github.com/fieldvolt-data/fieldvol/internal/version"
	"github.com/fieldvolt-data/fieldvol/internal/voldb"
	"github.com/fieldvolt-data/fieldvol/internal/voxel"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON run config (defaults apply when omitted)")
	prefix      = flag.String("prefix", "", "Override the output file prefix")
	writeMhd    = flag.Bool("mhd", false, "Also write MetaImage (.mhd) headers")
	plotSlice   = flag.Int("plot", -1, "Write a PNG heatmap of this z slice per step (negative disables)")
	dbPath      = flag.String("db", "", "Record written files in this SQLite export index")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("fieldvol", version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Printf("Config error: %v", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Printf("Run failed: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.RunConfig, error) {
	var cfg *config.RunConfig
	if *configPath != "" {
		loaded, err := config.LoadRunConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultRunConfig()
	}

	// Flags override the file.
	if *prefix != "" {
		cfg.OutputPrefix = prefix
	}
	if *writeMhd {
		cfg.WriteMhd = writeMhd
	}
	if *plotSlice >= 0 {
		cfg.PlotSliceZ = plotSlice
	}
	if *dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func run(cfg *config.RunConfig) error {
	voxelSize, extent, bounds := cfg.Geometry()
	vol, err := voxel.NewVolume(voxelSize, extent, bounds)
	if err != nil {
		return err
	}

	var index *voldb.DB
	if *cfg.DBPath != "" {
		index, err = voldb.Open(*cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open export index: %w", err)
		}
		defer index.Close()
	}

	runID := voldb.NewRunID()
	log.Printf("Starting run %s: prefix=%s steps=[%g, %g) step=%g", runID,
		*cfg.OutputPrefix, *cfg.StartTime, *cfg.EndTime, *cfg.TimeStep)

	steps := 0
	for simTime := *cfg.StartTime; simTime < *cfg.EndTime || steps == 0; simTime += *cfg.TimeStep {
		if err := writeStep(cfg, vol, index, runID, simTime); err != nil {
			return err
		}
		steps++
	}

	log.Printf("Run %s complete: %d time steps written", runID, steps)
	return nil
}

func writeStep(cfg *config.RunConfig, vol *voxel.Volume, index *voldb.DB, runID string, simTime float64) error {
	vol.Clear(0)
	depositTestPattern(vol, simTime)

	s := vol.Stats()
	log.Printf("Step t=%g: nonzero=%d mean=%g max=%g", simTime, s.Nonzero, s.Mean, s.Max)

	if err := vol.WriteToFile(simTime, *cfg.TimeStep, *cfg.DataUnit, *cfg.OutputPrefix,
		*cfg.ConfigLabel, *cfg.ReportLabel, *cfg.TargetLabel); err != nil {
		return err
	}
	if *cfg.WriteMhd {
		if err := vol.WriteToFileMhd(simTime, *cfg.DataUnit, *cfg.OutputPrefix); err != nil {
			return err
		}
	}
	if z := *cfg.PlotSliceZ; z >= 0 {
		suffix := timeutil.TimeStepSuffix(simTime)
		plotPath := *cfg.OutputPrefix + "_volume_slice_" + suffix + ".png"
		if err := vol.PlotSlice(z, "t="+suffix, plotPath); err != nil {
			return err
		}
	}

	if index != nil {
		recordStep(cfg, vol, index, runID, simTime)
	}
	return nil
}

// recordStep indexes the step's files best-effort; a failed insert is logged
// but does not abort the run, the files on disk are the product.
func recordStep(cfg *config.RunConfig, vol *voxel.Volume, index *voldb.DB, runID string, simTime float64) {
	suffix := timeutil.TimeStepSuffix(simTime)
	dims := vol.Size()
	checksum := vol.Checksum()

	records := []voldb.Export{
		{
			Kind: voldb.KindRaw,
			Path: *cfg.OutputPrefix + "_volume_floats_" + suffix + ".raw",
		},
		{
			Kind: voldb.KindInfo,
			Path: *cfg.OutputPrefix + "_volume_info_" + suffix + ".txt",
		},
	}
	if *cfg.WriteMhd {
		records = append(records,
			voldb.Export{
				Kind: voldb.KindRaw,
				Path: *cfg.OutputPrefix + "_volume_floats" + suffix + ".raw",
			},
			voldb.Export{
				Kind: voldb.KindMhd,
				Path: *cfg.OutputPrefix + "_volume_floats_" + suffix + ".mhd",
			})
	}

	for _, rec := range records {
		rec.RunID = runID
		rec.SimTime = simTime
		rec.DimX, rec.DimY, rec.DimZ = dims.X, dims.Y, dims.Z
		rec.Checksum = checksum
		if info, err := os.Stat(rec.Path); err == nil {
			rec.SizeBytes = info.Size()
		}
		if err := index.RecordExport(rec); err != nil {
			log.Printf("Export index insert failed for %s: %v", rec.Path, err)
		}
	}
}

// depositTestPattern fills the volume with a time-dependent Gaussian blob
// pattern: one blob orbiting the grid centre, one fixed at the centre.
func depositTestPattern(vol *voxel.Volume, simTime float64) {
	dims := vol.Size()
	origin := vol.Origin()
	vs := vol.VoxelSize()
	data := vol.Data()

	centre := voxel.Vec3{
		X: origin.X + float64(dims.X)*vs.X/2,
		Y: origin.Y + float64(dims.Y)*vs.Y/2,
		Z: origin.Z + float64(dims.Z)*vs.Z/2,
	}
	radius := float64(dims.X) * vs.X / 4
	orbit := voxel.Vec3{
		X: centre.X + radius*math.Cos(simTime),
		Y: centre.Y + radius*math.Sin(simTime),
		Z: centre.Z,
	}
	sigma := radius / 2
	if sigma <= 0 {
		sigma = 1
	}

	for z := 0; z < dims.Z; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				p := voxel.Vec3{
					X: origin.X + (float64(x)+0.5)*vs.X,
					Y: origin.Y + (float64(y)+0.5)*vs.Y,
					Z: origin.Z + (float64(z)+0.5)*vs.Z,
				}
				v := gaussian(p, centre, sigma) + 0.5*gaussian(p, orbit, sigma/2)
				data[vol.IndexOf(x, y, z)] = float32(v)
			}
		}
	}
}

func gaussian(p, c voxel.Vec3, sigma float64) float64 {
	dx, dy, dz := p.X-c.X, p.Y-c.Y, p.Z-c.Z
	return math.Exp(-(dx*dx + dy*dy + dz*dz) / (2 * sigma * sigma))
}
