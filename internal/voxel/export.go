package voxel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fieldvolt-data/fieldvol/internal/monitoring"
	"github.com/fieldvolt-data/fieldvol/internal/timeutil"
	"github.com/fieldvolt-data/fieldvol/internal/units"
)

// rawWriteChunk is the number of samples encoded per Write call when
// streaming the raw dump.
const rawWriteChunk = 16384

// WriteToFile persists the sample buffer as a headerless raw float dump plus
// a plain-text metadata sidecar. File names derive from outputPrefix and the
// time-step suffix:
//
//	<prefix>_volume_floats_<suffix>.raw
//	<prefix>_volume_info_<suffix>.txt
//
// The data unit is relabeled from a current to a potential (A -> V) before
// it is written to the sidecar. Failures surface as ErrWriteFailure.
func (v *Volume) WriteToFile(simTime, timeStep float64, dataUnit, outputPrefix, configLabel, reportLabel, targetLabel string) error {
	suffix := timeutil.TimeStepSuffix(simTime)

	rawName := outputPrefix + "_volume_floats_" + suffix + ".raw"
	if err := v.writeRaw(rawName); err != nil {
		return err
	}

	infoName := outputPrefix + "_volume_info_" + suffix + ".txt"
	if err := v.fs().WriteFile(infoName, v.infoText(timeStep, dataUnit, configLabel, reportLabel, targetLabel), 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrWriteFailure, infoName, err)
	}

	monitoring.Logf("Volume for time %s written to disk", suffix)
	return nil
}

// WriteToFileMhd persists the sample buffer as a raw float dump plus a
// MetaImage text header referencing it, for third-party volume viewers.
//
// The raw name concatenates the suffix without a separator, a quirk kept for
// compatibility with downstream tooling that globs these files:
//
//	<prefix>_volume_floats<suffix>.raw
//	<prefix>_volume_floats_<suffix>.mhd
//
// The header's ElementDataFile field equals the raw name string exactly.
// MetaImage has no free-text unit field, so dataUnit is accepted for
// signature parity with WriteToFile but not written.
func (v *Volume) WriteToFileMhd(simTime float64, dataUnit, outputPrefix string) error {
	suffix := timeutil.TimeStepSuffix(simTime)

	rawName := outputPrefix + "_volume_floats" + suffix + ".raw"
	if err := v.writeRaw(rawName); err != nil {
		return err
	}

	hdrName := outputPrefix + "_volume_floats_" + suffix + ".mhd"
	if err := v.fs().WriteFile(hdrName, v.mhdText(rawName), 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrWriteFailure, hdrName, err)
	}

	monitoring.Logf("Volume .mhd for time %s written to disk", suffix)
	return nil
}

// writeRaw streams the buffer to name as little-endian IEEE-754 float32
// values, x axis fastest, no header.
func (v *Volume) writeRaw(name string) error {
	f, err := v.fs().Create(name)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWriteFailure, name, err)
	}

	if err := encodeSamples(f, v.samples); err != nil {
		f.Close()
		return fmt.Errorf("%w: write %s: %v", ErrWriteFailure, name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrWriteFailure, name, err)
	}
	return nil
}

// encodeSamples writes samples to w in fixed-size chunks so the scratch
// buffer stays small regardless of grid size.
func encodeSamples(w io.Writer, samples []float32) error {
	scratch := make([]byte, 0, rawWriteChunk*4)
	for len(samples) > 0 {
		n := len(samples)
		if n > rawWriteChunk {
			n = rawWriteChunk
		}
		scratch = scratch[:0]
		for _, s := range samples[:n] {
			scratch = binary.LittleEndian.AppendUint32(scratch, math.Float32bits(s))
		}
		if _, err := w.Write(scratch); err != nil {
			return err
		}
		samples = samples[n:]
	}
	return nil
}

// infoText renders the metadata sidecar. Line order and literal prefixes are
// fixed; downstream scripts parse these by prefix.
func (v *Volume) infoText(timeStep float64, dataUnit, configLabel, reportLabel, targetLabel string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# File generated by fieldvol:\n")
	fmt.Fprintf(&buf, "# - Config: %s\n", configLabel)
	fmt.Fprintf(&buf, "# - Target: %s\n", targetLabel)
	fmt.Fprintf(&buf, "# - Report: %s\n", reportLabel)
	fmt.Fprintf(&buf, "# - Time step: %s\n", formatFloat(timeStep))
	fmt.Fprintf(&buf, "# - Units: %s\n", units.CurrentToPotential(dataUnit))
	fmt.Fprintf(&buf, "# - SizeInVoxels: %d %d %d\n", v.dims.X, v.dims.Y, v.dims.Z)
	fmt.Fprintf(&buf, "# - SizeInMicrons: %s %s %s\n",
		formatFloat(float64(v.dims.X)*v.voxelSize.X),
		formatFloat(float64(v.dims.Y)*v.voxelSize.Y),
		formatFloat(float64(v.dims.Z)*v.voxelSize.Z))
	fmt.Fprintf(&buf, "#\n")
	return buf.Bytes()
}

// mhdText renders the MetaImage header referencing rawName. Field order is
// fixed by the format.
func (v *Volume) mhdText(rawName string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "ObjectType = Image\n")
	fmt.Fprintf(&buf, "NDims = 3\n")
	fmt.Fprintf(&buf, "BinaryData = True\n")
	fmt.Fprintf(&buf, "BinaryDataByteOrderMSB = False\n")
	fmt.Fprintf(&buf, "CompressedData = False\n")
	fmt.Fprintf(&buf, "TransformMatrix = 1 0 0 0 1 0 0 0 1\n")
	fmt.Fprintf(&buf, "Offset = 0 0 0\n")
	fmt.Fprintf(&buf, "CenterOfRotation = 0 0 0\n")
	fmt.Fprintf(&buf, "AnatomicalOrientation = 0 0 0\n")
	fmt.Fprintf(&buf, "ElementSpacing = %s %s %s\n",
		formatFloat(v.voxelSize.X), formatFloat(v.voxelSize.Y), formatFloat(v.voxelSize.Z))
	fmt.Fprintf(&buf, "DimSize = %d %d %d\n", v.dims.X, v.dims.Y, v.dims.Z)
	fmt.Fprintf(&buf, "ElementType = MET_FLOAT\n")
	fmt.Fprintf(&buf, "ElementDataFile = %s\n", rawName)
	return buf.Bytes()
}

// formatFloat renders a float with the shortest exact decimal form, so whole
// values print without a trailing ".0" (10 not 10.0) and fractions keep full
// precision.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
