package voxel

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/fieldvolt-data/fieldvol/internal/fsutil"
)

// snapshotHeader precedes the sample stream in a snapshot file. Checksum is
// the xxhash64 of the little-endian sample bytes, verified on load.
type snapshotHeader struct {
	VoxelSize Vec3
	Dims      Dims
	Origin    Vec3
	Checksum  uint64
}

// Checksum returns the xxhash64 of the sample buffer's little-endian byte
// representation. The same value guards snapshots and is recorded in the
// export index.
func (v *Volume) Checksum() uint64 {
	d := xxhash.New()
	scratch := make([]byte, 0, rawWriteChunk*4)
	samples := v.samples
	for len(samples) > 0 {
		n := len(samples)
		if n > rawWriteChunk {
			n = rawWriteChunk
		}
		scratch = scratch[:0]
		for _, s := range samples[:n] {
			scratch = binary.LittleEndian.AppendUint32(scratch, math.Float32bits(s))
		}
		d.Write(scratch)
		samples = samples[n:]
	}
	return d.Sum64()
}

// SaveSnapshot persists the full volume state (geometry plus samples) as a
// gzip-compressed gob stream, so a run can re-export or resume without
// replaying the producer.
func (v *Volume) SaveSnapshot(path string) error {
	f, err := v.fs().Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWriteFailure, path, err)
	}

	gz := gzip.NewWriter(f)
	enc := gob.NewEncoder(gz)
	hdr := snapshotHeader{
		VoxelSize: v.voxelSize,
		Dims:      v.dims,
		Origin:    v.origin,
		Checksum:  v.Checksum(),
	}
	if err := enc.Encode(hdr); err != nil {
		gz.Close()
		f.Close()
		return fmt.Errorf("%w: encode snapshot header: %v", ErrWriteFailure, err)
	}
	if err := enc.Encode(v.samples); err != nil {
		gz.Close()
		f.Close()
		return fmt.Errorf("%w: encode snapshot samples: %v", ErrWriteFailure, err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return fmt.Errorf("%w: finish snapshot compression: %v", ErrWriteFailure, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrWriteFailure, path, err)
	}
	return nil
}

// LoadSnapshot restores a volume from a snapshot file, verifying the sample
// checksum and the geometry/buffer length consistency.
func LoadSnapshot(path string, fs fsutil.FileSystem) (*Volume, error) {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	blob, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: gzip: %w", path, err)
	}
	defer gz.Close()

	dec := gob.NewDecoder(gz)
	var hdr snapshotHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("snapshot %s: decode header: %w", path, err)
	}
	var samples []float32
	if err := dec.Decode(&samples); err != nil {
		return nil, fmt.Errorf("snapshot %s: decode samples: %w", path, err)
	}

	if int64(len(samples)) != hdr.Dims.Count() {
		return nil, fmt.Errorf("snapshot %s: sample count %d does not match dims %v", path, len(samples), hdr.Dims)
	}

	v := &Volume{
		voxelSize: hdr.VoxelSize,
		dims:      hdr.Dims,
		origin:    hdr.Origin,
		samples:   samples,
		FS:        fs,
	}
	if got := v.Checksum(); got != hdr.Checksum {
		return nil, fmt.Errorf("snapshot %s: checksum mismatch (got %016x, want %016x)", path, got, hdr.Checksum)
	}
	return v, nil
}
