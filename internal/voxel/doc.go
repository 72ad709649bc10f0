// Package voxel implements a dense axis-aligned scalar field sampled on a
// regular 3D grid, with export to headerless float32 raw dumps plus either a
// plain-text metadata sidecar or a MetaImage (.mhd) header for third-party
// volume viewers.
//
// A Volume is constructed once per run from a bounding box, a symmetric
// padding extent and a voxel size. External producers deposit samples
// directly through the slice returned by Data; the package performs no
// locking, so callers must serialise producer writes against Clear and the
// writers for each time step.
package voxel
