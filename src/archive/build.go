// Package archive walks a mounted volume, streams it through an
// archive+compress pipeline, splits the compressed stream into checksummed
// chunks, and records a manifest describing the result.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	pg "diskrip/src/util/progress"
)

// Spec carries everything Build needs for one volume.
type Spec struct {
	Mountpoint     string
	OutDir         string
	Name           string // archive base name, without extension
	Compressor     string // zstd or pigz
	Level          int
	Threads        int
	ChunkSizeMB    int // 0 disables chunking
	MaxFileSizeMB  int // 0 disables the per-file ceiling
	Algorithm      string
	PreserveXattrs bool
	DryRun         bool
	Progress       io.Writer // optional byte progress
}

// Ext returns the archive filename extension for a compressor choice.
func Ext(compressor string) string {
	if compressor == "pigz" {
		return "gz"
	}
	return "zst"
}

// Build archives the mounted volume into Spec.OutDir. On success the
// directory holds the chunk (or single archive) files, one checksum file
// per chunk, the ordered parts list, the whole-stream checksum and the
// manifest. A failing pipeline stage discards partial output and writes no
// manifest.
func Build(ctx context.Context, spec Spec) error {
	ext := Ext(spec.Compressor)
	base := fmt.Sprintf("%s.tar.%s", spec.Name, ext)
	if spec.DryRun {
		logrus.Infof("[dry-run] archive %s -> %s/%s (chunk %d MB, threads %d)",
			spec.Mountpoint, spec.OutDir, base, spec.ChunkSizeMB, spec.Threads)
		return nil
	}
	if err := os.MkdirAll(spec.OutDir, 0o755); err != nil {
		return fmt.Errorf("archive: create output dir: %w", err)
	}

	cw, err := newChunkWriter(spec.OutDir, base, spec.ChunkSizeMB, spec.Algorithm)
	if err != nil {
		return err
	}

	var dst io.Writer = cw
	if spec.Progress != nil {
		dst = io.MultiWriter(cw, pg.NewWriter(spec.Name, spec.Progress))
	}
	pipeErr := runPipeline(ctx, pipelineSpec{
		Mountpoint:     spec.Mountpoint,
		Compressor:     spec.Compressor,
		Level:          spec.Level,
		Threads:        spec.Threads,
		MaxFileSizeMB:  spec.MaxFileSizeMB,
		PreserveXattrs: spec.PreserveXattrs,
	}, dst)
	if pipeErr != nil {
		cw.discard()
		return pipeErr
	}
	if err := cw.Close(); err != nil {
		cw.discard()
		return err
	}
	return writeMetadata(spec.OutDir, spec.Algorithm, spec.ChunkSizeMB, ext, cw.WholeSum(), cw.Chunks())
}
