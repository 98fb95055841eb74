package archive

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"diskrip/src/system"
)

// BinaryInfo describes a detected compressor binary.
type BinaryInfo struct {
	Path    string
	Version string
}

var compressorVersionRe = regexp.MustCompile(`v?([0-9]+\.[0-9]+(?:\.[0-9]+)?)`)

// DetectCompressor locates the configured compressor on PATH and probes
// its version so a missing tool surfaces before any volume is mounted.
// The probe subprocess is bounded by a short timeout.
func DetectCompressor(ctx context.Context, r system.Runner, compressor string) (BinaryInfo, error) {
	exe, err := r.LookPath(compressor)
	if err != nil {
		return BinaryInfo{}, fmt.Errorf("archive: compressor %q not found on PATH: %w", compressor, err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	out, err := r.Output(ctx, compressor, "--version")
	if err != nil {
		return BinaryInfo{}, fmt.Errorf("archive: %s --version failed: %w", compressor, err)
	}
	info := BinaryInfo{Path: exe}
	if line, _, _ := strings.Cut(string(out), "\n"); line != "" {
		if m := compressorVersionRe.FindStringSubmatch(line); len(m) == 2 {
			info.Version = m[1]
		}
	}
	return info, nil
}
