package archive

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// pipelineSpec describes the find | tar | compress stage chain for one
// volume.
type pipelineSpec struct {
	Mountpoint     string
	Compressor     string // zstd or pigz
	Level          int
	Threads        int
	MaxFileSizeMB  int
	PreserveXattrs bool
}

// findArgs builds the file-listing invocation: relative paths from the
// mounted root, null-delimited so embedded separators in filenames cannot
// corrupt the listing. Directories and symlinks are always included;
// regular files only under the size ceiling when one is configured.
func findArgs(maxMB int) []string {
	args := []string{".", "-xdev", "("}
	args = append(args, "-type", "d", "-print0", "-o", "-type", "l", "-print0", "-o")
	if maxMB > 0 {
		args = append(args, "(", "-type", "f", "-size", fmt.Sprintf("-%dM", maxMB), "-print0", ")")
	} else {
		args = append(args, "-type", "f", "-print0")
	}
	return append(args, ")")
}

// tarArgs builds the archiving stage: numeric ownership always, ACLs and
// extended attributes when configured, file list read null-delimited from
// stdin.
func tarArgs(mountpoint string, xattrs bool) []string {
	args := []string{"-C", mountpoint, "--numeric-owner"}
	if xattrs {
		args = append(args, "--acls", "--xattrs", "--xattrs-include=*")
	}
	return append(args, "--null", "-T", "-", "-cpf", "-")
}

// compressorArgs builds the compression stage for the configured
// algorithm, level and thread count.
func compressorArgs(compressor string, level, threads int) ([]string, error) {
	switch compressor {
	case "zstd":
		return []string{"-q", fmt.Sprintf("-T%d", threads), fmt.Sprintf("-%d", level)}, nil
	case "pigz":
		return []string{"-p", fmt.Sprintf("%d", threads), fmt.Sprintf("-%d", level)}, nil
	default:
		return nil, fmt.Errorf("archive: unsupported compressor %q", compressor)
	}
}

// runPipeline starts all three stages connected by OS pipes, streams the
// compressed output into dst, and waits for every stage. A non-zero exit
// from any stage fails the whole pipeline.
func runPipeline(ctx context.Context, spec pipelineSpec, dst io.Writer) error {
	compArgs, err := compressorArgs(spec.Compressor, spec.Level, spec.Threads)
	if err != nil {
		return err
	}

	find := exec.CommandContext(ctx, "find", findArgs(spec.MaxFileSizeMB)...)
	find.Dir = spec.Mountpoint
	tar := exec.CommandContext(ctx, "tar", tarArgs(spec.Mountpoint, spec.PreserveXattrs)...)
	comp := exec.CommandContext(ctx, spec.Compressor, compArgs...)

	findOut, err := find.StdoutPipe()
	if err != nil {
		return fmt.Errorf("archive: wire find stdout: %w", err)
	}
	tar.Stdin = findOut
	tarOut, err := tar.StdoutPipe()
	if err != nil {
		return fmt.Errorf("archive: wire tar stdout: %w", err)
	}
	comp.Stdin = tarOut
	compOut, err := comp.StdoutPipe()
	if err != nil {
		return fmt.Errorf("archive: wire compressor stdout: %w", err)
	}

	stages := []*exec.Cmd{find, tar, comp}
	for _, cmd := range stages {
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("archive: start %s: %w", cmd.Path, err)
		}
	}

	_, copyErr := io.Copy(dst, compOut)

	var stageErrs []string
	for _, cmd := range stages {
		if err := cmd.Wait(); err != nil {
			stageErrs = append(stageErrs, fmt.Sprintf("%s: %v", cmd.Args[0], err))
		}
	}
	if copyErr != nil {
		return fmt.Errorf("archive: stream compressed output: %w", copyErr)
	}
	if len(stageErrs) > 0 {
		return fmt.Errorf("archive: pipeline failed: %s", strings.Join(stageErrs, "; "))
	}
	return nil
}
