// Package report defines the result records a run produces and persists:
// one VolumeResult per processed volume and one RunSummary per run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Terminal statuses for a volume's processing task.
const (
	StatusOK             = "ok"
	StatusMountFailed    = "mount_failed"
	StatusArchiveFailed  = "archive_failed"
	StatusTransferFailed = "transfer_failed"
	StatusException      = "exception"
)

// VolumeResult is the outcome record for one volume. It is created when
// the volume's task starts, finalized exactly once when the task ends, and
// never mutated afterwards.
type VolumeResult struct {
	Device      string  `json:"device"`
	FSType      string  `json:"fstype"`
	SizeBytes   int64   `json:"size_bytes"`
	Name        string  `json:"name"`
	Mountpoint  string  `json:"mountpoint"`
	Status      string  `json:"status"`
	DurationSec float64 `json:"duration_sec"`
	Error       string  `json:"error,omitempty"`
}

// Succeeded reports whether the volume reached the success terminal state.
func (r VolumeResult) Succeeded() bool { return r.Status == StatusOK }

// RunSummary is the whole-run record persisted after the worker pool
// drains.
type RunSummary struct {
	StartedUTC       time.Time      `json:"started_utc"`
	DurationSec      float64        `json:"duration_sec"`
	Host             string         `json:"host"`
	Date             string         `json:"date"`
	Token            string         `json:"token"`
	VolumesTotal     int            `json:"volumes_total"`
	VolumesProcessed int            `json:"volumes_processed"`
	Results          []VolumeResult `json:"results"`
}

// Failed returns how many results did not reach the success state.
func (s RunSummary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if !r.Succeeded() {
			n++
		}
	}
	return n
}

// WriteJSON persists v as indented JSON at path, creating parent
// directories and writing atomically (temp file + rename) so a reader
// never observes a half-written summary.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: create %s: %w", filepath.Dir(path), err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("report: create temp for %s: %w", path, err)
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("report: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("report: replace %s: %w", path, err)
	}
	return nil
}
