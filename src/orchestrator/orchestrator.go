// Package orchestrator owns the end-to-end run: layer assembly, volume
// discovery and filtering, token derivation, the concurrent per-volume
// pipeline, and run/volume summary persistence.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"diskrip/src/archive"
	"diskrip/src/config"
	"diskrip/src/discover"
	"diskrip/src/layers"
	"diskrip/src/mount"
	"diskrip/src/naming"
	"diskrip/src/report"
	"diskrip/src/system"
	"diskrip/src/transfer"
)

// DefaultMountRoot is where per-volume mountpoints are created, one
// subdirectory per derived volume name.
const DefaultMountRoot = "/mnt/diskrip"

// Options are the per-invocation knobs the CLI hands in alongside the
// resolved configuration.
type Options struct {
	Only            map[string]struct{} // device paths; nil means no restriction
	WorkersOverride int
	DryRun          bool
	Progress        io.Writer
}

// Orchestrator wires the pipeline stages together. The stage functions
// are fields so tests can substitute them without touching real devices.
type Orchestrator struct {
	cfg       config.Config
	runner    system.Runner
	opts      Options
	mountRoot string
	dryRun    bool
	progress  io.Writer
	numCPU    int
	hostname  string

	mount   func(ctx context.Context, r system.Runner, dev, fstype, target string) error
	unmount func(target string)
	build   func(ctx context.Context, spec archive.Spec) error
	push    func(ctx context.Context, r system.Runner, opts transfer.Options, localDir, dateStr, token string) error
}

// New builds an Orchestrator with the real stage implementations.
func New(cfg config.Config, r system.Runner, opts Options) *Orchestrator {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Orchestrator{
		cfg:       cfg,
		runner:    r,
		opts:      opts,
		mountRoot: DefaultMountRoot,
		dryRun:    opts.DryRun,
		progress:  opts.Progress,
		numCPU:    runtime.NumCPU(),
		hostname:  host,
		mount:     mount.Mount,
		unmount:   mount.Unmount,
		build:     archive.Build,
		push:      transfer.Push,
	}
}

// DiscoverVolumes runs layer assembly and discovery, returning the
// annotated candidate set. Exposed separately so the list command shares
// the exact filtering a run would apply.
func (o *Orchestrator) DiscoverVolumes(ctx context.Context, only map[string]struct{}) ([]discover.Volume, error) {
	layers.Assemble(ctx, o.runner, layers.Options{
		RAID: o.cfg.Discovery.AllowRAID,
		LVM:  o.cfg.Discovery.AllowLVM,
	})
	vols, err := discover.Collect(ctx, o.runner, discover.Options{
		IncludeFstypes:  o.cfg.Discovery.IncludeFstypes,
		SkipFstypes:     o.cfg.Discovery.SkipFstypes,
		SkipIfEncrypted: o.cfg.Discovery.SkipIfEncrypted,
		MinBytes:        o.cfg.MinPartitionBytes(),
		AvoidDevices:    o.cfg.Discovery.AvoidDevices,
	})
	if err != nil {
		return nil, err
	}
	discover.ApplyOnly(vols, only)
	return vols, nil
}

// Run executes the whole pipeline and returns the persisted summary. The
// error is non-nil only for fatal preconditions (discovery failure,
// unusable compressor, unwritable directories); per-volume failures are
// reported through the summary instead.
func (o *Orchestrator) Run(ctx context.Context) (report.RunSummary, error) {
	var summary report.RunSummary

	if !o.dryRun {
		for _, dir := range []string{o.cfg.Output.RunSummaryDir, o.cfg.Archive.SpoolDir, o.mountRoot} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return summary, fmt.Errorf("orchestrator: create %s (try running as root): %w", dir, err)
			}
		}
	}
	if _, err := archive.DetectCompressor(ctx, o.runner, o.cfg.Archive.Compressor); err != nil {
		return summary, err
	}

	dateStr := naming.DateString(o.cfg.Naming.DateFmt, time.Now())
	token := naming.Token(dateStr, system.HostID(o.cfg.Naming.TokenSource))

	vols, err := o.DiscoverVolumes(ctx, o.opts.Only)
	if err != nil {
		return summary, err
	}

	var eligible []discover.Volume
	for _, v := range vols {
		if v.Eligible() {
			eligible = append(eligible, v)
		}
	}
	// Largest first, to front-load the longest-running jobs.
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].SizeBytes > eligible[j].SizeBytes })

	workers := autoWorkers(firstPositive(o.opts.WorkersOverride, o.cfg.Runtime.Workers), o.numCPU)
	compThreads := compThreadsFor(workers, o.numCPU)
	logrus.Infof("workers=%d comp_threads/job=%d date=%s token=%s volumes=%d",
		workers, compThreads, dateStr, token, len(eligible))

	started := time.Now()
	results := o.runPool(ctx, eligible, dateStr, token, workers, compThreads)

	summary = report.RunSummary{
		StartedUTC:       started.UTC(),
		DurationSec:      roundSeconds(time.Since(started)),
		Host:             o.hostname,
		Date:             dateStr,
		Token:            token,
		VolumesTotal:     len(vols),
		VolumesProcessed: len(eligible),
		Results:          results,
	}
	if err := o.persist(summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// runPool feeds volumes to a bounded worker pool and collects results in
// completion order. Results flow through a channel to a single drain
// point, so no shared collection is touched concurrently.
func (o *Orchestrator) runPool(ctx context.Context, vols []discover.Volume, dateStr, token string, workers, compThreads int) []report.VolumeResult {
	jobs := make(chan discover.Volume)
	out := make(chan report.VolumeResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range jobs {
				out <- o.processVolume(ctx, v, dateStr, token, compThreads)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, v := range vols {
			select {
			case jobs <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]report.VolumeResult, 0, len(vols))
	for r := range out {
		results = append(results, r)
	}
	return results
}

// persist writes the run summary, optional per-volume records, and the
// optional history database row. Runs single-threaded after pool drain.
func (o *Orchestrator) persist(summary report.RunSummary) error {
	if o.dryRun {
		return nil
	}
	ts := time.Now().UTC().Format("20060102-150405")
	if err := report.WriteJSON(filepath.Join(o.cfg.Output.RunSummaryDir, "run-"+ts+".json"), summary); err != nil {
		return err
	}
	if o.cfg.Output.PerVolumeJSON {
		for _, r := range summary.Results {
			if err := report.WriteJSON(filepath.Join(o.cfg.Output.RunSummaryDir, r.Name+".json"), r); err != nil {
				return err
			}
		}
	}
	if o.cfg.Output.HistoryDB != "" {
		h, err := report.OpenHistory(o.cfg.Output.HistoryDB)
		if err != nil {
			logrus.WithError(err).Warn("history database unavailable; skipping")
			return nil
		}
		defer h.Close()
		if err := h.InsertRun(summary); err != nil {
			logrus.WithError(err).Warn("history insert failed")
		}
	}
	return nil
}

func firstPositive(ns ...int) int {
	for _, n := range ns {
		if n > 0 {
			return n
		}
	}
	return 0
}
