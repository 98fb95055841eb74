package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"diskrip/src/archive"
	"diskrip/src/discover"
	"diskrip/src/naming"
	"diskrip/src/report"
	"diskrip/src/transfer"
)

// processVolume drives one volume through mount -> archive -> transfer.
// A failing stage stops the ones after it; the unmount runs on every exit
// path, including panics, which are converted to an exception result at
// this boundary rather than propagated to the pool.
func (o *Orchestrator) processVolume(ctx context.Context, v discover.Volume, dateStr, token string, compThreads int) (res report.VolumeResult) {
	name := naming.VolumeName(o.cfg.Naming.Pattern, dateStr, token, v.DiskNo, v.PartNo)
	mp := filepath.Join(o.mountRoot, name)
	workDir := filepath.Join(o.cfg.Archive.SpoolDir, name)
	started := time.Now()

	res = report.VolumeResult{
		Device:     v.Path,
		FSType:     v.FSType,
		SizeBytes:  v.SizeBytes,
		Name:       name,
		Mountpoint: mp,
	}
	finish := func(status, errMsg string) report.VolumeResult {
		res.Status = status
		res.Error = errMsg
		res.DurationSec = roundSeconds(time.Since(started))
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("device", v.Path).Errorf("volume task panicked: %v", r)
			res = finish(report.StatusException, fmt.Sprintf("%v", r))
		}
	}()
	defer o.unmount(mp)

	log := logrus.WithFields(logrus.Fields{"device": v.Path, "name": name})

	if err := o.mount(ctx, o.runner, v.Path, v.FSType, mp); err != nil {
		log.WithError(err).Warn("mount failed")
		return finish(report.StatusMountFailed, err.Error())
	}

	if err := o.build(ctx, archive.Spec{
		Mountpoint:     mp,
		OutDir:         workDir,
		Name:           name,
		Compressor:     o.cfg.Archive.Compressor,
		Level:          o.cfg.Archive.CompressionLevel,
		Threads:        compThreads,
		ChunkSizeMB:    o.cfg.Archive.ChunkSizeMB,
		MaxFileSizeMB:  o.cfg.Filters.MaxFileSizeMB,
		Algorithm:      o.cfg.Integrity.Algorithm,
		PreserveXattrs: o.cfg.Archive.PreserveXattrs,
		DryRun:         o.dryRun,
		Progress:       o.progress,
	}); err != nil {
		log.WithError(err).Warn("archive failed")
		return finish(report.StatusArchiveFailed, err.Error())
	}

	if err := o.push(ctx, o.runner, transfer.Options{
		Remote:      o.cfg.Server.RsyncRemote,
		SSHKey:      o.cfg.Server.SSHKey,
		Port:        o.cfg.Server.Port,
		BwlimitKbps: o.cfg.Runtime.RsyncBwlimitKbps,
	}, workDir, dateStr, token); err != nil {
		log.WithError(err).Warn("transfer failed")
		return finish(report.StatusTransferFailed, err.Error())
	}

	log.Info("volume done")
	return finish(report.StatusOK, "")
}

func roundSeconds(d time.Duration) float64 {
	return float64(int64(d.Seconds()*100)) / 100
}
