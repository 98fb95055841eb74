// Package layers brings stacked storage online in a read-only posture so
// its member volumes become visible to enumeration: software RAID arrays,
// LVM volume groups, and importable ZFS pools.
package layers

import (
	"context"

	"github.com/sirupsen/logrus"

	"diskrip/src/system"
)

// Options toggles the individual assembly steps.
type Options struct {
	RAID bool
	LVM  bool
}

// Assemble is best-effort and idempotent. A missing tool skips its step;
// a failing command is logged and ignored. Nothing here is fatal to the
// run, since failure only reduces what enumeration can see.
func Assemble(ctx context.Context, r system.Runner, opts Options) {
	if opts.RAID {
		tryStep(ctx, r, "mdadm", "--assemble", "--scan", "--readonly")
	}
	if opts.LVM {
		tryStep(ctx, r, "vgchange", "-ay")
	}
	tryStep(ctx, r, "zpool", "import", "-a", "-o", "readonly=on", "-N", "-f")
}

func tryStep(ctx context.Context, r system.Runner, tool string, args ...string) {
	if _, err := r.LookPath(tool); err != nil {
		logrus.WithField("tool", tool).Debug("layer tool not installed; skipping")
		return
	}
	if err := r.Run(ctx, tool, args...); err != nil {
		logrus.WithField("tool", tool).WithError(err).Warn("layer assembly step failed")
	}
}
