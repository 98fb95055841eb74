// Package mount chooses and executes the safest read-only mount recipe
// per filesystem type. Every recipe is read-only with nodev, nosuid and
// noexec, and journaled filesystems are mounted without replaying their
// journal, so source media are never written.
package mount

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"diskrip/src/system"
)

// recipe is one entry of the fstype dispatch table. Adding filesystem
// support means adding a recipe, not branching logic elsewhere.
type recipe struct {
	tool   string // "" means mount(8)
	fsArg  string // -t argument for mount(8)
	opts   string
	helper string // userspace bridge that must be on PATH
}

var recipes = map[string]recipe{
	"ext2":    {fsArg: "ext4", opts: "ro,noload,nodev,nosuid,noexec"},
	"ext3":    {fsArg: "ext4", opts: "ro,noload,nodev,nosuid,noexec"},
	"ext4":    {fsArg: "ext4", opts: "ro,noload,nodev,nosuid,noexec"},
	"xfs":     {fsArg: "xfs", opts: "ro,norecovery,nodev,nosuid,noexec"},
	"btrfs":   {fsArg: "btrfs", opts: "ro,nodev,nosuid,noexec"},
	"vfat":    {fsArg: "vfat", opts: "ro,uid=0,gid=0,umask=022,nodev,nosuid,noexec"},
	"exfat":   {fsArg: "exfat", opts: "ro,nodev,nosuid,noexec"},
	"hfs":     {fsArg: "hfs", opts: "ro,nodev,nosuid,noexec"},
	"hfsplus": {fsArg: "hfsplus", opts: "ro,force,nodev,nosuid,noexec"},
	"ntfs":    {tool: "ntfs-3g", opts: "ro,nodev,nosuid,noexec"},
	"apfs":    {tool: "apfs-fuse", helper: "apfs-fuse"},
}

// UnsupportedError marks a filesystem type absent from the recipe table.
type UnsupportedError struct{ FSType string }

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported fstype: %s", e.FSType)
}

// HelperMissingError marks a filesystem whose userspace bridge is not
// installed; the volume is skipped rather than failed.
type HelperMissingError struct {
	FSType string
	Helper string
}

func (e *HelperMissingError) Error() string {
	return fmt.Sprintf("%s requires %s which is not installed", e.FSType, e.Helper)
}

// ErrPoolManaged marks filesystems mounted by the pool import during
// layer assembly, not here. Informational, not a defect of the volume.
var ErrPoolManaged = errors.New("pool-backed filesystem is handled via pool import, not direct mount")

// Supported reports whether the fstype has a mount recipe.
func Supported(fstype string) bool {
	_, ok := recipes[fstype]
	return ok
}

// Mount mounts dev read-only at target. The mountpoint directory is
// created only after a recipe resolves, so unsupported types leave no
// partial state behind.
func Mount(ctx context.Context, r system.Runner, dev, fstype, target string) error {
	if fstype == "zfs" {
		return ErrPoolManaged
	}
	rec, ok := recipes[fstype]
	if !ok {
		return &UnsupportedError{FSType: fstype}
	}
	if rec.helper != "" {
		if _, err := r.LookPath(rec.helper); err != nil {
			return &HelperMissingError{FSType: fstype, Helper: rec.helper}
		}
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("mount: create mountpoint %s: %w", target, err)
	}
	var err error
	switch {
	case rec.tool == "apfs-fuse":
		err = r.Run(ctx, rec.tool, "--readonly", dev, target)
	case rec.tool != "":
		err = r.Run(ctx, rec.tool, "-o", rec.opts, dev, target)
	default:
		err = r.Run(ctx, "mount", "-t", rec.fsArg, "-o", rec.opts, dev, target)
	}
	if err != nil {
		os.Remove(target)
		return fmt.Errorf("mount: %s on %s: %w", dev, target, err)
	}
	return nil
}

// Unmount forcibly and lazily unmounts target and removes the mountpoint
// directory. Both errors are swallowed: the directory may legitimately
// still be busy, never have been created, or already be gone. Called
// unconditionally on every exit path of a volume task.
func Unmount(target string) {
	_ = unix.Unmount(target, unix.MNT_FORCE|unix.MNT_DETACH)
	_ = os.Remove(target)
}
