package mount

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"diskrip/src/system"
)

func TestMountExt4Recipe(t *testing.T) {
	target := filepath.Join(t.TempDir(), "mp")
	f := system.NewFake()
	f.Script("mount -t ext4 -o ro,noload,nodev,nosuid,noexec /dev/sdb1 "+target, "", nil)

	if err := Mount(context.Background(), f, "/dev/sdb1", "ext4", target); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("mountpoint directory missing: %v", err)
	}
}

func TestMountUnsupportedLeavesNoDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "mp")
	f := system.NewFake()

	err := Mount(context.Background(), f, "/dev/sdb1", "reiserfs", target)
	var unsup *UnsupportedError
	if !errors.As(err, &unsup) {
		t.Fatalf("err = %v, want UnsupportedError", err)
	}
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatalf("unsupported fstype must not create the mountpoint, stat: %v", statErr)
	}
	if len(f.Calls) != 0 {
		t.Fatalf("unsupported fstype must not run commands, got %v", f.Calls)
	}
}

func TestMountCommandFailureCleansUp(t *testing.T) {
	target := filepath.Join(t.TempDir(), "mp")
	f := system.NewFake()
	f.Script("mount -t xfs -o ro,norecovery,nodev,nosuid,noexec /dev/sdb1 "+target, "", errors.New("exit status 32"))

	if err := Mount(context.Background(), f, "/dev/sdb1", "xfs", target); err == nil {
		t.Fatalf("expected mount failure")
	}
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatalf("failed mount should remove the empty mountpoint")
	}
}

func TestMountAPFSRequiresHelper(t *testing.T) {
	target := filepath.Join(t.TempDir(), "mp")
	f := system.NewFake() // apfs-fuse not installed

	err := Mount(context.Background(), f, "/dev/sdb2", "apfs", target)
	var missing *HelperMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want HelperMissingError", err)
	}
	if missing.Helper != "apfs-fuse" {
		t.Fatalf("helper = %q", missing.Helper)
	}

	f.Tools["apfs-fuse"] = "/usr/local/bin/apfs-fuse"
	f.Script("apfs-fuse --readonly /dev/sdb2 "+target, "", nil)
	if err := Mount(context.Background(), f, "/dev/sdb2", "apfs", target); err != nil {
		t.Fatalf("Mount with helper installed: %v", err)
	}
}

func TestMountZFSIsPoolManaged(t *testing.T) {
	target := filepath.Join(t.TempDir(), "mp")
	f := system.NewFake()
	if err := Mount(context.Background(), f, "/dev/sdb3", "zfs", target); !errors.Is(err, ErrPoolManaged) {
		t.Fatalf("err = %v, want ErrPoolManaged", err)
	}
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatalf("zfs must not create a mountpoint")
	}
}

func TestMountNtfsUsesBridge(t *testing.T) {
	target := filepath.Join(t.TempDir(), "mp")
	f := system.NewFake()
	f.Script("ntfs-3g -o ro,nodev,nosuid,noexec /dev/sdb1 "+target, "", nil)
	if err := Mount(context.Background(), f, "/dev/sdb1", "ntfs", target); err != nil {
		t.Fatalf("Mount ntfs: %v", err)
	}
}

func TestUnmountNeverPanics(t *testing.T) {
	// Mountpoint that never existed.
	Unmount(filepath.Join(t.TempDir(), "never-created"))

	// Plain directory that is not a mount.
	dir := filepath.Join(t.TempDir(), "mp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	Unmount(dir)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("Unmount should remove the mountpoint directory")
	}
}

func TestSupported(t *testing.T) {
	for _, fs := range []string{"ext2", "ext3", "ext4", "xfs", "btrfs", "vfat", "exfat", "hfs", "hfsplus", "ntfs", "apfs"} {
		if !Supported(fs) {
			t.Fatalf("expected %s to be supported", fs)
		}
	}
	if Supported("zfs") || Supported("reiserfs") {
		t.Fatalf("zfs and unknown fstypes are not direct-mount recipes")
	}
}
