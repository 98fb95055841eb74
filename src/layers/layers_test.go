package layers

import (
	"context"
	"errors"
	"testing"

	"diskrip/src/system"
)

func TestAssembleRunsInstalledTools(t *testing.T) {
	f := system.NewFake()
	f.Tools["mdadm"] = "/usr/sbin/mdadm"
	f.Tools["vgchange"] = "/usr/sbin/vgchange"
	f.Tools["zpool"] = "/usr/sbin/zpool"
	f.Script("mdadm --assemble --scan --readonly", "", nil)
	f.Script("vgchange -ay", "", nil)
	f.Script("zpool import -a -o readonly=on -N -f", "", nil)

	Assemble(context.Background(), f, Options{RAID: true, LVM: true})

	for _, tool := range []string{"mdadm", "vgchange", "zpool"} {
		if f.CallCount(tool) != 1 {
			t.Fatalf("%s calls = %d, want 1 (%v)", tool, f.CallCount(tool), f.Calls)
		}
	}
}

func TestAssembleSkipsMissingTools(t *testing.T) {
	f := system.NewFake() // nothing installed
	Assemble(context.Background(), f, Options{RAID: true, LVM: true})
	if len(f.Calls) != 0 {
		t.Fatalf("no commands should run without the tools: %v", f.Calls)
	}
}

func TestAssembleHonorsToggles(t *testing.T) {
	f := system.NewFake()
	f.Tools["mdadm"] = "/usr/sbin/mdadm"
	f.Tools["vgchange"] = "/usr/sbin/vgchange"

	Assemble(context.Background(), f, Options{})

	if len(f.Calls) != 0 {
		t.Fatalf("disabled steps must not run: %v", f.Calls)
	}
}

func TestAssembleSwallowsStepFailures(t *testing.T) {
	f := system.NewFake()
	f.Tools["vgchange"] = "/usr/sbin/vgchange"
	f.Script("vgchange -ay", "", errors.New("exit status 5"))
	// Must not panic or propagate; a failed step only reduces visibility.
	Assemble(context.Background(), f, Options{LVM: true})
	if f.CallCount("vgchange") != 1 {
		t.Fatalf("vgchange calls = %d", f.CallCount("vgchange"))
	}
}
