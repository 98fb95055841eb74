package cli

import (
	"bytes"
	"strings"
	"testing"

	"diskrip/src/discover"
)

func TestRenderPlanSortsAndFormats(t *testing.T) {
	vols := []discover.Volume{
		{Path: "/dev/sdc1", FSType: "crypto_luks", SizeBytes: 1000203091968, DiskNo: 2, PartNo: 1, SkipReason: "encrypted"},
		{Path: "/dev/sdb2", FSType: "xfs", SizeBytes: 53687091200, DiskNo: 1, PartNo: 2, SkipReason: "too_small<100G"},
		{Path: "/dev/sdb1", FSType: "ext4", SizeBytes: 536870912000, DiskNo: 1, PartNo: 1},
	}
	var buf bytes.Buffer
	if err := renderPlan(&buf, vols); err != nil {
		t.Fatalf("renderPlan: %v", err)
	}
	out := buf.String()

	// Sorted by disk then partition.
	i1 := strings.Index(out, "/dev/sdb1")
	i2 := strings.Index(out, "/dev/sdb2")
	i3 := strings.Index(out, "/dev/sdc1")
	if !(i1 >= 0 && i1 < i2 && i2 < i3) {
		t.Fatalf("row order wrong:\n%s", out)
	}
	for _, want := range []string{"DEVICE", "STATUS", "process", "too_small<100G", "encrypted"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderPlanEmptyFstypePlaceholder(t *testing.T) {
	var buf bytes.Buffer
	if err := renderPlan(&buf, []discover.Volume{{Path: "/dev/sr0", Type: "rom"}}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "-") {
		t.Fatalf("missing fstype placeholder:\n%s", buf.String())
	}
}
