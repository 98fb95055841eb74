package discover

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"diskrip/src/system"
)

// Options are the discovery-side filter parameters, resolved from config
// before Collect runs.
type Options struct {
	IncludeFstypes  []string
	SkipFstypes     []string
	SkipIfEncrypted bool
	MinBytes        int64
	AvoidDevices    []string // bare device names, no /dev/ prefix
}

// candidateTypes are the lsblk node types that represent an actually
// consumable filesystem. Whole disks qualify only when they carry a
// filesystem directly (no partition table).
var candidateTypes = map[string]struct{}{
	"part": {}, "lvm": {}, "crypt": {}, "rom": {},
	"raid0": {}, "raid1": {}, "raid4": {}, "raid5": {}, "raid6": {}, "raid10": {},
}

// maxParentHops bounds the ancestor walk when resolving a volume's
// physical disk; beyond this the resolution fails closed.
const maxParentHops = 8

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// Collect enumerates block devices and returns Volume candidates with
// skip reasons annotated. Mounting is handled later; this function only
// decides what the run should touch.
func Collect(ctx context.Context, r system.Runner, opts Options) ([]Volume, error) {
	rep, err := listDevices(ctx, r)
	if err != nil {
		return nil, err
	}
	exclude := bootDevices(ctx, r, rep)
	diskIndex := buildDiskIndex(rep)

	var vols []Volume
	var walk func(node *blockDevice, ancestors []*blockDevice)
	walk = func(node *blockDevice, ancestors []*blockDevice) {
		if node.Path != "" {
			fstype := strings.ToLower(node.FSType)
			_, consider := candidateTypes[node.Type]
			if consider || (node.Type == "disk" && fstype != "") {
				enc := false
				if opts.SkipIfEncrypted {
					enc = isEncrypted(ctx, r, node.Path, node.FSType)
				}
				diskNo := 0
				if parent := parentDisk(node, ancestors); parent != "" {
					diskNo = diskIndex[parent]
				} else {
					logrus.WithField("device", node.Path).Warn("could not resolve parent disk; using disk index 0")
				}
				vols = append(vols, Volume{
					Path:      node.Path,
					KName:     kname(node),
					FSType:    fstype,
					SizeBytes: int64(node.Size),
					Type:      node.Type,
					UUID:      node.UUID,
					Model:     strings.TrimSpace(node.Model),
					Encrypted: enc,
					DiskNo:    diskNo,
					PartNo:    partNo(kname(node)),
				})
			}
		}
		ancestors = append(ancestors, node)
		for i := range node.Children {
			walk(&node.Children[i], ancestors)
		}
	}
	for i := range rep.BlockDevices {
		walk(&rep.BlockDevices[i], nil)
	}

	annotate(vols, exclude, opts)
	return vols, nil
}

func kname(node *blockDevice) string {
	if node.KName != "" {
		return node.KName
	}
	return node.Name
}

// partNo parses the partition index from the trailing digits of a kernel
// name (sdb1 -> 1, nvme0n1p2 -> 2); devices without one get 0.
func partNo(kname string) int {
	m := trailingDigits.FindStringSubmatch(kname)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// parentDisk resolves the physical disk backing a node: the node itself
// when it is a disk, otherwise the nearest ancestor of type disk within
// maxParentHops. Returns "" when unresolved.
func parentDisk(node *blockDevice, ancestors []*blockDevice) string {
	if node.Type == "disk" {
		return node.Path
	}
	for i, hops := len(ancestors)-1, 0; i >= 0 && hops < maxParentHops; i, hops = i-1, hops+1 {
		if ancestors[i].Type == "disk" {
			return ancestors[i].Path
		}
	}
	return ""
}

// buildDiskIndex assigns stable zero-based indices to physical disks,
// sorted by device path.
func buildDiskIndex(rep *lsblkReport) map[string]int {
	var disks []string
	var visit func(node *blockDevice)
	visit = func(node *blockDevice) {
		if node.Type == "disk" && node.Path != "" {
			disks = append(disks, node.Path)
		}
		for i := range node.Children {
			visit(&node.Children[i])
		}
	}
	for i := range rep.BlockDevices {
		visit(&rep.BlockDevices[i])
	}
	sort.Strings(disks)
	idx := make(map[string]int, len(disks))
	for i, d := range disks {
		idx[d] = i
	}
	return idx
}

// liveMountpoints are checked in addition to / when identifying the
// boot/live medium.
var liveMountpoints = []string{"/cdrom", "/isodevice"}

// bootDevices returns the devices backing the root filesystem and any
// live-media mountpoints, plus their parent disks. Everything in the set
// is excluded from processing.
func bootDevices(ctx context.Context, r system.Runner, rep *lsblkReport) map[string]struct{} {
	exclude := map[string]struct{}{}
	add := func(dev string) {
		exclude[dev] = struct{}{}
		if disk := findParentDisk(rep, dev); disk != "" {
			exclude[disk] = struct{}{}
		}
	}
	for _, mp := range append([]string{"/"}, liveMountpoints...) {
		out, err := r.Output(ctx, "findmnt", "-no", "SOURCE", mp)
		if err != nil {
			continue
		}
		src := strings.TrimSpace(string(out))
		if strings.HasPrefix(src, "/dev/") {
			add(src)
		}
	}
	return exclude
}

// findParentDisk locates dev in the lsblk tree and resolves its physical
// disk through the same ancestor walk used for disk numbering.
func findParentDisk(rep *lsblkReport, dev string) string {
	var found string
	var walk func(node *blockDevice, ancestors []*blockDevice)
	walk = func(node *blockDevice, ancestors []*blockDevice) {
		if found != "" {
			return
		}
		if node.Path == dev {
			found = parentDisk(node, ancestors)
			return
		}
		ancestors = append(ancestors, node)
		for i := range node.Children {
			walk(&node.Children[i], ancestors)
		}
	}
	for i := range rep.BlockDevices {
		walk(&rep.BlockDevices[i], nil)
	}
	return found
}
