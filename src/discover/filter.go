package discover

import (
	"fmt"
	"path/filepath"
	"slices"
)

// Skip reason prefixes. Reasons are machine-readable and surface verbatim
// in the listing output and run summaries.
const (
	ReasonBootAvoid = "boot/avoid"
	ReasonNotInOnly = "not_in_only"
)

// annotate applies the filter chain to each volume, in order, first match
// wins and is final: boot/avoid, denied fstype, allowlist miss, encrypted
// under skip policy, size floor. Volumes with no match stay eligible.
func annotate(vols []Volume, exclude map[string]struct{}, opts Options) {
	minGB := opts.MinBytes / (1 << 30)
	for i := range vols {
		v := &vols[i]
		_, excluded := exclude[v.Path]
		switch {
		case excluded || slices.Contains(opts.AvoidDevices, filepath.Base(v.Path)):
			v.SkipReason = ReasonBootAvoid
		case slices.Contains(opts.SkipFstypes, v.FSType):
			v.SkipReason = "skip_fstype:" + v.FSType
		case len(opts.IncludeFstypes) > 0 && !slices.Contains(opts.IncludeFstypes, v.FSType):
			v.SkipReason = "unsupported_fstype:" + v.FSType
		case opts.SkipIfEncrypted && v.Encrypted:
			v.SkipReason = "encrypted"
		case v.SizeBytes < opts.MinBytes:
			v.SkipReason = fmt.Sprintf("too_small<%dG", minGB)
		}
	}
}

// ApplyOnly restricts the run to an explicit device set. Eligible volumes
// outside the set become skipped; volumes that already carry a reason keep
// it untouched.
func ApplyOnly(vols []Volume, only map[string]struct{}) {
	if len(only) == 0 {
		return
	}
	for i := range vols {
		if vols[i].SkipReason != "" {
			continue
		}
		if _, ok := only[vols[i].Path]; !ok {
			vols[i].SkipReason = ReasonNotInOnly
		}
	}
}
