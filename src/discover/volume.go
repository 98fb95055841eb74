// Package discover enumerates block devices, flags encrypted containers,
// and annotates each candidate volume with a process/skip decision. It is
// the single producer of Volume records for a run.
package discover

// Volume is one discovered storage unit. Volumes are produced once per
// run; the only field mutated afterwards is SkipReason, set at most once
// by the filter chain (plus the only-include pass for previously clean
// volumes).
type Volume struct {
	Path       string `json:"path"`       // stable device path, e.g. /dev/sdb1
	KName      string `json:"kname"`      // kernel device name
	FSType     string `json:"fstype"`     // lowercased filesystem type
	SizeBytes  int64  `json:"size_bytes"`
	Type       string `json:"type"` // part, lvm, raid*, crypt, rom, disk
	UUID       string `json:"uuid,omitempty"`
	Model      string `json:"model,omitempty"`
	Encrypted  bool   `json:"encrypted"`
	DiskNo     int    `json:"diskno"`
	PartNo     int    `json:"partno"`
	SkipReason string `json:"skip_reason,omitempty"` // empty => eligible
}

// Eligible reports whether the volume survived filtering.
func (v *Volume) Eligible() bool { return v.SkipReason == "" }

// Status is the listing-facing decision string.
func (v *Volume) Status() string {
	if v.SkipReason != "" {
		return v.SkipReason
	}
	return "process"
}
