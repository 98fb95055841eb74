package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"diskrip/src/system"
)

const lsblkColumns = "NAME,KNAME,PATH,TYPE,SIZE,FSTYPE,FSVER,LABEL,UUID,MOUNTPOINT,RM,RO,MODEL,TRAN"

// blockDevice mirrors one node of `lsblk -J` output. Children nest
// arbitrarily deep for stacked storage (disk > part > crypt > lvm ...).
type blockDevice struct {
	Name       string        `json:"name"`
	KName      string        `json:"kname"`
	Path       string        `json:"path"`
	Type       string        `json:"type"`
	Size       flexInt64     `json:"size"`
	FSType     string        `json:"fstype"`
	Label      string        `json:"label"`
	UUID       string        `json:"uuid"`
	Mountpoint string        `json:"mountpoint"`
	Model      string        `json:"model"`
	Tran       string        `json:"tran"`
	Children   []blockDevice `json:"children"`
}

type lsblkReport struct {
	BlockDevices []blockDevice `json:"blockdevices"`
}

// flexInt64 tolerates both JSON number and string encodings; lsblk emits
// numbers with -b but older releases quote them.
type flexInt64 int64

func (n *flexInt64) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*n = flexInt64(v)
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = flexInt64(v)
	return nil
}

// listDevices runs lsblk and parses its JSON tree. Failures here are
// fatal to the run: without device metadata there is nothing to discover.
func listDevices(ctx context.Context, r system.Runner) (*lsblkReport, error) {
	out, err := r.Output(ctx, "lsblk", "-b", "-J", "-o", lsblkColumns)
	if err != nil {
		return nil, fmt.Errorf("discover: lsblk failed (needs root or block device access): %w", err)
	}
	var rep lsblkReport
	if err := json.Unmarshal(out, &rep); err != nil {
		return nil, fmt.Errorf("discover: lsblk output is not valid JSON: %w", err)
	}
	return &rep, nil
}
