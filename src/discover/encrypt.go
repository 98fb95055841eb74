package discover

import (
	"context"
	"strings"

	"diskrip/src/system"
)

// blkidExport parses `blkid -o export` key/value output. A failing blkid
// (missing tool, unreadable device) yields an empty map: the encryption
// check fails open and the filter policy decides what happens next.
func blkidExport(ctx context.Context, r system.Runner, dev string) map[string]string {
	out, err := r.Output(ctx, "blkid", "-o", "export", dev)
	if err != nil {
		return map[string]string{}
	}
	kv := map[string]string{}
	for _, line := range strings.Split(string(out), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			kv[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return kv
}

// isEncrypted decides whether a device is an at-rest-encrypted container
// that must not be opened. The fstype gives an immediate answer for LUKS;
// otherwise blkid metadata is inspected for markers of the known formats
// (LUKS, BitLocker/FVE, encrypted APFS, VeraCrypt/TrueCrypt).
func isEncrypted(ctx context.Context, r system.Runner, dev, fstype string) bool {
	if strings.EqualFold(fstype, "crypto_LUKS") {
		return true
	}
	info := blkidExport(ctx, r, dev)
	t := strings.ToLower(info["TYPE"])
	label := strings.ToLower(info["LABEL"])
	switch {
	case strings.Contains(t, "crypto_luks"):
		return true
	case strings.Contains(t, "bitlocker") || strings.Contains(label, "bitlocker") || strings.Contains(label, "fve"):
		return true
	case t == "apfs" && strings.Contains(strings.ToLower(info["APFS_FEATURES"]), "encrypted"):
		return true
	case strings.Contains(label, "veracrypt") || strings.Contains(label, "truecrypt"):
		return true
	}
	return false
}
