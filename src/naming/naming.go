// Package naming derives the per-run token and per-volume names that
// namespace spool directories and the remote destination. Everything here
// is deterministic so a retried run on the same day and host lands in the
// same remote namespace.
package naming

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// TokenLength is the number of base36 characters in a run token.
const TokenLength = 5

// Token derives the run token from the rendered date string and the host
// identity: sha256(date + ":" + hostID), first 8 bytes as a big-endian
// integer, emitted least-significant base36 digit first.
func Token(dateStr, hostID string) string {
	sum := sha256.Sum256([]byte(dateStr + ":" + hostID))
	n := binary.BigEndian.Uint64(sum[:8])
	var b strings.Builder
	for i := 0; i < TokenLength; i++ {
		b.WriteByte(base36[n%36])
		n /= 36
	}
	return b.String()
}

// DateString renders the configured strftime pattern (e.g. "%Y%m%d") for
// the given instant in UTC.
func DateString(pattern string, now time.Time) string {
	return strftime.Format(pattern, now.UTC())
}

// VolumeName expands the naming pattern with the run date, token and the
// volume's disk/partition indices. Unknown placeholders are left as-is.
func VolumeName(pattern, dateStr, token string, diskNo, partNo int) string {
	r := strings.NewReplacer(
		"{date}", dateStr,
		"{token}", token,
		"{disk}", strconv.Itoa(diskNo),
		"{part}", strconv.Itoa(partNo),
	)
	return r.Replace(pattern)
}
