package system

import (
	"os"
	"strings"
)

var hostIDFiles = []string{
	"/etc/machine-id",
	"/sys/class/dmi/id/product_uuid",
}

// HostID returns a stable identifier for the current machine. With source
// "machine-id" it reads /etc/machine-id, then the DMI product UUID, and
// falls back to the hostname; any other source uses the hostname directly.
// Callers read this once at run start and thread the value through token
// derivation rather than re-resolving it per volume.
func HostID(source string) string {
	if source == "machine-id" {
		for _, p := range hostIDFiles {
			if b, err := os.ReadFile(p); err == nil {
				if s := strings.TrimSpace(string(b)); s != "" {
					return s
				}
			}
		}
	}
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
