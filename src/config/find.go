package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lxc/incus/shared/util"
)

const etcConfigPath = "/etc/diskrip.toml"

// FindConfig picks the configuration file to load. An explicitly given
// path must exist; otherwise a diskrip.toml adjacent to the binary is
// preferred so a bundled copy on a rescue stick is self-contained, falling
// back to /etc/diskrip.toml.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if !util.PathExists(explicit) {
			return "", fmt.Errorf("config file does not exist: %s", explicit)
		}
		return explicit, nil
	}
	if p := adjacentConfigPath(); p != "" && util.PathExists(p) {
		return p, nil
	}
	return etcConfigPath, nil
}

func adjacentConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(exe), "diskrip.toml")
}

// PrependBundledBin puts a bin/ directory next to the executable at the
// front of PATH so bundled helper tools (apfs-fuse, zstd builds) win over
// whatever the rescue environment ships.
func PrependBundledBin() {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	bin := filepath.Join(filepath.Dir(exe), "bin")
	if fi, err := os.Stat(bin); err != nil || !fi.IsDir() {
		return
	}
	os.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}
