package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/lxc/incus/shared/units"
)

// Config is the fully resolved set of run parameters. It is loaded once
// before any volume processing begins and never mutated afterwards; the
// only exception is AvoidDevices, which the CLI may extend once from
// --exclude-dev before the run starts.
type Config struct {
	Server    Server    `toml:"server"`
	Archive   Archive   `toml:"archive"`
	Discovery Discovery `toml:"discovery"`
	Filters   Filters   `toml:"filters"`
	Runtime   Runtime   `toml:"runtime"`
	Naming    Naming    `toml:"naming"`
	Integrity Integrity `toml:"integrity"`
	Output    Output    `toml:"output"`
}

type Server struct {
	RsyncRemote string `toml:"rsync_remote"`
	SSHKey      string `toml:"ssh_key"`
	Port        int    `toml:"port"`
}

type Archive struct {
	Compressor       string `toml:"compressor"`
	CompressionLevel int    `toml:"compression_level"`
	ChunkSizeMB      int    `toml:"chunk_size_mb"`
	SpoolDir         string `toml:"spool_dir"`
	PreserveXattrs   bool   `toml:"preserve_xattrs"`
}

type Discovery struct {
	IncludeFstypes     []string `toml:"include_fstypes"`
	SkipFstypes        []string `toml:"skip_fstypes"`
	SkipIfEncrypted    bool     `toml:"skip_if_encrypted"`
	AllowLVM           bool     `toml:"allow_lvm"`
	AllowRAID          bool     `toml:"allow_raid"`
	MinPartitionSizeGB int      `toml:"min_partition_size_gb"`
	// MinPartitionSize accepts a human size string ("256GiB", "1TB") and
	// takes precedence over MinPartitionSizeGB when set.
	MinPartitionSize string   `toml:"min_partition_size"`
	AvoidDevices     []string `toml:"avoid_devices"`
}

type Filters struct {
	MaxFileSizeMB int `toml:"max_file_size_mb"`
}

type Runtime struct {
	Workers          int    `toml:"workers"`
	RsyncBwlimitKbps int    `toml:"rsync_bwlimit_kbps"`
	LogLevel         string `toml:"log_level"`
}

type Naming struct {
	DateFmt     string `toml:"date_fmt"`
	TokenSource string `toml:"token_source"`
	Pattern     string `toml:"pattern"`
}

type Integrity struct {
	Algorithm string `toml:"algorithm"`
}

type Output struct {
	RunSummaryDir string `toml:"run_summary_dir"`
	PerVolumeJSON bool   `toml:"per_volume_json"`
	HistoryDB     string `toml:"history_db"`
}

// Default returns a Config populated with the documented defaults. Load
// decodes the TOML file over this, so absent keys keep their default.
func Default() Config {
	return Config{
		Server: Server{Port: 22},
		Archive: Archive{
			Compressor:       "zstd",
			CompressionLevel: 3,
			ChunkSizeMB:      4096,
			SpoolDir:         "/var/tmp/diskrip",
			PreserveXattrs:   true,
		},
		Discovery: Discovery{
			SkipIfEncrypted:    true,
			AllowLVM:           true,
			AllowRAID:          true,
			MinPartitionSizeGB: 256,
		},
		Filters: Filters{MaxFileSizeMB: 100},
		Runtime: Runtime{LogLevel: "info"},
		Naming: Naming{
			DateFmt:     "%Y%m%d",
			TokenSource: "machine-id",
			Pattern:     "{date}_{token}_d{disk}_p{part}",
		},
		Integrity: Integrity{Algorithm: "sha256"},
		Output: Output{
			RunSummaryDir: "/var/log/diskrip",
			PerVolumeJSON: true,
		},
	}
}

// Load reads and validates the TOML configuration at path.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks constraints that hold for every command. Requirements
// that only apply to a full run (rsync_remote) are checked by ValidateForRun.
func (c *Config) Validate() error {
	switch c.Archive.Compressor {
	case "zstd", "pigz":
	default:
		return fmt.Errorf("unsupported compressor %q (want zstd or pigz)", c.Archive.Compressor)
	}
	switch c.Integrity.Algorithm {
	case "sha256", "blake3":
	default:
		return fmt.Errorf("unsupported integrity algorithm %q (want sha256 or blake3)", c.Integrity.Algorithm)
	}
	if c.Archive.ChunkSizeMB < 0 {
		return fmt.Errorf("chunk_size_mb must not be negative")
	}
	if c.Filters.MaxFileSizeMB < 0 {
		return fmt.Errorf("max_file_size_mb must not be negative")
	}
	if c.Runtime.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Discovery.MinPartitionSize != "" {
		if _, err := units.ParseByteSizeString(c.Discovery.MinPartitionSize); err != nil {
			return fmt.Errorf("min_partition_size: %w", err)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	return nil
}

// ValidateForRun enforces settings a real (non-dry) run cannot do without.
func (c *Config) ValidateForRun() error {
	if c.Server.RsyncRemote == "" {
		return fmt.Errorf("missing required config: server.rsync_remote")
	}
	return nil
}

// MinPartitionBytes resolves the configured size floor to bytes. The
// human-string form wins over the GB integer when both are present.
func (c *Config) MinPartitionBytes() int64 {
	if c.Discovery.MinPartitionSize != "" {
		if n, err := units.ParseByteSizeString(c.Discovery.MinPartitionSize); err == nil {
			return n
		}
	}
	return int64(c.Discovery.MinPartitionSizeGB) * 1 << 30
}
