package cli

import (
	"fmt"
	"os"

	"github.com/lxc/incus/shared/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"diskrip/src/config"
	"diskrip/src/safety"
)

// addGlobalFlags adds persistent flags shared by every subcommand.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to diskrip.toml (default: next to the binary, then /etc/diskrip.toml)")
	cmd.PersistentFlags().Bool("dry-run", false, "Show planned actions without making changes")
	cmd.PersistentFlags().BoolP("yes", "y", false, "Assume 'yes' to prompts and run non-interactively")
}

// getSafetyOptions reads global flags into a safety.Options struct.
func getSafetyOptions(cmd *cobra.Command) safety.Options {
	dry, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
	yes, _ := cmd.Root().PersistentFlags().GetBool("yes")
	return safety.Options{DryRun: dry, Yes: yes}
}

// loadConfig resolves and loads the configuration for a subcommand, and
// applies the configured log level. Without an explicit --config and with
// no file at the default locations, the built-in defaults are used.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	explicit, _ := cmd.Root().PersistentFlags().GetString("config")
	path, err := config.FindConfig(explicit)
	if err != nil {
		return config.Config{}, err
	}
	var cfg config.Config
	if explicit == "" && !util.PathExists(path) {
		cfg = config.Default()
	} else if cfg, err = config.Load(path); err != nil {
		return config.Config{}, err
	}
	if lvl, err := logrus.ParseLevel(cfg.Runtime.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}
	return cfg, nil
}

// requireRoot refuses to proceed for operations that need raw block
// device access and system mountpoints.
func requireRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command needs root privileges (mounting filesystems, reading block devices); re-run with sudo")
	}
	return nil
}
