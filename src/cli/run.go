package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"diskrip/src/config"
	"diskrip/src/orchestrator"
	"diskrip/src/report"
	"diskrip/src/system"
)

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	var workers int
	var only string
	var excludeDev string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover volumes, mount read-only, archive, and transfer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := getSafetyOptions(cmd)
			if !opts.DryRun {
				if err := requireRoot(); err != nil {
					return err
				}
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !opts.DryRun {
				if err := cfg.ValidateForRun(); err != nil {
					return err
				}
			}
			onlySet, err := parseOnly(only)
			if err != nil {
				return err
			}
			if err := extendAvoidDevices(&cfg, excludeDev); err != nil {
				return err
			}
			config.PrependBundledBin()

			runner := &system.Real{DryRun: opts.DryRun}
			o := orchestrator.New(cfg, runner, orchestrator.Options{
				Only:            onlySet,
				WorkersOverride: workers,
				DryRun:          opts.DryRun,
				Progress:        stderr,
			})
			summary, err := o.Run(cmd.Context())
			if err != nil {
				return err
			}
			renderRunSummary(stdout, summary)
			if failed := summary.Failed(); failed > 0 {
				return fmt.Errorf("%d volume(s) failed or partial; see JSON summaries in %s", failed, cfg.Output.RunSummaryDir)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Override worker count (default: half the CPUs, clamped to 1..8)")
	cmd.Flags().StringVar(&only, "only", "", "Comma-separated /dev paths to include (e.g. /dev/sdb1,/dev/nvme0n1p2)")
	cmd.Flags().StringVar(&excludeDev, "exclude-dev", "", "Comma-separated device names to skip (e.g. sda,nvme0n1)")
	return cmd
}

func parseOnly(raw string) (map[string]struct{}, error) {
	if raw == "" {
		return nil, nil
	}
	set := map[string]struct{}{}
	for _, d := range strings.Split(raw, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if !strings.HasPrefix(d, "/dev/") {
			return nil, fmt.Errorf("--only devices must start with /dev/, got %q", d)
		}
		set[d] = struct{}{}
	}
	return set, nil
}

// extendAvoidDevices merges --exclude-dev names into the config's avoid
// list, once, before the run starts.
func extendAvoidDevices(cfg *config.Config, raw string) error {
	if raw == "" {
		return nil
	}
	for _, d := range strings.Split(raw, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if strings.Contains(d, "/") {
			return fmt.Errorf("--exclude-dev takes bare device names (no /dev/ prefix), got %q", d)
		}
		cfg.Discovery.AvoidDevices = append(cfg.Discovery.AvoidDevices, d)
	}
	return nil
}

func renderRunSummary(w io.Writer, s report.RunSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDEVICE\tFS\tSTATUS\tSECONDS")
	for _, r := range s.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n", r.Name, r.Device, r.FSType, r.Status, r.DurationSec)
	}
	tw.Flush()
	fmt.Fprintf(w, "date=%s token=%s processed=%d/%d failed=%d\n",
		s.Date, s.Token, s.VolumesProcessed, s.VolumesTotal, s.Failed())
}
