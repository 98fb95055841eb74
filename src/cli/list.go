package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/lxc/incus/shared/units"
	"github.com/spf13/cobra"

	"diskrip/src/discover"
	"diskrip/src/orchestrator"
	"diskrip/src/system"
)

func newListCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the discovery plan: every volume and its process/skip decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runner := &system.Real{DryRun: true} // listing never mutates anything
			o := orchestrator.New(cfg, runner, orchestrator.Options{DryRun: true})
			vols, err := o.DiscoverVolumes(cmd.Context(), nil)
			if err != nil {
				return err
			}
			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(vols)
			case "table", "":
				return renderPlan(stdout, vols)
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}

func renderPlan(w io.Writer, vols []discover.Volume) error {
	sorted := make([]discover.Volume, len(vols))
	copy(sorted, vols)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.DiskNo != b.DiskNo {
			return a.DiskNo < b.DiskNo
		}
		if a.PartNo != b.PartNo {
			return a.PartNo < b.PartNo
		}
		return a.Path < b.Path
	})
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tFS\tSIZE\tDISK\tPART\tSTATUS")
	for _, v := range sorted {
		fs := v.FSType
		if fs == "" {
			fs = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			v.Path, fs, units.GetByteSizeString(v.SizeBytes, 1), v.DiskNo, v.PartNo, v.Status())
	}
	return tw.Flush()
}
