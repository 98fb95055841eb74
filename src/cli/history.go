package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"diskrip/src/report"
)

func newHistoryCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	var limit int
	var dbPath string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				dbPath = cfg.Output.HistoryDB
			}
			if dbPath == "" {
				return fmt.Errorf("no history database configured (set output.history_db or pass --db)")
			}
			h, err := report.OpenHistory(dbPath)
			if err != nil {
				return err
			}
			defer h.Close()
			runs, err := h.RecentRuns(limit)
			if err != nil {
				return err
			}
			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			case "table", "":
				tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTARTED\tHOST\tDATE\tTOKEN\tTOTAL\tPROCESSED\tFAILED")
				for _, r := range runs {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
						r.ID, r.StartedUTC, r.Host, r.Date, r.Token, r.VolumesTotal, r.VolumesProcessed, r.Failed)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "History database path (default: output.history_db from config)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}
