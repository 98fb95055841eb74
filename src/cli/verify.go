package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"diskrip/src/archive"
)

func newVerifyCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	var all bool
	cmd := &cobra.Command{
		Use:   "verify [dir ...]",
		Short: "Verify chunk checksums and manifests in spool directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if all {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				found, err := spoolDirsWithManifests(cfg.Archive.SpoolDir)
				if err != nil {
					return err
				}
				dirs = append(dirs, found...)
			}
			if len(dirs) == 0 {
				return fmt.Errorf("nothing to verify: pass directories or --all")
			}
			results := make([]archive.VerifyResult, 0, len(dirs))
			bad := 0
			for _, d := range dirs {
				res := archive.Verify(d)
				if res.Status != "ok" {
					bad++
				}
				results = append(results, res)
			}
			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			case "table", "":
				tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DIR\tCHUNKS\tSTATUS")
				for _, r := range results {
					status := r.Status
					if len(r.Problems) > 0 {
						status = status + ": " + strings.Join(r.Problems, "; ")
					}
					fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Dir, r.Chunks, status)
				}
				tw.Flush()
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d directories failed verification", bad, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Verify every archive under the configured spool directory")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}

// spoolDirsWithManifests returns spool subdirectories that contain a
// completed archive (their manifest exists).
func spoolDirsWithManifests(spoolDir string) ([]string, error) {
	entries, err := os.ReadDir(spoolDir)
	if err != nil {
		return nil, fmt.Errorf("read spool dir %s: %w", spoolDir, err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(spoolDir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, archive.ManifestName)); err == nil {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}
