package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lxc/incus/shared/units"
	"github.com/spf13/cobra"

	"diskrip/src/safety"
)

func newCleanCmd(stdout, stderr io.Writer) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Reclaim spool space by deleting transferred archive directories",
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
			candidates, err := cleanCandidates(cfg.Archive.SpoolDir, olderThan)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DIR\tSIZE\tAGE\tACTION")
			for _, c := range candidates {
				fmt.Fprintf(tw, "%s\t%s\t%s\tdelete\n", c.path, units.GetByteSizeString(c.size, 1), c.age.Round(time.Minute))
			}
			tw.Flush()

			if opts.DryRun || len(candidates) == 0 {
				return nil
			}
			ok, err := safety.Confirm(opts, os.Stdin, stdout, fmt.Sprintf("Delete %d spool directories?", len(candidates)))
			if err != nil || !ok {
				return err
			}
			for _, c := range candidates {
				if err := os.RemoveAll(c.path); err != nil {
					return fmt.Errorf("delete %s: %w", c.path, err)
				}
			}
			fmt.Fprintf(stdout, "Deleted %d directories\n", len(candidates))
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only delete directories older than this (e.g. 72h)")
	return cmd
}

type cleanCandidate struct {
	path string
	size int64
	age  time.Duration
}

func cleanCandidates(spoolDir string, olderThan time.Duration) ([]cleanCandidate, error) {
	entries, err := os.ReadDir(spoolDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read spool dir %s: %w", spoolDir, err)
	}
	now := time.Now()
	var out []cleanCandidate
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(spoolDir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		if olderThan > 0 && age < olderThan {
			continue
		}
		out = append(out, cleanCandidate{path: dir, size: dirSize(dir), age: age})
	}
	return out, nil
}

func dirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, err := d.Info(); err == nil && d.Type().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}
