package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"diskrip/src/archive"
)

func populateSpool(t *testing.T, spool string, names ...string) {
	t.Helper()
	for _, n := range names {
		dir := filepath.Join(spool, n)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, n+".tar.zst.part0000"), make([]byte, 1024), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCleanCandidates(t *testing.T) {
	spool := t.TempDir()
	populateSpool(t, spool, "20250309_ab3f9_d1_p1", "20250309_ab3f9_d1_p2")
	// Dotted and plain-file entries are ignored.
	if err := os.MkdirAll(filepath.Join(spool, ".staging"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(spool, "stray.log"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	candidates, err := cleanCandidates(spool, 0)
	if err != nil {
		t.Fatalf("cleanCandidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates: %+v", len(candidates), candidates)
	}
	for _, c := range candidates {
		if c.size != 1024 {
			t.Fatalf("size = %d, want 1024", c.size)
		}
	}
}

func TestCleanCandidatesAgeFilter(t *testing.T) {
	spool := t.TempDir()
	populateSpool(t, spool, "fresh")
	candidates, err := cleanCandidates(spool, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 0 {
		t.Fatalf("freshly written dir should be kept: %+v", candidates)
	}
}

func TestCleanCandidatesMissingSpool(t *testing.T) {
	candidates, err := cleanCandidates(filepath.Join(t.TempDir(), "nope"), 0)
	if err != nil {
		t.Fatalf("missing spool dir is not an error: %v", err)
	}
	if candidates != nil {
		t.Fatalf("candidates = %+v", candidates)
	}
}

func TestSpoolDirsWithManifests(t *testing.T) {
	spool := t.TempDir()
	populateSpool(t, spool, "complete", "inflight")
	manifest := filepath.Join(spool, "complete", archive.ManifestName)
	if err := os.WriteFile(manifest, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := spoolDirsWithManifests(spool)
	if err != nil {
		t.Fatalf("spoolDirsWithManifests: %v", err)
	}
	if len(dirs) != 1 || filepath.Base(dirs[0]) != "complete" {
		t.Fatalf("dirs = %v, want only the completed archive", dirs)
	}
}
