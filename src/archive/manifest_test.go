package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	chunks := []ChunkInfo{
		{Name: "vol.tar.zst.part0000", Sum: "aaaa"},
		{Name: "vol.tar.zst.part0001", Sum: "bbbb"},
	}
	if err := writeMetadata(dir, "sha256", 4096, "zst", "cccc", chunks); err != nil {
		t.Fatalf("writeMetadata: %v", err)
	}

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.FormatVersion != ManifestFormatVersion || m.Ext != "zst" || m.ChunkSizeMB != 4096 ||
		m.Algorithm != "sha256" || m.WholeChecksum != "cccc" {
		t.Fatalf("manifest = %+v", m)
	}

	parts, err := ReadParts(dir)
	if err != nil {
		t.Fatalf("ReadParts: %v", err)
	}
	if len(parts) != 2 || parts[0] != chunks[0].Name || parts[1] != chunks[1].Name {
		t.Fatalf("parts = %v", parts)
	}

	// Per-chunk checksum files carry the sum-tool "<hex>  <name>" format.
	b, err := os.ReadFile(filepath.Join(dir, "vol.tar.zst.part0000.sha256"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != "aaaa  vol.tar.zst.part0000\n" {
		t.Fatalf("chunk checksum file = %q", got)
	}

	b, err = os.ReadFile(filepath.Join(dir, ".whole.sha256"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(b)) != "cccc" {
		t.Fatalf("whole checksum file = %q", b)
	}
}

// With chunking disabled the spool directory holds exactly the archive
// file, the whole-stream checksum file and a one-entry parts list; no
// duplicate per-chunk checksum file appears next to the archive.
func TestWriteMetadataUnchunkedLayout(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "vol.tar.zst"), []byte("stream"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := writeMetadata(dir, "sha256", 0, "zst", "ffff", []ChunkInfo{{Name: "vol.tar.zst", Sum: "ffff"}})
	if err != nil {
		t.Fatalf("writeMetadata: %v", err)
	}

	var sums []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sha256") {
			sums = append(sums, e.Name())
		}
	}
	if len(sums) != 1 || sums[0] != ".whole.sha256" {
		t.Fatalf("checksum files = %v, want only .whole.sha256", sums)
	}

	parts, err := ReadParts(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 1 || parts[0] != "vol.tar.zst" {
		t.Fatalf("parts = %v", parts)
	}
}

func TestWriteMetadataLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := writeMetadata(dir, "sha256", 0, "zst", "dddd", []ChunkInfo{{Name: "vol.tar.zst", Sum: "eeee"}}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteFileAtomicReplacesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := writeFileAtomic(path, []byte("old content, longer")); err != nil {
		t.Fatal(err)
	}
	if err := writeFileAtomic(path, []byte("new")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// A reader sees either the previous content or the complete new one;
	// after the rename it is exactly the new content, never a blend.
	if string(b) != "new" {
		t.Fatalf("content = %q", b)
	}
}

func TestReadManifestRejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(`{"format_version": 99}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadManifest(dir); err == nil {
		t.Fatalf("expected error for unknown format version")
	}
}
