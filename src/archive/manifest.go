package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Well-known metadata filenames inside a volume's spool directory.
const (
	ManifestName = ".manifest.json"
	PartsName    = ".parts"
)

// ManifestFormatVersion is bumped when the on-disk layout changes.
const ManifestFormatVersion = 1

// Manifest describes how a volume's archive was chunked and checksummed.
// It is written only after the pipeline exits successfully, atomically, so
// its presence implies a complete archive.
type Manifest struct {
	FormatVersion int    `json:"format_version"`
	Ext           string `json:"ext"` // zst or gz
	ChunkSizeMB   int    `json:"chunk_size_mb"`
	Algorithm     string `json:"algorithm"`
	WholeChecksum string `json:"whole_checksum"`
}

// wholeSumName returns the filename carrying the whole-stream digest.
func wholeSumName(algo string) string { return ".whole." + algo }

// ReadManifest loads and sanity-checks the manifest in dir.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return m, fmt.Errorf("archive: read manifest: %w", err)
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("archive: parse manifest: %w", err)
	}
	if m.FormatVersion != ManifestFormatVersion {
		return m, fmt.Errorf("archive: unsupported manifest format version %d", m.FormatVersion)
	}
	return m, nil
}

// ReadParts returns the ordered chunk filenames recorded in dir.
func ReadParts(dir string) ([]string, error) {
	b, err := os.ReadFile(filepath.Join(dir, PartsName))
	if err != nil {
		return nil, fmt.Errorf("archive: read parts list: %w", err)
	}
	var parts []string
	for _, line := range strings.Split(string(b), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return parts, nil
}

// writeMetadata persists the checksum files, the parts list and the
// manifest for a completed archive. Every file is written atomically so a
// concurrent reader sees either nothing or a complete file, and the
// manifest is written last so it vouches for everything else. With
// chunking disabled the whole-stream digest already covers the single
// archive file, so no per-chunk checksum files are written.
func writeMetadata(dir, algo string, chunkSizeMB int, ext, wholeSum string, chunks []ChunkInfo) error {
	if chunkSizeMB > 0 {
		for _, c := range chunks {
			line := fmt.Sprintf("%s  %s\n", c.Sum, c.Name)
			if err := writeFileAtomic(filepath.Join(dir, c.Name+"."+algo), []byte(line)); err != nil {
				return err
			}
		}
	}
	var parts strings.Builder
	for _, c := range chunks {
		parts.WriteString(c.Name)
		parts.WriteByte('\n')
	}
	if err := writeFileAtomic(filepath.Join(dir, PartsName), []byte(parts.String())); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, wholeSumName(algo)), []byte(wholeSum+"\n")); err != nil {
		return err
	}
	m := Manifest{
		FormatVersion: ManifestFormatVersion,
		Ext:           ext,
		ChunkSizeMB:   chunkSizeMB,
		Algorithm:     algo,
		WholeChecksum: wholeSum,
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, ManifestName), append(b, '\n'))
}

// writeFileAtomic writes via a temporary file in the same directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("archive: create temp for %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("archive: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("archive: replace %s: %w", path, err)
	}
	return nil
}
