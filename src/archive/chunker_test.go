package archive

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

// writeStream pushes data through a chunkWriter in uneven slices to
// exercise the split boundaries, then finalises it.
func writeStream(t *testing.T, cw *chunkWriter, data []byte) {
	t.Helper()
	for len(data) > 0 {
		n := 64*1024 + 37
		if n > len(data) {
			n = len(data)
		}
		if _, err := cw.Write(data[:n]); err != nil {
			t.Fatalf("Write: %v", err)
		}
		data = data[n:]
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestChunkWriterSplitsAndChecksums(t *testing.T) {
	dir := t.TempDir()
	// 2.5 MB of data with 1 MB chunks: expect 1M, 1M, 0.5M.
	data := make([]byte, 2*1<<20+512*1024)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}

	cw, err := newChunkWriter(dir, "vol.tar.zst", 1, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	writeStream(t, cw, data)

	chunks := cw.Chunks()
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	wantNames := []string{"vol.tar.zst.part0000", "vol.tar.zst.part0001", "vol.tar.zst.part0002"}
	wantSizes := []int64{1 << 20, 1 << 20, 512 * 1024}
	var concat bytes.Buffer
	for i, c := range chunks {
		if c.Name != wantNames[i] {
			t.Fatalf("chunk %d name = %q, want %q", i, c.Name, wantNames[i])
		}
		b, err := os.ReadFile(filepath.Join(dir, c.Name))
		if err != nil {
			t.Fatal(err)
		}
		if int64(len(b)) != wantSizes[i] {
			t.Fatalf("chunk %d size = %d, want %d", i, len(b), wantSizes[i])
		}
		sum := sha256.Sum256(b)
		if hex.EncodeToString(sum[:]) != c.Sum {
			t.Fatalf("chunk %d checksum mismatch", i)
		}
		concat.Write(b)
	}

	// Concatenating the chunks in order reproduces the stream, and its
	// checksum matches the recorded whole-stream checksum.
	if !bytes.Equal(concat.Bytes(), data) {
		t.Fatalf("concatenated chunks differ from the input stream")
	}
	whole := sha256.Sum256(data)
	if cw.WholeSum() != hex.EncodeToString(whole[:]) {
		t.Fatalf("whole checksum = %s, want %s", cw.WholeSum(), hex.EncodeToString(whole[:]))
	}
}

func TestChunkWriterExactMultiple(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 2<<20) // exactly two 1 MB chunks, no empty trailer
	cw, err := newChunkWriter(dir, "vol.tar.zst", 1, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	writeStream(t, cw, data)
	if n := len(cw.Chunks()); n != 2 {
		t.Fatalf("chunks = %d, want 2", n)
	}
}

func TestChunkWriterNoChunkingSingleFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte("compressed stream stand-in")
	cw, err := newChunkWriter(dir, "vol.tar.zst", 0, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	writeStream(t, cw, data)

	chunks := cw.Chunks()
	if len(chunks) != 1 || chunks[0].Name != "vol.tar.zst" {
		t.Fatalf("no-chunking mode chunks = %+v, want single vol.tar.zst", chunks)
	}
	b, err := os.ReadFile(filepath.Join(dir, "vol.tar.zst"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, data) {
		t.Fatalf("archive file content mismatch")
	}
}

func TestChunkWriterBlake3(t *testing.T) {
	dir := t.TempDir()
	cw, err := newChunkWriter(dir, "vol.tar.zst", 0, "blake3")
	if err != nil {
		t.Fatal(err)
	}
	writeStream(t, cw, []byte("data"))
	if len(cw.WholeSum()) != 64 {
		t.Fatalf("blake3 digest length = %d hex chars, want 64", len(cw.WholeSum()))
	}
}

func TestChunkWriterDiscard(t *testing.T) {
	dir := t.TempDir()
	cw, err := newChunkWriter(dir, "vol.tar.zst", 1, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cw.Write(make([]byte, 1<<20+100)); err != nil {
		t.Fatal(err)
	}
	cw.discard()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("discard left %d files behind", len(entries))
	}
}

func TestUnknownAlgorithmRejected(t *testing.T) {
	if _, err := newChunkWriter(t.TempDir(), "x", 0, "md5"); err == nil {
		t.Fatalf("expected error for unknown algorithm")
	}
}
