package archive

import (
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"path/filepath"
)

// ChunkInfo records one emitted chunk file and its checksum.
type ChunkInfo struct {
	Name string
	Sum  string
}

// chunkWriter sinks the compressed stream: it maintains the whole-stream
// checksum and either splits the stream into fixed-size, sequentially
// numbered chunk files (each with its own checksum) or writes a single
// archive file when chunking is disabled.
type chunkWriter struct {
	dir        string
	base       string // archive base name, e.g. 20250101_ab3f9_d0_p1.tar.zst
	chunkBytes int64

	whole   hash.Hash
	newHash func() hash.Hash

	cur     *os.File
	curHash hash.Hash
	curSize int64
	seq     int

	chunks []ChunkInfo
}

func newChunkWriter(dir, base string, chunkSizeMB int, algo string) (*chunkWriter, error) {
	whole, err := newHasher(algo)
	if err != nil {
		return nil, err
	}
	return &chunkWriter{
		dir:        dir,
		base:       base,
		chunkBytes: int64(chunkSizeMB) * 1 << 20,
		whole:      whole,
		newHash:    func() hash.Hash { h, _ := newHasher(algo); return h },
	}, nil
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	total := len(p)
	w.whole.Write(p)
	for len(p) > 0 {
		if w.cur == nil {
			if err := w.openNext(); err != nil {
				return total - len(p), err
			}
		}
		n := int64(len(p))
		if w.chunkBytes > 0 {
			if room := w.chunkBytes - w.curSize; n > room {
				n = room
			}
		}
		if _, err := w.cur.Write(p[:n]); err != nil {
			return total - len(p), err
		}
		w.curHash.Write(p[:n])
		w.curSize += n
		p = p[n:]
		if w.chunkBytes > 0 && w.curSize == w.chunkBytes {
			if err := w.closeCurrent(); err != nil {
				return total - len(p), err
			}
		}
	}
	return total, nil
}

// Close finalises the trailing chunk. An empty stream still produces one
// (empty) archive file so downstream always has something to checksum.
func (w *chunkWriter) Close() error {
	if w.cur == nil && len(w.chunks) == 0 {
		if err := w.openNext(); err != nil {
			return err
		}
	}
	if w.cur != nil {
		return w.closeCurrent()
	}
	return nil
}

func (w *chunkWriter) openNext() error {
	name := w.base
	if w.chunkBytes > 0 {
		name = fmt.Sprintf("%s.part%04d", w.base, w.seq)
	}
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("archive: create chunk %s: %w", name, err)
	}
	w.cur = f
	w.curHash = w.newHash()
	w.curSize = 0
	return nil
}

func (w *chunkWriter) closeCurrent() error {
	name := filepath.Base(w.cur.Name())
	if err := w.cur.Close(); err != nil {
		return fmt.Errorf("archive: close chunk %s: %w", name, err)
	}
	w.chunks = append(w.chunks, ChunkInfo{
		Name: name,
		Sum:  hex.EncodeToString(w.curHash.Sum(nil)),
	})
	w.cur = nil
	w.seq++
	return nil
}

// WholeSum returns the hex digest of the complete compressed stream.
func (w *chunkWriter) WholeSum() string {
	return hex.EncodeToString(w.whole.Sum(nil))
}

// Chunks returns the emitted chunk files in stream order.
func (w *chunkWriter) Chunks() []ChunkInfo { return w.chunks }

// discard removes any files written so far; used when the pipeline fails
// and the partial output must not be mistaken for a usable archive.
func (w *chunkWriter) discard() {
	if w.cur != nil {
		name := w.cur.Name()
		w.cur.Close()
		os.Remove(name)
		w.cur = nil
	}
	for _, c := range w.chunks {
		os.Remove(filepath.Join(w.dir, c.Name))
	}
	w.chunks = nil
}
