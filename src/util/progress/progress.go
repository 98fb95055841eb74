package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const printInterval = 200 * time.Millisecond

// Reader wraps an io.Reader and periodically writes progress updates to
// out. If total is 0, percentage is omitted.
type Reader struct {
	r           io.Reader
	out         io.Writer
	label       string
	total       int64
	read        int64
	mu          sync.Mutex
	lastPrinted time.Time
}

func NewReader(r io.Reader, total int64, label string, out io.Writer) *Reader {
	return &Reader{r: r, out: out, label: label, total: total}
}

func (p *Reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		now := time.Now()
		if now.Sub(p.lastPrinted) >= printInterval {
			p.print()
			p.lastPrinted = now
		}
		p.mu.Unlock()
	}
	if err == io.EOF {
		p.mu.Lock()
		p.print() // final
		fmt.Fprint(p.out, "\n")
		p.mu.Unlock()
	}
	return n, err
}

func (p *Reader) print() {
	if p.out == nil {
		return
	}
	if p.total > 0 {
		pct := float64(p.read) / float64(p.total) * 100
		fmt.Fprintf(p.out, "\r[%s] %.1f%% (%d/%d bytes)", p.label, pct, p.read, p.total)
	} else {
		fmt.Fprintf(p.out, "\r[%s] %d bytes", p.label, p.read)
	}
}

// Writer counts bytes written through it and periodically reports them to
// out. Used where the stream length is unknown up front, such as the
// compressed archive stream.
type Writer struct {
	out         io.Writer
	label       string
	written     int64
	mu          sync.Mutex
	lastPrinted time.Time
}

func NewWriter(label string, out io.Writer) *Writer {
	return &Writer{label: label, out: out}
}

func (p *Writer) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.written += int64(len(b))
	now := time.Now()
	if now.Sub(p.lastPrinted) >= printInterval {
		if p.out != nil {
			fmt.Fprintf(p.out, "\r[%s] %d bytes", p.label, p.written)
		}
		p.lastPrinted = now
	}
	p.mu.Unlock()
	return len(b), nil
}

// Written returns the byte count seen so far.
func (p *Writer) Written() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}
