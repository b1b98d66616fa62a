package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/veykal/dux/internal/scan"
)

// progressInterval throttles the progress line. The engine reports once per
// directory dequeued; redrawing a terminal that often is wasted work.
const progressInterval = 100 * time.Millisecond

// progressPrinter rewrites a single stderr line with the running totals.
// Updates arrive concurrently from the scan workers, hence the mutex.
type progressPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	last     time.Time
	active   bool
	finished bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (p *progressPrinter) update(pr scan.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	now := time.Now()
	if !p.last.IsZero() && now.Sub(p.last) < progressInterval {
		return
	}
	p.last = now
	p.active = true
	fmt.Fprintf(p.out, "\rScanning: %s in %s directories...",
		humanize.IBytes(uint64(pr.TotalBytes)), humanize.Comma(pr.DirectoriesScanned))
}

// finish terminates the progress line. Safe to call more than once.
func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	if p.active {
		fmt.Fprintln(p.out)
	}
}
