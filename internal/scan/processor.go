package scan

import (
	"context"
	"errors"
	"io/fs"
	"sync"
)

// processor holds everything a directory worker needs: the filesystem, the
// I/O gate, the shared runtime state, the work queue, and the detailed-mode
// collector. One instance is shared by all workers of a scan invocation.
type processor struct {
	fsys  FS
	gate  *gate
	state *runtimeState
	queue *dirQueue
	col   *collector

	root         string
	exclude      map[string]struct{}
	batchSize    int
	collectSizes bool
	collectTop   bool
	onProgress   func(Progress)
}

// worker drains the queue until it is empty and no directory is in flight,
// or until a stop condition drops the backlog.
func (p *processor) worker(ctx context.Context) {
	for {
		dir, ok := p.queue.pop(func() bool { return p.state.shouldStop(ctx) })
		if !ok {
			return
		}

		scanned := p.state.dirsScanned.Add(1)
		if p.onProgress != nil {
			p.onProgress(Progress{
				TotalBytes:         p.state.totalBytes.Load(),
				DirectoriesScanned: scanned,
			})
		}

		p.process(ctx, dir)
		p.queue.done()
	}
}

// process scans one directory: a single readdir through the gate, then
// batched stats for its regular files. Errors never escape a directory; a
// failed listing just means the directory contributes nothing.
func (p *processor) process(ctx context.Context, dir string) {
	p.gate.acquire()
	entries, err := p.fsys.ReadDir(dir)
	p.gate.release()
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			p.state.skipped.Add(1)
		}
		return
	}

	detail := p.collectSizes || p.collectTop
	var stats dirStats

	batch := make([]FileStat, 0, min(len(entries), p.batchSize))
	flush := func() {
		if len(batch) == 0 {
			return
		}
		sizes := p.statBatch(batch)
		for i, size := range sizes {
			if size <= 0 {
				continue
			}
			// The running total is tracked even in summary mode.
			p.state.totalBytes.Add(size)
			if detail {
				batch[i].Bytes = size
				stats.addFile(batch[i], p.collectSizes)
			}
		}
		batch = batch[:0]
	}

	stopping := false
	for _, e := range entries {
		if _, skip := p.exclude[e.Name]; skip {
			continue
		}
		// Symlinks are never traversed and never stat'd.
		if e.Symlink {
			continue
		}
		full := p.fsys.Join(dir, e.Name)
		if e.Dir {
			if stopped, _ := p.state.stopState(); !stopped {
				p.queue.push(full)
			}
			continue
		}
		if !e.Regular {
			continue
		}
		// Re-check the stop policy before queuing each file. Once a stop
		// fires mid-directory no further files are batched, but whatever is
		// already batched still gets flushed below: partial work is kept,
		// only new work is refused.
		if !stopping && p.state.shouldStop(ctx) {
			stopping = true
		}
		if stopping {
			continue
		}
		batch = append(batch, FileStat{Path: full, Name: e.Name})
		if len(batch) >= p.batchSize {
			flush()
		}
	}
	flush()

	if detail && stats.bytes > 0 {
		if p.collectSizes {
			p.col.record(dir, stats)
		}
		if p.collectTop && dir != p.root {
			rel, ok := relPath(p.root, dir)
			if ok {
				p.col.offerTopDir(TopDirectory{
					RelPath:     rel,
					Path:        dir,
					DirectBytes: stats.bytes,
				})
			}
		}
	}
}

// statBatch stats every batched file concurrently, each call bounded by the
// gate, and returns the sizes in batch order. A failed stat contributes
// zero bytes: one unreadable file must not abort the directory.
func (p *processor) statBatch(batch []FileStat) []int64 {
	sizes := make([]int64, len(batch))
	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			p.gate.acquire()
			defer p.gate.release()
			size, err := p.fsys.FileSize(path)
			if err != nil {
				return
			}
			sizes[i] = size
		}(i, batch[i].Path)
	}
	wg.Wait()
	return sizes
}
