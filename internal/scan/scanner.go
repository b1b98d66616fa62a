// Package scan implements a cancellable, bounded-concurrency directory size
// scanner. A scan walks a tree with a fixed pool of directory workers, sums
// apparent file sizes, honors soft time and directory-count budgets, and
// (in detailed mode) collects the per-directory statistics the breakdown
// aggregator consumes. Partial failures never abort a scan: unreadable
// files count as zero bytes and unreadable directories contribute nothing.
package scan

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Scanner runs scans over an FS with a fixed configuration.
type Scanner struct {
	fsys FS
	cfg  Config
}

// New returns a Scanner over the local filesystem.
func New(cfg Config) *Scanner {
	return NewWithFS(osFS{}, cfg)
}

// NewWithFS returns a Scanner over an arbitrary filesystem backend.
func NewWithFS(fsys FS, cfg Config) *Scanner {
	return &Scanner{fsys: fsys, cfg: cfg.withDefaults()}
}

// Scan walks the tree at rootPath and returns the result. An error is
// returned only when the root itself is unusable; every runtime condition,
// including cancellation and exhausted budgets, is reported through the
// result's Incomplete fields instead.
//
// onProgress, when non-nil, is called once per directory dequeued, possibly
// from several goroutines at once; the engine does not throttle it.
func (s *Scanner) Scan(ctx context.Context, rootPath string, opts Options, onProgress func(Progress)) (*Result, error) {
	root, err := s.fsys.Root(rootPath)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	start := time.Now()
	state := newRuntimeState(s.cfg, start)
	col := newCollector(opts.TopDirectoriesLimit)

	exclude := make(map[string]struct{}, len(opts.ExcludeNames))
	for _, name := range opts.ExcludeNames {
		exclude[name] = struct{}{}
	}

	p := &processor{
		fsys:         s.fsys,
		gate:         newGate(s.cfg.ConcurrentOperations),
		state:        state,
		queue:        newDirQueue(root),
		col:          col,
		root:         root,
		exclude:      exclude,
		batchSize:    s.cfg.statBatchSize(),
		collectSizes: opts.CollectDirectorySizes,
		collectTop:   opts.CollectTopDirectories,
		onProgress:   onProgress,
	}

	workers := s.cfg.directoryConcurrency()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}
	wg.Wait()

	end := time.Now()
	stopped, reason := state.stopState()

	res := &Result{
		RootPath:   root,
		TotalBytes: state.totalBytes.Load(),
		Metadata: Metadata{
			StartTime:          start,
			EndTime:            end,
			Duration:           end.Sub(start),
			DirectoriesScanned: state.dirsScanned.Load(),
		},
		Incomplete:   stopped,
		SkippedCount: state.skipped.Load(),
	}
	if stopped {
		res.IncompleteReason = reason
	}
	if opts.CollectTopDirectories {
		res.TopDirectories = col.topDirectories()
	}
	if opts.CollectDirectorySizes {
		res.DirectorySizes, res.DirectoryFileCounts, res.DirectoryMaxFileBytes, res.TopFilesByDirectory = col.detail()
	}
	return res, nil
}

// relPath returns path relative to root, working for both local and
// slash-separated remote paths. The second return is false when path is not
// under root.
func relPath(root, path string) (string, bool) {
	if path == root {
		return ".", true
	}
	if !strings.HasPrefix(path, root) {
		return "", false
	}
	rel := path[len(root):]
	if !isPathSep(root[len(root)-1]) {
		if rel == "" || !isPathSep(rel[0]) {
			return "", false
		}
	}
	rel = strings.TrimLeft(rel, `/\`)
	if rel == "" {
		return ".", true
	}
	return rel, true
}

func isPathSep(c byte) bool {
	return c == '/' || c == '\\'
}
