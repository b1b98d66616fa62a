package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"testing"
)

// fakeFS is an in-memory FS for exercising engine behavior that is awkward
// to provoke on a real filesystem, like permission failures and cancellation
// landing at a precise point.
type fakeFS struct {
	dirs       map[string][]Entry
	sizes      map[string]int64
	readDirErr map[string]error
	onStat     func(path string)
}

func (f *fakeFS) Root(path string) (string, error) {
	if _, ok := f.dirs[path]; !ok {
		return "", fmt.Errorf("%s is not a directory", path)
	}
	return path, nil
}

func (f *fakeFS) ReadDir(path string) ([]Entry, error) {
	if err := f.readDirErr[path]; err != nil {
		return nil, err
	}
	entries, ok := f.dirs[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return entries, nil
}

func (f *fakeFS) FileSize(path string) (int64, error) {
	if f.onStat != nil {
		f.onStat(path)
	}
	size, ok := f.sizes[path]
	if !ok {
		return 0, fs.ErrNotExist
	}
	return size, nil
}

func (f *fakeFS) Join(elem ...string) string {
	return strings.Join(elem, "/")
}

func singleWorkerConfig() Config {
	cfg := testConfig()
	// One filesystem slot means one directory worker, which pins down the
	// order events land in.
	cfg.ConcurrentOperations = 1
	return cfg
}

func TestScan_PermissionDeniedDirectorySkipped(t *testing.T) {
	fsys := &fakeFS{
		dirs: map[string][]Entry{
			"/r": {
				{Name: "locked", Dir: true},
				{Name: "open", Dir: true},
			},
			"/r/open": {{Name: "f", Regular: true}},
		},
		sizes:      map[string]int64{"/r/open/f": 700},
		readDirErr: map[string]error{"/r/locked": fmt.Errorf("readdir: %w", fs.ErrPermission)},
	}

	res, err := NewWithFS(fsys, singleWorkerConfig()).Scan(context.Background(), "/r", Summary(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.SkippedCount != 1 {
		t.Fatalf("SkippedCount = %d, want 1", res.SkippedCount)
	}
	if res.TotalBytes != 700 {
		t.Fatalf("TotalBytes = %d, want 700", res.TotalBytes)
	}
	if res.Incomplete {
		t.Fatal("a skipped directory must not mark the scan incomplete")
	}
}

func TestScan_NonPermissionReadDirErrorAbsorbed(t *testing.T) {
	fsys := &fakeFS{
		dirs: map[string][]Entry{
			"/r": {
				{Name: "broken", Dir: true},
				{Name: "f", Regular: true},
			},
		},
		sizes:      map[string]int64{"/r/f": 50},
		readDirErr: map[string]error{"/r/broken": errors.New("input/output error")},
	}

	res, err := NewWithFS(fsys, singleWorkerConfig()).Scan(context.Background(), "/r", Summary(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.SkippedCount != 0 {
		t.Fatalf("SkippedCount = %d, only permission errors are counted", res.SkippedCount)
	}
	if res.TotalBytes != 50 {
		t.Fatalf("TotalBytes = %d, want 50", res.TotalBytes)
	}
}

func TestScan_FailedStatCountsAsZero(t *testing.T) {
	fsys := &fakeFS{
		dirs: map[string][]Entry{
			"/r": {
				{Name: "ok", Regular: true},
				{Name: "gone", Regular: true},
			},
		},
		// No size entry for /r/gone: its stat fails.
		sizes: map[string]int64{"/r/ok": 123},
	}

	res, err := NewWithFS(fsys, singleWorkerConfig()).Scan(context.Background(), "/r", Summary(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalBytes != 123 {
		t.Fatalf("TotalBytes = %d, one unreadable file aborted the directory", res.TotalBytes)
	}
	if res.Incomplete {
		t.Fatal("a failed stat must not mark the scan incomplete")
	}
}

func TestScan_CancelMidBatchKeepsBatchedWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var once sync.Once
	fsys := &fakeFS{
		dirs: map[string][]Entry{
			"/r": {
				{Name: "sub", Dir: true},
				{Name: "f1", Regular: true},
				{Name: "f2", Regular: true},
			},
			"/r/sub": {{Name: "never", Regular: true}},
		},
		sizes: map[string]int64{
			"/r/f1":        100,
			"/r/f2":        200,
			"/r/sub/never": 1 << 30,
		},
	}
	// Cancellation lands while the root's batch is being stat'd: after the
	// files were batched, before the next dequeue.
	fsys.onStat = func(string) { once.Do(cancel) }

	res, err := NewWithFS(fsys, singleWorkerConfig()).Scan(ctx, "/r", Summary(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if !res.Incomplete || res.IncompleteReason != StopCancelled {
		t.Fatalf("got incomplete=%v reason=%q, want cancelled", res.Incomplete, res.IncompleteReason)
	}
	// The batch in flight when cancellation arrived is still counted; the
	// queued subdirectory is not.
	if res.TotalBytes != 300 {
		t.Fatalf("TotalBytes = %d, want 300", res.TotalBytes)
	}
	if res.Metadata.DirectoriesScanned != 1 {
		t.Fatalf("DirectoriesScanned = %d, want 1", res.Metadata.DirectoriesScanned)
	}
}
