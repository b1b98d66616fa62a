package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Entry is one directory listing entry, classified at listing time so the
// engine never needs a second look to decide what to do with it.
type Entry struct {
	Name    string
	Dir     bool
	Symlink bool
	Regular bool
}

// FS is the filesystem surface the engine scans over. The local filesystem
// implements it below; internal/remote implements it over SFTP.
type FS interface {
	// Root canonicalizes and validates a scan root. It returns an error if
	// the path does not name a readable directory.
	Root(path string) (string, error)
	// ReadDir lists a directory without following symlinks.
	ReadDir(path string) ([]Entry, error)
	// FileSize returns the apparent size of the file at path, without
	// following symlinks.
	FileSize(path string) (int64, error)
	// Join joins path elements using this filesystem's separator.
	Join(elem ...string) string
}

// osFS is the local filesystem.
type osFS struct{}

func (osFS) Root(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	// Stat (not Lstat) so a symlinked root like /tmp -> /private/tmp works.
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

func (osFS) ReadDir(path string) ([]Entry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		t := e.Type()
		out = append(out, Entry{
			Name:    e.Name(),
			Dir:     e.IsDir(),
			Symlink: t&fs.ModeSymlink != 0,
			Regular: t.IsRegular(),
		})
	}
	return out, nil
}

func (osFS) FileSize(path string) (int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (osFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}
