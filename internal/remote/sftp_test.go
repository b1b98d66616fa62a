package remote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/pkg/sftp"

	"github.com/veykal/dux/internal/scan"
)

// fakeInfo is a minimal os.FileInfo for the fake SFTP client.
type fakeInfo struct {
	name string
	size int64
	mode os.FileMode
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() os.FileMode  { return f.mode }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeInfo) Sys() any           { return nil }

type fakeSFTP struct {
	dirs     map[string][]os.FileInfo
	files    map[string]fakeInfo
	realPath map[string]string
	dirErr   map[string]error
}

func (f *fakeSFTP) ReadDir(path string) ([]os.FileInfo, error) {
	if err := f.dirErr[path]; err != nil {
		return nil, err
	}
	infos, ok := f.dirs[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return infos, nil
}

func (f *fakeSFTP) Lstat(path string) (os.FileInfo, error) {
	if info, ok := f.files[path]; ok {
		return info, nil
	}
	if _, ok := f.dirs[path]; ok {
		return fakeInfo{name: path, mode: os.ModeDir}, nil
	}
	return nil, fs.ErrNotExist
}

func (f *fakeSFTP) Stat(path string) (os.FileInfo, error) {
	return f.Lstat(path)
}

func (f *fakeSFTP) RealPath(path string) (string, error) {
	if resolved, ok := f.realPath[path]; ok {
		return resolved, nil
	}
	return path, nil
}

func newFakeFS(client sftpClient) *FS {
	return &FS{client: client}
}

func TestFS_RootResolvesAndValidates(t *testing.T) {
	client := &fakeSFTP{
		dirs:     map[string][]os.FileInfo{"/home/u/data": nil},
		files:    map[string]fakeInfo{"/home/u/plain": {name: "plain", size: 1, mode: 0o644}},
		realPath: map[string]string{".": "/home/u/data"},
	}
	fsys := newFakeFS(client)

	root, err := fsys.Root(".")
	if err != nil {
		t.Fatal(err)
	}
	if root != "/home/u/data" {
		t.Fatalf("root = %q, want the server-resolved path", root)
	}

	if _, err := fsys.Root("/home/u/plain"); err == nil {
		t.Fatal("a file root must be rejected")
	}
	if _, err := fsys.Root("/nope"); err == nil {
		t.Fatal("a missing root must be rejected")
	}
}

func TestFS_ReadDirClassifiesEntries(t *testing.T) {
	client := &fakeSFTP{
		dirs: map[string][]os.FileInfo{
			"/r": {
				fakeInfo{name: "sub", mode: os.ModeDir},
				fakeInfo{name: "file.bin", size: 9, mode: 0o644},
				fakeInfo{name: "link", mode: os.ModeSymlink},
				fakeInfo{name: "sock", mode: os.ModeSocket},
			},
		},
	}
	entries, err := newFakeFS(client).ReadDir("/r")
	if err != nil {
		t.Fatal(err)
	}

	want := []scan.Entry{
		{Name: "sub", Dir: true},
		{Name: "file.bin", Regular: true},
		{Name: "link", Symlink: true},
		{Name: "sock"},
	}
	if len(entries) != len(want) {
		t.Fatalf("entries = %+v", entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestFS_ScanOverRemoteTree(t *testing.T) {
	client := &fakeSFTP{
		dirs: map[string][]os.FileInfo{
			"/srv": {
				fakeInfo{name: "logs", mode: os.ModeDir},
				fakeInfo{name: "app.bin", size: 4000, mode: 0o755},
			},
			"/srv/logs": {
				fakeInfo{name: "old.log", size: 1000, mode: 0o644},
			},
		},
		files: map[string]fakeInfo{
			"/srv/app.bin":      {name: "app.bin", size: 4000, mode: 0o755},
			"/srv/logs/old.log": {name: "old.log", size: 1000, mode: 0o644},
		},
	}

	cfg := scan.Config{MaxDuration: time.Minute, MaxDirectories: 1000, ConcurrentOperations: 4}
	res, err := scan.NewWithFS(newFakeFS(client), cfg).Scan(context.Background(), "/srv", scan.Detailed(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if res.TotalBytes != 5000 {
		t.Fatalf("TotalBytes = %d, want 5000", res.TotalBytes)
	}
	if res.Metadata.DirectoriesScanned != 2 {
		t.Fatalf("DirectoriesScanned = %d, want 2", res.Metadata.DirectoriesScanned)
	}
	if got := res.DirectorySizes["/srv/logs"]; got != 1000 {
		t.Fatalf("logs direct bytes = %d", got)
	}
	if len(res.TopDirectories) != 1 || res.TopDirectories[0].RelPath != "logs" {
		t.Fatalf("TopDirectories = %+v", res.TopDirectories)
	}
}

func TestFS_PermissionDeniedMapsToSkip(t *testing.T) {
	client := &fakeSFTP{
		dirs: map[string][]os.FileInfo{
			"/srv": {
				fakeInfo{name: "locked", mode: os.ModeDir},
			},
		},
		dirErr: map[string]error{
			"/srv/locked": &sftp.StatusError{Code: uint32(sftp.ErrSSHFxPermissionDenied)},
		},
	}

	fsys := newFakeFS(client)
	if _, err := fsys.ReadDir("/srv/locked"); !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("err = %v, want fs.ErrPermission", err)
	}

	cfg := scan.Config{MaxDuration: time.Minute, MaxDirectories: 1000, ConcurrentOperations: 4}
	res, err := scan.NewWithFS(fsys, cfg).Scan(context.Background(), "/srv", scan.Summary(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.SkippedCount != 1 {
		t.Fatalf("SkippedCount = %d, want 1", res.SkippedCount)
	}
}

func TestIsPermission(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{fs.ErrPermission, true},
		{fmt.Errorf("wrapped: %w", fs.ErrPermission), true},
		{&sftp.StatusError{Code: uint32(sftp.ErrSSHFxPermissionDenied)}, true},
		{&sftp.StatusError{Code: uint32(sftp.ErrSSHFxNoSuchFile)}, false},
		{fs.ErrNotExist, false},
		{nil, false},
	}
	for _, c := range cases {
		if got := isPermission(c.err); got != c.want {
			t.Errorf("isPermission(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestParseSSHTarget(t *testing.T) {
	cases := []struct {
		target     string
		user, host string
		wantErr    bool
	}{
		{"alice@server", "alice", "server", false},
		{"deploy@10.0.0.5", "deploy", "10.0.0.5", false},
		{"", "", "", true},
		{"server", "", "", true},
		{"@server", "", "", true},
		{"alice@", "", "", true},
	}
	for _, c := range cases {
		user, host, err := parseSSHTarget(c.target)
		if (err != nil) != c.wantErr {
			t.Errorf("parseSSHTarget(%q) err = %v", c.target, err)
			continue
		}
		if user != c.user || host != c.host {
			t.Errorf("parseSSHTarget(%q) = %q, %q", c.target, user, host)
		}
	}
}

func TestKnownHostAddress(t *testing.T) {
	if got := knownHostAddress("server", 22); got != "server" {
		t.Fatalf("default port address = %q", got)
	}
	if got := knownHostAddress("server", 2222); got != "[server]:2222" {
		t.Fatalf("custom port address = %q", got)
	}
}

func TestCleanRemotePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "."},
		{"   ", "."},
		{"/var//log/", "/var/log"},
		{"data\\sub", "data/sub"},
		{"./projects", "projects"},
	}
	for _, c := range cases {
		if got := cleanRemotePath(c.in); got != c.want {
			t.Errorf("cleanRemotePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDial_RejectsBadPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		if _, err := Dial(context.Background(), Config{Target: "u@h", Port: port}); err == nil {
			t.Errorf("port %d accepted", port)
		}
	}
}
