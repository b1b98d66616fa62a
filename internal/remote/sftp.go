// Package remote lets the scan engine walk a remote tree over the SFTP
// subsystem of an SSH connection. It implements scan.FS, so budgets, stop
// policy and aggregation behave exactly as they do locally.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	pathpkg "path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/veykal/dux/internal/scan"
)

const defaultRemotePath = "."

// Config configures a remote connection.
type Config struct {
	// Target is the user@host destination.
	Target string
	// Port is the SSH port.
	Port int
	// BatchMode disables interactive prompts (key/agent auth only).
	BatchMode bool
	// Timeout bounds connection establishment.
	Timeout time.Duration
}

// sftpClient is the slice of *sftp.Client the filesystem needs. Tests
// substitute a fake.
type sftpClient interface {
	ReadDir(string) ([]os.FileInfo, error)
	Lstat(string) (os.FileInfo, error)
	Stat(string) (os.FileInfo, error)
	RealPath(string) (string, error)
}

// FS adapts an SFTP session to the scan engine's filesystem surface.
type FS struct {
	client sftpClient
	closer io.Closer
}

var dialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

var sshNewClientConn = func(conn net.Conn, addr string, config *ssh.ClientConfig) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	return ssh.NewClientConn(conn, addr, config)
}

// Dial connects to cfg.Target and returns a filesystem over the session.
// Close releases the connection.
func Dial(ctx context.Context, cfg Config) (*FS, error) {
	client, closer, err := dialSFTP(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &FS{client: client, closer: closer}, nil
}

// Close shuts down the SFTP session and the underlying SSH connection.
func (f *FS) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Root canonicalizes a remote scan root via the server's realpath and
// verifies it names a directory.
func (f *FS) Root(path string) (string, error) {
	root := cleanRemotePath(path)
	if resolved, err := f.client.RealPath(root); err == nil {
		root = cleanRemotePath(resolved)
	}
	info, err := f.client.Stat(root)
	if err != nil {
		return "", fmt.Errorf("cannot stat remote path %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", root)
	}
	return root, nil
}

// ReadDir lists a remote directory. Permission denials are surfaced as
// fs.ErrPermission so the engine counts them as skipped directories.
func (f *FS) ReadDir(path string) ([]scan.Entry, error) {
	infos, err := f.client.ReadDir(path)
	if err != nil {
		return nil, normalizeErr(path, err)
	}
	out := make([]scan.Entry, 0, len(infos))
	for _, info := range infos {
		mode := info.Mode()
		out = append(out, scan.Entry{
			Name:    info.Name(),
			Dir:     info.IsDir(),
			Symlink: mode&os.ModeSymlink != 0,
			Regular: mode.IsRegular(),
		})
	}
	return out, nil
}

// FileSize returns a remote file's apparent size without following
// symlinks.
func (f *FS) FileSize(path string) (int64, error) {
	info, err := f.client.Lstat(path)
	if err != nil {
		return 0, normalizeErr(path, err)
	}
	return info.Size(), nil
}

// Join joins with POSIX separators regardless of the local platform.
func (f *FS) Join(elem ...string) string {
	return pathpkg.Join(elem...)
}

// normalizeErr maps SFTP permission-denied statuses onto fs.ErrPermission,
// which the engine's error classification understands.
func normalizeErr(path string, err error) error {
	if isPermission(err) {
		return fmt.Errorf("%s: %w", path, fs.ErrPermission)
	}
	return err
}

func isPermission(err error) bool {
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	var status *sftp.StatusError
	return errors.As(err, &status) && status.FxCode() == sftp.ErrSSHFxPermissionDenied
}

func cleanRemotePath(p string) string {
	if strings.TrimSpace(p) == "" {
		return defaultRemotePath
	}
	clean := pathpkg.Clean(strings.ReplaceAll(p, "\\", "/"))
	if clean == "" {
		return defaultRemotePath
	}
	return clean
}

func dialSFTP(ctx context.Context, cfg Config) (sftpClient, io.Closer, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, nil, fmt.Errorf("ssh port must be between 1 and 65535")
	}

	user, host, err := parseSSHTarget(cfg.Target)
	if err != nil {
		return nil, nil, err
	}

	hostCB, err := hostKeyCallback(host, cfg.Port, cfg.BatchMode)
	if err != nil {
		return nil, nil, err
	}

	auth, err := buildAuthMethods(user, host, cfg.BatchMode)
	if err != nil {
		return nil, nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sshConfig := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostCB,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", cfg.Port))
	sshClient, err := connectSSH(dialCtx, addr, sshConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("SSH connection failed: %w", err)
	}

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, fmt.Errorf("cannot start SFTP subsystem: %w", err)
	}

	return client, &remoteCloser{ssh: sshClient, sftp: client}, nil
}

func connectSSH(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := dialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// Ensure cancellation interrupts handshake/authentication.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c, chans, reqs, err := sshNewClientConn(conn, addr, config)
	close(done)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

type remoteCloser struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *remoteCloser) Close() error {
	var retErr error
	if c.sftp != nil {
		if err := c.sftp.Close(); err != nil {
			retErr = err
		}
	}
	if c.ssh != nil {
		if err := c.ssh.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}
	return retErr
}
