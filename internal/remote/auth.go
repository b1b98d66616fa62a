package remote

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

var defaultPrivateKeyFiles = []string{
	"id_ed25519",
	"id_ecdsa",
	"id_rsa",
}

func parseSSHTarget(target string) (string, string, error) {
	if strings.TrimSpace(target) == "" {
		return "", "", fmt.Errorf("remote target is required")
	}
	user, host, ok := strings.Cut(target, "@")
	if !ok || user == "" || host == "" {
		return "", "", fmt.Errorf("invalid remote target %q: expected user@host", target)
	}
	return user, host, nil
}

// hostKeyCallback verifies against ~/.ssh/known_hosts with a
// trust-on-first-use prompt for unknown hosts. Batch mode never prompts.
func hostKeyCallback(host string, port int, batchMode bool) (ssh.HostKeyCallback, error) {
	knownHostsPath, err := ensureKnownHostsFile()
	if err != nil {
		return nil, err
	}

	verify, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load known_hosts: %w", err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return fmt.Errorf("host key verification failed: %w", err)
		}

		address := knownHostAddress(host, port)
		presented := ssh.FingerprintSHA256(key)

		if len(keyErr.Want) > 0 {
			// A stored key exists and does not match. Never auto-replace.
			expected := make([]string, 0, len(keyErr.Want))
			for _, want := range keyErr.Want {
				expected = append(expected, ssh.FingerprintSHA256(want.Key))
			}
			return fmt.Errorf(
				"host key mismatch for %s: expected %s, presented %s (update known_hosts to proceed)",
				address, strings.Join(expected, ", "), presented,
			)
		}

		// Unknown host: trust-on-first-use flow.
		if batchMode {
			return fmt.Errorf("unknown host key for %s (%s); run ssh once to trust it or disable batch mode", address, presented)
		}
		ok, promptErr := promptYesNo(fmt.Sprintf(
			"The authenticity of host '%s' can't be established.\n%s key fingerprint is %s.\nTrust this host and continue connecting (yes/no)? ",
			address, key.Type(), presented,
		))
		if promptErr != nil {
			return promptErr
		}
		if !ok {
			return fmt.Errorf("host key for %s was not trusted", address)
		}
		return appendKnownHost(knownHostsPath, address, key)
	}, nil
}

func ensureKnownHostsFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for known_hosts: %w", err)
	}

	sshDir := filepath.Join(home, ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create ~/.ssh directory: %w", err)
	}

	path := filepath.Join(sshDir, "known_hosts")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return "", fmt.Errorf("cannot create known_hosts: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("cannot access known_hosts: %w", err)
	}
	return path, nil
}

func knownHostAddress(host string, port int) string {
	if port == 22 {
		return host
	}
	return fmt.Sprintf("[%s]:%d", host, port)
}

func appendKnownHost(path, address string, key ssh.PublicKey) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("cannot update known_hosts: %w", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{address}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("cannot write known_hosts entry: %w", err)
	}
	return nil
}

func promptYesNo(prompt string) (bool, error) {
	stdinFD := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFD) {
		return false, fmt.Errorf("cannot prompt for host key trust: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("host key prompt failed: %w", err)
	}

	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "y" || a == "yes", nil
}

// buildAuthMethods assembles SSH auth in preference order: agent, default
// key files, then interactive password unless batch mode forbids prompts.
func buildAuthMethods(user, host string, batchMode bool) ([]ssh.AuthMethod, error) {
	methods := make([]ssh.AuthMethod, 0, 4)

	if m := agentAuthMethod(); m != nil {
		methods = append(methods, m)
	}
	if signers := loadDefaultKeySigners(); len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}
	if !batchMode {
		prompter := &passwordPrompter{user: user, host: host}
		methods = append(methods, ssh.PasswordCallback(prompter.password))
		methods = append(methods, ssh.KeyboardInteractive(prompter.keyboardInteractive))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH auth methods available (configure ssh-agent or private keys, or disable batch mode)")
	}
	return methods, nil
}

func agentAuthMethod() ssh.AuthMethod {
	sock := strings.TrimSpace(os.Getenv("SSH_AUTH_SOCK"))
	if sock == "" {
		return nil
	}
	return ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		return agent.NewClient(conn).Signers()
	})
}

func loadDefaultKeySigners() []ssh.Signer {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	signers := make([]ssh.Signer, 0, len(defaultPrivateKeyFiles))
	for _, name := range defaultPrivateKeyFiles {
		pem, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			// Passphrase-protected keys are left to the agent.
			continue
		}
		signers = append(signers, signer)
	}
	return signers
}

type passwordPrompter struct {
	user string
	host string

	mu      sync.Mutex
	cached  string
	hasPass bool
}

func (p *passwordPrompter) password() (string, error) {
	p.mu.Lock()
	if p.hasPass {
		pass := p.cached
		p.mu.Unlock()
		return pass, nil
	}
	p.mu.Unlock()

	stdinFD := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFD) {
		return "", fmt.Errorf("cannot prompt for SSH password: stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "%s@%s's password: ", p.user, p.host)
	raw, err := term.ReadPassword(stdinFD)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("password prompt failed: %w", err)
	}

	pass := string(raw)
	p.mu.Lock()
	p.cached = pass
	p.hasPass = true
	p.mu.Unlock()
	return pass, nil
}

func (p *passwordPrompter) keyboardInteractive(_, _ string, questions []string, echos []bool) ([]string, error) {
	pass, err := p.password()
	if err != nil {
		return nil, err
	}
	answers := make([]string, len(questions))
	for i := range questions {
		if i < len(echos) && echos[i] {
			answers[i] = ""
			continue
		}
		answers[i] = pass
	}
	return answers, nil
}
