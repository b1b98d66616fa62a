package cli

import (
	"fmt"
	"os"
	"strings"
)

// scanTarget is either a local path or an SSH destination plus remote path.
type scanTarget struct {
	remote      bool
	destination string
	path        string
}

// resolveTarget interprets positional arguments the way ssh/scp users
// expect: an existing local path wins, otherwise a single user@host token
// selects a remote scan with an optional remote path argument.
func resolveTarget(args []string) (scanTarget, error) {
	if len(args) == 0 {
		return scanTarget{path: "."}, nil
	}

	first := args[0]
	if pathExists(first) {
		if len(args) > 1 {
			return scanTarget{}, fmt.Errorf("too many arguments for a local scan")
		}
		return scanTarget{path: first}, nil
	}

	if looksRemote(first) {
		if err := validateRemote(first); err != nil {
			return scanTarget{}, err
		}
		remotePath := "."
		if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
			remotePath = args[1]
		}
		return scanTarget{remote: true, destination: first, path: remotePath}, nil
	}

	if len(args) > 1 {
		return scanTarget{}, fmt.Errorf("too many arguments")
	}
	return scanTarget{path: first}, nil
}

func looksRemote(raw string) bool {
	return !strings.ContainsAny(raw, `/\`) && strings.Count(raw, "@") == 1
}

func validateRemote(raw string) error {
	user, host, _ := strings.Cut(raw, "@")
	if user == "" || host == "" {
		return fmt.Errorf("invalid remote target %q: expected user@host", raw)
	}
	if strings.HasPrefix(user, "-") || strings.HasPrefix(host, "-") {
		return fmt.Errorf("invalid remote target %q", raw)
	}
	if strings.ContainsAny(raw, " \t\n\r") {
		return fmt.Errorf("invalid remote target %q: spaces are not allowed", raw)
	}
	if hostHasPort(host) {
		return fmt.Errorf("remote target %q must not include :port; use --ssh-port", raw)
	}
	return nil
}

// hostHasPort detects host:digits so the error can point at --ssh-port.
// Bracketed IPv6 literals and bare IPv6 addresses pass through.
func hostHasPort(host string) bool {
	if strings.HasPrefix(host, "[") {
		end := strings.Index(host, "]")
		if end == -1 || end == len(host)-1 {
			return false
		}
		rest := host[end+1:]
		return strings.HasPrefix(rest, ":") && isAllDigits(rest[1:])
	}
	if strings.Count(host, ":") != 1 {
		return false
	}
	_, port, _ := strings.Cut(host, ":")
	return isAllDigits(port)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
