// Package ops persists scan reports as JSON files and loads them back for
// re-rendering.
package ops

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/veykal/dux/internal/breakdown"
	"github.com/veykal/dux/internal/scan"
)

const progname = "dux"

// Envelope is the on-disk report format.
type Envelope struct {
	Progname    string            `json:"progname"`
	Version     string            `json:"version"`
	GeneratedAt time.Time         `json:"generated_at"`
	Result      *scan.Result      `json:"result"`
	Breakdown   *breakdown.Result `json:"breakdown,omitempty"`
}

// NewEnvelope wraps a report for serialization.
func NewEnvelope(res *scan.Result, bd *breakdown.Result, version string) *Envelope {
	return &Envelope{
		Progname:    progname,
		Version:     version,
		GeneratedAt: time.Now().UTC(),
		Result:      res,
		Breakdown:   bd,
	}
}

// Export writes the report to path, or to stdout when path is "-". File
// targets are written to a temp file and atomically renamed on success, so
// a partial file is never left behind on error.
func Export(res *scan.Result, bd *breakdown.Result, path, version string) (retErr error) {
	env := NewEnvelope(res, bd, version)

	if path == "-" {
		return writeEnvelope(env, os.Stdout)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dux-export-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := writeEnvelope(env, tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		// On Windows, Rename cannot replace an existing destination.
		if runtime.GOOS != "windows" {
			return err
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("cannot replace export file %s: %w", path, err)
		}
		return os.Rename(tmpPath, path)
	}
	return nil
}

func writeEnvelope(env *Envelope, out io.Writer) error {
	bw := bufio.NewWriterSize(out, 64*1024)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("cannot encode report: %w", err)
	}
	return bw.Flush()
}
