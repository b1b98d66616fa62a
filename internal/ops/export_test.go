package ops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/veykal/dux/internal/breakdown"
	"github.com/veykal/dux/internal/scan"
)

func sampleResult() *scan.Result {
	return &scan.Result{
		RootPath:   "/data",
		TotalBytes: 12_582_912,
		TopDirectories: []scan.TopDirectory{
			{RelPath: "a", Path: "/data/a", DirectBytes: 10 << 20},
		},
		Metadata: scan.Metadata{
			StartTime:          time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			EndTime:            time.Date(2026, 8, 1, 12, 0, 2, 0, time.UTC),
			Duration:           2 * time.Second,
			DirectoriesScanned: 4,
		},
		DirectorySizes: map[string]int64{"/data/a": 10 << 20},
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	bd := &breakdown.Result{
		RootPath: "/data",
		Parents:  []breakdown.Parent{{Path: "a", AbsPath: "/data/a", Bytes: 10 << 20}},
	}

	if err := Export(sampleResult(), bd, path, "1.2.3"); err != nil {
		t.Fatal(err)
	}

	env, err := Import(path)
	if err != nil {
		t.Fatal(err)
	}
	if env.Version != "1.2.3" {
		t.Fatalf("version = %q", env.Version)
	}
	if env.Result.TotalBytes != 12_582_912 {
		t.Fatalf("TotalBytes = %d", env.Result.TotalBytes)
	}
	if env.Result.DirectorySizes["/data/a"] != 10<<20 {
		t.Fatalf("DirectorySizes = %v", env.Result.DirectorySizes)
	}
	if env.Breakdown == nil || env.Breakdown.Parents[0].Path != "a" {
		t.Fatalf("breakdown = %+v", env.Breakdown)
	}
}

func TestExport_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Export(sampleResult(), nil, path, "dev"); err != nil {
		t.Fatal(err)
	}

	env, err := Import(path)
	if err != nil {
		t.Fatal(err)
	}
	if env.Result.RootPath != "/data" {
		t.Fatalf("RootPath = %q", env.Result.RootPath)
	}
}

func TestExport_LeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	if err := Export(sampleResult(), nil, filepath.Join(dir, "report.json"), "dev"); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestImport_RejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.json")
	if err := os.WriteFile(path, []byte(`{"progname":"elsetool","result":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Import(path); err == nil {
		t.Fatal("a foreign report must be rejected")
	}
}

func TestImport_RejectsMissingResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte(`{"progname":"dux","version":"dev"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Import(path); err == nil {
		t.Fatal("a report without a scan result must be rejected")
	}
}

func TestImport_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Import(path); err == nil {
		t.Fatal("unparseable input must be rejected")
	}
}
