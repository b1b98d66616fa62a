package scan

import "time"

// topFilesPerDir caps each directory's largest-files shortlist. The cap is
// correctness-relevant: the breakdown aggregator only ever sees these
// entries, not a truncated view of something larger.
const topFilesPerDir = 20

// DefaultTopDirectoriesLimit caps the incrementally maintained
// biggest-folders list.
const DefaultTopDirectoriesLimit = 5

// FileStat identifies one large file directly inside a directory.
type FileStat struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Bytes int64  `json:"bytes"`
}

// TopDirectory is one entry of the biggest-folders list, a cheap size
// signal available even when the full breakdown is not collected.
type TopDirectory struct {
	RelPath     string `json:"rel_path"`
	Path        string `json:"path"`
	DirectBytes int64  `json:"direct_bytes"`
}

// Metadata describes one scan invocation.
type Metadata struct {
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	Duration           time.Duration `json:"duration"`
	DirectoriesScanned int64         `json:"directories_scanned"`
}

// Progress is handed to the caller's callback once per directory dequeued.
// Callbacks may arrive concurrently from several workers; throttling and
// synchronization are the caller's responsibility.
type Progress struct {
	TotalBytes         int64
	DirectoriesScanned int64
}

// Options select what a scan collects beyond the running byte total.
type Options struct {
	// CollectDirectorySizes enables the per-directory direct statistics
	// (sizes, file counts, max file, top-files shortlists) that the
	// breakdown aggregator consumes.
	CollectDirectorySizes bool
	// CollectTopDirectories maintains the biggest-folders list during the
	// scan. The scan root itself is never listed.
	CollectTopDirectories bool
	// TopDirectoriesLimit caps that list. Zero means the default.
	TopDirectoriesLimit int
	// ExcludeNames skips directory entries with these exact names.
	ExcludeNames []string
}

// Summary returns options for a fast totals-only scan.
func Summary() Options {
	return Options{}
}

// Detailed returns options for a full scan whose result can feed the
// breakdown aggregator.
func Detailed() Options {
	return Options{
		CollectDirectorySizes: true,
		CollectTopDirectories: true,
	}
}

func (o Options) withDefaults() Options {
	if o.TopDirectoriesLimit <= 0 {
		o.TopDirectoriesLimit = DefaultTopDirectoriesLimit
	}
	return o
}

// Result is the outcome of one scan. It is created fresh per invocation and
// never mutated after being returned.
//
// The per-directory maps are only populated in detailed mode. They are
// ephemeral scan artifacts meant to be handed to the breakdown aggregator,
// not cached: sizes of files directly inside each directory, excluding
// subdirectory contents.
type Result struct {
	RootPath       string         `json:"root_path"`
	TotalBytes     int64          `json:"total_bytes"`
	TopDirectories []TopDirectory `json:"top_directories,omitempty"`
	Metadata       Metadata       `json:"metadata"`

	// Incomplete marks a scan that hit a soft limit or was cancelled.
	// These are expected outcomes, not errors.
	Incomplete       bool       `json:"incomplete"`
	IncompleteReason StopReason `json:"incomplete_reason,omitempty"`
	// SkippedCount is the number of permission-denied directories.
	SkippedCount int64 `json:"skipped_count"`

	DirectorySizes        map[string]int64      `json:"directory_sizes,omitempty"`
	DirectoryFileCounts   map[string]int        `json:"directory_file_counts,omitempty"`
	DirectoryMaxFileBytes map[string]int64      `json:"directory_max_file_bytes,omitempty"`
	TopFilesByDirectory   map[string][]FileStat `json:"top_files_by_directory,omitempty"`
}
