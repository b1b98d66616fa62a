// Package breakdown turns a detailed scan's raw per-directory statistics
// into a small, bounded-size report: a handful of representative leaf
// directories per top-level folder, a few unusually large files inside
// them, and an "others" remainder row for everything not selected.
package breakdown

import (
	"math"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"github.com/veykal/dux/internal/scan"
)

// Default selection thresholds.
const (
	DefaultCoverageTarget     = 0.8
	DefaultMinItemPercent     = 0.03
	DefaultFileCoverageTarget = 0.8
	DefaultMinFilePercent     = 0.1
	DefaultLargeFileThreshold = 50 << 20
)

// Options tune the coverage-based selection. Zero fields take defaults.
type Options struct {
	// CoverageTarget stops selecting leaf directories once this fraction of
	// a parent's bytes is covered.
	CoverageTarget float64
	// MinItemPercent stops selection once the remaining candidates fall
	// under this fraction of the parent's bytes, cutting the long tail.
	MinItemPercent float64
	// MaxItems caps selected leaf directories per parent. Derived from
	// 1/MinItemPercent when unset.
	MaxItems int

	// FileCoverageTarget, MinFilePercent and MaxFilesPerLeaf apply the same
	// rules to the nested largest-files list, relative to the leaf's bytes.
	FileCoverageTarget float64
	MinFilePercent     float64
	MaxFilesPerLeaf    int
	// LargeFileThreshold gates the nested list: only leaves whose largest
	// direct file exceeds it get one.
	LargeFileThreshold int64
}

func (o Options) withDefaults() Options {
	if o.CoverageTarget <= 0 {
		o.CoverageTarget = DefaultCoverageTarget
	}
	if o.MinItemPercent <= 0 {
		o.MinItemPercent = DefaultMinItemPercent
	}
	if o.MaxItems <= 0 {
		o.MaxItems = int(math.Round(1 / o.MinItemPercent))
	}
	if o.FileCoverageTarget <= 0 {
		o.FileCoverageTarget = DefaultFileCoverageTarget
	}
	if o.MinFilePercent <= 0 {
		o.MinFilePercent = DefaultMinFilePercent
	}
	if o.MaxFilesPerLeaf <= 0 {
		o.MaxFilesPerLeaf = int(math.Round(1 / o.MinFilePercent))
	}
	if o.LargeFileThreshold <= 0 {
		o.LargeFileThreshold = DefaultLargeFileThreshold
	}
	return o
}

// Input carries a completed detailed scan's per-directory direct
// statistics. Only DirectorySizes is required; the other maps enrich the
// report when present.
type Input struct {
	RootPath              string
	DirectorySizes        map[string]int64
	DirectoryFileCounts   map[string]int
	DirectoryMaxFileBytes map[string]int64
	TopFilesByDirectory   map[string][]scan.FileStat
}

// File is one unusually large file surfaced inside a leaf directory.
type File struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Bytes int64  `json:"bytes"`
}

// Leaf is one individually selected directory under a parent segment.
type Leaf struct {
	// Path is relative to the parent segment; "." is the segment itself.
	Path         string `json:"path"`
	AbsPath      string `json:"abs_path"`
	Bytes        int64  `json:"bytes"`
	FileCount    int    `json:"file_count"`
	MaxFileBytes int64  `json:"max_file_bytes"`
	Files        []File `json:"files,omitempty"`
}

// Others summarizes every candidate not individually selected. At most one
// per parent, always the terminal row.
type Others struct {
	Bytes        int64 `json:"bytes"`
	FileCount    int   `json:"file_count"`
	MaxFileBytes int64 `json:"max_file_bytes"`
	LeafDirs     int   `json:"leaf_dirs"`
}

// Parent is one top-level path segment under the scan root.
type Parent struct {
	Path         string  `json:"path"`
	AbsPath      string  `json:"abs_path"`
	Bytes        int64   `json:"bytes"`
	FileCount    int     `json:"file_count"`
	MaxFileBytes int64   `json:"max_file_bytes"`
	Leaves       []Leaf  `json:"leaves"`
	Others       *Others `json:"others,omitempty"`
}

// Result is the bounded-size report. Parents are sorted by bytes
// descending; selected bytes plus the others row always add up to the
// parent's total.
type Result struct {
	RootPath string   `json:"root_path"`
	Parents  []Parent `json:"parents"`
}

type candidate struct {
	absPath  string
	leafPath string
	bytes    int64
	files    int
	maxFile  int64
}

type segment struct {
	name       string
	candidates []candidate
}

// Compute builds the breakdown from a detailed scan's maps. Given identical
// input and thresholds the output is fully deterministic: all sorts are by
// bytes descending with natural path order breaking ties.
func Compute(in Input, opts Options) *Result {
	opts = opts.withDefaults()

	segments := make(map[string]*segment)
	for dir, bytes := range in.DirectorySizes {
		// Zero-byte directories contribute nothing anywhere.
		if bytes <= 0 {
			continue
		}
		rel, ok := relativeTo(in.RootPath, dir)
		if !ok {
			continue
		}
		name, leafPath := splitSegment(rel)
		seg := segments[name]
		if seg == nil {
			seg = &segment{name: name}
			segments[name] = seg
		}
		seg.candidates = append(seg.candidates, candidate{
			absPath:  dir,
			leafPath: leafPath,
			bytes:    bytes,
			files:    in.DirectoryFileCounts[dir],
			maxFile:  in.DirectoryMaxFileBytes[dir],
		})
	}

	res := &Result{RootPath: in.RootPath}
	for _, seg := range segments {
		res.Parents = append(res.Parents, buildParent(in, opts, seg))
	}
	sort.Slice(res.Parents, func(i, j int) bool {
		if res.Parents[i].Bytes != res.Parents[j].Bytes {
			return res.Parents[i].Bytes > res.Parents[j].Bytes
		}
		return natural.Less(res.Parents[i].Path, res.Parents[j].Path)
	})
	return res
}

func buildParent(in Input, opts Options, seg *segment) Parent {
	parent := Parent{
		Path:    seg.name,
		AbsPath: joinUnder(in.RootPath, seg.name),
	}
	for _, c := range seg.candidates {
		parent.Bytes += c.bytes
		parent.FileCount += c.files
		if c.maxFile > parent.MaxFileBytes {
			parent.MaxFileBytes = c.maxFile
		}
	}

	sort.Slice(seg.candidates, func(i, j int) bool {
		if seg.candidates[i].bytes != seg.candidates[j].bytes {
			return seg.candidates[i].bytes > seg.candidates[j].bytes
		}
		return natural.Less(seg.candidates[i].absPath, seg.candidates[j].absPath)
	})

	bytes := make([]int64, len(seg.candidates))
	for i, c := range seg.candidates {
		bytes[i] = c.bytes
	}
	n := selectCount(bytes, parent.Bytes, opts.CoverageTarget, opts.MinItemPercent, opts.MaxItems)

	var selBytes int64
	var selFiles int
	for _, c := range seg.candidates[:n] {
		leaf := Leaf{
			Path:         c.leafPath,
			AbsPath:      c.absPath,
			Bytes:        c.bytes,
			FileCount:    c.files,
			MaxFileBytes: c.maxFile,
		}
		if c.maxFile > opts.LargeFileThreshold {
			leaf.Files = selectFiles(in.TopFilesByDirectory[c.absPath], c.bytes, opts)
		}
		parent.Leaves = append(parent.Leaves, leaf)
		selBytes += c.bytes
		selFiles += c.files
	}

	others := Others{
		Bytes:     parent.Bytes - selBytes,
		FileCount: parent.FileCount - selFiles,
		LeafDirs:  len(seg.candidates) - n,
	}
	for _, c := range seg.candidates[n:] {
		if c.maxFile > others.MaxFileBytes {
			others.MaxFileBytes = c.maxFile
		}
	}
	if others.Bytes != 0 || others.FileCount != 0 || others.LeafDirs != 0 {
		parent.Others = &others
	}
	return parent
}

// selectFiles applies the greedy coverage rule to a leaf's largest-files
// shortlist, relative to the leaf's own bytes. The shortlist arrives
// size-descending from the scan.
func selectFiles(shortlist []scan.FileStat, leafBytes int64, opts Options) []File {
	if len(shortlist) == 0 {
		return nil
	}
	bytes := make([]int64, len(shortlist))
	for i, f := range shortlist {
		bytes[i] = f.Bytes
	}
	n := selectCount(bytes, leafBytes, opts.FileCoverageTarget, opts.MinFilePercent, opts.MaxFilesPerLeaf)
	files := make([]File, 0, n)
	for _, f := range shortlist[:n] {
		files = append(files, File{Path: f.Path, Name: f.Name, Bytes: f.Bytes})
	}
	return files
}

// selectCount returns how many of the byte-descending candidates the greedy
// rule keeps: stop at the item cap, stop once the coverage target is
// reached, and stop once candidates (after the first) fall under the
// minimum share. At least one candidate is always kept.
func selectCount(candidates []int64, total int64, target, minPercent float64, maxItems int) int {
	minBytes := float64(total) * minPercent
	coverage := float64(total) * target
	var covered int64
	n := 0
	for _, b := range candidates {
		if n >= maxItems {
			break
		}
		if n > 0 && float64(covered) >= coverage {
			break
		}
		if n > 0 && float64(b) < minBytes {
			break
		}
		covered += b
		n++
	}
	return n
}

// relativeTo returns dir relative to root; "." means root itself. Handles
// both native and slash-separated paths, so remote scans aggregate the same
// way local ones do.
func relativeTo(root, dir string) (string, bool) {
	if dir == root {
		return ".", true
	}
	if !strings.HasPrefix(dir, root) {
		return "", false
	}
	rel := dir[len(root):]
	if !isSep(root[len(root)-1]) {
		if rel == "" || !isSep(rel[0]) {
			return "", false
		}
	}
	rel = strings.TrimLeft(rel, `/\`)
	if rel == "" {
		return ".", true
	}
	return rel, true
}

// splitSegment splits a relative path into its top-level segment and the
// remainder within that segment.
func splitSegment(rel string) (name, leafPath string) {
	if rel == "." {
		return ".", "."
	}
	if i := strings.IndexAny(rel, `/\`); i >= 0 {
		return rel[:i], strings.TrimLeft(rel[i:], `/\`)
	}
	return rel, "."
}

func joinUnder(root, segment string) string {
	if segment == "." {
		return root
	}
	sep := "/"
	if strings.ContainsRune(root, '\\') {
		sep = `\`
	}
	if len(root) > 0 && isSep(root[len(root)-1]) {
		return root + segment
	}
	return root + sep + segment
}

func isSep(c byte) bool {
	return c == '/' || c == '\\'
}
