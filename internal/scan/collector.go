package scan

import (
	"sort"
	"sync"

	"github.com/maruel/natural"
)

// dirStats accumulates one directory's direct statistics while it is being
// processed. Each processor owns its own instance, so no locking here.
type dirStats struct {
	bytes    int64
	files    int
	maxFile  int64
	topFiles []FileStat
}

// addFile records one successfully stat'd file with positive size.
func (d *dirStats) addFile(stat FileStat, keepShortlist bool) {
	d.bytes += stat.Bytes
	d.files++
	if stat.Bytes > d.maxFile {
		d.maxFile = stat.Bytes
	}
	if keepShortlist {
		d.offer(stat)
	}
}

// offer inserts into the size-descending shortlist, keeping it capped at
// topFilesPerDir. K is small and constant, so a linear insertion beats
// re-sorting a growing slice or maintaining a heap.
func (d *dirStats) offer(stat FileStat) {
	if len(d.topFiles) == topFilesPerDir && stat.Bytes <= d.topFiles[len(d.topFiles)-1].Bytes {
		return
	}
	i := sort.Search(len(d.topFiles), func(i int) bool {
		return d.topFiles[i].Bytes < stat.Bytes
	})
	d.topFiles = append(d.topFiles, FileStat{})
	copy(d.topFiles[i+1:], d.topFiles[i:])
	d.topFiles[i] = stat
	if len(d.topFiles) > topFilesPerDir {
		d.topFiles = d.topFiles[:topFilesPerDir]
	}
}

// collector gathers detailed per-directory statistics from concurrent
// directory workers under one mutex. Updates land in unspecified order, but
// everything here is derived from values, not arrival order, so the final
// maps and top lists are the same for any interleaving.
type collector struct {
	mu           sync.Mutex
	dirSizes     map[string]int64
	fileCounts   map[string]int
	maxFileBytes map[string]int64
	topFiles     map[string][]FileStat
	topDirs      []TopDirectory
	topDirsLimit int
}

func newCollector(topDirsLimit int) *collector {
	return &collector{
		dirSizes:     make(map[string]int64),
		fileCounts:   make(map[string]int),
		maxFileBytes: make(map[string]int64),
		topFiles:     make(map[string][]FileStat),
		topDirsLimit: topDirsLimit,
	}
}

// record stores a completed directory's direct statistics.
func (c *collector) record(path string, stats dirStats) {
	c.mu.Lock()
	c.dirSizes[path] = stats.bytes
	c.fileCounts[path] = stats.files
	c.maxFileBytes[path] = stats.maxFile
	if len(stats.topFiles) > 0 {
		c.topFiles[path] = stats.topFiles
	}
	c.mu.Unlock()
}

// offerTopDir inserts one completed directory into the biggest-folders
// list: append, re-sort, truncate. Ties break on natural path order so the
// list is deterministic for equal-sized directories.
func (c *collector) offerTopDir(dir TopDirectory) {
	c.mu.Lock()
	c.topDirs = append(c.topDirs, dir)
	sort.Slice(c.topDirs, func(i, j int) bool {
		if c.topDirs[i].DirectBytes != c.topDirs[j].DirectBytes {
			return c.topDirs[i].DirectBytes > c.topDirs[j].DirectBytes
		}
		return natural.Less(c.topDirs[i].RelPath, c.topDirs[j].RelPath)
	})
	if len(c.topDirs) > c.topDirsLimit {
		c.topDirs = c.topDirs[:c.topDirsLimit]
	}
	c.mu.Unlock()
}

func (c *collector) topDirectories() []TopDirectory {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TopDirectory, len(c.topDirs))
	copy(out, c.topDirs)
	return out
}

func (c *collector) detail() (map[string]int64, map[string]int, map[string]int64, map[string][]FileStat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirSizes, c.fileCounts, c.maxFileBytes, c.topFiles
}
