package scan

import "path/filepath"

// CumulativeSizes rolls a detailed scan's direct-bytes map up into
// recursive totals: each directory's value becomes its own direct bytes
// plus those of every descendant, with intermediate directories that held
// no direct bytes filled in along the way. The scan engine itself never
// computes these; this is an optional post-processing step.
func CumulativeSizes(rootPath string, directorySizes map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(directorySizes))
	for dir, bytes := range directorySizes {
		if bytes <= 0 {
			continue
		}
		for {
			out[dir] += bytes
			if dir == rootPath {
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return out
}
