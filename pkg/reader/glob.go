package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Stdin is the pseudo path that selects standard input.
const Stdin = "-"

// ExpandGlobs turns CLI arguments into a deduplicated list of log files.
// Arguments keep their order. A glob pattern expands to the regular files
// it matches and a directory to the regular files inside it, both in
// rotation order (access.log, access.log.1, access.log.2.gz, access.log.10).
// Anything that matches nothing is kept literally so opening it reports a
// not-found error. Stdin is passed through.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string
	add := func(paths ...string) {
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				result = append(result, p)
			}
		}
	}

	for _, pattern := range patterns {
		files, err := expandOne(pattern)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			add(pattern)
			continue
		}
		add(files...)
	}
	return result, nil
}

func expandOne(pattern string) ([]string, error) {
	if pattern == Stdin {
		return nil, nil
	}

	var candidates []string
	if strings.ContainsAny(pattern, "*?[") {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		candidates = matches
	} else if info, err := os.Stat(pattern); err == nil && info.IsDir() {
		entries, err := os.ReadDir(pattern)
		if err != nil {
			return nil, fmt.Errorf("reading log directory %s: %w", pattern, err)
		}
		for _, e := range entries {
			candidates = append(candidates, filepath.Join(pattern, e.Name()))
		}
	} else {
		return nil, nil
	}

	files := candidates[:0]
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			files = append(files, c)
		}
	}
	sortRotated(files)
	return files, nil
}

// sortRotated orders paths by stem, then by numeric rotation suffix, so
// that access.log.10 sorts after access.log.9.
func sortRotated(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		si, ni := rotation(paths[i])
		sj, nj := rotation(paths[j])
		if si != sj {
			return si < sj
		}
		if ni != nj {
			return ni < nj
		}
		return paths[i] < paths[j]
	})
}

// rotation splits "dir/access.log.3.gz" into ("dir/access.log", 3). A path
// without a numeric suffix has rotation 0.
func rotation(path string) (string, int) {
	stem := strings.TrimSuffix(strings.TrimSuffix(path, ".gz"), ".zst")
	dot := strings.LastIndexByte(stem, '.')
	if dot < 0 {
		return stem, 0
	}
	n, err := strconv.Atoi(stem[dot+1:])
	if err != nil || n < 0 {
		return stem, 0
	}
	return stem[:dot], n
}
