// Package fs resolves command-line input arguments into concrete file paths.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveInputs expands input arguments into an ordered, de-duplicated list
// of files. "-" (stdin) passes through, literal paths must exist, and glob
// patterns ("results/**/*.domtbl.gz") are expanded with their matches sorted.
func ResolveInputs(args []string) ([]string, error) {
	var (
		inputs []string
		seen   = make(map[string]bool)
	)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			inputs = append(inputs, path)
		}
	}

	for _, arg := range args {
		if arg == "-" {
			add(arg)
			continue
		}
		if !isPattern(arg) {
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("input %s: %w", arg, err)
			}
			add(arg)
			continue
		}

		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no inputs match %q", arg)
		}
		sort.Strings(matches)
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			add(m)
		}
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs given")
	}
	return inputs, nil
}

// DefaultTSVPath is the fallback output location for an input when no sink
// is configured: the input path with its extension swapped for .dotate.tsv.
func DefaultTSVPath(input string) string {
	if input == "-" {
		return "stdin.dotate.tsv"
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if base == "" {
		base = input
	}
	return base + ".dotate.tsv"
}

func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
