package config

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
)

// ConfigFilePattern matches the accepted configuration file names.
var ConfigFilePattern = regexp.MustCompile(`^\.?readthedocs\.ya?ml$`)

// FindConfigFile returns the first regular file in dir whose name matches
// ConfigFilePattern, in lexical order, or "" when there is none. Sub
// directories are not searched.
func FindConfigFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	for _, name := range names {
		if !ConfigFilePattern.MatchString(name) {
			continue
		}
		path := filepath.Join(dir, name)
		// Stat follows symlinks; where they point is checked when reading.
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return path, nil
	}
	return "", nil
}
