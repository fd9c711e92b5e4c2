package patterns

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// packFile is the on-disk schema for a user-supplied pattern pack. Each file
// contributes one or more families; family names may repeat across files and
// across the built-ins, in which case patterns accumulate.
type packFile struct {
	Families []struct {
		Name     string   `yaml:"name"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"families"`
}

// LoadDirectory reads every .yaml/.yml pack in dir and returns the built-in
// set extended with the packs' families. A missing directory is not an error;
// a malformed file or pattern is skipped with a warning so one bad pack never
// disables detection.
func LoadDirectory(dir string, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}

	merged := make([]Family, len(builtin))
	copy(merged, builtin)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("patterns directory does not exist, using built-ins", "dir", dir)
		return &Set{families: merged}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read patterns dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read pattern pack", "path", path, "err", err)
			continue
		}

		var pack packFile
		if err := yaml.Unmarshal(data, &pack); err != nil {
			logger.Warn("cannot parse pattern pack", "path", path, "err", err)
			continue
		}

		for _, fam := range pack.Families {
			if fam.Name == "" {
				logger.Warn("pattern pack family missing name, skipping", "path", path)
				continue
			}
			compiled := make([]*regexp.Regexp, 0, len(fam.Patterns))
			for _, expr := range fam.Patterns {
				re, err := regexp.Compile(expr)
				if err != nil {
					logger.Warn("invalid pattern, skipping", "path", path, "family", fam.Name, "pattern", expr, "err", err)
					continue
				}
				compiled = append(compiled, re)
			}
			if len(compiled) == 0 {
				continue
			}
			merged = appendFamily(merged, fam.Name, compiled)
			logger.Info("loaded pattern pack family", "family", fam.Name, "patterns", len(compiled), "path", path)
		}
	}

	return &Set{families: merged}, nil
}

// appendFamily merges patterns into an existing family or adds a new one.
func appendFamily(families []Family, name string, patterns []*regexp.Regexp) []Family {
	for i := range families {
		if families[i].Name == name {
			// Copy-on-write so the built-in slices stay untouched.
			merged := make([]*regexp.Regexp, 0, len(families[i].Patterns)+len(patterns))
			merged = append(merged, families[i].Patterns...)
			merged = append(merged, patterns...)
			families[i].Patterns = merged
			return families
		}
	}
	return append(families, Family{Name: name, Patterns: patterns})
}
