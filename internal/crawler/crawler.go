// Package crawler discovers Python source files for batch processing.
package crawler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Crawler scans a path for Python files.
type Crawler struct {
	ignored []string
}

// New creates a crawler with the default ignore list.
func New() *Crawler {
	return &Crawler{
		ignored: []string{".git", "venv", ".venv", "node_modules", "__pycache__"},
	}
}

// CollectFiles resolves path into the sorted list of .py files to process.
// A file path yields itself; a directory is scanned, recursively when asked.
func (c *Crawler) CollectFiles(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path not found: %s", path)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				for _, ign := range c.ignored {
					if d.Name() == ign {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if strings.HasSuffix(d.Name(), ".py") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".py") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
