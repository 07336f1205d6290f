package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

// DefaultExtensions are the points file suffixes picked up by a scan
var DefaultExtensions = []string{".jsonl", ".json", ".jsonl.zst", ".json.zst"}

// FileScanner finds points files below a directory
type FileScanner struct {
	baseDir    string
	extensions []string
}

// NewFileScanner creates a scanner for the default extensions
func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{
		baseDir:    baseDir,
		extensions: DefaultExtensions,
	}
}

// WithExtensions replaces the accepted suffixes
func (s *FileScanner) WithExtensions(exts ...string) *FileScanner {
	s.extensions = exts
	return s
}

// Matches reports whether path has an accepted suffix
func (s *FileScanner) Matches(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range s.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Scan walks the directory and returns matching files in lexical order.
// Unreadable entries are skipped.
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()
	var files []string
	dirCount := 0
	totalCount := 0

	util.LogDebug(fmt.Sprintf("Start scanning directory: %s", s.baseDir))

	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			util.LogDebug(fmt.Sprintf("Skip file (error): %s - %v", path, err))
			return nil
		}
		if d.IsDir() {
			dirCount++
			return nil
		}

		totalCount++
		if s.Matches(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)

	util.LogDebug(fmt.Sprintf("File scan completed: duration %v, scanned %d directories, %d files, found %d points files",
		time.Since(start), dirCount, totalCount, len(files)))

	return files, err
}
