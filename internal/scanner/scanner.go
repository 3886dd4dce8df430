// Package scanner walks a codebase directory and selects the source
// files worth summarizing: text files under the size limit, outside
// build/VCS directories, honoring the repository's .gitignore and the
// configured include/exclude patterns.
package scanner

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileInfo describes one scanned source file.
type FileInfo struct {
	// Path is the absolute path on disk.
	Path string `json:"path"`

	// RelPath is the path relative to the scan root, slash-separated.
	RelPath string `json:"rel_path"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// Extension includes the leading dot, lowercased.
	Extension string `json:"extension"`

	// Language is the detected language name, or "unknown".
	Language string `json:"language"`

	// Hash is an 8-hex-digit path-derived ID, stable across runs and
	// independent of content.
	Hash string `json:"hash"`
}

// languageByExtension maps file extensions to language names used in
// prompts and report headings.
var languageByExtension = map[string]string{
	".py":   "python",
	".rs":   "rust",
	".go":   "golang",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".c":    "c",
	".h":    "c",
	".cs":   "csharp",
	".php":  "php",
	".rb":   "ruby",
	".sh":   "bash",
	".sql":  "sql",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".xml":  "xml",
	".html": "html",
	".css":  "css",
	".md":   "markdown",
	".txt":  "text",
}

// binaryExtensions lists extensions skipped without sniffing.
var binaryExtensions = map[string]bool{
	".pyc": true, ".pyo": true, ".so": true, ".o": true, ".a": true,
	".dll": true, ".dylib": true, ".exe": true, ".bin": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".ico": true, ".svg": true, ".webp": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
	".7z": true, ".rar": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".db": true, ".sqlite": true, ".lock": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

// excludedDirs are directory names never descended into.
var excludedDirs = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
	".git":         true,
	".vscode":      true,
	"target":       true,
	"build":        true,
	"dist":         true,
}

// Scanner selects files under a root directory.
type Scanner struct {
	maxFileSize     int64
	includePatterns []string
	excludePatterns []string
	logger          *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMaxFileSize skips files larger than the given byte count.
func WithMaxFileSize(n int64) Option {
	return func(s *Scanner) { s.maxFileSize = n }
}

// WithIncludePatterns keeps only files matching one of the glob
// patterns. Empty means keep everything.
func WithIncludePatterns(patterns []string) Option {
	return func(s *Scanner) { s.includePatterns = patterns }
}

// WithExcludePatterns drops files matching any of the glob patterns.
func WithExcludePatterns(patterns []string) Option {
	return func(s *Scanner) { s.excludePatterns = patterns }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scanner. The zero max file size means no size limit.
func New(opts ...Option) *Scanner {
	s := &Scanner{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root and returns the selected files in walk order.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	var ignore *gitignore.GitIgnore
	if gi, err := gitignore.CompileIgnoreFile(filepath.Join(absRoot, ".gitignore")); err == nil {
		ignore = gi
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			if ignore != nil && ignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}
		if !s.matchesPatterns(rel, d.Name()) {
			return nil
		}

		fi, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		if s.maxFileSize > 0 && fi.Size() > s.maxFileSize {
			s.logger.Warn("skipping oversized file", "path", rel, "size", fi.Size())
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if binaryExtensions[ext] {
			return nil
		}
		language, known := languageByExtension[ext]
		if !known {
			language = "unknown"
			if isBinary(path) {
				return nil
			}
		}

		files = append(files, FileInfo{
			Path:      path,
			RelPath:   rel,
			Size:      fi.Size(),
			Extension: ext,
			Language:  language,
			Hash:      PathHash(rel),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("scan complete", "root", absRoot, "files", len(files))
	return files, nil
}

func (s *Scanner) matchesPatterns(rel, name string) bool {
	for _, pattern := range s.excludePatterns {
		if matchGlob(pattern, rel, name) {
			return false
		}
	}
	if len(s.includePatterns) == 0 {
		return true
	}
	for _, pattern := range s.includePatterns {
		if matchGlob(pattern, rel, name) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, rel, name string) bool {
	if ok, _ := filepath.Match(pattern, name); ok {
		return true
	}
	ok, _ := filepath.Match(pattern, rel)
	return ok
}

// isBinary sniffs the first 512 bytes for a null byte.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return true
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// PathHash returns a stable 8-hex-digit ID for a relative path.
func PathHash(relPath string) string {
	sum := md5.Sum([]byte(relPath))
	return hex.EncodeToString(sum[:])[:8]
}
