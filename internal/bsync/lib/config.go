// Package lib contains the block synchronization engine and the services the
// bsync commands are built on.
package lib

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/denormal/go-gitignore"
)

// --- Constants ---

// DefaultBlockSize is used when neither the caller nor the stream size
// suggests anything better.
const DefaultBlockSize = 2048

// MinBlockSize and MaxBlockSize clamp the size-derived block size heuristic.
const (
	MinBlockSize = 512
	MaxBlockSize = 128 * 1024
)

// TargetBlockCount is the number of blocks ChooseBlockSize aims for.
const TargetBlockCount = 1024

// DefaultSpillThreshold is the in-memory size above which a blob moves to a
// temporary file.
const DefaultSpillThreshold = 8 * 1024 * 1024

// IgnoreFilename is the name of the file containing user-defined ignore
// patterns for tree synchronization.
const IgnoreFilename = ".bsyncignore"

// TempFilePrefix prefixes every temporary file created next to a patch target.
const TempFilePrefix = ".bsync-"

// --- Package-level Variables ---

// defaultIgnorePatterns are never synchronized.
var defaultIgnorePatterns = []string{
	".git/**",
	IgnoreFilename,
	TempFilePrefix + "*",
}

var (
	// ignoreCache stores compiled matchers keyed by the canonical absolute
	// path of the tree root. The gitignore library is not safe for concurrent
	// use, so every lookup is serialized by cacheMutex.
	ignoreCache = make(map[string]gitignore.GitIgnore)
	cacheMutex  = &sync.Mutex{}
)

// ChooseBlockSize derives a block size from the reference size: roughly
// TargetBlockCount blocks, clamped to [MinBlockSize, MaxBlockSize].
func ChooseBlockSize(size int64) int {
	if size <= 0 {
		return DefaultBlockSize
	}
	bs := size / TargetBlockCount
	if bs < MinBlockSize {
		bs = MinBlockSize
	}
	if bs > MaxBlockSize {
		bs = MaxBlockSize
	}
	return int(bs)
}

// ignoreMatcher returns the cached matcher for baseDir and the canonical form
// of baseDir. The caller must hold cacheMutex.
func ignoreMatcher(baseDir string) (gitignore.GitIgnore, string) {
	canonicalBaseDir, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		canonicalBaseDir = baseDir
	}

	matcher, found := ignoreCache[canonicalBaseDir]
	if !found {
		matcher = loadIgnoreMatcher(canonicalBaseDir)
		ignoreCache[canonicalBaseDir] = matcher
	}
	return matcher, canonicalBaseDir
}

// IsPathIgnored checks if path, which lives under baseDir, should be skipped
// by tree synchronization. The path must exist; use IsRelPathIgnored for
// paths that exist only in another tree.
func IsPathIgnored(baseDir, path string) bool {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	matcher, canonicalBaseDir := ignoreMatcher(baseDir)

	canonicalPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		canonicalPath = path
	}

	relativePath, err := filepath.Rel(canonicalBaseDir, canonicalPath)
	if err != nil {
		return false
	}

	match := matcher.Match(filepath.ToSlash(relativePath))
	if match == nil {
		match = matcher.Match(canonicalPath)
	}
	if match == nil {
		return false
	}
	return match.Ignore()
}

// IsRelPathIgnored applies the ignore rules of baseDir to rel, a path relative
// to baseDir. Nothing is read from disk for rel, so it does not need to exist.
func IsRelPathIgnored(baseDir, rel string, isDir bool) bool {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	matcher, _ := ignoreMatcher(baseDir)
	match := matcher.Relative(filepath.ToSlash(rel), isDir)
	if match == nil {
		return false
	}
	return match.Ignore()
}

// loadIgnoreMatcher compiles the default patterns plus the tree's
// .bsyncignore into a matcher.
func loadIgnoreMatcher(baseDir string) gitignore.GitIgnore {
	rawPatterns := make([]string, len(defaultIgnorePatterns))
	copy(rawPatterns, defaultIgnorePatterns)

	if content, err := os.ReadFile(filepath.Join(baseDir, IgnoreFilename)); err == nil {
		rawPatterns = append(rawPatterns, strings.Split(string(content), "\n")...)
	}

	var patterns []string
	for _, p := range rawPatterns {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		trimmed = strings.ReplaceAll(trimmed, "\\", "/")
		// Directory patterns match their contents as well.
		if strings.HasSuffix(trimmed, "/") && !strings.HasSuffix(trimmed, "**/") {
			trimmed += "**"
		}
		patterns = append(patterns, trimmed)
	}

	matcher := gitignore.New(
		strings.NewReader(strings.Join(patterns, "\n")),
		baseDir,
		func(err gitignore.Error) bool { return false },
	)
	if matcher == nil {
		return gitignore.New(strings.NewReader(""), "", nil)
	}
	return matcher
}

// ResetIgnoreState clears the ignore cache. This is used for testing.
func ResetIgnoreState() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	ignoreCache = make(map[string]gitignore.GitIgnore)
}
