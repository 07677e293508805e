package lib

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupIgnoreTest creates a temporary directory and writes a .bsyncignore file
// with the provided content for isolated testing.
func setupIgnoreTest(t *testing.T, ignoreContent string) string {
	// IsPathIgnored resolves symlinks, and t.TempDir() may be one (macOS /var).
	tmpDir := t.TempDir()
	canonicalTmpDir, err := filepath.EvalSymlinks(tmpDir)
	require.NoError(t, err, "Failed to resolve symlinks for temp dir")

	ignoreFilePath := filepath.Join(canonicalTmpDir, IgnoreFilename)
	err = os.WriteFile(ignoreFilePath, []byte(ignoreContent), 0644)
	require.NoError(t, err, "Failed to create .bsyncignore file in canonical path")

	ResetIgnoreState()
	return canonicalTmpDir
}

func TestIsPathIgnored(t *testing.T) {
	testCases := []struct {
		name            string
		ignoreContent   string
		pathToCheck     string
		shouldBeIgnored bool
	}{
		{
			name:            "Default .git directory ignore",
			ignoreContent:   "",
			pathToCheck:     ".git/config",
			shouldBeIgnored: true,
		},
		{
			name:            "Default .bsyncignore file ignore",
			ignoreContent:   "",
			pathToCheck:     ".bsyncignore",
			shouldBeIgnored: true,
		},
		{
			name:            "Default temporary patch file ignore",
			ignoreContent:   "",
			pathToCheck:     "data/.bsync-report.csv-123456",
			shouldBeIgnored: true,
		},
		{
			name:            "Specific file match",
			ignoreContent:   "secret.txt",
			pathToCheck:     "secret.txt",
			shouldBeIgnored: true,
		},
		{
			name:            "Glob pattern in subdir",
			ignoreContent:   "*.log",
			pathToCheck:     "logs/system.log",
			shouldBeIgnored: true,
		},
		{
			name:            "Directory pattern match (build/)",
			ignoreContent:   "build/",
			pathToCheck:     "build/asset.js",
			shouldBeIgnored: true,
		},
		{
			name:            "Negation pattern (!)",
			ignoreContent:   "*.log\n!important.log",
			pathToCheck:     "important.log",
			shouldBeIgnored: false,
		},
		{
			name:            "Comment and empty lines should be ignored",
			ignoreContent:   "# This is a comment\n\n  \n\n*.tmp",
			pathToCheck:     "some.tmp",
			shouldBeIgnored: true,
		},
		{
			name:            "Path not in ignore list",
			ignoreContent:   "*.log",
			pathToCheck:     "src/main.go",
			shouldBeIgnored: false,
		},
		{
			name:            "Path with Windows-style separators in pattern",
			ignoreContent:   "dist\\main.js",
			pathToCheck:     "dist/main.js",
			shouldBeIgnored: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			testDir := setupIgnoreTest(t, tc.ignoreContent)
			fullPath := filepath.Join(testDir, filepath.FromSlash(tc.pathToCheck))

			err := os.MkdirAll(filepath.Dir(fullPath), 0755)
			require.NoError(t, err, "Failed to create parent directory for test")
			err = os.WriteFile(fullPath, []byte("test"), 0644)
			require.NoError(t, err, "Failed to create test file")

			isIgnored := IsPathIgnored(testDir, fullPath)

			assert.Equal(t, tc.shouldBeIgnored, isIgnored, "Path '%s' with ignore content:\n---\n%s\n---", tc.pathToCheck, tc.ignoreContent)
		})
	}
}

func TestIgnoreCaching(t *testing.T) {
	// Deleting the ignore file after the first lookup must not change the
	// answer: the compiled rules are cached per tree.
	testDir := setupIgnoreTest(t, "cache-test.txt")
	pathToTest := filepath.Join(testDir, "cache-test.txt")
	require.NoError(t, os.WriteFile(pathToTest, []byte("test"), 0644))

	assert.True(t, IsPathIgnored(testDir, pathToTest), "First call failed: path should be ignored.")

	require.NoError(t, os.Remove(filepath.Join(testDir, IgnoreFilename)))

	assert.True(t, IsPathIgnored(testDir, pathToTest), "Second call failed: path was not ignored, indicating cache was not used.")
}

func TestIgnoreConcurrency(t *testing.T) {
	testDir := setupIgnoreTest(t, "*.log")

	logFilePath := filepath.Join(testDir, "test.log")
	txtFilePath := filepath.Join(testDir, "test.txt")
	require.NoError(t, os.WriteFile(logFilePath, []byte("log"), 0644))
	require.NoError(t, os.WriteFile(txtFilePath, []byte("txt"), 0644))

	numGoroutines := 100
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			assert.True(t, IsPathIgnored(testDir, logFilePath), "Concurrent check failed: .log file should have been ignored")
			assert.False(t, IsPathIgnored(testDir, txtFilePath), "Concurrent check failed: .txt file should not have been ignored")
		}()
	}

	wg.Wait()
}

func TestIsRelPathIgnored(t *testing.T) {
	testDir := setupIgnoreTest(t, "*.log\nbuild/\n")

	testCases := []struct {
		name            string
		rel             string
		isDir           bool
		shouldBeIgnored bool
	}{
		{"Missing file matched by a glob", "absent.log", false, true},
		{"Missing file in a subdirectory", "logs/absent.log", false, true},
		{"Missing file not matched", "absent.txt", false, false},
		{"Missing file under an ignored directory", "build/out.bin", false, true},
		{"Default temporary patch file", ".bsync-data.bin-42", false, true},
		{"Plain directory", "src", true, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := os.Stat(filepath.Join(testDir, filepath.FromSlash(tc.rel)))
			require.True(t, os.IsNotExist(err), "the path must not exist under the tree")

			assert.Equal(t, tc.shouldBeIgnored, IsRelPathIgnored(testDir, tc.rel, tc.isDir))
		})
	}

	t.Run("Agrees with IsPathIgnored for existing files", func(t *testing.T) {
		present := filepath.Join(testDir, "present.log")
		require.NoError(t, os.WriteFile(present, []byte("log"), 0644))
		assert.True(t, IsPathIgnored(testDir, present))
		assert.True(t, IsRelPathIgnored(testDir, "present.log", false))
	})
}
