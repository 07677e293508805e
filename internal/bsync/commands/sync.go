package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/gingerrexayers/bsync-go/internal/bsync/lib"
)

// SyncOptions holds the configuration for the sync command.
type SyncOptions struct {
	BlockSize int
	// Delete removes files from the destination tree that the source tree does not have.
	Delete bool
	Blob   lib.BlobOptions
}

// fileSyncJob holds the information needed for a worker to sync one file.
type fileSyncJob struct {
	SourcePath      string
	DestinationPath string
	Mode            os.FileMode
}

// fileSyncResult is the outcome of one job.
type fileSyncResult struct {
	Job   fileSyncJob
	Stats lib.DeltaStats
	Err   error
}

// syncWorker reads jobs from a channel and synchronizes each file pair with
// its own engine instance.
func syncWorker(wg *sync.WaitGroup, opts SyncOptions, jobs <-chan fileSyncJob, results chan<- fileSyncResult) {
	defer wg.Done()
	for job := range jobs {
		stats, err := syncPair(job.SourcePath, job.DestinationPath, opts)
		if err == nil {
			err = os.Chmod(job.DestinationPath, job.Mode)
		}
		results <- fileSyncResult{Job: job, Stats: stats, Err: err}
	}
}

// sameContent reports whether src and dst hold the same bytes. A missing dst
// is never the same; hashes are only compared when the sizes agree.
func sameContent(src, dst string) (bool, int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, 0, err
	}
	dstInfo, err := os.Stat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	if !dstInfo.Mode().IsRegular() || srcInfo.Size() != dstInfo.Size() {
		return false, 0, nil
	}

	srcHash, err := lib.GetFileHash(src)
	if err != nil {
		return false, 0, err
	}
	dstHash, err := lib.GetFileHash(dst)
	if err != nil {
		return false, 0, err
	}
	return srcHash == dstHash, srcInfo.Size(), nil
}

// syncPair makes dst match src. A destination that already holds the source's
// content is left untouched and counted as fully reused.
func syncPair(src, dst string, opts SyncOptions) (lib.DeltaStats, error) {
	same, size, err := sameContent(src, dst)
	if err != nil {
		return lib.DeltaStats{}, err
	}
	if same {
		stats := lib.DeltaStats{ReferenceBytes: size}
		if size > 0 {
			stats.Ranges = 1
		}
		return stats, nil
	}
	return lib.Sync(lib.LocalFile{Path: src}, lib.LocalFile{Path: dst}, lib.SyncOptions{
		BlockSize: opts.BlockSize,
		Blob:      opts.Blob,
	})
}

// SyncFile makes the file at dst match the file at src.
func SyncFile(src, dst string, opts SyncOptions) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source %s is not a regular file", src)
	}

	fmt.Printf("🔄 Syncing \"%s\" to \"%s\"...\n", src, dst)
	stats, err := syncPair(src, dst, opts)
	if err != nil {
		return fmt.Errorf("failed to sync %s: %w", src, err)
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	printStats(stats)
	fmt.Println("✅ Sync complete!")
	return nil
}

// Sync is the main function for the 'sync' command. A directory source is
// synchronized as a tree, anything else as a single file.
func Sync(src, dst string, opts SyncOptions) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("source does not exist: %w", err)
	}
	if info.IsDir() {
		return SyncTree(src, dst, opts)
	}
	return SyncFile(src, dst, opts)
}

// collectSyncJobs walks srcDir, creates the matching directories under
// dstDir and returns one job per regular file, respecting .bsyncignore.
func collectSyncJobs(srcDir, dstDir string) ([]fileSyncJob, map[string]bool, error) {
	var jobs []fileSyncJob
	wanted := make(map[string]bool)

	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		if lib.IsPathIgnored(srcDir, path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)
		wanted[rel] = true

		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if d.Type().IsRegular() {
			jobs = append(jobs, fileSyncJob{
				SourcePath:      path,
				DestinationPath: target,
				Mode:            info.Mode().Perm(),
			})
		}
		return nil
	})
	return jobs, wanted, err
}

// removeExtraneous deletes everything under dstDir that is not in wanted and
// not ignored by the source tree's rules. It returns the number of removed paths.
func removeExtraneous(srcDir, dstDir string, wanted map[string]bool) (int, error) {
	var extra []string
	err := filepath.WalkDir(dstDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dstDir {
			return nil
		}
		rel, err := filepath.Rel(dstDir, path)
		if err != nil {
			return err
		}
		if lib.IsRelPathIgnored(srcDir, rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !wanted[rel] {
			extra = append(extra, path)
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, path := range extra {
		if err := os.RemoveAll(path); err != nil {
			return 0, fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return len(extra), nil
}

// SyncTree makes the directory dstDir match srcDir, file by file.
func SyncTree(srcDir, dstDir string, opts SyncOptions) error {
	absSrc, err := filepath.Abs(srcDir)
	if err != nil {
		return fmt.Errorf("could not resolve source path: %w", err)
	}
	absDst, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("could not resolve destination path: %w", err)
	}
	if err := os.MkdirAll(absDst, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	fmt.Printf("🔄 Syncing tree \"%s\" to \"%s\"...\n", absSrc, absDst)

	// 1. Find all files to be synchronized.
	jobList, wanted, err := collectSyncJobs(absSrc, absDst)
	if err != nil {
		return fmt.Errorf("error finding files: %w", err)
	}
	fmt.Printf("   - Found %d files to sync...\n", len(jobList))

	// 2. Set up the worker pool.
	jobs := make(chan fileSyncJob, len(jobList))
	results := make(chan fileSyncResult, len(jobList))
	var wg sync.WaitGroup
	numWorkers := runtime.NumCPU()
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go syncWorker(&wg, opts, jobs, results)
	}

	for _, job := range jobList {
		jobs <- job
	}
	close(jobs)

	// 3. Wait for all workers to finish.
	wg.Wait()
	close(results)

	// 4. Collect results. Report failures in path order so output is stable.
	var total lib.DeltaStats
	var failures []fileSyncResult
	for res := range results {
		if res.Err != nil {
			failures = append(failures, res)
			continue
		}
		total.Ranges += res.Stats.Ranges
		total.ReferenceBytes += res.Stats.ReferenceBytes
		total.LiteralBytes += res.Stats.LiteralBytes
	}
	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool {
			return failures[i].Job.SourcePath < failures[j].Job.SourcePath
		})
		errs := make([]error, len(failures))
		for i, f := range failures {
			errs[i] = fmt.Errorf("failed to sync %s: %w", f.Job.SourcePath, f.Err)
		}
		return errors.Join(errs...)
	}

	// 5. Optionally remove what the source no longer has.
	if opts.Delete {
		removed, err := removeExtraneous(absSrc, absDst, wanted)
		if err != nil {
			return err
		}
		fmt.Printf("   - Removed %d extraneous path(s).\n", removed)
	}

	printStats(total)
	fmt.Println("✅ Sync complete!")
	return nil
}
