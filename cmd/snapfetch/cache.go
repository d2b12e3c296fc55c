package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/snapfetch/snapfetch/pkg/snapfetch/checksum"
	"github.com/snapfetch/snapfetch/pkg/snapfetch/state"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the checksum cache",
	Long: `Manage the per-workdir checksum cache.

The cache stores content digests keyed by file identity so unchanged
parts are vouched for without rereading them. It lives inside the
working directory's state dir and rebuilds itself on demand; clearing
it only costs one full rehash.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats [workdir]",
	Short: "Show cache statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		workdir, err := resolveWorkdir(args)
		if err != nil {
			return err
		}
		dir := state.New(workdir).CachePath()

		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			printInfo("No cache at %s", dir)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to stat cache directory: %w", err)
		}

		var totalSize int64
		fileCount := 0
		err = filepath.Walk(dir, func(_ string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				totalSize += fi.Size()
				fileCount++
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk cache directory: %w", err)
		}

		printInfo("Cache directory: %s", dir)
		if cache, err := checksum.Open(dir); err != nil {
			printInfo("Entries: unavailable (%v)", err)
		} else {
			printInfo("Entries: %d", cache.Count(workdir))
			_ = cache.Close()
		}
		printInfo("Files: %d", fileCount)
		printInfo("Total size: %.2f MB", float64(totalSize)/(1024*1024))
		printInfo("Last modified: %s", info.ModTime().Format("2006-01-02 15:04:05"))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [workdir]",
	Short: "Clear the cache",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		workdir, err := resolveWorkdir(args)
		if err != nil {
			return err
		}
		dir := state.New(workdir).CachePath()

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			printInfo("No cache at %s", dir)
			return nil
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		printInfo("Cache cleared.")
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path [workdir]",
	Short: "Print the cache directory path",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		workdir, err := resolveWorkdir(args)
		if err != nil {
			return err
		}
		fmt.Println(state.New(workdir).CachePath())
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}
