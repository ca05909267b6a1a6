package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

var ErrLowDiskSpace = errors.New("not enough free disk space")

// FreeSpaceMB returns the free space of the filesystem holding dir. The
// nearest existing parent is measured when dir does not exist yet.
func FreeSpaceMB(dir string) (uint64, error) {
	path, err := filepath.Abs(dir)
	if err != nil {
		return 0, err
	}
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}

	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("disk usage for %s: %w", path, err)
	}
	return usage.Free / (1024 * 1024), nil
}

// CheckFreeSpace fails with ErrLowDiskSpace when dir has less than minMB free.
// minMB <= 0 disables the check.
func CheckFreeSpace(dir string, minMB int) error {
	if minMB <= 0 {
		return nil
	}
	free, err := FreeSpaceMB(dir)
	if err != nil {
		return err
	}
	if free < uint64(minMB) {
		return fmt.Errorf("%w: %d MB free in %s, need %d MB", ErrLowDiskSpace, free, dir, minMB)
	}
	return nil
}
