package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"img2img/core"
)

// DiskSpace describes the filesystem holding a path.
type DiskSpace struct {
	Path  string
	Total int64
	Free  int64
}

// UsedPercent returns the used share of the filesystem, 0 to 100.
func (d *DiskSpace) UsedPercent() float64 {
	if d.Total <= 0 {
		return 0
	}
	return float64(d.Total-d.Free) / float64(d.Total) * 100
}

// DiskSpaceError reports too little free space.
type DiskSpaceError struct {
	Path      string
	Required  int64
	Available int64
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("low disk space at %s: want %s, have %s free",
		e.Path, core.FormatBytes(e.Required), core.FormatBytes(e.Available))
}

// GetDiskSpace reports on the filesystem containing path. A missing path
// is resolved to its nearest existing parent.
func GetDiskSpace(path string) (*DiskSpace, error) {
	info, err := os.Stat(path)
	if err != nil {
		parent := filepath.Dir(path)
		if os.IsNotExist(err) && parent != path {
			return GetDiskSpace(parent)
		}
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		path = filepath.Dir(path)
	}

	total, free, err := statDisk(path)
	if err != nil {
		return nil, fmt.Errorf("disk space for %s: %w", path, err)
	}
	return &DiskSpace{Path: path, Total: total, Free: free}, nil
}
