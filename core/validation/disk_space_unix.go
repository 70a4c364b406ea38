//go:build !windows

package validation

import "syscall"

// statDisk uses Bavail so the free figure is what an unprivileged process
// can write.
func statDisk(path string) (total, free int64, err error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	return int64(st.Blocks) * int64(st.Bsize), int64(st.Bavail) * int64(st.Bsize), nil
}
