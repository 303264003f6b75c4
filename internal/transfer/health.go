package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// DiskHealth is the result of probing a directory before writing to it.
type DiskHealth struct {
	Path       string
	Accessible bool
	Writable   bool
	SpaceFree  int64
	SpaceTotal int64
	Error      error
}

// IsHealthy reports whether the directory can be written to.
func (h *DiskHealth) IsHealthy() bool {
	return h.Accessible && h.Writable && h.Error == nil
}

// withTimeout runs fn on its own goroutine so a hung mount cannot block the
// batch worker forever. The goroutine is abandoned on timeout.
func withTimeout[T any](timeout time.Duration, what, path string, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-time.After(timeout):
		var zero T
		return zero, fmt.Errorf("%s timed out after %s for path: %s (possible I/O hang)", what, timeout, path)
	}
}

// CheckDiskHealth stats path, reads free space and performs a write probe.
func CheckDiskHealth(path string, timeout time.Duration) (*DiskHealth, error) {
	health := &DiskHealth{Path: path}

	info, err := StatWithTimeout(path, timeout)
	if err != nil {
		health.Error = fmt.Errorf("stat failed: %w", err)
		return health, health.Error
	}
	if !info.IsDir() {
		health.Error = fmt.Errorf("%s is not a directory", path)
		return health, health.Error
	}
	health.Accessible = true

	fs, err := withTimeout(timeout, "statfs", path, func() (syscall.Statfs_t, error) {
		var st syscall.Statfs_t
		err := syscall.Statfs(path, &st)
		return st, err
	})
	if err != nil {
		health.Error = fmt.Errorf("statfs failed: %w", err)
		return health, health.Error
	}
	health.SpaceFree = int64(fs.Bavail) * int64(fs.Bsize)
	health.SpaceTotal = int64(fs.Blocks) * int64(fs.Bsize)

	probe := filepath.Join(path, fmt.Sprintf(".albumdrop_probe_%d", time.Now().UnixNano()))
	_, err = withTimeout(timeout, "write probe", path, func() (struct{}, error) {
		err := os.WriteFile(probe, []byte("probe"), 0644)
		os.Remove(probe)
		return struct{}{}, err
	})
	health.Writable = err == nil
	if err != nil {
		health.Error = fmt.Errorf("write test failed: %w", err)
		return health, health.Error
	}

	return health, nil
}

// CheckSpace fails when dir is unhealthy or has less than required bytes free.
func CheckSpace(dir string, required int64, timeout time.Duration) error {
	health, err := CheckDiskHealth(dir, timeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDiskUnhealthy, err)
	}
	if required > 0 && health.SpaceFree < required {
		return fmt.Errorf("%w: need %d bytes, have %d bytes in %s",
			ErrInsufficientSpace, required, health.SpaceFree, dir)
	}
	return nil
}

// StatWithTimeout is os.Stat bounded by timeout.
func StatWithTimeout(path string, timeout time.Duration) (os.FileInfo, error) {
	return withTimeout(timeout, "stat", path, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// RemoveWithTimeout is os.Remove bounded by timeout.
func RemoveWithTimeout(path string, timeout time.Duration) error {
	_, err := withTimeout(timeout, "remove", path, func() (struct{}, error) {
		return struct{}{}, os.Remove(path)
	})
	return err
}
