// Package transfer relocates extracted album folders into the library.
//
// A same-filesystem move is a single rename. When the staging directory and
// the library live on different devices the rename fails with EXDEV, and the
// tree is copied and the source removed instead.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

var (
	// ErrSourceNotFound is returned when the directory to move doesn't exist
	ErrSourceNotFound = errors.New("source directory not found")

	// ErrDestinationExists is returned when the target path is already taken
	ErrDestinationExists = errors.New("destination already exists")

	// ErrDiskUnhealthy is returned when the pre-flight disk check fails
	ErrDiskUnhealthy = errors.New("disk health check failed")

	// ErrInsufficientSpace is returned when the destination cannot hold the data
	ErrInsufficientSpace = errors.New("insufficient free space")
)

// Method records how a directory reached its destination.
type Method string

const (
	MethodRename Method = "rename"
	MethodCopy   Method = "copy"
)

// Result describes a completed MoveDir.
type Result struct {
	Method   Method
	Files    int
	Bytes    int64
	Duration time.Duration
}

// MoveDir moves the directory src to dst. dst must not exist; its parent
// must. On a cross-device rename the tree is copied and src removed.
func MoveDir(src, dst string) (*Result, error) {
	start := time.Now()
	result := &Result{Method: MethodRename}

	info, err := os.Stat(src)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("%w: %s is not a directory", ErrSourceNotFound, src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return result, fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}

	err = os.Rename(src, dst)
	if err == nil {
		result.Duration = time.Since(start)
		return result, nil
	}
	if !isCrossDevice(err) {
		return result, fmt.Errorf("rename %s: %w", src, err)
	}

	result.Method = MethodCopy
	if err := copyTree(src, dst, result); err != nil {
		os.RemoveAll(dst)
		return result, fmt.Errorf("copy %s: %w", src, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return result, fmt.Errorf("remove %s after copy: %w", src, err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}

func copyTree(src, dst string, result *Result) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode().IsRegular():
			n, err := copyFile(path, target, info.Mode().Perm())
			result.Bytes += n
			if err == nil {
				result.Files++
			}
			return err
		default:
			return nil
		}
	})
}

func copyFile(src, dst string, mode os.FileMode) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return 0, err
	}

	n, copyErr := io.Copy(out, in)
	if copyErr == nil {
		copyErr = out.Sync()
	}
	closeErr := out.Close()
	if copyErr != nil {
		return n, copyErr
	}
	return n, closeErr
}
