package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// rotateFiles shifts albumdrop.N.log to albumdrop.N+1.log, drops anything at
// or beyond maxBackups, and moves the live file to albumdrop.1.log.
func rotateFiles(basePath string, maxBackups int) error {
	dir := filepath.Dir(basePath)
	ext := filepath.Ext(basePath)
	name := strings.TrimSuffix(filepath.Base(basePath), ext)

	backup := func(n int) string {
		return filepath.Join(dir, name+"."+strconv.Itoa(n)+ext)
	}

	numbers, err := backupNumbers(dir, name, ext)
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.IntSlice(numbers)))

	for _, n := range numbers {
		if n >= maxBackups {
			os.Remove(backup(n))
			continue
		}
		if err := os.Rename(backup(n), backup(n+1)); err != nil {
			return fmt.Errorf("failed to rotate %s: %w", backup(n), err)
		}
	}

	if _, err := os.Stat(basePath); err == nil {
		if err := os.Rename(basePath, backup(1)); err != nil {
			return fmt.Errorf("failed to rotate current log: %w", err)
		}
	}
	return nil
}

func backupNumbers(dir, name, ext string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var numbers []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		middle, ok := strings.CutPrefix(entry.Name(), name+".")
		if !ok {
			continue
		}
		middle, ok = strings.CutSuffix(middle, ext)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(middle); err == nil {
			numbers = append(numbers, n)
		}
	}
	return numbers, nil
}
