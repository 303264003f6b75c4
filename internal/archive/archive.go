// Package archive inspects and unpacks album zip files.
//
// A well-formed album archive keeps every file under a single top-level
// folder ("the album folder"). Inspect finds that folder without touching
// the disk; Extract decompresses the whole archive into a staging directory.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Nomadcxx/albumdrop/internal/album"
)

// resourceForkDir is the folder macOS Finder adds to zips it creates. It is
// never part of the album and is skipped everywhere.
const resourceForkDir = "__MACOSX"

var (
	// ErrNoAlbumFolder is returned when no entry lives inside a folder.
	ErrNoAlbumFolder = errors.New("no top-level album folder")

	// ErrMultipleFolders is returned when entries are spread over more than
	// one top-level folder.
	ErrMultipleFolders = errors.New("more than one top-level folder")

	// ErrUnsafePath is returned for entries that would land outside the
	// staging directory.
	ErrUnsafePath = errors.New("entry escapes extraction directory")
)

// Layout describes the structure of an archive.
type Layout struct {
	// AlbumFolder is the single top-level folder shared by the entries.
	AlbumFolder string
	// TopLevel lists every distinct top-level folder, sorted.
	TopLevel []string
	// Entries counts file entries, excluding directories.
	Entries int
	// UncompressedBytes is the sum of the file entries' uncompressed sizes.
	UncompressedBytes int64
}

// Stats summarises an extraction.
type Stats struct {
	Files int
	Bytes int64
	// Skipped lists symlink entries, which are never written.
	Skipped []string
}

// Inspect reads the central directory of the zip at archivePath and returns
// its layout. Unreadable archives yield an album.Error of kind
// CorruptArchive; anything other than exactly one top-level folder yields
// UnexpectedArchiveLayout together with the layout found.
func Inspect(archivePath string) (*Layout, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, album.NewError(album.KindCorruptArchive, archivePath, err)
	}
	defer r.Close()

	layout := &Layout{}
	folders := make(map[string]struct{})

	for _, f := range r.File {
		name := entryName(f.Name)
		if name == "" || isResourceFork(name) {
			continue
		}
		if !f.FileInfo().IsDir() {
			layout.Entries++
			layout.UncompressedBytes += int64(f.UncompressedSize64)
		}
		// Files at the archive root have no folder segment and do not count.
		if top, _, found := strings.Cut(name, "/"); found && top != "" {
			folders[top] = struct{}{}
		}
	}

	for name := range folders {
		layout.TopLevel = append(layout.TopLevel, name)
	}
	sort.Strings(layout.TopLevel)

	switch len(layout.TopLevel) {
	case 1:
		layout.AlbumFolder = layout.TopLevel[0]
		return layout, nil
	case 0:
		return layout, album.NewError(album.KindUnexpectedArchiveLayout, archivePath, ErrNoAlbumFolder)
	default:
		return layout, album.NewError(album.KindUnexpectedArchiveLayout, archivePath,
			fmt.Errorf("%w: %s", ErrMultipleFolders, strings.Join(layout.TopLevel, ", ")))
	}
}

// Extract decompresses every entry of the zip at archivePath into destDir,
// which must already exist. Any failure is reported as CorruptArchive; the
// caller owns cleanup of destDir.
func Extract(archivePath, destDir string) (Stats, error) {
	var stats Stats

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return stats, album.NewError(album.KindCorruptArchive, archivePath, err)
	}
	defer r.Close()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return stats, album.NewError(album.KindIoFailure, destDir, err)
	}

	for _, f := range r.File {
		name := entryName(f.Name)
		if name == "" || isResourceFork(name) {
			continue
		}

		target, err := safeJoin(root, name)
		if err != nil {
			return stats, album.NewError(album.KindCorruptArchive, archivePath, fmt.Errorf("%s: %w", f.Name, err))
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return stats, album.NewError(album.KindIoFailure, target, err)
			}
			continue
		}
		if f.Mode()&os.ModeSymlink != 0 {
			stats.Skipped = append(stats.Skipped, name)
			continue
		}

		n, err := writeEntry(f, target)
		if err != nil {
			return stats, album.NewError(album.KindCorruptArchive, archivePath, fmt.Errorf("%s: %w", f.Name, err))
		}
		stats.Files++
		stats.Bytes += n
	}

	return stats, nil
}

func writeEntry(f *zip.File, target string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, err
	}

	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}

	n, copyErr := io.Copy(out, rc)
	closeErr := out.Close()
	if copyErr != nil {
		return n, copyErr
	}
	return n, closeErr
}

// entryName normalises a zip entry name to forward slashes without a
// leading "./". Some Windows tools write backslashes.
func entryName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	for strings.HasPrefix(name, "./") {
		name = name[2:]
	}
	return name
}

func isResourceFork(name string) bool {
	return name == resourceForkDir || strings.HasPrefix(name, resourceForkDir+"/")
}

func safeJoin(root, name string) (string, error) {
	if path.IsAbs(name) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", ErrUnsafePath
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return target, nil
}
