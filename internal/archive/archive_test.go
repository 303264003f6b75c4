package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Nomadcxx/albumdrop/internal/album"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_SingleFolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Radiohead - OK Computer.zip")
	writeZip(t, path, map[string]string{
		"OK Computer/":                "",
		"OK Computer/01 Airbag.mp3":   "airbag",
		"OK Computer/02 Paranoid.mp3": "android",
	})

	layout, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, "OK Computer", layout.AlbumFolder)
	assert.Equal(t, 2, layout.Entries)
	assert.Equal(t, int64(len("airbag")+len("android")), layout.UncompressedBytes)
}

func TestInspect_IgnoresRootFilesAndResourceFork(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.zip")
	writeZip(t, path, map[string]string{
		"Album/01.flac":            "x",
		"readme.txt":               "root file",
		"__MACOSX/Album/._01.flac": "fork",
	})

	layout, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, "Album", layout.AlbumFolder)
	assert.Equal(t, []string{"Album"}, layout.TopLevel)
}

func TestInspect_TwoFolders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.zip")
	writeZip(t, path, map[string]string{
		"Disc 1/01.mp3": "a",
		"Disc 2/01.mp3": "b",
	})

	layout, err := Inspect(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, album.ErrUnexpectedArchiveLayout))
	assert.True(t, errors.Is(err, ErrMultipleFolders))
	assert.Equal(t, []string{"Disc 1", "Disc 2"}, layout.TopLevel)
}

func TestInspect_NoFolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.zip")
	writeZip(t, path, map[string]string{"01.mp3": "a", "02.mp3": "b"})

	_, err := Inspect(path)
	assert.True(t, errors.Is(err, album.ErrUnexpectedArchiveLayout))
	assert.True(t, errors.Is(err, ErrNoAlbumFolder))
}

func TestInspect_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.zip")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0644))

	_, err := Inspect(path)
	assert.True(t, errors.Is(err, album.ErrCorruptArchive))
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	writeZip(t, path, map[string]string{
		"Album/":              "",
		"Album/01 One.mp3":    "one",
		"Album/art/cover.jpg": "jpeg",
		"__MACOSX/._x":        "fork",
	})

	dest := filepath.Join(dir, "stage")
	require.NoError(t, os.Mkdir(dest, 0755))

	stats, err := Extract(path, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, int64(7), stats.Bytes)

	data, err := os.ReadFile(filepath.Join(dest, "Album", "art", "cover.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	_, err = os.Stat(filepath.Join(dest, "__MACOSX"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtract_ReportsSkippedSymlinks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("Album/01 One.mp3")
	require.NoError(t, err)
	_, err = w.Write([]byte("one"))
	require.NoError(t, err)
	hdr := &zip.FileHeader{Name: "Album/latest.mp3"}
	hdr.SetMode(os.ModeSymlink | 0777)
	w, err = zw.CreateHeader(hdr)
	require.NoError(t, err)
	_, err = w.Write([]byte("01 One.mp3"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(dir, "stage")
	require.NoError(t, os.Mkdir(dest, 0755))

	stats, err := Extract(path, dest)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, []string{"Album/latest.mp3"}, stats.Skipped)
	_, err = os.Lstat(filepath.Join(dest, "Album", "latest.mp3"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtract_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evil.zip")
	writeZip(t, path, map[string]string{
		"Album/ok.mp3":        "fine",
		"Album/../../pwn.txt": "nope",
	})

	dest := filepath.Join(dir, "stage")
	require.NoError(t, os.Mkdir(dest, 0755))

	_, err := Extract(path, dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, album.ErrCorruptArchive))
	assert.True(t, errors.Is(err, ErrUnsafePath))

	_, statErr := os.Stat(filepath.Join(dir, "pwn.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSafeJoin(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "stage")

	got, err := safeJoin(root, "Album/01.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Album", "01.mp3"), got)

	for _, bad := range []string{"/etc/passwd", "../x", "Album/../../x"} {
		_, err := safeJoin(root, bad)
		assert.ErrorIs(t, err, ErrUnsafePath, bad)
	}
}
