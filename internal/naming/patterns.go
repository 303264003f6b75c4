// Package naming holds the catalog of archive filename patterns that map a
// download such as "Radiohead - OK Computer.zip" to an artist and an album.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultPatternName is the pattern used when none is configured.
const DefaultPatternName = "Artist - Album.zip"

// ArchiveExt is the only archive extension the scanner considers.
const ArchiveExt = ".zip"

// Pattern is a named, anchored, case-insensitive expression with an
// "artist" and an "album" capture group.
type Pattern struct {
	Name    string
	Example string
	re      *regexp.Regexp
	artist  int
	album   int
}

var catalog = []Pattern{
	MustCompile("Artist - Album.zip", `^(?P<artist>.+?)\s*-\s*(?P<album>.+?)\.zip$`, "Radiohead - OK Computer.zip"),
	MustCompile("Artist_Album.zip", `^(?P<artist>.+?)_(?P<album>.+?)\.zip$`, "Radiohead_OK Computer.zip"),
	MustCompile("Artist.Album.zip", `^(?P<artist>.+?)\.(?P<album>.+?)\.zip$`, "Radiohead.OK Computer.zip"),
	MustCompile("Album by Artist.zip", `^(?P<album>.+?)\s+by\s+(?P<artist>.+?)\.zip$`, "OK Computer by Radiohead.zip"),
	MustCompile("Artist - Album - Year.zip", `^(?P<artist>.+?)\s*-\s*(?P<album>.+?)\s*-\s*\d{4}\.zip$`, "Radiohead - OK Computer - 1997.zip"),
}

// Compile builds a Pattern. expr must contain the named groups "artist" and
// "album"; it is matched case-insensitively.
func Compile(name, expr, example string) (Pattern, error) {
	re, err := regexp.Compile(`(?i)` + expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %q: %w", name, err)
	}
	p := Pattern{
		Name:    name,
		Example: example,
		re:      re,
		artist:  re.SubexpIndex("artist"),
		album:   re.SubexpIndex("album"),
	}
	if re.NumSubexp() != 2 || p.artist < 0 || p.album < 0 {
		return Pattern{}, fmt.Errorf("pattern %q: need exactly the groups artist and album", name)
	}
	return p, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(name, expr, example string) Pattern {
	p, err := Compile(name, expr, example)
	if err != nil {
		panic(err)
	}
	return p
}

// Patterns returns the catalog in display order.
func Patterns() []Pattern {
	out := make([]Pattern, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the display names of the catalog.
func Names() []string {
	names := make([]string, len(catalog))
	for i, p := range catalog {
		names[i] = p.Name
	}
	return names
}

// Lookup finds a catalog pattern by display name, ignoring case.
func Lookup(name string) (Pattern, bool) {
	name = strings.TrimSpace(name)
	for _, p := range catalog {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Pattern{}, false
}

// Default returns the "Artist - Album.zip" pattern.
func Default() Pattern {
	p, _ := Lookup(DefaultPatternName)
	return p
}

// Next returns the catalog entry after name, wrapping around. Unknown names
// yield the first entry.
func Next(name string) Pattern {
	for i, p := range catalog {
		if p.Name == name {
			return catalog[(i+1)%len(catalog)]
		}
	}
	return catalog[0]
}

// Match applies the pattern to a bare filename. ok is false when the name
// does not match or either group is blank after trimming. Groups that are
// not usable as a single folder name ("..", "a/b") are rejected as well.
func (p Pattern) Match(fileName string) (artist, album string, ok bool) {
	if p.re == nil {
		return "", "", false
	}
	m := p.re.FindStringSubmatch(fileName)
	if m == nil {
		return "", "", false
	}
	artist = strings.TrimSpace(m[p.artist])
	album = strings.TrimSpace(m[p.album])
	if !isFolderName(artist) || !isFolderName(album) {
		return "", "", false
	}
	return artist, album, true
}

func isFolderName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// Expr returns the underlying expression, including the (?i) flag.
func (p Pattern) Expr() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

func (p Pattern) String() string {
	return p.Name
}

// IsArchive reports whether name has the archive extension, in any case.
func IsArchive(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ArchiveExt)
}
