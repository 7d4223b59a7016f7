// Package audiofile derives canonical conflict keys from loose and
// in-archive paths and classifies audio and archive files by extension.
package audiofile

import (
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultExtension is used when a winner's origin path carries no extension
const DefaultExtension = ".wav"

// Extensions lists the recognized audio extensions (lower-case, with dot)
var Extensions = mapset.NewThreadUnsafeSet(".wav", ".xwm", ".mp3", ".ogg")

// ArchiveExtensions lists the recognized archive container extensions
var ArchiveExtensions = mapset.NewThreadUnsafeSet(".bsa", ".ba2")

// keySegments are the path segments an asset key is rooted at
var keySegments = []string{"sound", "music"}

// IsAudioExtension reports whether ext (with leading dot) is a recognized audio extension
func IsAudioExtension(ext string) bool {
	if strings.TrimSpace(ext) == "" {
		return false
	}
	return Extensions.Contains(strings.ToLower(ext))
}

// IsAudioFile reports whether path has a recognized audio extension
func IsAudioFile(path string) bool {
	return IsAudioExtension(ext(path))
}

// IsArchiveFile reports whether path has a recognized archive extension
func IsArchiveFile(path string) bool {
	e := ext(path)
	return e != "" && ArchiveExtensions.Contains(strings.ToLower(e))
}

// ExtensionOrDefault returns the extension of path, or def when it has none
func ExtensionOrDefault(path, def string) string {
	e := ext(path)
	if strings.TrimSpace(e) == "" {
		return def
	}
	return e
}

// NormalizeArchivePath converts separators to '/' and trims leading slashes
func NormalizeArchivePath(p string) string {
	return strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")
}

// KeyFromAbsolute derives the conflict key of file relative to root
func KeyFromAbsolute(root, file string) (string, bool) {
	if strings.TrimSpace(root) == "" || strings.TrimSpace(file) == "" {
		return "", false
	}

	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", false
	}

	return KeyFromRelative(rel)
}

// KeyFromRelative derives the conflict key of a relative path.
// The key is lower-cased, rooted at the first "sound" or "music" segment
// and has its extension stripped. It returns false when neither segment
// exists or when the key would climb out of its root through "..".
func KeyFromRelative(rel string) (string, bool) {
	if strings.TrimSpace(rel) == "" {
		return "", false
	}

	lower := strings.ToLower(strings.ReplaceAll(rel, "\\", "/"))

	idx := -1
	for _, seg := range keySegments {
		i := segmentStart(lower, seg)
		if i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	if idx < 0 {
		return "", false
	}

	key := lower[idx:]
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", false
		}
	}

	lastSlash := strings.LastIndex(key, "/")
	if lastDot := strings.LastIndex(key, "."); lastDot > lastSlash {
		key = key[:lastDot]
	}

	return key, true
}

// OutputPath returns where the winner for key is written below root
func OutputPath(root, key, extension string) string {
	rel := key + extension
	return filepath.Join(root, filepath.FromSlash(rel))
}

// segmentStart returns the index of segment when it appears as a whole
// directory component of path, or -1
func segmentStart(path, segment string) int {
	if strings.HasPrefix(path, segment+"/") {
		return 0
	}
	if i := strings.Index(path, "/"+segment+"/"); i >= 0 {
		return i + 1
	}
	return -1
}

// ext returns the extension of the last component, treating both separators alike
func ext(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	base := p[strings.LastIndex(p, "/")+1:]
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[i:]
	}
	return ""
}
