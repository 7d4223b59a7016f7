package scan

import (
	"path"
	"strings"
)

// shouldExclude checks if a source-relative path matches one of the exclude patterns.
// Matching ignores case, as mod trees come from case-insensitive filesystems.
// Patterns support:
//   - Simple glob patterns: *.ogg, _backup*
//   - Directory patterns: sound/voice/, optional/
//   - Path patterns: sound/fx/*, **/test/*
func shouldExclude(relativePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	normalizedPath := strings.ToLower(strings.ReplaceAll(relativePath, "\\", "/"))
	baseName := path.Base(normalizedPath)

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		normalizedPattern := strings.ToLower(strings.ReplaceAll(pattern, "\\", "/"))

		// Directory pattern: matches the directory at any depth
		if strings.HasSuffix(normalizedPattern, "/") {
			dirPattern := strings.TrimSuffix(normalizedPattern, "/")
			if strings.HasPrefix(normalizedPath, dirPattern+"/") ||
				normalizedPath == dirPattern ||
				strings.Contains(normalizedPath, "/"+dirPattern+"/") {
				return true
			}
			continue
		}

		// **/pattern matches pattern at any level
		if strings.HasPrefix(normalizedPattern, "**/") {
			suffix := strings.TrimPrefix(normalizedPattern, "**/")
			if matchGlob(baseName, suffix) ||
				strings.HasSuffix(normalizedPath, "/"+suffix) ||
				normalizedPath == suffix ||
				matchGlobSuffix(normalizedPath, suffix) {
				return true
			}
			continue
		}

		if strings.Contains(normalizedPattern, "/") {
			// Pattern applies to the full path
			if matched, _ := path.Match(normalizedPattern, normalizedPath); matched {
				return true
			}
			if strings.HasSuffix(normalizedPath, "/"+normalizedPattern) {
				return true
			}
		} else if matchGlob(baseName, normalizedPattern) {
			return true
		}
	}

	return false
}

// matchGlob performs glob matching on a single path component
func matchGlob(name, pattern string) bool {
	matched, _ := path.Match(pattern, name)
	return matched
}

// matchGlobSuffix checks whether the trailing components of p match a
// multi-component pattern
func matchGlobSuffix(p, pattern string) bool {
	parts := strings.Split(p, "/")
	depth := strings.Count(pattern, "/") + 1
	if depth > len(parts) {
		return false
	}
	return matchGlob(strings.Join(parts[len(parts)-depth:], "/"), pattern)
}
