package media

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ParseLocalPlaylist parses a .m3u/.m3u8/.pls file into local paths.
// Relative entries are resolved against the playlist's directory. Remote
// URLs are skipped.
func ParseLocalPlaylist(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsPlaylistExt(ext) {
		return nil, fmt.Errorf("unsupported playlist format %s", ext)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("playlist is not valid UTF-8")
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	entry := m3uEntry
	if ext == ".pls" {
		entry = plsEntry
	}

	baseDir := filepath.Dir(abs)
	var entries []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		raw, ok := entry(strings.TrimSpace(scanner.Text()))
		if !ok {
			continue
		}
		raw = strings.Trim(raw, `"`)
		if raw == "" || isURL(raw) {
			continue
		}
		entries = append(entries, resolveEntry(raw, baseDir))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	return entries, nil
}

// FilterPlayable keeps only existing, non-directory, supported audio files.
func FilterPlayable(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if !IsSupportedFile(p) {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out = append(out, p)
	}
	return out
}

func m3uEntry(line string) (string, bool) {
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}
	return line, true
}

// plsEntry accepts "FileN=path" lines.
func plsEntry(line string) (string, bool) {
	key, val, ok := strings.Cut(line, "=")
	if !ok {
		return "", false
	}
	key = strings.TrimSpace(key)
	num, ok := strings.CutPrefix(strings.ToLower(key), "file")
	if !ok || num == "" || strings.Trim(num, "0123456789") != "" {
		return "", false
	}
	return strings.TrimSpace(val), true
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func resolveEntry(raw, baseDir string) string {
	p := filepath.Clean(raw)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
