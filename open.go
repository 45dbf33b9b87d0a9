package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/olivier-w/aves/internal/media"
)

// resolveInputs expands arg into the list of files to queue and the index
// to start at. A playlist queues its entries; a single file queues its
// playable siblings.
func resolveInputs(arg string) ([]string, int, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, 0, err
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("%s is a directory", arg)
	}

	ext := strings.ToLower(filepath.Ext(arg))
	if media.IsPlaylistExt(ext) {
		entries, err := media.ParseLocalPlaylist(arg)
		if err != nil {
			return nil, 0, err
		}
		paths := media.FilterPlayable(entries)
		if len(paths) == 0 {
			return nil, 0, fmt.Errorf("playlist contains no playable entries")
		}
		return paths, 0, nil
	}

	if !media.IsSupportedFile(arg) {
		return nil, 0, fmt.Errorf("unsupported format %s (supported: %s)", ext, media.SupportedExtsList())
	}
	absPath, err := filepath.Abs(arg)
	if err != nil {
		return nil, 0, err
	}
	siblings := scanMediaFiles(absPath)
	for i, f := range siblings {
		if f == absPath {
			return siblings, i, nil
		}
	}
	return []string{absPath}, 0, nil
}

// scanMediaFiles returns all supported media files in the same directory as path,
// sorted alphabetically (case-insensitive).
func scanMediaFiles(path string) []string {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if media.IsSupportedExt(filepath.Ext(e.Name())) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(files[i])) < strings.ToLower(filepath.Base(files[j]))
	})
	return files
}

// trackTitle is the queue title until the track's tags are read on load.
func trackTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
