// Package media recognizes playable audio files and local playlists.
package media

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/h2non/filetype"
)

var audioExts = []string{".mp3", ".wav", ".flac", ".ogg", ".aac", ".m4a", ".m4b"}

// audioMIMEs are the sniffed types the player can decode, natively or
// through ffmpeg.
var audioMIMEs = map[string]bool{
	"audio/mpeg":   true,
	"audio/x-wav":  true,
	"audio/x-flac": true,
	"audio/ogg":    true,
	"audio/aac":    true,
	"audio/mp4":    true,
	"audio/x-m4a":  true,
	"video/mp4":    true,
}

var playlistExts = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

// IsSupportedExt returns true if the extension is a supported audio format.
func IsSupportedExt(ext string) bool {
	return slices.Contains(audioExts, strings.ToLower(ext))
}

// IsPlaylistExt returns true if the extension is a supported playlist format.
func IsPlaylistExt(ext string) bool {
	return playlistExts[strings.ToLower(ext)]
}

// SupportedExtsList returns a human-readable list of supported audio formats.
func SupportedExtsList() string {
	return strings.Join(audioExts, ", ")
}

// IsSupportedFile reports whether path looks playable. The content is
// sniffed first so misnamed files are still recognized; the extension
// decides when the header is inconclusive.
func IsSupportedFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	if kind, err := filetype.Match(head[:n]); err == nil && kind != filetype.Unknown {
		return audioMIMEs[kind.MIME.Value]
	}
	return IsSupportedExt(filepath.Ext(path))
}
