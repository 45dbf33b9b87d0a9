package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ArtifactPrefix starts every exported file name.
const ArtifactPrefix = "aves_audio_spectrum"

var invalidFilenameChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]`)

// ArtifactName returns "<prefix>_<YYYYMMDD>_<HHmm>.<ext>" for t in local time.
func ArtifactName(t time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", ArtifactPrefix, t.Local().Format("20060102_1504"), strings.TrimPrefix(ext, "."))
}

// SanitizeFilename strips path separators and characters invalid in file
// names. Falls back to "export" if nothing is left.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		return "export"
	}
	return name
}

var contentTypes = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"gif":  "image/gif",
	"png":  "image/png",
}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Artifact is a finished export waiting in a temporary directory.
type Artifact struct {
	Name        string
	ContentType string
	Path        string
	Size        int64

	// dir is the temporary directory holding Path, removed once the file
	// is saved or discarded.
	dir string
}

// Save moves the artifact into dir under its sanitized name and returns
// the new path. An existing file is not overwritten.
func (a *Artifact) Save(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	dest := filepath.Join(dir, SanitizeFilename(a.Name))
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("file %q already exists", dest)
	}

	if err := os.Rename(a.Path, dest); err != nil {
		// Rename fails across file systems; copy instead.
		if err := copyFile(a.Path, dest); err != nil {
			return "", err
		}
	}
	a.cleanup()
	a.Path = dest
	return dest, nil
}

// Remove discards the artifact and its temporary directory.
func (a *Artifact) Remove() error {
	if a.dir != "" {
		defer a.cleanup()
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (a *Artifact) cleanup() {
	if a.dir != "" {
		os.RemoveAll(a.dir)
		a.dir = ""
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening artifact: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copying artifact: %w", err)
	}
	return out.Close()
}
