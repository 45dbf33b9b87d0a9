package export

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// writeStill encodes frame as a PNG artifact named name.
func writeStill(frame *image.RGBA, name string) (*Artifact, error) {
	dir, err := os.MkdirTemp("", "aves-still-*")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, SanitizeFilename(name))
	f, err := os.Create(path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("encoding still: %w", err)
	}
	if err := f.Close(); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &Artifact{
		Name:        name,
		ContentType: ContentType("png"),
		Path:        path,
		Size:        info.Size(),
		dir:         dir,
	}, nil
}
