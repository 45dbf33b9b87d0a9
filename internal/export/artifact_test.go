package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactName(t *testing.T) {
	stamp := time.Date(2024, 12, 31, 9, 5, 59, 0, time.Local)
	assert.Equal(t, "aves_audio_spectrum_20241231_0905.mp4", ArtifactName(stamp, "mp4"))
	assert.Equal(t, "aves_audio_spectrum_20241231_0905.png", ArtifactName(stamp, ".png"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"clip.mp4":          "clip.mp4",
		"../../etc/passwd":  "etcpasswd",
		`a:b*c?"d<e>f|g.gif`: "abcdefg.gif",
		"   ":               "export",
		"..":                "export",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "SanitizeFilename(%q)", in)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentType("mp4"))
	assert.Equal(t, "video/webm", ContentType("webm"))
	assert.Equal(t, "image/gif", ContentType("gif"))
	assert.Equal(t, "application/octet-stream", ContentType("avi"))
}

func tempArtifact(t *testing.T, name string) *Artifact {
	t.Helper()
	dir, err := os.MkdirTemp(t.TempDir(), "artifact-*")
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))
	return &Artifact{Name: name, Path: path, Size: 7, dir: dir}
}

func TestArtifactSave(t *testing.T) {
	a := tempArtifact(t, "aves_audio_spectrum_20240101_0000.mp4")
	tmpDir := a.dir
	out := filepath.Join(t.TempDir(), "exports")

	dest, err := a.Save(out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, a.Name), dest)
	assert.Equal(t, dest, a.Path)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = os.Stat(tmpDir)
	assert.True(t, os.IsNotExist(err), "temporary directory left behind")

	again := tempArtifact(t, a.Name)
	_, err = again.Save(out)
	assert.Error(t, err, "Save overwrote an existing file")
}

func TestArtifactRemove(t *testing.T) {
	a := tempArtifact(t, "x.png")
	dir := a.dir
	require.NoError(t, a.Remove())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, a.Remove())
}
