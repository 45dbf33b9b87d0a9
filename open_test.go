package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestResolveInputsQueuesSiblings(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.mp3", "A.flac", "notes.txt", "c.wav")

	paths, start, err := resolveInputs(filepath.Join(dir, "b.mp3"))
	if err != nil {
		t.Fatalf("resolveInputs() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "A.flac"),
		filepath.Join(dir, "b.mp3"),
		filepath.Join(dir, "c.wav"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %#v, want %#v", paths, want)
	}
	if start != 1 {
		t.Fatalf("start = %d, want 1", start)
	}
}

func TestResolveInputsPlaylist(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "one.mp3", "two.ogg")
	list := filepath.Join(dir, "mix.m3u")
	if err := os.WriteFile(list, []byte("#EXTM3U\ntwo.ogg\nmissing.mp3\none.mp3\n"), 0o644); err != nil {
		t.Fatalf("write playlist: %v", err)
	}

	paths, start, err := resolveInputs(list)
	if err != nil {
		t.Fatalf("resolveInputs() error = %v", err)
	}
	want := []string{filepath.Join(dir, "two.ogg"), filepath.Join(dir, "one.mp3")}
	if !reflect.DeepEqual(paths, want) || start != 0 {
		t.Fatalf("paths = %#v start = %d", paths, start)
	}
}

func TestResolveInputsRejects(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "notes.txt")
	empty := filepath.Join(dir, "empty.pls")
	if err := os.WriteFile(empty, []byte("[playlist]\n"), 0o644); err != nil {
		t.Fatalf("write playlist: %v", err)
	}

	for _, arg := range []string{
		filepath.Join(dir, "missing.mp3"),
		filepath.Join(dir, "notes.txt"),
		dir,
		empty,
	} {
		if _, _, err := resolveInputs(arg); err == nil {
			t.Fatalf("resolveInputs(%s) expected error", filepath.Base(arg))
		}
	}
}
