package queue

import (
	"path/filepath"
	"strings"
	"testing"
)

func testQueue() *Queue {
	return FromPaths([]string{"/m/a.mp3", "/m/b.flac", "/m/c.wav"}, func(p string) string {
		return strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	})
}

func TestFromPathsTitles(t *testing.T) {
	q := testQueue()
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	if got := q.Current(); got == nil || got.Title != "a" || got.State != Pending {
		t.Fatalf("Current() = %#v, want pending track a", got)
	}
}

func TestAdvanceAndPrevious(t *testing.T) {
	q := testQueue()
	if q.Previous() {
		t.Fatal("Previous() at start should return false")
	}
	if !q.Advance() || !q.Advance() {
		t.Fatal("Advance() should succeed twice")
	}
	if q.Advance() {
		t.Fatal("Advance() at end should return false")
	}
	if q.CurrentIndex() != 2 || q.Next() != nil {
		t.Fatalf("CurrentIndex() = %d, Next() = %v", q.CurrentIndex(), q.Next())
	}
	if !q.Previous() || q.Current().Title != "b" {
		t.Fatalf("Previous() landed on %#v", q.Current())
	}
}

func TestPeek(t *testing.T) {
	q := testQueue()
	got := q.Peek(5)
	if len(got) != 2 || got[0].Title != "b" || got[1].Title != "c" {
		t.Fatalf("Peek(5) = %#v", got)
	}
	got[0].Title = "changed"
	if q.Track(1).Title != "b" {
		t.Fatal("Peek() result aliases queue storage")
	}
	q.SetCurrentIndex(2)
	if q.Peek(1) != nil {
		t.Fatal("Peek() at end should be nil")
	}
}

func TestSettersIgnoreOutOfRange(t *testing.T) {
	q := testQueue()
	q.SetCurrentIndex(9)
	q.SetTrackState(-1, Failed)
	q.SetTrackTitle(3, "x")
	if q.CurrentIndex() != 0 {
		t.Fatalf("CurrentIndex() = %d, want 0", q.CurrentIndex())
	}
	q.SetTrackState(1, Done)
	q.SetTrackTitle(1, "Bee")
	if tr := q.Track(1); tr.State != Done || tr.Title != "Bee" {
		t.Fatalf("Track(1) = %#v", tr)
	}
	if q.Track(3) != nil {
		t.Fatal("Track(3) should be nil")
	}
}

func TestEmptyQueue(t *testing.T) {
	q := New(nil)
	if q.Current() != nil || q.Next() != nil || q.Advance() {
		t.Fatal("empty queue should have no tracks")
	}
}
