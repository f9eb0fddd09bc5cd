package model

import (
	"testing"
	"time"
)

func version(path, hash string) FileVersion {
	return FileVersion{Path: path, ContentHash: hash, Size: int64(len(hash)), StagedAt: time.Unix(0, 0)}
}

func TestStagingArea_Upsert(t *testing.T) {
	t.Run("replaces existing path in place", func(t *testing.T) {
		s := NewStagingArea("repo")
		s.Upsert(version("a.txt", "h1"))
		s.Upsert(version("b.txt", "h2"))
		s.Upsert(version("a.txt", "h3"))

		if s.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", s.Len())
		}
		if s.Files[0].Path != "a.txt" || s.Files[0].ContentHash != "h3" {
			t.Errorf("Files[0] = %+v, want a.txt/h3", s.Files[0])
		}
	})
}

func TestStagingArea_RemovePrefix(t *testing.T) {
	s := NewStagingArea("repo")
	for _, p := range []string{"src/a.go", "src/b.go", "srcx/c.go", "docs/readme.md"} {
		s.Upsert(version(p, "h-"+p))
	}

	removed := s.RemovePrefix("src/")
	if removed != 2 {
		t.Errorf("RemovePrefix(src/) = %d, want 2", removed)
	}
	if _, ok := s.Find("srcx/c.go"); !ok {
		t.Error("srcx/c.go should remain")
	}
	if _, ok := s.Find("docs/readme.md"); !ok {
		t.Error("docs/readme.md should remain")
	}

	// Plain string prefix: "src" matches "srcx/...".
	if removed := s.RemovePrefix("src"); removed != 1 {
		t.Errorf("RemovePrefix(src) = %d, want 1", removed)
	}
	if removed := s.RemovePrefix("nothing"); removed != 0 {
		t.Errorf("RemovePrefix(nothing) = %d, want 0", removed)
	}
}

func TestStagingArea_RemoveAndClear(t *testing.T) {
	s := NewStagingArea("repo")
	s.Upsert(version("a.txt", "h1"))
	s.Upsert(version("b.txt", "h2"))

	if !s.Remove("a.txt") {
		t.Error("Remove(a.txt) = false, want true")
	}
	if s.Remove("a.txt") {
		t.Error("second Remove(a.txt) = true, want false")
	}
	if n := s.Clear(); n != 1 {
		t.Errorf("Clear() = %d, want 1", n)
	}
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d", s.Len())
	}
}

func TestRepository_LatestByPath(t *testing.T) {
	r := &Repository{Name: "repo"}
	r.AppendCommit(Commit{ID: "c1", Files: []FileVersion{version("a.txt", "x"), version("old.txt", "o")}})
	r.AppendCommit(Commit{ID: "c2", Files: []FileVersion{version("a.txt", "y"), version("b.txt", "z")}})

	latest := r.LatestByPath()
	if len(latest) != 3 {
		t.Fatalf("len(LatestByPath) = %d, want 3", len(latest))
	}
	if latest["a.txt"].ContentHash != "y" {
		t.Errorf("a.txt = %s, want y", latest["a.txt"].ContentHash)
	}
	if latest["old.txt"].ContentHash != "o" {
		t.Errorf("old.txt = %s, want o", latest["old.txt"].ContentHash)
	}

	// The flat log keeps every version.
	if len(r.Files) != 4 {
		t.Errorf("len(Files) = %d, want 4", len(r.Files))
	}
}

func TestRepository_PopCommit(t *testing.T) {
	r := &Repository{Name: "repo"}
	r.AppendCommit(Commit{ID: "c1", Files: []FileVersion{version("a.txt", "x")}})
	r.AppendCommit(Commit{ID: "c2", Files: []FileVersion{version("a.txt", "y"), version("b.txt", "z")}})

	popped := r.PopCommit()
	if popped == nil || popped.ID != "c2" {
		t.Fatalf("PopCommit() = %+v, want c2", popped)
	}
	if len(r.Commits) != 1 || r.LatestCommit().ID != "c1" {
		t.Errorf("remaining commits = %+v", r.Commits)
	}
	if len(r.Files) != 1 || r.Files[0].ContentHash != "x" {
		t.Errorf("Files = %+v, want only c1's version", r.Files)
	}

	r.PopCommit()
	if r.PopCommit() != nil {
		t.Error("PopCommit() on empty history should return nil")
	}
}

func TestRepository_Reset(t *testing.T) {
	r := &Repository{Name: "repo"}
	r.AppendCommit(Commit{ID: "c1", Files: []FileVersion{version("a.txt", "x")}})
	r.AppendCommit(Commit{ID: "c2", Files: []FileVersion{version("b.txt", "y")}})

	r.Reset()
	if len(r.Commits) != 0 || len(r.Files) != 0 {
		t.Errorf("after Reset() commits = %d, files = %d, want 0, 0", len(r.Commits), len(r.Files))
	}
	if r.LatestCommit() != nil || len(r.LatestByPath()) != 0 {
		t.Error("Reset() left a visible commit")
	}
	// Empty slices, not nil, so the stored document encodes [] rather than null.
	if r.Commits == nil || r.Files == nil {
		t.Error("Reset() left nil slices")
	}

	r.AppendCommit(Commit{ID: "c3", Files: []FileVersion{version("c.txt", "z")}})
	if len(r.Commits) != 1 || len(r.Files) != 1 {
		t.Errorf("append after Reset() = %d commits, %d files, want 1, 1", len(r.Commits), len(r.Files))
	}
}

func TestRepository_FindCommit(t *testing.T) {
	r := &Repository{Name: "repo"}
	r.AppendCommit(Commit{ID: "c1"})

	if r.FindCommit("c1") == nil {
		t.Error("FindCommit(c1) = nil")
	}
	if r.FindCommit("missing") != nil {
		t.Error("FindCommit(missing) should be nil")
	}
	if (&Repository{}).LatestCommit() != nil {
		t.Error("LatestCommit() on empty repository should be nil")
	}
}
