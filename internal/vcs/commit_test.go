package vcs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	vcsfs "vcs-go/internal/fs"
	"vcs-go/internal/testutil"
	"vcs-go/internal/vcs"
)

func TestVCSService_Commit(t *testing.T) {
	t.Run("commit records staging and clears it", func(t *testing.T) {
		f := setup(t)
		f.stage(t, "a.txt", "a")
		f.stage(t, "b.txt", "b")

		id, err := f.svc.Commit(testRepo, "first", "alice")
		if err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		if id != "id-1" {
			t.Errorf("Commit() id = %q, want id-1", id)
		}
		if got := f.staged(t); len(got) != 0 {
			t.Errorf("staging after commit = %v, want empty", got)
		}

		history, err := f.svc.History(testRepo)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("History() length = %d, want 1", len(history))
		}
		c := history[0]
		if c.ID != id || c.Message != "first" || c.Author != "alice" || c.FileCount != 2 {
			t.Errorf("History()[0] = %+v", c)
		}
		if !c.Timestamp.Equal(f.clock.Now()) {
			t.Errorf("Timestamp = %v, want %v", c.Timestamp, f.clock.Now())
		}
		if c.Files[0].Path != "a.txt" || c.Files[0].Hash != hash("a") {
			t.Errorf("Files[0] = %+v", c.Files[0])
		}
	})

	t.Run("history grows by one per commit in order", func(t *testing.T) {
		f := setup(t)
		for i, msg := range []string{"one", "two", "three"} {
			f.stage(t, "a.txt", msg)
			f.clock.Advance(1)
			f.commit(t, msg)

			history, err := f.svc.History(testRepo)
			if err != nil {
				t.Fatalf("History() error = %v", err)
			}
			if len(history) != i+1 {
				t.Fatalf("History() length = %d, want %d", len(history), i+1)
			}
			if history[i].Message != msg {
				t.Errorf("History()[%d].Message = %q, want %q", i, history[i].Message, msg)
			}
		}
	})

	t.Run("default author", func(t *testing.T) {
		f := setup(t)
		f.stage(t, "a.txt", "a")
		f.commit(t, "msg")

		history, _ := f.svc.History(testRepo)
		if history[0].Author != vcs.DefaultAuthor {
			t.Errorf("Author = %q, want %q", history[0].Author, vcs.DefaultAuthor)
		}
	})

	t.Run("nothing staged", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.Commit(testRepo, "msg", "")
		if !errors.Is(err, vcs.ErrNothingStaged) {
			t.Errorf("Commit() error = %v, want ErrNothingStaged", err)
		}
		if vcs.KindOf(err) != vcs.KindConflict {
			t.Errorf("KindOf() = %v, want Conflict", vcs.KindOf(err))
		}
	})

	t.Run("empty or whitespace-only message rejected", func(t *testing.T) {
		f := setup(t)
		f.stage(t, "a.txt", "a")
		for _, msg := range []string{"", " ", "   \n\t"} {
			if _, err := f.svc.Commit(testRepo, msg, ""); !errors.Is(err, vcs.ErrEmptyMessage) {
				t.Errorf("Commit(%q) error = %v, want ErrEmptyMessage", msg, err)
			}
		}
		if len(f.staged(t)) != 1 {
			t.Error("failed commit cleared staging")
		}
	})

	t.Run("missing repository", func(t *testing.T) {
		f := setup(t)
		if _, err := f.svc.History("nope"); !errors.Is(err, vcs.ErrRepositoryNotFound) {
			t.Errorf("History() error = %v, want ErrRepositoryNotFound", err)
		}
	})

	t.Run("missing repository reports nothing staged first", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.Commit("nope", "msg", "")
		if !errors.Is(err, vcs.ErrNothingStaged) {
			t.Errorf("Commit() error = %v, want ErrNothingStaged", err)
		}
		if vcs.KindOf(err) != vcs.KindConflict {
			t.Errorf("KindOf() = %v, want Conflict", vcs.KindOf(err))
		}
	})

	t.Run("failed repository write keeps staging", func(t *testing.T) {
		f, db := setupFlaky(t)
		f.stage(t, "a.txt", "a")
		f.stage(t, "b.txt", "b")

		db.failRepo = errors.New("disk full")
		if _, err := f.svc.Commit(testRepo, "first", ""); err == nil {
			t.Fatal("Commit() expected error")
		}
		if got := f.staged(t); len(got) != 2 {
			t.Errorf("staged = %v, want both files restored", got)
		}
		if repo := f.repository(t); len(repo.Commits) != 0 || len(repo.Files) != 0 {
			t.Errorf("stored repository = %d commits, %d files, want none", len(repo.Commits), len(repo.Files))
		}

		// A retry commits the set exactly once.
		db.failRepo = nil
		f.commit(t, "first")
		if repo := f.repository(t); len(repo.Commits) != 1 || len(repo.Files) != 2 {
			t.Errorf("stored repository = %d commits, %d files, want 1 and 2", len(repo.Commits), len(repo.Files))
		}
		if got := f.staged(t); len(got) != 0 {
			t.Errorf("staged after retry = %v, want empty", got)
		}
	})

	t.Run("commit appends to the stored file log", func(t *testing.T) {
		f := setup(t)
		f.stage(t, "a.txt", "x")
		f.commit(t, "c1")
		f.stage(t, "a.txt", "y")
		f.stage(t, "b.txt", "z")
		f.commit(t, "c2")

		repo := f.repository(t)
		var got []string
		for _, v := range repo.Files {
			got = append(got, v.Path)
		}
		if len(got) != 3 || got[0] != "a.txt" || got[1] != "a.txt" || got[2] != "b.txt" {
			t.Errorf("stored Files paths = %v, want [a.txt a.txt b.txt]", got)
		}
	})
}

func TestVCSService_FileLog(t *testing.T) {
	f := setup(t)
	f.stage(t, "a.txt", "v1")
	first := f.commit(t, "first")

	f.stage(t, "b.txt", "other")
	f.commit(t, "unrelated")

	f.stage(t, "a.txt", "v2")
	third := f.commit(t, "third")

	entries, err := f.svc.FileLog(testRepo, "a.txt")
	if err != nil {
		t.Fatalf("FileLog() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("FileLog() length = %d, want 2", len(entries))
	}
	if entries[0].CommitID != third || entries[0].ContentChecksum != hash("v2") || !entries[0].IsCurrent {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].CommitID != first || entries[1].ContentChecksum != hash("v1") || entries[1].IsCurrent {
		t.Errorf("entries[1] = %+v", entries[1])
	}

	if _, err := f.svc.FileLog(testRepo, "missing.txt"); !errors.Is(err, vcs.ErrFileNotFound) {
		t.Errorf("FileLog(missing) error = %v, want ErrFileNotFound", err)
	}
}

func TestVCSService_CommitTimestamps(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ids := testutil.NewStubIDGenerator()
	svc := vcs.NewVCSService(testutil.NewTestDatabase(t), testutil.NewTestVault(), vcsfs.NewOSFilesystemManager(nil), vcs.NewNopLogger(), testutil.TickingClock(start, time.Minute), ids, 0)

	if err := svc.CreateRepository(testRepo); err != nil {
		t.Fatalf("CreateRepository() error = %v", err)
	}
	src := filepath.Join(t.TempDir(), "a.txt")
	for _, content := range []string{"one", "two", "three"} {
		if err := os.WriteFile(src, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Stage(testRepo, src); err != nil {
			t.Fatalf("Stage() error = %v", err)
		}
		if _, err := svc.Commit(testRepo, content, ""); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
	}

	history, err := svc.History(testRepo)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	issued := ids.Issued()
	if len(issued) != len(history) {
		t.Fatalf("issued %d IDs for %d commits", len(issued), len(history))
	}
	for i, c := range history {
		if c.ID != issued[i] {
			t.Errorf("History()[%d].ID = %q, want %q", i, c.ID, issued[i])
		}
		if i > 0 && !c.Timestamp.After(history[i-1].Timestamp) {
			t.Errorf("commit %d timestamp %v not after %v", i, c.Timestamp, history[i-1].Timestamp)
		}
	}
}
