package vcs_test

import (
	"os"
	"path/filepath"
	"testing"

	vcsfs "vcs-go/internal/fs"
	"vcs-go/internal/model"
	"vcs-go/internal/testutil"
	"vcs-go/internal/vault"
	"vcs-go/internal/vcs"
)

const testRepo = "project"

type fixture struct {
	svc   *vcs.VCSService
	db    vcs.Database
	vault *vault.MemoryVault
	clock *testutil.StubClock
	src   string // scratch directory files are staged from
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithLimit(t, 0)
}

func setupWithLimit(t *testing.T, maxStagedSize int64) *fixture {
	t.Helper()
	return setupWithDatabase(t, testutil.NewTestDatabase(t), maxStagedSize)
}

// flakyDatabase fails ReplaceRepository while failRepo is set.
type flakyDatabase struct {
	vcs.Database
	failRepo error
}

func (d *flakyDatabase) ReplaceRepository(name string, repo *model.Repository) error {
	if d.failRepo != nil {
		return d.failRepo
	}
	return d.Database.ReplaceRepository(name, repo)
}

func setupFlaky(t *testing.T) (*fixture, *flakyDatabase) {
	t.Helper()
	db := &flakyDatabase{Database: testutil.NewTestDatabase(t)}
	return setupWithDatabase(t, db, 0), db
}

// repository loads the stored repository document.
func (f *fixture) repository(t *testing.T) *model.Repository {
	t.Helper()
	repo, err := f.db.LoadRepository(testRepo)
	if err != nil || repo == nil {
		t.Fatalf("LoadRepository() = %v, %v", repo, err)
	}
	return repo
}

func setupWithDatabase(t *testing.T, db vcs.Database, maxStagedSize int64) *fixture {
	t.Helper()

	v := testutil.NewTestVault()
	clock := testutil.FixedClock()
	svc := vcs.NewVCSService(db, v, vcsfs.NewOSFilesystemManager(nil), vcs.NewNopLogger(), clock, testutil.NewStubIDGenerator(), maxStagedSize)

	if err := svc.CreateRepository(testRepo); err != nil {
		t.Fatalf("CreateRepository() error = %v", err)
	}

	return &fixture{svc: svc, db: db, vault: v, clock: clock, src: t.TempDir()}
}

// write creates a source file and returns its absolute path.
func (f *fixture) write(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(f.src, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, content, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// stage writes content to a source file and stages it under repoPath.
func (f *fixture) stage(t *testing.T, repoPath string, content string) {
	t.Helper()
	src := f.write(t, repoPath, []byte(content))
	if _, err := f.svc.StageAs(testRepo, src, repoPath); err != nil {
		t.Fatalf("StageAs(%s) error = %v", repoPath, err)
	}
}

func (f *fixture) commit(t *testing.T, message string) string {
	t.Helper()
	id, err := f.svc.Commit(testRepo, message, "tester")
	if err != nil {
		t.Fatalf("Commit(%q) error = %v", message, err)
	}
	return id
}

// stagedContent returns path -> content hash for the staging area.
func (f *fixture) staged(t *testing.T) map[string]string {
	t.Helper()
	files, err := f.svc.ListStaged(testRepo)
	if err != nil {
		t.Fatalf("ListStaged() error = %v", err)
	}
	m := make(map[string]string, len(files))
	for _, sf := range files {
		m[sf.Path] = sf.Hash
	}
	return m
}

func hash(content string) string {
	return testutil.SHA256Hex([]byte(content))
}
