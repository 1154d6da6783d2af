package git

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRepo(t *testing.T) {
	t.Parallel()

	t.Run("Init", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		if _, err := Open(t.Context(), tmpDir, "Test User", "test@example.com"); err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(tmpDir, ".git")); os.IsNotExist(err) {
			t.Error(".git directory not created")
		}
		// Reopening an existing repository must work.
		if _, err := Open(t.Context(), tmpDir, "Test User", "test@example.com"); err != nil {
			t.Fatalf("second Open() failed: %v", err)
		}
	})

	t.Run("Commit", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		ctx := t.Context()
		repo, err := Open(ctx, tmpDir, "Test User", "test@example.com")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		path := filepath.Join(tmpDir, "sales.csv")
		if err := os.WriteFile(path, []byte("id\n1\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := repo.Commit(ctx, "add: row 1", path); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		// Unchanged content records nothing.
		if err := repo.Commit(ctx, "noop", path); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		if err := os.WriteFile(path, []byte("id\n1\n2\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := repo.Commit(ctx, "add: row 2", "sales.csv"); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		n, err := repo.CommitCount(ctx)
		if err != nil {
			t.Fatalf("CommitCount failed: %v", err)
		}
		if n != 2 {
			t.Errorf("CommitCount = %d, want 2", n)
		}
		h, err := repo.History(ctx, path, 10)
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(h) != 2 || h[0].Message != "add: row 2" || h[1].Message != "add: row 1" {
			t.Errorf("unexpected history %+v", h)
		}
		if h[0].Author != "Test User" {
			t.Errorf("author = %q", h[0].Author)
		}
	})

	t.Run("Outside", func(t *testing.T) {
		t.Parallel()
		repo, err := Open(t.Context(), t.TempDir(), "Test User", "test@example.com")
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		if err := repo.Commit(t.Context(), "x", filepath.Join(t.TempDir(), "other.csv")); err == nil {
			t.Error("committing a file outside the repository should fail")
		}
	})
}
