package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-abstractor")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-abstractor" {
			t.Errorf("expected path /tmp/test-abstractor, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-abstractor")

	t.Run("DataPath", func(t *testing.T) {
		expected := "/tmp/test-abstractor/data"
		if dir.DataPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.DataPath())
		}
	})

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-abstractor/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})

	t.Run("JobDir", func(t *testing.T) {
		expected := "/tmp/test-abstractor/data/jobs/abc123"
		if dir.JobDir("abc123") != expected {
			t.Errorf("expected %s, got %s", expected, dir.JobDir("abc123"))
		}
	})
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "abstractor-test")

	dir, err := New(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	if _, err := os.Stat(dir.DataPath()); os.IsNotExist(err) {
		t.Error("data directory should exist after EnsureExists")
	}

	if dir.ConfigExists() {
		t.Error("config should not exist yet")
	}
	if err := os.WriteFile(dir.ConfigPath(), []byte("defaults:\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if !dir.ConfigExists() {
		t.Error("config should exist after write")
	}
}

func TestDir_JobDirLifecycle(t *testing.T) {
	dir, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := dir.EnsureJobDir("job-1"); err != nil {
		t.Fatalf("EnsureJobDir failed: %v", err)
	}
	if _, err := os.Stat(dir.JobDir("job-1")); err != nil {
		t.Errorf("job dir missing: %v", err)
	}

	if err := dir.RemoveJobDir("job-1"); err != nil {
		t.Fatalf("RemoveJobDir failed: %v", err)
	}
	if _, err := os.Stat(dir.JobDir("job-1")); !os.IsNotExist(err) {
		t.Error("job dir should be gone")
	}
}
