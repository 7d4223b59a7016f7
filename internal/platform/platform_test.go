package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSameFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.wav")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	t.Run("SamePath", func(t *testing.T) {
		if !SameFile(file, filepath.Join(dir, ".", "a.wav")) {
			t.Error("SameFile() should match equivalent paths")
		}
	})

	t.Run("DifferentFiles", func(t *testing.T) {
		other := filepath.Join(dir, "b.wav")
		os.WriteFile(other, []byte("x"), 0644)
		if SameFile(file, other) {
			t.Error("SameFile() should not match different files")
		}
	})

	t.Run("MissingDestination", func(t *testing.T) {
		if SameFile(file, filepath.Join(dir, "missing", "a.wav")) {
			t.Error("SameFile() should be false for a missing destination")
		}
	})

	t.Run("Symlink", func(t *testing.T) {
		link := filepath.Join(dir, "link.wav")
		if err := os.Symlink(file, link); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
		if !SameFile(file, link) {
			t.Error("SameFile() should follow symlinks")
		}
	})
}

func TestOverlayActiveFromEnvironment(t *testing.T) {
	t.Setenv("MO2_PATH", "")
	t.Setenv("MO2_INSTANCE", "")
	if OverlayActive() {
		t.Skip("process already runs under an overlay")
	}

	t.Setenv("MO2_INSTANCE", "Default")
	if !OverlayActive() {
		t.Error("OverlayActive() should honour MO2_INSTANCE")
	}
}

func TestNoOverlay(t *testing.T) {
	var detect OverlayDetector = NoOverlay
	if detect() {
		t.Error("NoOverlay() should report false")
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath(""); err == nil {
		t.Error("ValidatePath() should reject an empty path")
	}
	if err := ValidatePath("sound\x00fx"); err == nil {
		t.Error("ValidatePath() should reject a NUL byte")
	}
	if err := ValidatePath(t.TempDir()); err != nil {
		t.Errorf("ValidatePath() error = %v", err)
	}
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	if !IsDir(dir) {
		t.Error("IsDir() should be true for a directory")
	}
	file := filepath.Join(dir, "f")
	os.WriteFile(file, nil, 0644)
	if IsDir(file) {
		t.Error("IsDir() should be false for a file")
	}
}
