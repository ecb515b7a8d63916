package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"videowatch/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("GIF89a"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if age > 0 {
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}
}

func TestCleanStaleRemovesOldPreviewsOnly(t *testing.T) {
	tmpDir := t.TempDir()

	oldGIF := filepath.Join(tmpDir, "clip-old.gif")
	writeAged(t, oldGIF, 2*time.Hour)
	oldUpper := filepath.Join(tmpDir, "CLIP.GIF")
	writeAged(t, oldUpper, 2*time.Hour)
	recentGIF := filepath.Join(tmpDir, "clip-new.gif")
	writeAged(t, recentGIF, 0)
	oldOther := filepath.Join(tmpDir, "notes.txt")
	writeAged(t, oldOther, 2*time.Hour)
	if err := os.Mkdir(filepath.Join(tmpDir, "sub.gif"), 0o755); err != nil {
		t.Fatal(err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", result.Removed)
	}
	for _, gone := range []string{oldGIF, oldUpper} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed", gone)
		}
	}
	for _, kept := range []string{recentGIF, oldOther, filepath.Join(tmpDir, "sub.gif")} {
		if _, err := os.Stat(kept); err != nil {
			t.Fatalf("expected %s kept: %v", kept, err)
		}
	}
}

func TestListTemps(t *testing.T) {
	tmpDir := t.TempDir()
	writeAged(t, filepath.Join(tmpDir, "a.gif"), 0)
	writeAged(t, filepath.Join(tmpDir, "b.txt"), 0)

	files, err := ListTemps(tmpDir)
	if err != nil {
		t.Fatalf("ListTemps: %v", err)
	}
	if len(files) != 1 || files[0].Name != "a.gif" {
		t.Fatalf("unexpected listing: %+v", files)
	}
	if files[0].Size != int64(len("GIF89a")) {
		t.Fatalf("unexpected size %d", files[0].Size)
	}

	missing, err := ListTemps(filepath.Join(tmpDir, "missing"))
	if err != nil || missing != nil {
		t.Fatalf("expected nil listing for missing dir, got %v %v", missing, err)
	}
}
