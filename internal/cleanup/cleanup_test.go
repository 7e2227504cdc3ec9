package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestScopeRemovesEverything(t *testing.T) {
	root := t.TempDir()
	scope, err := NewScope(root)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	inside := scope.Path("segment.mp3")
	workDir := filepath.Dir(inside)
	if filepath.Dir(workDir) != root {
		t.Fatalf("work dir = %s, want under %s", workDir, root)
	}
	touch(t, inside, now)
	downloaded := filepath.Join(root, "story.mp3")
	reused := filepath.Join(root, "old.mp3")
	touch(t, downloaded, now)
	touch(t, reused, now)
	scope.Track(downloaded)
	scope.Track(reused)
	scope.Keep(reused)

	if err := scope.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, p := range []string{inside, downloaded, workDir} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still exists", p)
		}
	}
	if _, err := os.Stat(reused); err != nil {
		t.Errorf("kept file removed: %v", err)
	}
	if err := scope.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestSweepRemovesStaleFilesAndDirs(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	old := now.Add(-48 * time.Hour)

	stale := filepath.Join(root, "dead-run", "story.wav")
	fresh := filepath.Join(root, "live-run", "story.wav")
	touch(t, stale, old)
	touch(t, fresh, now)

	s := NewScheduler(root, 30, 24, logger.Nop())
	res := s.Sweep(now)

	if res.Files != 1 {
		t.Errorf("Files = %d, want 1", res.Files)
	}
	if res.Dirs != 1 {
		t.Errorf("Dirs = %d, want 1", res.Dirs)
	}
	if _, err := os.Stat(filepath.Dir(stale)); !os.IsNotExist(err) {
		t.Error("stale run directory kept")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file removed: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("temp root removed: %v", err)
	}
}
