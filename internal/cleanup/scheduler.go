package cleanup

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
)

// Scheduler sweeps stale per-story work files left behind by crashed runs.
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	log      *logger.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler creates a new cleanup scheduler.
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int, log *logger.Logger) *Scheduler {
	return &Scheduler{
		tempDir:  tempDir,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		log:      log.WithComponent("cleanup"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval until Stop.
func (s *Scheduler) Start() {
	s.Sweep(time.Now())

	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				s.Sweep(now)
			case <-s.stopChan:
				return
			}
		}
	}()

	s.log.Info("Cleanup scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
		"max_age":  s.maxAge.String(),
	})
}

// Stop halts the scheduler and waits for an in-flight sweep.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		<-s.done
		s.log.Info("Cleanup scheduler stopped")
	})
}

// SweepResult counts what a sweep removed.
type SweepResult struct {
	Files int
	Dirs  int
	Bytes int64
}

// Sweep removes files older than maxAge under tempDir, then directories it emptied or that are stale and empty.
// tempDir itself is kept.
func (s *Scheduler) Sweep(now time.Time) SweepResult {
	var res SweepResult
	var dirs []string
	emptied := map[string]bool{}

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if path != s.tempDir {
				dirs = append(dirs, path)
			}
			return nil
		}
		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil {
			s.log.WithError(err).Warn("Failed to delete stale file", map[string]interface{}{"path": path})
			return nil
		}
		res.Files++
		res.Bytes += info.Size()
		emptied[filepath.Dir(path)] = true
		s.log.Debug("Deleted stale file", map[string]interface{}{
			"file": filepath.Base(path),
			"age":  age.Round(time.Hour).String(),
		})
		return nil
	})
	if err != nil {
		s.log.WithError(err).Error("Error during cleanup")
	}

	// Deepest first so parents empty out after their children.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, d := range dirs {
		info, err := os.Stat(d)
		if err != nil || (!emptied[d] && now.Sub(info.ModTime()) <= s.maxAge) {
			continue
		}
		// Remove fails on non-empty directories.
		if os.Remove(d) == nil {
			res.Dirs++
			emptied[filepath.Dir(d)] = true
		}
	}

	if res.Files > 0 || res.Dirs > 0 {
		s.log.Info("Cleanup complete", map[string]interface{}{
			"files": res.Files,
			"dirs":  res.Dirs,
			"mb":    float64(res.Bytes) / (1024 * 1024),
		})
	}
	return res
}

// EnsureDir creates dir if it doesn't exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
