package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codebuildervaibhav/audio-quiz/internal/ingest"
	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

type recordingProcessor struct {
	mu      sync.Mutex
	active  int32
	peak    int32
	handled []string
}

func (p *recordingProcessor) Process(_ context.Context, s types.Story) ingest.Result {
	n := atomic.AddInt32(&p.active, 1)
	defer atomic.AddInt32(&p.active, -1)
	for {
		peak := atomic.LoadInt32(&p.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&p.peak, peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if s.AudioURL == "panic.mp3" {
		panic("decoder exploded")
	}
	p.mu.Lock()
	p.handled = append(p.handled, s.AudioURL)
	p.mu.Unlock()
	return ingest.Result{Story: s, State: ingest.StateCleaned, Outcome: types.OutcomeIngested}
}

func stories(urls ...string) []types.Story {
	out := make([]types.Story, len(urls))
	for i, u := range urls {
		out[i] = types.Story{CorrespondentName: "Jane Doe", AudioURL: u}
	}
	return out
}

func TestRunKeepsInputOrder(t *testing.T) {
	p := &recordingProcessor{}
	pool := NewWorkerPool(3, p, logger.Nop())

	sum, results := pool.Run(context.Background(), stories("a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3"))
	if sum.Total != 5 || sum.Ingested != 5 {
		t.Errorf("summary = %+v", sum)
	}
	for i, want := range []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3"} {
		if results[i].Story.AudioURL != want {
			t.Errorf("results[%d] = %s, want %s", i, results[i].Story.AudioURL, want)
		}
	}
	if peak := atomic.LoadInt32(&p.peak); peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestSingleWorkerIsSequential(t *testing.T) {
	p := &recordingProcessor{}
	NewWorkerPool(0, p, logger.Nop()).Run(context.Background(), stories("a.mp3", "b.mp3", "c.mp3"))
	if peak := atomic.LoadInt32(&p.peak); peak != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak)
	}
}

func TestPanicFailsOnlyThatStory(t *testing.T) {
	p := &recordingProcessor{}
	sum, results := NewWorkerPool(2, p, logger.Nop()).Run(context.Background(), stories("a.mp3", "panic.mp3", "c.mp3"))

	if sum.Failed != 1 || sum.Ingested != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if results[1].Outcome != types.OutcomeFailed || results[1].Err == nil {
		t.Errorf("panicked story result = %+v", results[1])
	}
}

func TestCancelledRunStopsEnqueueing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, _ := NewWorkerPool(2, &recordingProcessor{}, logger.Nop()).Run(ctx, stories("a.mp3", "b.mp3"))
	if sum.Total > 2 {
		t.Errorf("summary = %+v", sum)
	}
}
