// Package queue runs stories through a processor on a fixed pool of workers.
package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/ingest"
	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// Processor handles one story. *ingest.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, story types.Story) ingest.Result
}

// job is a story and its position in the batch.
type job struct {
	index int
	story types.Story
}

// WorkerPool manages a pool of workers processing stories.
type WorkerPool struct {
	workerCount int
	processor   Processor
	log         *logger.Logger
}

// NewWorkerPool creates a pool. Fewer than one worker means one.
func NewWorkerPool(workerCount int, processor Processor, log *logger.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
		processor:   processor,
		log:         log.WithComponent("queue"),
	}
}

// Run processes every story and returns results in input order. Cancelling ctx
// stops workers from taking new stories; stories never started are not reported.
func (wp *WorkerPool) Run(ctx context.Context, stories []types.Story) (ingest.Summary, []ingest.Result) {
	workers := wp.workerCount
	if workers > len(stories) {
		workers = len(stories)
	}
	wp.log.Info("Starting worker pool", map[string]interface{}{
		"workers": workers,
		"stories": len(stories),
	})

	jobQueue := make(chan job)
	results := make([]ingest.Result, len(stories))
	done := make([]bool, len(stories))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range jobQueue {
				results[j.index] = wp.process(ctx, id, j)
				done[j.index] = true
			}
		}(i)
	}

enqueue:
	for i, s := range stories {
		select {
		case jobQueue <- job{index: i, story: s}:
		case <-ctx.Done():
			break enqueue
		}
	}
	close(jobQueue)
	wg.Wait()

	var sum ingest.Summary
	out := make([]ingest.Result, 0, len(stories))
	for i, r := range results {
		if !done[i] {
			continue
		}
		sum.Add(r)
		out = append(out, r)
	}
	return sum, out
}

// process runs one story, converting a panic into a failed result.
func (wp *WorkerPool) process(ctx context.Context, workerID int, j job) (res ingest.Result) {
	defer func() {
		if r := recover(); r != nil {
			wp.log.Error("Worker panic", map[string]interface{}{
				"worker":             workerID,
				logger.FieldAudioURL: j.story.AudioURL,
				"panic":              fmt.Sprint(r),
				"stack":              string(debug.Stack()),
			})
			res = ingest.Result{
				Story:   j.story,
				State:   ingest.StateAborted,
				Outcome: types.OutcomeFailed,
				Err:     apperrors.Internal(fmt.Errorf("worker panic: %v", r)),
			}
		}
	}()
	return wp.processor.Process(ctx, j.story)
}
