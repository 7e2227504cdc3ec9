package ingest

import (
	"context"

	"github.com/codebuildervaibhav/audio-quiz/internal/cleanup"
	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// BackfillSummary counts segments handled by Backfill.
type BackfillSummary struct {
	Pending  int
	Exported int
	Failed   int
}

// Backfill exports every persisted segment that has no URLs yet, fetching each
// source recording once.
func (p *Pipeline) Backfill(ctx context.Context) (BackfillSummary, error) {
	var sum BackfillSummary
	pending, err := p.deps.Store.SegmentsMissingURLs(ctx)
	if err != nil {
		return sum, err
	}
	sum.Pending = len(pending)

	var order []string
	byURL := map[string][]types.PendingSegment{}
	for _, ps := range pending {
		if _, ok := byURL[ps.AudioURL]; !ok {
			order = append(order, ps.AudioURL)
		}
		byURL[ps.AudioURL] = append(byURL[ps.AudioURL], ps)
	}

	for _, url := range order {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		segs := byURL[url]
		n, err := p.backfillAudio(ctx, url, segs)
		sum.Exported += n
		sum.Failed += len(segs) - n
		if err != nil {
			p.log.WithError(err).Error("Backfill failed", map[string]interface{}{logger.FieldAudioURL: url})
		}
	}

	p.log.Info("Backfill finished", map[string]interface{}{
		"pending":  sum.Pending,
		"exported": sum.Exported,
		"failed":   sum.Failed,
	})
	return sum, nil
}

func (p *Pipeline) backfillAudio(ctx context.Context, url string, segs []types.PendingSegment) (int, error) {
	scope, err := cleanup.NewScope(p.opts.TempDir)
	if err != nil {
		return 0, err
	}
	defer scope.Close()

	src, reused, err := p.deps.Downloader.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	if !reused {
		scope.Track(src)
	}

	exported := 0
	var lastErr error
	for _, ps := range segs {
		if err := p.exportSegment(ctx, scope, src, ps.CorrespondentID, ps.AudioSegment); err != nil {
			lastErr = err
			continue
		}
		exported++
	}
	return exported, lastErr
}
