package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/cleanup"
	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
	"github.com/codebuildervaibhav/audio-quiz/internal/storage"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// exportAll exports every segment, continuing past failures. Unexported segments
// keep null URLs and are picked up by Backfill.
func (p *Pipeline) exportAll(ctx context.Context, scope *cleanup.Scope, src string, correspondentID int64, segs []types.AudioSegment, log *logger.Logger) (int, error) {
	var errs []error
	exported := 0
	for _, seg := range segs {
		if err := p.exportSegment(ctx, scope, src, correspondentID, seg); err != nil {
			log.WithError(err).Warn("Segment export failed", map[string]interface{}{
				"segment_id": seg.ID,
				"audio_id":   seg.AudioID,
			})
			errs = append(errs, err)
			continue
		}
		exported++
	}
	if len(errs) > 0 {
		return exported, fmt.Errorf("%d of %d segments not exported: %w", len(errs), len(segs), errors.Join(errs...))
	}
	return exported, nil
}

// exportSegment trims one segment from src, uploads it and records its URLs.
func (p *Pipeline) exportSegment(ctx context.Context, scope *cleanup.Scope, src string, correspondentID int64, seg types.AudioSegment) error {
	local := scope.Path(fmt.Sprintf("%d.%s", seg.ID, p.opts.AudioType))
	defer os.Remove(local)

	if err := p.deps.Codec.Extract(ctx, src, local, seg.Start, seg.End); err != nil {
		return err
	}
	dest := storage.SegmentPath(correspondentID, seg.AudioID, seg.ID, p.opts.AudioType)
	storageURL, publicURL, err := p.upload(ctx, local, dest)
	if err != nil {
		return err
	}
	return p.deps.Store.UpdateSegmentURLs(ctx, seg.ID, storageURL, publicURL)
}

// upload retries Save with the configured backoff.
func (p *Pipeline) upload(ctx context.Context, local, dest string) (string, string, error) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.UploadRetries; attempt++ {
		storageURL, publicURL, err := p.deps.Blob.Save(ctx, local, p.opts.Bucket, dest)
		if err == nil {
			return storageURL, publicURL, nil
		}
		lastErr = err
		p.log.Warn("Upload attempt failed", map[string]interface{}{
			"attempt": attempt,
			"of":      p.opts.UploadRetries,
			"dest":    dest,
			"error":   err,
		})
		if attempt == p.opts.UploadRetries {
			break
		}
		select {
		case <-time.After(p.opts.Backoff(attempt)):
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	return "", "", apperrors.TransientIO("upload "+dest, lastErr)
}
