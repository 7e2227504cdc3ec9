// Package matcher decides whether a scraped audio belongs to a known correspondent
// and persists the audio and its segments under the resolved identity.
package matcher

import (
	"context"
	"fmt"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// DefaultMinSimilarity is the cosine similarity a match must exceed.
const DefaultMinSimilarity = 0.80

// Store is the persistence the matcher needs.
type Store interface {
	CorrespondentByName(ctx context.Context, fullname string) (types.Correspondent, error)
	CorrespondentsBySimilarity(ctx context.Context, embedding []float32, minSimilarity float64) ([]types.ScoredCorrespondent, error)
	CreateCorrespondent(ctx context.Context, c types.Correspondent) (types.Correspondent, error)
	CreateAudioWithSegments(ctx context.Context, correspondentID int64, url string, segs []types.Segment) (types.Audio, []types.AudioSegment, error)
}

// Candidate is everything known about a story once its embedding is ready.
type Candidate struct {
	Fullname  string
	Gender    types.Gender
	Embedding []float32
	AudioURL  string
	Segments  []types.Segment
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Correspondent types.Correspondent
	Created       bool
	Audio         types.Audio
	Segments      []types.AudioSegment
}

// Matcher resolves correspondents against a Store.
type Matcher struct {
	store      Store
	dimensions int
	log        *logger.Logger
}

// New creates a matcher. dimensions of 0 disables the embedding length check.
func New(store Store, dimensions int, log *logger.Logger) *Matcher {
	return &Matcher{store: store, dimensions: dimensions, log: log.WithComponent("matcher")}
}

// FindByName returns the correspondent with exactly this fullname, or a NOT_FOUND error.
func (m *Matcher) FindByName(ctx context.Context, fullname string) (types.Correspondent, error) {
	return m.store.CorrespondentByName(ctx, fullname)
}

// FindByEmbedding ranks correspondents by cosine similarity above minSimilarity, highest first.
func (m *Matcher) FindByEmbedding(ctx context.Context, embedding []float32, minSimilarity float64) ([]types.ScoredCorrespondent, error) {
	if err := m.checkEmbedding(embedding); err != nil {
		return nil, err
	}
	return m.store.CorrespondentsBySimilarity(ctx, embedding, minSimilarity)
}

func (m *Matcher) checkEmbedding(embedding []float32) error {
	if len(embedding) == 0 {
		return apperrors.InvalidInput("embedding", "empty embedding")
	}
	if m.dimensions > 0 && len(embedding) != m.dimensions {
		return apperrors.InvalidInput("embedding", fmt.Sprintf("got %d dimensions, want %d", len(embedding), m.dimensions))
	}
	return nil
}

// Resolve reuses the correspondent named c.Fullname or creates it, then records the audio and
// its segments under that id. A duplicate audio URL for the correspondent returns the resolved
// correspondent together with a CONFLICT error; callers treat that as already ingested.
func (m *Matcher) Resolve(ctx context.Context, c Candidate) (Resolution, error) {
	var res Resolution

	corr, err := m.FindByName(ctx, c.Fullname)
	switch {
	case err == nil:
		m.log.Info("Reusing existing correspondent", map[string]interface{}{
			"correspondent_id": corr.ID,
			"fullname":         corr.Fullname,
		})
	case apperrors.Is(err, apperrors.ErrCodeNotFound):
		corr, res.Created, err = m.create(ctx, c)
		if err != nil {
			return res, err
		}
	default:
		return res, err
	}
	res.Correspondent = corr

	audio, segs, err := m.store.CreateAudioWithSegments(ctx, corr.ID, c.AudioURL, c.Segments)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCodeConflict) {
			m.log.Info("Audio record already exists, skipping audio and segment insertion", map[string]interface{}{
				"correspondent_id": corr.ID,
				"audio_url":        c.AudioURL,
			})
		}
		return res, err
	}
	res.Audio = audio
	res.Segments = segs
	m.log.Info("Recorded audio", map[string]interface{}{
		"correspondent_id": corr.ID,
		"audio_id":         audio.ID,
		"segments":         len(segs),
	})
	return res, nil
}

// create inserts a new correspondent. If another writer created the same fullname first,
// the unique index rejects ours and the existing row is reused.
func (m *Matcher) create(ctx context.Context, c Candidate) (types.Correspondent, bool, error) {
	if err := m.checkEmbedding(c.Embedding); err != nil {
		return types.Correspondent{}, false, err
	}
	gender := c.Gender
	if gender == "" {
		gender = types.GenderUnknown
	}

	corr, err := m.store.CreateCorrespondent(ctx, types.Correspondent{
		Fullname:  c.Fullname,
		Gender:    gender,
		Embedding: c.Embedding,
	})
	if err == nil {
		m.log.Info("Created new correspondent", map[string]interface{}{
			"correspondent_id": corr.ID,
			"fullname":         corr.Fullname,
		})
		return corr, true, nil
	}
	if !apperrors.Is(err, apperrors.ErrCodeConflict) {
		return types.Correspondent{}, false, err
	}

	corr, err = m.FindByName(ctx, c.Fullname)
	if err != nil {
		return types.Correspondent{}, false, fmt.Errorf("reload correspondent after conflict: %w", err)
	}
	m.log.Warn("Correspondent created concurrently, reusing it", map[string]interface{}{
		"correspondent_id": corr.ID,
		"fullname":         corr.Fullname,
	})
	return corr, false, nil
}
