package segments

import (
	"context"
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// SpeakerSelectionStrategy decides which diarized speaker is the story's correspondent.
// Returning a NOT_FOUND error skips the story.
type SpeakerSelectionStrategy interface {
	Choose(ctx context.Context, story types.Story, segs []types.Segment) (string, error)
}

// EmbeddingSegmentStrategy picks the segment whose audio feeds the embedding engine.
// It also returns the subset of selected segments to persist and export.
type EmbeddingSegmentStrategy interface {
	ChooseEmbedding(ctx context.Context, selected []types.Segment) (types.Segment, []types.Segment, error)
}

// GenderResolver supplies the gender recorded for a newly created correspondent.
type GenderResolver interface {
	Gender(ctx context.Context, story types.Story) (types.Gender, error)
}

// LongestTotal picks the speaker with the greatest total speaking time.
// Ties go to the speaker who appears first.
type LongestTotal struct{}

func (LongestTotal) Choose(_ context.Context, _ types.Story, segs []types.Segment) (string, error) {
	totals := make(map[string]float64)
	for _, s := range segs {
		totals[s.SpeakerID] += s.DurationSec
	}
	best, bestTotal := "", -1.0
	for _, id := range Speakers(segs) {
		if totals[id] > bestTotal {
			best, bestTotal = id, totals[id]
		}
	}
	if best == "" {
		return "", apperrors.NotFound("speaker", "")
	}
	return best, nil
}

// FirstBefore picks the speaker of the first segment starting at or before Seconds.
type FirstBefore struct {
	Seconds float64
}

func (f FirstBefore) Choose(_ context.Context, _ types.Story, segs []types.Segment) (string, error) {
	for _, s := range segs {
		if s.Start <= f.Seconds {
			return s.SpeakerID, nil
		}
	}
	return "", apperrors.NotFound("speaker", fmt.Sprintf("starting before %.1fs", f.Seconds))
}

// Longest feeds the longest selected segment to the embedding engine and keeps every selected segment.
type Longest struct{}

func (Longest) ChooseEmbedding(_ context.Context, selected []types.Segment) (types.Segment, []types.Segment, error) {
	if len(selected) == 0 {
		return types.Segment{}, nil, apperrors.NotFound("embedding segment", "")
	}
	best := selected[0]
	for _, s := range selected[1:] {
		if s.DurationSec > best.DurationSec {
			best = s
		}
	}
	return best, selected, nil
}

// FixedGender returns the same gender for every story.
type FixedGender types.Gender

func (g FixedGender) Gender(context.Context, types.Story) (types.Gender, error) {
	if g == "" {
		return types.GenderUnknown, nil
	}
	return types.Gender(strings.ToUpper(string(g))), nil
}

// NewSpeakerStrategy maps a configured name onto an automatic strategy.
// "interactive" is built by the caller since it needs a console.
func NewSpeakerStrategy(name string, firstBeforeSec float64) (SpeakerSelectionStrategy, error) {
	switch name {
	case "longest":
		return LongestTotal{}, nil
	case "first":
		return FirstBefore{Seconds: firstBeforeSec}, nil
	}
	return nil, apperrors.InvalidInput("speaker_strategy", fmt.Sprintf("unknown strategy %q", name))
}
