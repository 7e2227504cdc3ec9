package types

import (
	"math"
	"strings"
)

// Ingestion outcomes reported per story
const (
	OutcomeIngested        = "INGESTED"
	OutcomeAlreadyIngested = "ALREADY_INGESTED"
	OutcomeSkipped         = "SKIPPED"
	OutcomeFailed          = "FAILED"
)

// Gender of a correspondent as stored.
type Gender string

const (
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
	GenderUnknown Gender = "U"
)

// ParseGender upper-cases s and defaults an empty value to U.
// ok is false when s is not one of M/F/U.
func ParseGender(s string) (Gender, bool) {
	g := Gender(strings.ToUpper(strings.TrimSpace(s)))
	switch g {
	case "":
		return GenderUnknown, true
	case GenderMale, GenderFemale, GenderUnknown:
		return g, true
	}
	return GenderUnknown, false
}

// Turn is one raw speaker-labeled interval from the diarization engine.
// Times are truncated to one decimal when the turn is created.
type Turn struct {
	SpeakerLabel string  `json:"speaker_id"`
	Start        float64 `json:"start_time"`
	End          float64 `json:"end_time"`
}

// NewTurn builds a Turn with truncated times.
func NewTurn(speaker string, start, end float64) Turn {
	return Turn{SpeakerLabel: speaker, Start: Truncate1(start), End: Truncate1(end)}
}

// Truncate1 floors v toward zero at one-decimal granularity.
// A small epsilon absorbs binary representation error (4.7 stays 4.7).
func Truncate1(v float64) float64 {
	return math.Trunc(v*10+copysign(1e-9, v)) / 10
}

func copysign(eps, v float64) float64 {
	if v < 0 {
		return -eps
	}
	return eps
}

// Segment is a maximal same-speaker interval.
type Segment struct {
	ID          int     `json:"segment_id"`
	SpeakerID   string  `json:"speaker_id"`
	Start       float64 `json:"start_time"`
	End         float64 `json:"end_time"`
	DurationSec float64 `json:"duration_sec"`
}

// Story is one scraped program entry.
type Story struct {
	CorrespondentName string   `json:"correspondent_name,omitempty"`
	Correspondents    []string `json:"correspondents,omitempty"`
	AudioURL          string   `json:"audio_url"`
}

// Single reports whether the story names exactly one correspondent.
func (s Story) Single() bool {
	return s.CorrespondentName != "" && len(s.Correspondents) == 0
}

// Correspondent is a person tracked in the store.
type Correspondent struct {
	ID        int64     `json:"id"`
	Fullname  string    `json:"fullname"`
	Gender    Gender    `json:"gender"`
	Embedding []float32 `json:"-"`
}

// ScoredCorrespondent pairs a correspondent with a similarity score.
type ScoredCorrespondent struct {
	Correspondent Correspondent `json:"correspondent"`
	Similarity    float64       `json:"similarity"`
}

// Audio is one scraped source recording.
type Audio struct {
	ID              int64  `json:"id"`
	CorrespondentID int64  `json:"correspondent_id"`
	URL             string `json:"url"`
}

// AudioSegment is a persisted segment. StorageURL and PublicURL stay empty until upload succeeds.
type AudioSegment struct {
	ID          int64   `json:"id"`
	AudioID     int64   `json:"audio_id"`
	Start       float64 `json:"start_time_sec"`
	End         float64 `json:"end_time_sec"`
	DurationSec float64 `json:"duration_sec"`
	StorageURL  string  `json:"storage_url,omitempty"`
	PublicURL   string  `json:"public_url,omitempty"`
}

// PendingSegment is a persisted segment whose blob was never recorded, with its owners.
type PendingSegment struct {
	AudioSegment
	CorrespondentID int64  `json:"correspondent_id"`
	AudioURL        string `json:"audio_url"`
}
