package ingest

import "github.com/codebuildervaibhav/audio-quiz/internal/types"

// State is a stage of a story's ingestion.
type State string

const (
	StateFetched               State = "Fetched"
	StateAudioAcquired         State = "AudioAcquired"
	StateDiarized              State = "Diarized"
	StateSegmentsConsolidated  State = "SegmentsConsolidated"
	StateSpeakerChosen         State = "SpeakerChosen"
	StateSegmentsSelected      State = "SegmentsSelected"
	StateEmbeddingReady        State = "EmbeddingReady"
	StateCorrespondentResolved State = "CorrespondentResolved"
	StatePersisted             State = "Persisted"
	StateExported              State = "Exported"
	StateCleaned               State = "Cleaned"
	StateAborted               State = "Aborted"
)

// Result describes how far one story got.
type Result struct {
	Story types.Story
	// Reached is the last stage completed before cleanup.
	Reached State
	// State is Cleaned or Aborted.
	State           State
	Outcome         string
	CorrespondentID int64
	AudioID         int64
	Created         bool
	Embedded        bool
	Segments        int
	Exported        int
	Err             error
}

func (r *Result) advance(s State) { r.Reached = s }

// Summary counts outcomes over a batch.
type Summary struct {
	Total           int
	Ingested        int
	AlreadyIngested int
	Skipped         int
	Failed          int
}

// Add counts r.
func (s *Summary) Add(r Result) {
	s.Total++
	switch r.Outcome {
	case types.OutcomeIngested:
		s.Ingested++
	case types.OutcomeAlreadyIngested:
		s.AlreadyIngested++
	case types.OutcomeSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}
