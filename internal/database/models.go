package database

import (
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// Correspondent row. The embedding column is pgvector on postgres and its text form on sqlite.
type Correspondent struct {
	ID        int64           `gorm:"primaryKey"`
	Fullname  string          `gorm:"not null;uniqueIndex"`
	Gender    string          `gorm:"type:char(1);not null"`
	Embedding pgvector.Vector `gorm:"not null"`
	CreatedAt time.Time
}

func (Correspondent) TableName() string { return "correspondents" }

func (c Correspondent) toType() types.Correspondent {
	return types.Correspondent{
		ID:        c.ID,
		Fullname:  c.Fullname,
		Gender:    types.Gender(c.Gender),
		Embedding: c.Embedding.Slice(),
	}
}

// Audio row.
type Audio struct {
	ID              int64  `gorm:"primaryKey"`
	CorrespondentID int64  `gorm:"not null"`
	URL             string `gorm:"column:url;not null"`
	CreatedAt       time.Time
	Segments        []AudioSegment `gorm:"constraint:OnDelete:CASCADE;foreignKey:AudioID"`
}

func (Audio) TableName() string { return "audio" }

func (a Audio) toType() types.Audio {
	return types.Audio{ID: a.ID, CorrespondentID: a.CorrespondentID, URL: a.URL}
}

// AudioSegment row. URLs stay NULL until the blob upload succeeds.
type AudioSegment struct {
	ID          int64   `gorm:"primaryKey"`
	AudioID     int64   `gorm:"not null;index"`
	StartTime   float64 `gorm:"column:start_time_sec;not null"`
	EndTime     float64 `gorm:"column:end_time_sec;not null"`
	DurationSec float64 `gorm:"column:duration_sec;not null"`
	StorageURL  *string
	PublicURL   *string
}

func (AudioSegment) TableName() string { return "audio_segments" }

func (s AudioSegment) toType() types.AudioSegment {
	out := types.AudioSegment{
		ID:          s.ID,
		AudioID:     s.AudioID,
		Start:       s.StartTime,
		End:         s.EndTime,
		DurationSec: s.DurationSec,
	}
	if s.StorageURL != nil {
		out.StorageURL = *s.StorageURL
	}
	if s.PublicURL != nil {
		out.PublicURL = *s.PublicURL
	}
	return out
}
