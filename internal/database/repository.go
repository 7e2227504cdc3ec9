package database

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// Repository runs correspondent, audio and segment queries against a store handle.
type Repository struct {
	db *DB
}

// NewRepository wraps db.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CorrespondentByName does an exact, case- and whitespace-sensitive lookup.
func (r *Repository) CorrespondentByName(ctx context.Context, fullname string) (types.Correspondent, error) {
	var row Correspondent
	err := r.db.Gorm.WithContext(ctx).
		Where("fullname = ?", fullname).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Correspondent{}, apperrors.NotFound("correspondent", fullname)
	}
	if err != nil {
		return types.Correspondent{}, FromDatabase(err, "correspondent")
	}
	return row.toType(), nil
}

// CorrespondentsBySimilarity returns correspondents whose cosine similarity to embedding
// is strictly above minSimilarity, most similar first.
func (r *Repository) CorrespondentsBySimilarity(ctx context.Context, embedding []float32, minSimilarity float64) ([]types.ScoredCorrespondent, error) {
	if r.db.driver == DriverPostgres {
		return r.similarityPostgres(ctx, embedding, minSimilarity)
	}

	var rows []Correspondent
	if err := r.db.Gorm.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, FromDatabase(err, "correspondents")
	}
	out := make([]types.ScoredCorrespondent, 0)
	for _, row := range rows {
		sim := CosineSimilarity(embedding, row.Embedding.Slice())
		if sim > minSimilarity {
			out = append(out, types.ScoredCorrespondent{Correspondent: row.toType(), Similarity: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}

type scoredRow struct {
	Correspondent
	Similarity float64
}

func (r *Repository) similarityPostgres(ctx context.Context, embedding []float32, minSimilarity float64) ([]types.ScoredCorrespondent, error) {
	vec := pgvector.NewVector(embedding)
	var rows []scoredRow
	err := r.db.Gorm.WithContext(ctx).Raw(`
		SELECT id, fullname, gender, embedding, created_at, similarity FROM (
			SELECT id, fullname, gender, embedding, created_at, 1 - (embedding <=> ?::vector) AS similarity
			FROM correspondents
		) scored
		WHERE similarity > ?
		ORDER BY similarity DESC`, vec, minSimilarity).
		Scan(&rows).Error
	if err != nil {
		return nil, FromDatabase(err, "correspondents")
	}
	out := make([]types.ScoredCorrespondent, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.ScoredCorrespondent{Correspondent: row.Correspondent.toType(), Similarity: row.Similarity})
	}
	return out, nil
}

// CosineSimilarity is 1 - cosine distance. Mismatched or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CreateCorrespondent inserts c. A taken fullname returns a CONFLICT error.
func (r *Repository) CreateCorrespondent(ctx context.Context, c types.Correspondent) (types.Correspondent, error) {
	row := Correspondent{
		Fullname:  c.Fullname,
		Gender:    string(c.Gender),
		Embedding: pgvector.NewVector(c.Embedding),
	}
	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return types.Correspondent{}, FromDatabase(err, "correspondent")
	}
	return row.toType(), nil
}

// CreateAudioWithSegments inserts the audio row and one segment row per selected segment in a
// single transaction. A duplicate (correspondent_id, url) returns CONFLICT and inserts nothing.
func (r *Repository) CreateAudioWithSegments(ctx context.Context, correspondentID int64, url string, segs []types.Segment) (types.Audio, []types.AudioSegment, error) {
	audio := Audio{CorrespondentID: correspondentID, URL: url}
	rows := make([]AudioSegment, 0, len(segs))

	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit("Segments").Create(&audio).Error; err != nil {
			return FromDatabase(err, "audio")
		}
		for _, s := range segs {
			rows = append(rows, AudioSegment{
				AudioID:     audio.ID,
				StartTime:   s.Start,
				EndTime:     s.End,
				DurationSec: s.DurationSec,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return FromDatabase(err, "audio segments")
		}
		return nil
	})
	if err != nil {
		return types.Audio{}, nil, err
	}

	out := make([]types.AudioSegment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toType())
	}
	return audio.toType(), out, nil
}

// UpdateSegmentURLs records both blob URLs on a segment after a successful upload.
func (r *Repository) UpdateSegmentURLs(ctx context.Context, segmentID int64, storageURL, publicURL string) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&AudioSegment{}).
			Where("id = ?", segmentID).
			Updates(map[string]interface{}{"storage_url": storageURL, "public_url": publicURL})
		if res.Error != nil {
			return FromDatabase(res.Error, "audio segment")
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("audio segment", "")
		}
		return nil
	})
}

// SegmentsMissingURLs lists persisted segments that were never exported.
func (r *Repository) SegmentsMissingURLs(ctx context.Context) ([]types.PendingSegment, error) {
	type row struct {
		AudioSegment
		CorrespondentID int64
		AudioURL        string
	}
	var rows []row
	err := r.db.Gorm.WithContext(ctx).
		Table("audio_segments").
		Select("audio_segments.*, audio.correspondent_id AS correspondent_id, audio.url AS audio_url").
		Joins("JOIN audio ON audio.id = audio_segments.audio_id").
		Where("audio_segments.storage_url IS NULL OR audio_segments.public_url IS NULL").
		Order("audio.id, audio_segments.id").
		Scan(&rows).Error
	if err != nil {
		return nil, FromDatabase(err, "audio segments")
	}
	out := make([]types.PendingSegment, 0, len(rows))
	for _, p := range rows {
		out = append(out, types.PendingSegment{
			AudioSegment:    p.AudioSegment.toType(),
			CorrespondentID: p.CorrespondentID,
			AudioURL:        p.AudioURL,
		})
	}
	return out, nil
}

// QuizClip is an exported segment with its correspondent.
type QuizClip struct {
	CorrespondentID int64
	Fullname        string
	Gender          types.Gender
	PublicURL       string
}

// QuizClips lists every exported segment with its correspondent.
func (r *Repository) QuizClips(ctx context.Context) ([]QuizClip, error) {
	var rows []QuizClip
	err := r.db.Gorm.WithContext(ctx).
		Table("audio_segments").
		Select("correspondents.id AS correspondent_id, correspondents.fullname, correspondents.gender, audio_segments.public_url").
		Joins("JOIN audio ON audio.id = audio_segments.audio_id").
		Joins("JOIN correspondents ON correspondents.id = audio.correspondent_id").
		Where("audio_segments.public_url IS NOT NULL").
		Order("correspondents.id, audio_segments.id").
		Scan(&rows).Error
	if err != nil {
		return nil, FromDatabase(err, "quiz clips")
	}
	return rows, nil
}

// Correspondents lists every correspondent without embeddings.
func (r *Repository) Correspondents(ctx context.Context) ([]types.Correspondent, error) {
	var rows []Correspondent
	err := r.db.Gorm.WithContext(ctx).
		Select("id", "fullname", "gender").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, FromDatabase(err, "correspondents")
	}
	out := make([]types.Correspondent, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.Correspondent{ID: row.ID, Fullname: row.Fullname, Gender: types.Gender(row.Gender)})
	}
	return out, nil
}

// Counts reports row counts per table.
func (r *Repository) Counts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, 3)
	for _, table := range []string{"correspondents", "audio", "audio_segments"} {
		var n int64
		if err := r.db.Gorm.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
			return nil, FromDatabase(err, table)
		}
		out[table] = n
	}
	return out, nil
}
