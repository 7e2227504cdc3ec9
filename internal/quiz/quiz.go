// Package quiz assembles multiple-choice "who is speaking" questions from exported segments.
package quiz

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/codebuildervaibhav/audio-quiz/internal/database"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

const (
	DefaultSize        = 10
	DefaultDistractors = 3
	MaxSize            = 50
)

// Source is the data a quiz is drawn from.
type Source interface {
	QuizClips(ctx context.Context) ([]database.QuizClip, error)
	Correspondents(ctx context.Context) ([]types.Correspondent, error)
}

// Option is one answer choice.
type Option struct {
	ID        int64  `json:"id"`
	Fullname  string `json:"fullname"`
	IsCorrect bool   `json:"is_correct"`
}

// Question asks which correspondent is speaking in AudioURL.
type Question struct {
	CorrespondentID   int64    `json:"correspondent_id"`
	CorrespondentName string   `json:"correspondent_name"`
	AudioURL          string   `json:"audio_url"`
	Options           []Option `json:"options"`
}

// Builder draws random quizzes.
type Builder struct {
	source      Source
	distractors int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder creates a builder. A nil rng is seeded from the clock.
func NewBuilder(source Source, distractors int, rng *rand.Rand) *Builder {
	if distractors <= 0 {
		distractors = DefaultDistractors
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Builder{source: source, distractors: distractors, rng: rng}
}

// Build returns up to size questions, one per distinct correspondent that has an
// exported segment. Distractors share the correspondent's gender.
func (b *Builder) Build(ctx context.Context, size int) ([]Question, error) {
	if size <= 0 {
		size = DefaultSize
	}
	clips, err := b.source.QuizClips(ctx)
	if err != nil {
		return nil, err
	}
	people, err := b.source.Correspondents(ctx)
	if err != nil {
		return nil, err
	}

	var order []int64
	clipsBy := map[int64][]database.QuizClip{}
	for _, c := range clips {
		if _, ok := clipsBy[c.CorrespondentID]; !ok {
			order = append(order, c.CorrespondentID)
		}
		clipsBy[c.CorrespondentID] = append(clipsBy[c.CorrespondentID], c)
	}
	byGender := map[types.Gender][]types.Correspondent{}
	for _, p := range people {
		byGender[p.Gender] = append(byGender[p.Gender], p)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	if len(order) > size {
		order = order[:size]
	}

	questions := make([]Question, 0, len(order))
	for _, id := range order {
		cands := clipsBy[id]
		clip := cands[b.rng.Intn(len(cands))]
		questions = append(questions, Question{
			CorrespondentID:   clip.CorrespondentID,
			CorrespondentName: clip.Fullname,
			AudioURL:          clip.PublicURL,
			Options:           b.options(clip, byGender[clip.Gender]),
		})
	}
	return questions, nil
}

// options returns the correct answer plus random same-gender distractors, shuffled.
func (b *Builder) options(clip database.QuizClip, pool []types.Correspondent) []Option {
	others := make([]types.Correspondent, 0, len(pool))
	for _, p := range pool {
		if p.ID != clip.CorrespondentID {
			others = append(others, p)
		}
	}
	b.rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	if len(others) > b.distractors {
		others = others[:b.distractors]
	}

	opts := make([]Option, 0, len(others)+1)
	opts = append(opts, Option{ID: clip.CorrespondentID, Fullname: clip.Fullname, IsCorrect: true})
	for _, o := range others {
		opts = append(opts, Option{ID: o.ID, Fullname: o.Fullname})
	}
	b.rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	return opts
}
