package quiz

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/codebuildervaibhav/audio-quiz/internal/database"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

type memSource struct {
	clips  []database.QuizClip
	people []types.Correspondent
	err    error
}

func (m memSource) QuizClips(context.Context) ([]database.QuizClip, error) { return m.clips, m.err }

func (m memSource) Correspondents(context.Context) ([]types.Correspondent, error) {
	return m.people, nil
}

func newsroom() memSource {
	people := []types.Correspondent{
		{ID: 1, Fullname: "Jane Doe", Gender: types.GenderFemale},
		{ID: 2, Fullname: "Ann Lee", Gender: types.GenderFemale},
		{ID: 3, Fullname: "Mia Wong", Gender: types.GenderFemale},
		{ID: 4, Fullname: "Kim Park", Gender: types.GenderFemale},
		{ID: 5, Fullname: "Eva Cruz", Gender: types.GenderFemale},
		{ID: 6, Fullname: "John Smith", Gender: types.GenderMale},
		{ID: 7, Fullname: "Sam Roe", Gender: types.GenderMale},
	}
	var clips []database.QuizClip
	for _, p := range people[:2] {
		clips = append(clips,
			database.QuizClip{CorrespondentID: p.ID, Fullname: p.Fullname, Gender: p.Gender, PublicURL: "https://cdn/" + p.Fullname + "/1.mp3"},
			database.QuizClip{CorrespondentID: p.ID, Fullname: p.Fullname, Gender: p.Gender, PublicURL: "https://cdn/" + p.Fullname + "/2.mp3"},
		)
	}
	clips = append(clips, database.QuizClip{CorrespondentID: 6, Fullname: "John Smith", Gender: types.GenderMale, PublicURL: "https://cdn/js/1.mp3"})
	return memSource{clips: clips, people: people}
}

func TestBuildQuestions(t *testing.T) {
	src := newsroom()
	genders := map[int64]types.Gender{}
	for _, p := range src.people {
		genders[p.ID] = p.Gender
	}

	b := NewBuilder(src, 3, rand.New(rand.NewSource(7)))
	qs, err := b.Build(context.Background(), 10)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("got %d questions, want one per clip owner (3)", len(qs))
	}

	seen := map[int64]bool{}
	for _, q := range qs {
		if seen[q.CorrespondentID] {
			t.Errorf("correspondent %d asked twice", q.CorrespondentID)
		}
		seen[q.CorrespondentID] = true

		correct := 0
		ids := map[int64]bool{}
		for _, o := range q.Options {
			if ids[o.ID] {
				t.Errorf("duplicate option %d", o.ID)
			}
			ids[o.ID] = true
			if o.IsCorrect {
				correct++
				if o.ID != q.CorrespondentID {
					t.Errorf("correct option %d for question about %d", o.ID, q.CorrespondentID)
				}
			}
			if genders[o.ID] != genders[q.CorrespondentID] {
				t.Errorf("option %s has a different gender", o.Fullname)
			}
		}
		if correct != 1 {
			t.Errorf("question %d has %d correct options", q.CorrespondentID, correct)
		}

		switch genders[q.CorrespondentID] {
		case types.GenderFemale:
			if len(q.Options) != 4 {
				t.Errorf("female question has %d options, want 4", len(q.Options))
			}
		case types.GenderMale:
			if len(q.Options) != 2 {
				t.Errorf("male question has %d options, want 2 (one distractor available)", len(q.Options))
			}
		}
	}
}

func TestBuildRespectsSize(t *testing.T) {
	qs, err := NewBuilder(newsroom(), 3, rand.New(rand.NewSource(1))).Build(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 {
		t.Errorf("got %d questions, want 2", len(qs))
	}
}

func TestBuildEmptyStore(t *testing.T) {
	qs, err := NewBuilder(memSource{}, 3, nil).Build(context.Background(), 10)
	if err != nil || len(qs) != 0 {
		t.Errorf("Build = %v, %v", qs, err)
	}
}

func TestBuildPropagatesStoreError(t *testing.T) {
	if _, err := NewBuilder(memSource{err: errors.New("db down")}, 3, nil).Build(context.Background(), 10); err == nil {
		t.Error("expected error")
	}
}
