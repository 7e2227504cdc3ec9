package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/database"
	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
	"github.com/codebuildervaibhav/audio-quiz/internal/matcher"
	"github.com/codebuildervaibhav/audio-quiz/internal/segments"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

type fakeDownloader struct {
	dir   string
	calls int
}

func (f *fakeDownloader) Fetch(_ context.Context, url string) (string, bool, error) {
	f.calls++
	local := filepath.Join(f.dir, path.Base(url))
	if _, err := os.Stat(local); err == nil {
		return local, true, nil
	}
	return local, false, os.WriteFile(local, []byte("ID3"), 0o644)
}

type fakeCodec struct {
	extracts [][2]float64
}

func (f *fakeCodec) ToWAV(_ context.Context, _, out string) error {
	return os.WriteFile(out, []byte("RIFF"), 0o644)
}

func (f *fakeCodec) Extract(_ context.Context, _, out string, start, end float64) error {
	f.extracts = append(f.extracts, [2]float64{start, end})
	return os.WriteFile(out, []byte("clip"), 0o644)
}

type fakeDiarizer struct {
	turns []types.Turn
	err   error
}

func (f *fakeDiarizer) Diarize(context.Context, string) ([]types.Turn, error) {
	return f.turns, f.err
}

type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return []float32{0.6, 0.8, 0}, nil
}

type fakeBlob struct {
	failures int
	saved    []string
}

func (f *fakeBlob) Save(_ context.Context, _, bucket, dest string) (string, string, error) {
	if f.failures > 0 {
		f.failures--
		return "", "", errors.New("503 from blob store")
	}
	f.saved = append(f.saved, dest)
	return "mem://" + bucket + "/" + dest, "https://cdn.test/" + bucket + "/" + dest, nil
}

func (f *fakeBlob) Get(context.Context, string, string) ([]byte, error) { return nil, nil }

func (f *fakeBlob) Delete(context.Context, string, string) (bool, error) { return false, nil }

type countingGender struct{ calls int }

func (c *countingGender) Gender(context.Context, types.Story) (types.Gender, error) {
	c.calls++
	return types.GenderFemale, nil
}

type fixture struct {
	repo       *database.Repository
	pipeline   *Pipeline
	downloader *fakeDownloader
	codec      *fakeCodec
	diarizer   *fakeDiarizer
	embedder   *fakeEmbedder
	blob       *fakeBlob
	gender     *countingGender
	tempDir    string
}

// broadcastTurns consolidate to A 0.0-4.7, B 4.7-20.0 (15.3s), A 20.3-30.2 (9.9s).
func broadcastTurns() []types.Turn {
	return []types.Turn{
		types.NewTurn("A", 0.0, 4.7),
		types.NewTurn("B", 4.7, 20.0),
		types.NewTurn("A", 20.3, 29.0),
		types.NewTurn("A", 29.0, 30.2),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(context.Background(), database.Config{
		Driver:     database.DriverSQLite,
		DSN:        filepath.Join(dir, "ingest.db"),
		MaxRetries: 1,
		LogLevel:   "silent",
	}, logger.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	downloads := filepath.Join(dir, "downloads")
	if err := os.MkdirAll(downloads, 0o755); err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		repo:       database.NewRepository(db),
		downloader: &fakeDownloader{dir: downloads},
		codec:      &fakeCodec{},
		diarizer:   &fakeDiarizer{turns: broadcastTurns()},
		embedder:   &fakeEmbedder{},
		blob:       &fakeBlob{},
		gender:     &countingGender{},
		tempDir:    filepath.Join(dir, "temp"),
	}
	f.pipeline = New(Deps{
		Downloader: f.downloader,
		Codec:      f.codec,
		Diarizer:   f.diarizer,
		Embedder:   f.embedder,
		Blob:       f.blob,
		Matcher:    matcher.New(f.repo, 3, logger.Nop()),
		Store:      f.repo,
		Speaker:    segments.LongestTotal{},
		Sample:     segments.Longest{},
		Gender:     f.gender,
	}, Options{
		TempDir: f.tempDir,
		Bucket:  "npr_audio_quiz",
		Backoff: func(int) time.Duration { return 0 },
	}, logger.Nop())
	return f
}

func (f *fixture) counts(t *testing.T) map[string]int64 {
	t.Helper()
	c, err := f.repo.Counts(context.Background())
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	return c
}

func (f *fixture) assertTempEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.tempDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned: %d entries left", len(entries))
	}
}

func story(name, url string) types.Story {
	return types.Story{CorrespondentName: name, AudioURL: url}
}

func TestProcessCreatesNewCorrespondent(t *testing.T) {
	f := newFixture(t)
	res := f.pipeline.Process(context.Background(), story("John Smith", "https://ondemand.npr.org/me/story1.mp3"))

	if res.Err != nil {
		t.Fatalf("Process: %v", res.Err)
	}
	if res.Outcome != types.OutcomeIngested || res.State != StateCleaned || res.Reached != StateExported {
		t.Errorf("result = %s/%s/%s", res.Outcome, res.State, res.Reached)
	}
	if !res.Created || res.Segments != 1 || res.Exported != 1 {
		t.Errorf("created=%v segments=%d exported=%d", res.Created, res.Segments, res.Exported)
	}

	c := f.counts(t)
	if c["correspondents"] != 1 || c["audio"] != 1 || c["audio_segments"] != 1 {
		t.Errorf("counts = %v", c)
	}
	if f.embedder.calls != 1 || f.gender.calls != 1 || !res.Embedded {
		t.Errorf("embed calls = %d, gender calls = %d, embedded = %v", f.embedder.calls, f.gender.calls, res.Embedded)
	}

	// The sample for the embedding is the only selected segment, B 4.7-20.0.
	if got := f.codec.extracts[0]; got != [2]float64{4.7, 20.0} {
		t.Errorf("embedding sample = %v", got)
	}

	if len(f.blob.saved) != 1 || f.blob.saved[0] != "1/1/1.mp3" {
		t.Errorf("uploaded = %v, want [1/1/1.mp3]", f.blob.saved)
	}
	pending, err := f.repo.SegmentsMissingURLs(context.Background())
	if err != nil || len(pending) != 0 {
		t.Errorf("pending = %v, %v", pending, err)
	}

	f.assertTempEmpty(t)
	if _, err := os.Stat(filepath.Join(f.downloader.dir, "story1.mp3")); !os.IsNotExist(err) {
		t.Error("downloaded source not removed")
	}
}

func TestProcessReusesExistingCorrespondent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing, err := f.repo.CreateCorrespondent(ctx, types.Correspondent{
		Fullname: "Jane Doe", Gender: types.GenderFemale, Embedding: []float32{1, 0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}

	res := f.pipeline.Process(ctx, story("Jane Doe", "https://ondemand.npr.org/me/story2.mp3"))
	if res.Err != nil {
		t.Fatalf("Process: %v", res.Err)
	}
	if res.Created || res.CorrespondentID != existing.ID {
		t.Errorf("correspondent = %d created=%v, want reuse of %d", res.CorrespondentID, res.Created, existing.ID)
	}
	if f.embedder.calls != 0 || f.gender.calls != 0 || res.Embedded {
		t.Errorf("known correspondent should not be embedded or prompted")
	}
	if c := f.counts(t); c["correspondents"] != 1 || c["audio"] != 1 {
		t.Errorf("counts = %v", c)
	}
}

func TestProcessWarnsAboutSimilarVoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Same vector the fake embedder returns.
	if _, err := f.repo.CreateCorrespondent(ctx, types.Correspondent{
		Fullname: "Jane Doe", Gender: types.GenderFemale, Embedding: []float32{0.6, 0.8, 0},
	}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	f.pipeline.log = logger.NewWithWriter(logger.Config{Level: "warn", Format: "json"}, &buf).WithComponent("ingest")

	res := f.pipeline.Process(ctx, story("John Smith", "https://ondemand.npr.org/me/story8.mp3"))
	if res.Err != nil {
		t.Fatalf("Process: %v", res.Err)
	}
	if !res.Created {
		t.Error("a similar voice must not stop a new correspondent from being created")
	}
	out := buf.String()
	if !strings.Contains(out, "sounds like an existing one") || !strings.Contains(out, `"existing":"Jane Doe"`) {
		t.Errorf("log = %s, want similar-voice warning naming Jane Doe", out)
	}
}

func TestProcessDuplicateURLIsAlreadyIngested(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := story("Jane Doe", "https://ondemand.npr.org/me/story3.mp3")

	if first := f.pipeline.Process(ctx, s); first.Outcome != types.OutcomeIngested {
		t.Fatalf("first outcome = %s: %v", first.Outcome, first.Err)
	}
	second := f.pipeline.Process(ctx, s)
	if second.Outcome != types.OutcomeAlreadyIngested || second.State != StateCleaned || second.Err != nil {
		t.Errorf("second = %s/%s err=%v", second.Outcome, second.State, second.Err)
	}
	if second.Reached != StateCorrespondentResolved || second.Embedded {
		t.Errorf("Reached = %s, embedded = %v", second.Reached, second.Embedded)
	}
	if c := f.counts(t); c["audio"] != 1 || c["audio_segments"] != 1 {
		t.Errorf("counts = %v", c)
	}
	f.assertTempEmpty(t)
}

func TestProcessDiarizationFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.diarizer.err = apperrors.TransientIO("/diarize", errors.New("connection refused"))

	res := f.pipeline.Process(context.Background(), story("Jane Doe", "https://ondemand.npr.org/me/story4.mp3"))
	if res.Outcome != types.OutcomeFailed || res.State != StateAborted || res.Reached != StateAudioAcquired {
		t.Errorf("result = %s/%s/%s", res.Outcome, res.State, res.Reached)
	}
	if !apperrors.Is(res.Err, apperrors.ErrCodeTransientIO) {
		t.Errorf("err = %v", res.Err)
	}
	if c := f.counts(t); c["audio"] != 0 {
		t.Errorf("counts = %v", c)
	}
	f.assertTempEmpty(t)
	if _, err := os.Stat(filepath.Join(f.downloader.dir, "story4.mp3")); !os.IsNotExist(err) {
		t.Error("downloaded source kept after failure")
	}
}

func TestProcessSkipsWhenNoSegmentQualifies(t *testing.T) {
	f := newFixture(t)
	f.pipeline.opts.MinDurationSec = 20

	res := f.pipeline.Process(context.Background(), story("Jane Doe", "https://ondemand.npr.org/me/story5.mp3"))
	if res.Outcome != types.OutcomeSkipped || res.Reached != StateSpeakerChosen {
		t.Errorf("result = %s at %s", res.Outcome, res.Reached)
	}
}

func TestProcessSkipsMultipleCorrespondents(t *testing.T) {
	f := newFixture(t)
	res := f.pipeline.Process(context.Background(), types.Story{
		Correspondents: []string{"Jane Doe", "John Smith"},
		AudioURL:       "https://ondemand.npr.org/me/story6.mp3",
	})
	if res.Outcome != types.OutcomeSkipped || res.Reached != StateFetched {
		t.Errorf("result = %s at %s", res.Outcome, res.Reached)
	}
	if f.downloader.calls != 0 {
		t.Error("multi-correspondent story was downloaded")
	}
}

func TestProcessKeepsReusedDownload(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(f.downloader.dir, "story7.mp3")
	if err := os.WriteFile(src, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := f.pipeline.Process(context.Background(), story("Jane Doe", "https://ondemand.npr.org/me/story7.mp3"))
	if res.Err != nil {
		t.Fatalf("Process: %v", res.Err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("reused download removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.downloader.dir, "story7.wav")); !os.IsNotExist(err) {
		t.Error("converted WAV from this run kept")
	}
}

func TestUploadRetriesThenSucceeds(t *testing.T) {
	f := newFixture(t)
	f.blob.failures = 2

	res := f.pipeline.Process(context.Background(), story("Jane Doe", "https://ondemand.npr.org/me/story8.mp3"))
	if res.Err != nil || res.Exported != 1 {
		t.Fatalf("exported=%d err=%v", res.Exported, res.Err)
	}
}

func TestExportFailureLeavesURLsForBackfill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.blob.failures = 3

	res := f.pipeline.Process(ctx, story("Jane Doe", "https://ondemand.npr.org/me/story9.mp3"))
	if res.Outcome != types.OutcomeFailed || res.Reached != StatePersisted {
		t.Fatalf("result = %s at %s", res.Outcome, res.Reached)
	}
	pending, err := f.repo.SegmentsMissingURLs(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v, %v", pending, err)
	}

	sum, err := f.pipeline.Backfill(ctx)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if sum.Pending != 1 || sum.Exported != 1 || sum.Failed != 0 {
		t.Errorf("backfill = %+v", sum)
	}
	if pending, _ := f.repo.SegmentsMissingURLs(ctx); len(pending) != 0 {
		t.Errorf("still pending after backfill: %v", pending)
	}
	f.assertTempEmpty(t)
}

func TestRunContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	stories := []types.Story{
		story("Jane Doe", "https://ondemand.npr.org/me/a.mp3"),
		{Correspondents: []string{"A", "B"}, AudioURL: "https://ondemand.npr.org/me/b.mp3"},
		story("Jane Doe", "https://ondemand.npr.org/me/a.mp3"),
		story("John Smith", "https://ondemand.npr.org/me/c.mp3"),
	}
	sum, results := f.pipeline.Run(context.Background(), stories)
	if len(results) != 4 {
		t.Fatalf("results = %d", len(results))
	}
	want := Summary{Total: 4, Ingested: 2, AlreadyIngested: 1, Skipped: 1}
	if sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}
}
