// Package ingest drives one story at a time from scraped audio URL to exported quiz segments.
package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/audio"
	"github.com/codebuildervaibhav/audio-quiz/internal/cleanup"
	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
	"github.com/codebuildervaibhav/audio-quiz/internal/matcher"
	"github.com/codebuildervaibhav/audio-quiz/internal/segments"
	"github.com/codebuildervaibhav/audio-quiz/internal/storage"
	"github.com/codebuildervaibhav/audio-quiz/internal/telemetry"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// Downloader acquires source audio locally.
type Downloader interface {
	Fetch(ctx context.Context, url string) (path string, reused bool, err error)
}

// Codec converts and trims audio files.
type Codec interface {
	ToWAV(ctx context.Context, in, out string) error
	Extract(ctx context.Context, in, out string, start, end float64) error
}

// Diarizer produces raw speaker turns for a WAV file.
type Diarizer interface {
	Diarize(ctx context.Context, wavPath string) ([]types.Turn, error)
}

// Embedder produces a voice embedding for a WAV file.
type Embedder interface {
	Embed(ctx context.Context, wavPath string) ([]float32, error)
}

// Resolver is the correspondent matcher.
type Resolver interface {
	FindByName(ctx context.Context, fullname string) (types.Correspondent, error)
	FindByEmbedding(ctx context.Context, embedding []float32, minSimilarity float64) ([]types.ScoredCorrespondent, error)
	Resolve(ctx context.Context, c matcher.Candidate) (matcher.Resolution, error)
}

// SegmentStore records export results.
type SegmentStore interface {
	UpdateSegmentURLs(ctx context.Context, segmentID int64, storageURL, publicURL string) error
	SegmentsMissingURLs(ctx context.Context) ([]types.PendingSegment, error)
}

// Deps are the pipeline's collaborators.
type Deps struct {
	Downloader Downloader
	Codec      Codec
	Diarizer   Diarizer
	Embedder   Embedder
	Blob       storage.Blob
	Matcher    Resolver
	Store      SegmentStore
	Speaker    segments.SpeakerSelectionStrategy
	Sample     segments.EmbeddingSegmentStrategy
	Gender     segments.GenderResolver
}

// Options tune the pipeline.
type Options struct {
	TempDir        string
	Bucket         string
	AudioType      string
	MinDurationSec float64
	MinSimilarity  float64
	UploadRetries  int
	// Backoff is the wait after failed upload attempt n (1-based). Defaults to n² seconds.
	Backoff func(attempt int) time.Duration
}

// Pipeline runs the ingestion state machine. It holds no per-story state, so one
// Pipeline may process stories from several goroutines.
type Pipeline struct {
	deps Deps
	opts Options
	log  *logger.Logger
}

// New creates a pipeline.
func New(deps Deps, opts Options, log *logger.Logger) *Pipeline {
	if opts.AudioType == "" {
		opts.AudioType = storage.DefaultAudioType
	}
	if opts.MinDurationSec == 0 {
		opts.MinDurationSec = segments.DefaultMinDurationSec
	}
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = matcher.DefaultMinSimilarity
	}
	if opts.UploadRetries <= 0 {
		opts.UploadRetries = 3
	}
	if opts.Backoff == nil {
		opts.Backoff = func(n int) time.Duration { return time.Duration(n*n) * time.Second }
	}
	if opts.TempDir == "" {
		opts.TempDir = "temp"
	}
	return &Pipeline{deps: deps, opts: opts, log: log.WithComponent("ingest")}
}

// Run processes stories one after another. A failed story never stops the batch.
func (p *Pipeline) Run(ctx context.Context, stories []types.Story) (Summary, []Result) {
	var sum Summary
	results := make([]Result, 0, len(stories))
	for _, story := range stories {
		if ctx.Err() != nil {
			break
		}
		r := p.Process(ctx, story)
		sum.Add(r)
		results = append(results, r)
	}
	p.LogSummary(sum)
	return sum, results
}

// LogSummary logs batch totals.
func (p *Pipeline) LogSummary(sum Summary) {
	p.log.Info("Ingestion finished", map[string]interface{}{
		"total":            sum.Total,
		"ingested":         sum.Ingested,
		"already_ingested": sum.AlreadyIngested,
		"skipped":          sum.Skipped,
		"failed":           sum.Failed,
	})
}

// Process advances one story through every stage. Temporary files are removed on
// every path; the result records the last stage reached and the outcome.
func (p *Pipeline) Process(ctx context.Context, story types.Story) (res Result) {
	res = Result{Story: story, Reached: StateFetched}
	log := p.log.WithFields(map[string]interface{}{
		logger.FieldAudioURL:      story.AudioURL,
		logger.FieldCorrespondent: story.CorrespondentName,
	})

	ctx, span := telemetry.StartSpan(ctx, "ingest.story", attribute.String("audio_url", story.AudioURL))
	defer func() {
		p.finish(log, &res)
		telemetry.EndSpan(span, res.Err)
	}()

	if !story.Single() {
		res.Err = apperrors.NotFound("single correspondent byline", story.AudioURL).
			WithDetail("correspondents", story.Correspondents)
		return res
	}

	scope, err := cleanup.NewScope(p.opts.TempDir)
	if err != nil {
		res.Err = apperrors.Internal(fmt.Errorf("create work dir: %w", err))
		return res
	}
	defer func() {
		if err := scope.Close(); err != nil {
			log.WithError(err).Warn("Temporary files not fully removed")
		}
	}()

	res.Err = p.process(ctx, scope, story, &res, log)
	return res
}

// finish maps the error taxonomy onto an outcome and terminal state.
func (p *Pipeline) finish(log *logger.Logger, res *Result) {
	fields := map[string]interface{}{logger.FieldState: string(res.Reached)}
	switch {
	case res.Err == nil:
		res.State, res.Outcome = StateCleaned, types.OutcomeIngested
		fields["segments"] = res.Segments
		fields["exported"] = res.Exported
		log.Info("Story ingested", fields)
	case apperrors.Is(res.Err, apperrors.ErrCodeConflict):
		res.State, res.Outcome = StateCleaned, types.OutcomeAlreadyIngested
		res.Err = nil
		log.Info("Story already ingested", fields)
	case apperrors.Is(res.Err, apperrors.ErrCodeNotFound):
		res.State, res.Outcome = StateAborted, types.OutcomeSkipped
		log.WithError(res.Err).Warn("Story skipped", fields)
	default:
		res.State, res.Outcome = StateAborted, types.OutcomeFailed
		log.WithError(res.Err).Error("Story failed", fields)
	}
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, "ingest."+name)
	err := fn(ctx)
	telemetry.EndSpan(span, err)
	return err
}

func (p *Pipeline) process(ctx context.Context, scope *cleanup.Scope, story types.Story, res *Result, log *logger.Logger) error {
	var src, wav string
	err := p.stage(ctx, "acquire", func(ctx context.Context) error {
		var reused bool
		var err error
		src, reused, err = p.deps.Downloader.Fetch(ctx, story.AudioURL)
		if err != nil {
			return err
		}
		scope.Track(src)
		if reused {
			scope.Keep(src)
		}
		return nil
	})
	if err != nil {
		return err
	}
	res.advance(StateAudioAcquired)

	var turns []types.Turn
	err = p.stage(ctx, "diarize", func(ctx context.Context) error {
		var err error
		wav, err = p.waveform(ctx, scope, src)
		if err != nil {
			return err
		}
		turns, err = p.deps.Diarizer.Diarize(ctx, wav)
		return err
	})
	if err != nil {
		return err
	}
	res.advance(StateDiarized)

	segs := segments.Consolidate(turns)
	if len(segs) == 0 {
		return apperrors.NotFound("diarized segments", story.AudioURL)
	}
	res.advance(StateSegmentsConsolidated)
	log.Debug("Consolidated segments", map[string]interface{}{
		"turns":    len(turns),
		"segments": len(segs),
		"speakers": len(segments.Speakers(segs)),
	})

	speaker, err := p.deps.Speaker.Choose(ctx, story, segs)
	if err != nil {
		return err
	}
	res.advance(StateSpeakerChosen)

	selected := segments.Select(segs, speaker, p.opts.MinDurationSec)
	if len(selected) == 0 {
		return apperrors.NotFound("segments", speaker).
			WithDetail("min_duration_sec", p.opts.MinDurationSec)
	}
	res.advance(StateSegmentsSelected)

	cand := matcher.Candidate{Fullname: story.CorrespondentName, AudioURL: story.AudioURL}
	err = p.stage(ctx, "embed", func(ctx context.Context) error {
		var err error
		cand, err = p.candidate(ctx, scope, story, wav, selected, log)
		return err
	})
	if err != nil {
		return err
	}
	if cand.Embedding != nil {
		res.Embedded = true
		res.advance(StateEmbeddingReady)
	}

	var resolution matcher.Resolution
	err = p.stage(ctx, "persist", func(ctx context.Context) error {
		var err error
		resolution, err = p.deps.Matcher.Resolve(ctx, cand)
		return err
	})
	res.CorrespondentID = resolution.Correspondent.ID
	res.Created = resolution.Created
	if resolution.Correspondent.ID != 0 {
		res.advance(StateCorrespondentResolved)
	}
	if err != nil {
		return err
	}
	res.AudioID = resolution.Audio.ID
	res.Segments = len(resolution.Segments)
	res.advance(StatePersisted)

	err = p.stage(ctx, "export", func(ctx context.Context) error {
		var err error
		res.Exported, err = p.exportAll(ctx, scope, src, res.CorrespondentID, resolution.Segments, log)
		return err
	})
	if err != nil {
		return err
	}
	res.advance(StateExported)
	return nil
}

// waveform converts src to WAV unless a previous conversion is on disk.
func (p *Pipeline) waveform(ctx context.Context, scope *cleanup.Scope, src string) (string, error) {
	wav := audio.WAVPath(src)
	if info, err := os.Stat(wav); err == nil && info.Size() > 0 {
		return wav, nil
	}
	scope.Track(wav)
	if err := p.deps.Codec.ToWAV(ctx, src, wav); err != nil {
		return "", err
	}
	return wav, nil
}

// candidate picks the segments to keep and, for a correspondent not yet stored,
// computes the voice embedding and gender needed to create one.
func (p *Pipeline) candidate(ctx context.Context, scope *cleanup.Scope, story types.Story, wav string, selected []types.Segment, log *logger.Logger) (matcher.Candidate, error) {
	cand := matcher.Candidate{Fullname: story.CorrespondentName, AudioURL: story.AudioURL}

	sample, keep, err := p.deps.Sample.ChooseEmbedding(ctx, selected)
	if err != nil {
		return cand, err
	}
	cand.Segments = keep

	_, err = p.deps.Matcher.FindByName(ctx, story.CorrespondentName)
	switch {
	case err == nil:
		return cand, nil
	case !apperrors.Is(err, apperrors.ErrCodeNotFound):
		return cand, err
	}

	samplePath := scope.Path(fmt.Sprintf("embedding-%d.wav", sample.ID))
	if err := p.deps.Codec.Extract(ctx, wav, samplePath, sample.Start, sample.End); err != nil {
		return cand, err
	}
	cand.Embedding, err = p.deps.Embedder.Embed(ctx, samplePath)
	if err != nil {
		return cand, err
	}

	similar, err := p.deps.Matcher.FindByEmbedding(ctx, cand.Embedding, p.opts.MinSimilarity)
	if err != nil {
		return cand, err
	}
	for _, s := range similar {
		log.Warn("New correspondent sounds like an existing one", map[string]interface{}{
			"existing":   s.Correspondent.Fullname,
			"id":         s.Correspondent.ID,
			"similarity": s.Similarity,
		})
	}

	cand.Gender, err = p.deps.Gender.Gender(ctx, story)
	return cand, err
}
