// Package segments turns raw diarization turns into consolidated, selectable speaker segments.
package segments

import (
	"math"

	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// DefaultMinDurationSec is the selection threshold used when none is configured.
const DefaultMinDurationSec = 10.0

// Consolidate merges consecutive same-speaker turns into maximal segments
// with ordinal ids 0..n-1. Turns are expected in ascending start order and are not re-sorted.
func Consolidate(turns []types.Turn) []types.Segment {
	out := make([]types.Segment, 0, len(turns))
	if len(turns) == 0 {
		return out
	}

	cur := segmentFrom(turns[0])
	for _, t := range turns[1:] {
		if t.SpeakerLabel == cur.SpeakerID {
			cur.End = t.End
			cur.DurationSec = duration(cur.Start, cur.End)
			continue
		}
		cur.ID = len(out)
		out = append(out, cur)
		cur = segmentFrom(t)
	}
	cur.ID = len(out)
	return append(out, cur)
}

func segmentFrom(t types.Turn) types.Segment {
	return types.Segment{
		SpeakerID:   t.SpeakerLabel,
		Start:       t.Start,
		End:         t.End,
		DurationSec: duration(t.Start, t.End),
	}
}

// duration works in tenths so 30.2-20.3 yields 9.9 rather than 9.899999.
func duration(start, end float64) float64 {
	return (math.Round(end*10) - math.Round(start*10)) / 10
}

// Select keeps the segments of speakerID lasting strictly longer than minDurationSec, in input order.
// The result is a copy; callers may extend it without touching the input.
func Select(segs []types.Segment, speakerID string, minDurationSec float64) []types.Segment {
	out := make([]types.Segment, 0)
	for _, s := range segs {
		if s.SpeakerID == speakerID && s.DurationSec > minDurationSec {
			out = append(out, s)
		}
	}
	return out
}

// Speakers lists distinct speaker ids in order of first appearance.
func Speakers(segs []types.Segment) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range segs {
		if !seen[s.SpeakerID] {
			seen[s.SpeakerID] = true
			ids = append(ids, s.SpeakerID)
		}
	}
	return ids
}

// TotalDuration sums segment durations in tenths.
func TotalDuration(segs []types.Segment) float64 {
	var tenths float64
	for _, s := range segs {
		tenths += math.Round(s.DurationSec * 10)
	}
	return tenths / 10
}
