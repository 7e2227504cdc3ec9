package segments

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
	"github.com/codebuildervaibhav/audio-quiz/internal/types"
)

// Console is the operator-in-the-loop implementation of every strategy.
// All prompts share one buffered reader so answers typed ahead are not lost.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console reading answers from in and writing prompts to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// PrintSegments writes the segment table shown before the speaker prompt.
func (c *Console) PrintSegments(segs []types.Segment) {
	for _, s := range segs {
		fmt.Fprintf(c.out, "Id: %d, Speaker: %s, Start: %.1fs, End: %.1fs, Duration: %.1fs\n",
			s.ID, s.SpeakerID, s.Start, s.End, s.DurationSec)
	}
}

func (c *Console) Choose(ctx context.Context, story types.Story, segs []types.Segment) (string, error) {
	fmt.Fprintf(c.out, "\nCorrespondent: %s\nAudio URL: %s\n", story.CorrespondentName, story.AudioURL)
	c.PrintSegments(segs)

	speakers := Speakers(segs)
	answer, err := c.ask(ctx, fmt.Sprintf("\nEnter the speaker ID to filter segments, or press Enter to skip %v: ", speakers))
	if err != nil {
		return "", err
	}
	for _, id := range speakers {
		if id == answer {
			return id, nil
		}
	}
	return "", apperrors.NotFound("speaker", answer)
}

func (c *Console) ChooseEmbedding(ctx context.Context, selected []types.Segment) (types.Segment, []types.Segment, error) {
	ids := segmentIDs(selected)
	answer, err := c.ask(ctx, fmt.Sprintf("Enter the segment ID to use for embedding %v: ", ids))
	if err != nil {
		return types.Segment{}, nil, err
	}
	embedID := answer

	answer, err = c.ask(ctx, fmt.Sprintf("Enter the segment ids to be used for audio segments, or press Enter to use all of them %v: ", ids))
	if err != nil {
		return types.Segment{}, nil, err
	}
	keep := selected
	if answer != "" {
		want := make(map[string]bool)
		for _, id := range strings.Split(answer, ",") {
			want[strings.TrimSpace(id)] = true
		}
		keep = make([]types.Segment, 0, len(want))
		for _, s := range selected {
			if want[strconv.Itoa(s.ID)] {
				keep = append(keep, s)
			}
		}
	}
	if len(keep) == 0 {
		return types.Segment{}, nil, apperrors.NotFound("selected segments", answer)
	}

	for _, s := range keep {
		if strconv.Itoa(s.ID) == embedID {
			return s, keep, nil
		}
	}
	return types.Segment{}, nil, apperrors.NotFound("embedding segment", embedID)
}

func (c *Console) Gender(ctx context.Context, story types.Story) (types.Gender, error) {
	for {
		answer, err := c.ask(ctx, fmt.Sprintf("Enter gender of correspondent %s (M/F/U): ", story.CorrespondentName))
		if err != nil {
			return "", err
		}
		if g, ok := types.ParseGender(answer); ok {
			return g, nil
		}
		fmt.Fprintf(c.out, "%q is not one of M, F, U\n", answer)
	}
}

func segmentIDs(segs []types.Segment) []int {
	ids := make([]int, 0, len(segs))
	for _, s := range segs {
		ids = append(ids, s.ID)
	}
	sort.Ints(ids)
	return ids
}
