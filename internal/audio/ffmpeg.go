package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// SupportedFormats lists the extensions ffmpeg is asked to decode.
var SupportedFormats = []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac"}

// ValidateAudioFormat checks if the file format is supported
func ValidateAudioFormat(filename string) bool {
	lower := strings.ToLower(filename)
	for _, format := range SupportedFormats {
		if strings.HasSuffix(lower, format) {
			return true
		}
	}
	return false
}

// FFmpeg converts and trims audio by shelling out to ffmpeg.
type FFmpeg struct {
	bin string
}

// NewFFmpeg uses bin, or "ffmpeg" from PATH when empty.
func NewFFmpeg(bin string) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin}
}

// ToWAV converts in to 16kHz mono 16-bit PCM, the format the diarization and embedding engines expect.
func (f *FFmpeg) ToWAV(ctx context.Context, in, out string) error {
	return f.run(ctx,
		"-i", in,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		out,
	)
}

// Extract writes the [start, end) range of in to out, encoded by out's extension.
func (f *FFmpeg) Extract(ctx context.Context, in, out string, start, end float64) error {
	if end <= start {
		return fmt.Errorf("extract %s: end %.1f is not after start %.1f", in, end, start)
	}
	return f.run(ctx,
		"-i", in,
		"-ss", seconds(start),
		"-to", seconds(end),
		"-vn",
		"-y",
		out,
	)
}

func (f *FFmpeg) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, f.bin, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(output))
	}
	out := args[len(args)-1]
	if info, statErr := os.Stat(out); statErr != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced no output at %s", out)
	}
	return nil
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
