package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Transcoder extracts a mono 16 kHz PCM audio stream from a media container.
type Transcoder interface {
	ExtractAudio(ctx context.Context, inputPath, outputPath string) error
}

// FFmpegTranscoder shells out to ffmpeg. Whisper expects mono 16 kHz
// 16-bit PCM, so the output is always written with those parameters.
type FFmpegTranscoder struct {
	Binary string
}

var _ Transcoder = (*FFmpegTranscoder)(nil)

func NewFFmpegTranscoder(binary string) *FFmpegTranscoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTranscoder{Binary: binary}
}

func (t *FFmpegTranscoder) ExtractAudio(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, t.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg extract %s: %w: %s", inputPath, err, lastLine(stderr.Bytes()))
	}
	return nil
}

// lastLine returns the final non-empty stderr line, which is where ffmpeg
// puts the actual failure reason.
func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}
