package transcribe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"subgen/internal/models"
)

// WhisperCLITranscriber runs a local whisper.cpp binary. It parses the JSON
// transcript the binary writes and scrapes fractional progress from stderr.
type WhisperCLITranscriber struct {
	Binary       string
	ModelDir     string
	DefaultModel string

	models *modelCache
}

var _ Transcriber = (*WhisperCLITranscriber)(nil)

func NewWhisperCLITranscriber(binary, modelDir, defaultModel string, cacheSize int) *WhisperCLITranscriber {
	if binary == "" {
		binary = "whisper-cli"
	}
	if defaultModel == "" {
		defaultModel = "base"
	}
	return &WhisperCLITranscriber{
		Binary:       binary,
		ModelDir:     modelDir,
		DefaultModel: defaultModel,
		models:       newModelCache(cacheSize),
	}
}

// progressRe matches whisper.cpp's "-pp" output, e.g.
// "whisper_print_progress_callback: progress =  15%".
var progressRe = regexp.MustCompile(`progress\s*=\s*(\d+)%`)

func (t *WhisperCLITranscriber) Transcribe(ctx context.Context, audioPath string, opts Options, progress ProgressFunc) ([]models.Segment, error) {
	modelName := opts.Model
	if modelName == "" {
		modelName = t.DefaultModel
	}
	modelPath, err := t.models.resolve(t.ModelDir, modelName)
	if err != nil {
		return nil, err
	}

	language := opts.Language
	if language == "" {
		language = "auto"
	}

	outPrefix := audioPath + ".transcript"
	jsonPath := outPrefix + ".json"
	defer os.Remove(jsonPath)

	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-l", language,
		"-oj",
		"-of", outPrefix,
		"-pp",
	}

	cmd := exec.CommandContext(ctx, t.Binary, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("whisper stderr pipe: %w", err)
	}

	log.WithFields(log.Fields{"model": modelName, "language": language, "audio": audioPath}).
		Debug("Starting whisper.cpp transcription")

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start whisper binary %s: %w", t.Binary, err)
	}

	var tail bytes.Buffer
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		tail.WriteString(line)
		tail.WriteByte('\n')
		if tail.Len() > 4096 {
			tail.Next(tail.Len() - 4096)
		}
		if progress == nil {
			continue
		}
		if m := progressRe.FindStringSubmatch(line); m != nil {
			if pct, err := strconv.Atoi(m[1]); err == nil {
				progress(float64(pct) / 100.0)
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("whisper transcription failed: %w: %s", err, strings.TrimSpace(tail.String()))
	}

	segments, err := parseWhisperJSON(jsonPath)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(1)
	}
	return segments, nil
}

// whisperOutput mirrors the relevant part of whisper.cpp's -oj file.
type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"` // milliseconds
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseWhisperJSON(path string) ([]models.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whisper output %s: %w", path, err)
	}
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output %s: %w", path, err)
	}

	segments := make([]models.Segment, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, models.Segment{
			Start: time.Duration(seg.Offsets.From) * time.Millisecond,
			End:   time.Duration(seg.Offsets.To) * time.Millisecond,
			Text:  text,
		})
	}
	return segments, nil
}
