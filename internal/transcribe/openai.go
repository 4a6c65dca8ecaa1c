package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"subgen/internal/models"
)

// OpenAITranscriber sends audio to the OpenAI transcription endpoint and maps
// the verbose JSON response to segments. The API does not stream progress, so
// the sink only sees the start and the end of the request.
type OpenAITranscriber struct {
	client *openai.Client
	model  string
}

var _ Transcriber = (*OpenAITranscriber)(nil)

func NewOpenAITranscriber(apiKey, model string) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAITranscriber{client: openai.NewClient(apiKey), model: model}, nil
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string, opts Options, progress ProgressFunc) ([]models.Segment, error) {
	model := t.model
	if opts.Model != "" && strings.HasPrefix(opts.Model, "whisper-") {
		// Task model names like "base"/"small" belong to the local backend;
		// only explicit API model names override the configured one.
		model = opts.Model
	}

	req := openai.AudioRequest{
		Model:    model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if opts.Language != "" && opts.Language != "auto" {
		req.Language = opts.Language
	}

	if progress != nil {
		progress(0)
	}

	log.WithFields(log.Fields{"model": model, "language": opts.Language}).
		Debug("Submitting audio to OpenAI transcription endpoint")

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	segments := make([]models.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, models.Segment{
			Start: time.Duration(seg.Start * float64(time.Second)),
			End:   time.Duration(seg.End * float64(time.Second)),
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	if progress != nil {
		progress(1)
	}
	return segments, nil
}
