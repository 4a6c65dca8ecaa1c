// Package transcribe defines the speech-to-text contract and its adapters:
// a local whisper.cpp CLI backend and the OpenAI transcription endpoint.
package transcribe

import (
	"context"

	"subgen/internal/models"
)

// ProgressFunc receives fractional progress in [0.0, 1.0]. Implementations
// must treat it as best-effort: it may be called many times and must be cheap.
type ProgressFunc func(fraction float64)

// Options select the model and language for one transcription.
type Options struct {
	Model    string // backend model name; empty means the adapter default
	Language string // BCP-47 code, or "auto" to detect
}

// Transcriber runs a speech model over an audio file and returns the ordered
// timed segments. Implementations stop promptly when ctx is canceled; the
// progress sink may be nil.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts Options, progress ProgressFunc) ([]models.Segment, error)
}
