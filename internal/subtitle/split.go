package subtitle

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"subgen/internal/models"
)

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
	tokenizerErr  error
)

func sentenceTokenizer() (*sentences.DefaultSentenceTokenizer, error) {
	tokenizerOnce.Do(func() {
		tokenizer, tokenizerErr = english.NewSentenceTokenizer(nil)
	})
	return tokenizer, tokenizerErr
}

// SplitLongSegments breaks segments whose text exceeds maxChars into several
// cues at sentence boundaries, distributing the time range proportionally to
// text length. Segments at or under the limit pass through unchanged. A
// maxChars of zero disables splitting.
func SplitLongSegments(segments []models.Segment, maxChars int) []models.Segment {
	if maxChars <= 0 {
		return segments
	}
	tok, err := sentenceTokenizer()
	if err != nil {
		// Without a tokenizer the original cues are still valid subtitles.
		return segments
	}

	out := make([]models.Segment, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if utf8.RuneCountInString(text) <= maxChars {
			out = append(out, seg)
			continue
		}
		out = append(out, splitSegment(tok, seg, text, maxChars)...)
	}
	return out
}

func splitSegment(tok *sentences.DefaultSentenceTokenizer, seg models.Segment, text string, maxChars int) []models.Segment {
	var chunks []string
	var current strings.Builder
	for _, s := range tok.Tokenize(text) {
		sentence := strings.TrimSpace(s.Text)
		if sentence == "" {
			continue
		}
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+1+utf8.RuneCountInString(sentence) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) <= 1 {
		return []models.Segment{seg}
	}

	total := 0
	for _, c := range chunks {
		total += utf8.RuneCountInString(c)
	}

	span := seg.End - seg.Start
	result := make([]models.Segment, 0, len(chunks))
	cursor := seg.Start
	consumed := 0
	for i, c := range chunks {
		consumed += utf8.RuneCountInString(c)
		end := seg.Start + time.Duration(float64(span)*float64(consumed)/float64(total))
		if i == len(chunks)-1 {
			end = seg.End // avoid rounding drift on the final cue
		}
		result = append(result, models.Segment{Start: cursor, End: end, Text: c})
		cursor = end
	}
	return result
}
