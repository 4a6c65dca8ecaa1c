// Package subtitle renders ordered timed segments into the supported subtitle
// formats and owns export naming.
package subtitle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"subgen/internal/models"
)

// Encode renders segments into the given format. Output is deterministic:
// entries are numbered from 1 in sequence order, time ranges are millisecond
// precise, and the plain-text rendering carries the same text in the same
// order with no timing.
func Encode(segments []models.Segment, format models.SubtitleFormat) (string, error) {
	switch format {
	case models.FormatSRT:
		return encodeSRT(segments), nil
	case models.FormatVTT:
		return encodeVTT(segments), nil
	case models.FormatTXT:
		return encodeTXT(segments), nil
	}
	return "", fmt.Errorf("%w: unsupported subtitle format %q", models.ErrValidation, format)
}

func encodeSRT(segments []models.Segment) string {
	var lines []string
	for i, seg := range segments {
		lines = append(lines,
			strconv.Itoa(i+1),
			FormatTimestamp(seg.Start, ',')+" --> "+FormatTimestamp(seg.End, ','),
			strings.TrimSpace(seg.Text),
			"",
		)
	}
	return strings.Join(lines, "\n")
}

func encodeVTT(segments []models.Segment) string {
	lines := []string{"WEBVTT", ""}
	for i, seg := range segments {
		lines = append(lines,
			strconv.Itoa(i+1),
			FormatTimestamp(seg.Start, '.')+" --> "+FormatTimestamp(seg.End, '.'),
			strings.TrimSpace(seg.Text),
			"",
		)
	}
	return strings.Join(lines, "\n")
}

func encodeTXT(segments []models.Segment) string {
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		texts = append(texts, strings.TrimSpace(seg.Text))
	}
	return strings.Join(texts, "\n")
}

// FormatTimestamp renders d as HH:MM:SS<sep>mmm, losslessly to the
// millisecond. SRT uses a comma separator, WebVTT a period.
func FormatTimestamp(d time.Duration, sep byte) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms %= 3_600_000
	minutes := ms / 60_000
	ms %= 60_000
	seconds := ms / 1_000
	ms %= 1_000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, seconds, sep, ms)
}
