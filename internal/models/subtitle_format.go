package models

import "fmt"

// SubtitleFormat is one of the closed set of supported output formats.
type SubtitleFormat string

const (
	FormatSRT SubtitleFormat = "srt"
	FormatVTT SubtitleFormat = "vtt"
	FormatTXT SubtitleFormat = "txt"
)

// SupportedFormats returns the formats rendered for every completed task, in
// a stable order.
func SupportedFormats() []SubtitleFormat {
	return []SubtitleFormat{FormatSRT, FormatVTT, FormatTXT}
}

// ParseSubtitleFormat validates a user-supplied format string.
func ParseSubtitleFormat(s string) (SubtitleFormat, error) {
	switch SubtitleFormat(s) {
	case FormatSRT, FormatVTT, FormatTXT:
		return SubtitleFormat(s), nil
	}
	return "", fmt.Errorf("%w: unsupported subtitle format %q", ErrValidation, s)
}
