// Package media classifies source files and extracts audio streams for
// transcription.
package media

import (
	"path/filepath"
	"strings"
)

var videoExts = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".wmv": true,
	".webm": true, ".flv": true,
}

var audioExts = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".flac": true, ".ogg": true,
	".aac": true, ".opus": true,
}

// IsVideo reports whether the path has a known video container extension.
func IsVideo(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// IsAudio reports whether the path has a known audio extension.
func IsAudio(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}

// IsSupported reports whether the file can be submitted for transcription.
func IsSupported(path string) bool {
	return IsVideo(path) || IsAudio(path)
}
