package subtitle

import (
	"strings"

	"subgen/internal/models"
)

var contentTypes = map[models.SubtitleFormat]string{
	models.FormatSRT: "text/srt",
	models.FormatVTT: "text/vtt",
	models.FormatTXT: "text/plain",
}

// ContentType returns the MIME type served for a subtitle format.
func ContentType(format models.SubtitleFormat) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "text/plain"
}

// ExportFilename derives the download name from the original upload name:
// the stem of the source file plus the format extension.
func ExportFilename(originalFilename string, format models.SubtitleFormat) string {
	stem := originalFilename
	if idx := strings.LastIndex(originalFilename, "."); idx > 0 {
		stem = originalFilename[:idx]
	}
	return stem + "." + string(format)
}
