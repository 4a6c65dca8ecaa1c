package subtitle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgen/internal/models"
)

func sampleSegments() []models.Segment {
	return []models.Segment{
		{Start: 0, End: 2500 * time.Millisecond, Text: " Hello there. "},
		{Start: 2500 * time.Millisecond, End: 1*time.Hour + 5*time.Second + 42*time.Millisecond, Text: "General Kenobi."},
	}
}

func TestEncodeSRT(t *testing.T) {
	content, err := Encode(sampleSegments(), models.FormatSRT)
	require.NoError(t, err)

	expected := "1\n" +
		"00:00:00,000 --> 00:00:02,500\n" +
		"Hello there.\n" +
		"\n" +
		"2\n" +
		"00:00:02,500 --> 01:00:05,042\n" +
		"General Kenobi.\n"
	assert.Equal(t, expected, content)
}

func TestEncodeVTT(t *testing.T) {
	content, err := Encode(sampleSegments(), models.FormatVTT)
	require.NoError(t, err)

	expected := "WEBVTT\n" +
		"\n" +
		"1\n" +
		"00:00:00.000 --> 00:00:02.500\n" +
		"Hello there.\n" +
		"\n" +
		"2\n" +
		"00:00:02.500 --> 01:00:05.042\n" +
		"General Kenobi.\n"
	assert.Equal(t, expected, content)
}

func TestEncodeTXT(t *testing.T) {
	content, err := Encode(sampleSegments(), models.FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, "Hello there.\nGeneral Kenobi.", content)
}

func TestEncodeUnknownFormat(t *testing.T) {
	_, err := Encode(sampleSegments(), models.SubtitleFormat("ass"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestEncodeEmptySegments(t *testing.T) {
	content, err := Encode(nil, models.FormatSRT)
	require.NoError(t, err)
	assert.Equal(t, "", content)

	content, err = Encode(nil, models.FormatVTT)
	require.NoError(t, err)
	assert.Equal(t, "WEBVTT\n", content)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", FormatTimestamp(0, ','))
	assert.Equal(t, "00:01:01,001", FormatTimestamp(61001*time.Millisecond, ','))
	assert.Equal(t, "10:00:00.500", FormatTimestamp(10*time.Hour+500*time.Millisecond, '.'))
	// Negative durations clamp rather than render garbage.
	assert.Equal(t, "00:00:00,000", FormatTimestamp(-time.Second, ','))
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "movie.srt", ExportFilename("movie.mp4", models.FormatSRT))
	assert.Equal(t, "a.b.vtt", ExportFilename("a.b.mov", models.FormatVTT))
	assert.Equal(t, "noext.txt", ExportFilename("noext", models.FormatTXT))
	// A leading dot is a hidden-file prefix, not an extension.
	assert.Equal(t, ".hidden.srt", ExportFilename(".hidden", models.FormatSRT))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/srt", ContentType(models.FormatSRT))
	assert.Equal(t, "text/vtt", ContentType(models.FormatVTT))
	assert.Equal(t, "text/plain", ContentType(models.FormatTXT))
}
