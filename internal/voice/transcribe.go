package voice

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/markdave123-py/botdesk/internal/core"
)

// Transcribe converts a finished clip into chat text.
func Transcribe(ctx context.Context, t core.Transcriber, clip Clip) (string, error) {
	if t == nil {
		return "", fmt.Errorf("transcription: %w", core.ErrConfiguration)
	}
	text, err := t.Transcribe(ctx, clip.Audio, clipFilename(clip))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// clipFilename gives the upload an extension the transcription API accepts.
func clipFilename(c Clip) string {
	ext := ".webm"
	mt, _, err := mime.ParseMediaType(c.ContentType)
	if err == nil {
		switch mt {
		case "audio/mpeg", "audio/mp3":
			ext = ".mp3"
		case "audio/wav", "audio/x-wav", "audio/wave":
			ext = ".wav"
		case "audio/ogg":
			ext = ".ogg"
		case "audio/mp4", "audio/m4a", "audio/x-m4a":
			ext = ".m4a"
		}
	}
	return "recording" + ext
}
