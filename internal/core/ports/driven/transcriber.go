package driven

import (
	"context"
	"time"
)

// Transcript is the output of a speech-to-text run.
type Transcript struct {
	// Text is the full transcript.
	Text string

	// Language is the detected ISO 639-1 code, or "en" when
	// detection failed or returned an unsupported language.
	Language string

	// Duration is the length of the recording, when the backend
	// reports it. Zero when unknown.
	Duration time.Duration
}

// Transcriber converts a local audio file into text.
//
// This is an external collaborator: the core memoises its output in the
// transcript cache but never retries failures, which surface as
// domain.ErrTranscriptUnavailable.
type Transcriber interface {
	// Transcribe converts the audio file at path into a transcript.
	Transcribe(ctx context.Context, path string) (*Transcript, error)

	// ModelName returns the name of the transcription model being used.
	ModelName() string
}
