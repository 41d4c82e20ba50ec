// Package whisper provides a speech-to-text adapter using the OpenAI
// Whisper API.
package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driven"
)

// Ensure Transcriber implements the interface.
var _ driven.Transcriber = (*Transcriber)(nil)

// DefaultModel is the transcription model used when none is configured.
const DefaultModel = "whisper-1"

// FallbackLanguage is reported when the API returns an unsupported or
// unrecognised language.
const FallbackLanguage = "en"

// ErrAPIKeyRequired is returned when no API key is configured.
var ErrAPIKeyRequired = errors.New("whisper: API key is required")

// supportedLanguages is the set of ISO 639-1 codes the pipeline handles.
var supportedLanguages = map[string]bool{
	"en": true,
	"ar": true,
	"es": true,
	"it": true,
	"sv": true,
}

// languageNames maps the spelled-out names Whisper returns in verbose
// responses back to ISO 639-1 codes.
var languageNames = map[string]string{
	"english": "en",
	"arabic":  "ar",
	"spanish": "es",
	"italian": "it",
	"swedish": "sv",
}

// Config holds configuration for the Whisper transcriber.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// Model is the transcription model to use (default: whisper-1).
	Model string
}

// Transcriber converts local audio files into transcripts via the
// OpenAI audio API.
type Transcriber struct {
	client openai.Client
	model  string
}

// NewTranscriber creates a new Whisper transcriber.
func NewTranscriber(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &Transcriber{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
	}, nil
}

// verboseTranscription is the verbose_json response shape. The SDK
// exposes only the text field as typed data, so the language and
// duration come from the raw payload.
type verboseTranscription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Transcribe converts the audio file at path into a transcript.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (*driven.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("whisper: open audio file: %w", err)
	}
	defer f.Close()

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model:          openai.AudioModel(t.model),
		File:           f,
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: transcription failed: %w", err)
	}

	var verbose verboseTranscription
	if err := json.Unmarshal([]byte(resp.RawJSON()), &verbose); err != nil {
		return nil, fmt.Errorf("whisper: decode verbose response: %w", err)
	}
	if verbose.Text == "" {
		verbose.Text = resp.Text
	}
	if strings.TrimSpace(verbose.Text) == "" {
		return nil, fmt.Errorf("whisper: empty transcript for %s", path)
	}

	return &driven.Transcript{
		Text:     verbose.Text,
		Language: normalizeLanguage(verbose.Language),
		Duration: time.Duration(verbose.Duration * float64(time.Second)),
	}, nil
}

// ModelName returns the name of the transcription model being used.
func (t *Transcriber) ModelName() string {
	return t.model
}

// normalizeLanguage maps the API's language field to a supported ISO
// 639-1 code, falling back to English.
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if code, ok := languageNames[lang]; ok {
		return code
	}
	if supportedLanguages[lang] {
		return lang
	}
	return FallbackLanguage
}
