// Package stt provides speech-to-text transcription through the Whisper
// API.
//
// The upload path mirrors the synthesis pipeline's temp-artifact
// discipline: the uploaded bytes become a transient scoped file that is
// removed on every exit path, and all API faults are converted to tagged
// failure values at this boundary.
package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/book-expert/logger"
	openai "github.com/sashabaranov/go-openai"

	"github.com/book-expert/piper-web/internal/core"
)

// DefaultModel is the transcription model used when the configuration
// leaves it unset.
const DefaultModel = openai.Whisper1

// ErrUnsupportedFormat indicates the upload's extension is not accepted
// by the transcription model.
var ErrUnsupportedFormat = errors.New("unsupported audio format for transcription")

// supportedExtensions lists the upload formats the Whisper API accepts.
var supportedExtensions = map[string]struct{}{
	"flac": {},
	"m4a":  {},
	"mp3":  {},
	"mp4":  {},
	"mpeg": {},
	"mpga": {},
	"ogg":  {},
	"wav":  {},
	"webm": {},
}

// Client transcribes audio uploads with the Whisper API.
type Client struct {
	api   *openai.Client
	model string
	log   *logger.Logger
}

// New creates a transcription client. The model falls back to
// DefaultModel when empty.
func New(apiKey, model string, log *logger.Logger) *Client {
	return NewWithBaseURL(apiKey, model, "", log)
}

// NewWithBaseURL creates a transcription client against a custom API
// endpoint. This constructor is primarily for testing against a local
// stand-in server.
func NewWithBaseURL(apiKey, model, baseURL string, log *logger.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: model,
		log:   log,
	}
}

// TranscribeUpload writes the uploaded audio to a transient file, sends
// it for transcription, and returns the recognized text with the
// detected language.
func (c *Client) TranscribeUpload(
	ctx context.Context,
	data []byte,
	extension string,
) (core.TranscriptionResult, error) {
	extension = strings.ToLower(strings.TrimPrefix(extension, "."))

	if _, supported := supportedExtensions[extension]; !supported {
		return core.TranscriptionResult{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, extension)
	}

	if len(data) == 0 {
		return core.TranscriptionResult{}, core.ErrEmptyInput
	}

	uploadFile, tempErr := os.CreateTemp("", "transcribe-upload-*."+extension)
	if tempErr != nil {
		return core.TranscriptionResult{}, fmt.Errorf("failed to create transient upload file: %w", tempErr)
	}

	defer func() {
		removeErr := os.Remove(uploadFile.Name())
		if removeErr != nil && !os.IsNotExist(removeErr) {
			c.log.Warn("Failed to remove transient upload file %s: %v", uploadFile.Name(), removeErr)
		}
	}()

	_, writeErr := uploadFile.Write(data)
	closeErr := uploadFile.Close()

	if writeErr != nil {
		return core.TranscriptionResult{}, fmt.Errorf("failed to write transient upload file: %w", writeErr)
	}

	if closeErr != nil {
		return core.TranscriptionResult{}, fmt.Errorf("failed to close transient upload file: %w", closeErr)
	}

	response, apiErr := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: uploadFile.Name(),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if apiErr != nil {
		return core.TranscriptionResult{}, fmt.Errorf("transcription request failed: %w", apiErr)
	}

	return core.TranscriptionResult{
		Text:     response.Text,
		Language: response.Language,
	}, nil
}
