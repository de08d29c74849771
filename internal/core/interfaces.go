// Package core defines the shared types and interfaces for the speech service.
package core

import (
	"context"
	"path/filepath"
	"time"
)

// Gender is the heuristically inferred gender of a voice model.
type Gender string

// Inferred gender values. Unknown is the fallback when the filename gives
// no hint either way.
const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderUnknown Gender = "Unknown"
)

// Format identifies a supported audio output format.
type Format string

// Supported audio artifact formats.
const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	FormatOGG Format = "ogg"
)

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Valid reports whether the format is one of the supported output formats.
func (f Format) Valid() bool {
	switch f {
	case FormatWAV, FormatMP3, FormatOGG:
		return true
	default:
		return false
	}
}

// VoiceDescriptor describes one installed voice model. Descriptors are
// built from a directory scan at request time and are never persisted.
type VoiceDescriptor struct {
	// ID is the filename of the model resource, unique within the
	// voice directory.
	ID string `json:"id"`

	// DisplayName is a human-readable name derived from the ID.
	DisplayName string `json:"name"`

	// Gender is inferred from the filename and is best-effort only.
	Gender Gender `json:"gender"`

	// Language of the voice. Defaults to English when the filename
	// carries no language hint.
	Language string `json:"language"`
}

// SynthesisRequest carries the parameters for one speech generation call.
// It exists only for the duration of that call.
type SynthesisRequest struct {
	Text    string  `json:"text"`
	VoiceID string  `json:"voice"`
	Speed   float64 `json:"speed"`
	Format  Format  `json:"output_format"`
}

// AudioArtifact references one generated audio file on disk. The output
// store owns the artifact until it is evicted or consumed by a download.
type AudioArtifact struct {
	Path      string
	Format    Format
	CreatedAt time.Time
}

// Filename returns the base name of the artifact file.
func (a AudioArtifact) Filename() string {
	return filepath.Base(a.Path)
}

// TranscriptionResult is the outcome of one speech-to-text call.
type TranscriptionResult struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Capabilities describes which optional collaborators were found at
// startup. It is resolved once and injected into the request orchestrator.
type Capabilities struct {
	STTAvailable       bool `json:"stt_available"`
	TranscodeAvailable bool `json:"transcode_available"`
}

// Synthesizer converts text and a voice selection into an audio artifact.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (AudioArtifact, error)
}

// VoiceResolver enumerates installed voices and resolves a voice ID to a
// concrete model path.
type VoiceResolver interface {
	List() ([]VoiceDescriptor, error)
	Resolve(voiceID string) (string, error)
}

// Transcoder converts an artifact to a different audio format.
type Transcoder interface {
	Transcode(ctx context.Context, artifact AudioArtifact, target Format) (AudioArtifact, error)
}

// Transcriber converts uploaded audio into text.
type Transcriber interface {
	TranscribeUpload(ctx context.Context, data []byte, extension string) (TranscriptionResult, error)
}
