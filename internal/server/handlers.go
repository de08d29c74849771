package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/book-expert/piper-web/internal/core"
)

// voicePrefix is the legacy voice selector prefix the front-end sends.
// It is accepted and stripped for compatibility.
const voicePrefix = "piper:"

const (
	welcomeMessage    = "Hello! I'm ready to provide high-quality speech synthesis."
	defaultSampleText = "Hello! This is how I sound."
)

// estimatedSecondsPerChar feeds the progress hint in synthesis responses.
// It is a rough placeholder with no empirical basis, kept because the
// response field is part of the front-end contract.
const estimatedSecondsPerChar = 0.01

const maxUploadBytes = 32 << 20

// synthesisPayload is the request body shared by /setup, /preview_voice,
// and /generate_speech.
type synthesisPayload struct {
	Text         string  `json:"text"`
	Voice        string  `json:"voice"`
	VoiceID      string  `json:"voice_id"`
	SampleText   string  `json:"sample_text"`
	Speed        float64 `json:"speed"`
	OutputFormat string  `json:"output_format"`
}

func (p *synthesisPayload) voiceID() string {
	voice := p.Voice
	if voice == "" {
		voice = p.VoiceID
	}

	return strings.TrimPrefix(voice, voicePrefix)
}

func (p *synthesisPayload) speedOrDefault() float64 {
	if p.Speed == 0 {
		return 1.0
	}

	return p.Speed
}

func decodePayload(r *http.Request, into any) error {
	decodeErr := json.NewDecoder(r.Body).Decode(into)
	if decodeErr != nil {
		return fmt.Errorf("%w: invalid request body", errBadRequest)
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	voices, listErr := s.voices.List()
	if listErr != nil {
		s.log.Warn("Voice listing failed during health check: %v", listErr)
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"engine_available":    s.engineProbe(),
		"voices_count":        len(voices),
		"stt_available":       s.capabilities.STTAvailable,
		"transcode_available": s.capabilities.TranscodeAvailable,
	})
}

func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	voices, listErr := s.voices.List()
	if listErr != nil {
		s.respondFailure(w, listErr)

		return
	}

	if voices == nil {
		voices = []core.VoiceDescriptor{}
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"voices":  voices,
	})
}

// handleSetup validates a voice selection by synthesizing a fixed welcome
// message with it.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var payload synthesisPayload

	decodeErr := decodePayload(r, &payload)
	if decodeErr != nil {
		s.respondFailure(w, decodeErr)

		return
	}

	speed := payload.speedOrDefault()

	artifact, synthErr := s.synthesizer.Synthesize(r.Context(), core.SynthesisRequest{
		Text:    welcomeMessage,
		VoiceID: payload.voiceID(),
		Speed:   speed,
		Format:  core.FormatWAV,
	})
	if synthErr != nil {
		s.respondFailure(w, synthErr)

		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"voice":     payload.Voice,
		"speed":     speed,
		"message":   welcomeMessage,
		"audioPath": s.audioPath(artifact),
	})
}

func (s *Server) handleGenerateSpeech(w http.ResponseWriter, r *http.Request) {
	var payload synthesisPayload

	decodeErr := decodePayload(r, &payload)
	if decodeErr != nil {
		s.respondFailure(w, decodeErr)

		return
	}

	format := core.FormatWAV
	if payload.OutputFormat != "" {
		format = core.Format(payload.OutputFormat)
		if !format.Valid() {
			s.respondFailure(w, fmt.Errorf("%w: unsupported output format %q",
				errBadRequest, payload.OutputFormat))

			return
		}
	}

	artifact, synthErr := s.synthesizer.Synthesize(r.Context(), core.SynthesisRequest{
		Text:    payload.Text,
		VoiceID: payload.voiceID(),
		Speed:   payload.speedOrDefault(),
		Format:  format,
	})
	if synthErr != nil {
		s.respondFailure(w, synthErr)

		return
	}

	// Transcoding degrades gracefully: when conversion fails, the WAV
	// artifact is served instead of failing the whole request.
	if format != core.FormatWAV {
		converted, transcodeErr := s.artifacts.Transcode(r.Context(), artifact, format)
		if transcodeErr != nil {
			s.log.Warn("Could not convert artifact to %s, serving WAV: %v", format, transcodeErr)
		} else {
			artifact = converted
		}
	}

	characterCount := len(payload.Text)

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"audioPath":      s.audioPath(artifact),
		"taskId":         uuid.NewString(),
		"estimatedTime":  float64(characterCount) * estimatedSecondsPerChar,
		"characterCount": characterCount,
	})
}

// handlePreviewVoice synthesizes a short sample at normal speed.
func (s *Server) handlePreviewVoice(w http.ResponseWriter, r *http.Request) {
	var payload synthesisPayload

	decodeErr := decodePayload(r, &payload)
	if decodeErr != nil {
		s.respondFailure(w, decodeErr)

		return
	}

	sampleText := payload.SampleText
	if sampleText == "" {
		sampleText = defaultSampleText
	}

	artifact, synthErr := s.synthesizer.Synthesize(r.Context(), core.SynthesisRequest{
		Text:    sampleText,
		VoiceID: payload.voiceID(),
		Speed:   1.0,
		Format:  core.FormatWAV,
	})
	if synthErr != nil {
		s.respondFailure(w, synthErr)

		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"audioPath": s.audioPath(artifact),
	})
}

// handleGenerationProgress always reports completion; the engine is fast
// enough that the server never observes an in-flight task after the
// synthesis response has been sent.
func (s *Server) handleGenerationProgress(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"progress": 100,
		"status":   "complete",
		"message":  "Speech generation complete",
	})
}

func (s *Server) handleDownloadAudio(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, resolveErr := s.artifacts.Resolve(filename)
	if resolveErr != nil {
		s.respondFailure(w, resolveErr)

		return
	}

	downloadName := r.URL.Query().Get("download_name")
	if downloadName == "" {
		downloadName = filepath.Base(path)
	}

	w.Header().Set("Content-Type", mimeTypeFor(path))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(downloadName)))

	http.ServeFile(w, r, path)
}

func (s *Server) handleStreamAudio(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	reader, streamErr := s.artifacts.Stream(filename)
	if streamErr != nil {
		s.respondFailure(w, streamErr)

		return
	}

	defer func() {
		closeErr := reader.Close()
		if closeErr != nil {
			s.log.Warn("Failed to close artifact stream: %v", closeErr)
		}
	}()

	w.Header().Set("Content-Type", mimeTypeFor(filename))

	_, copyErr := io.Copy(w, reader)
	if copyErr != nil {
		// The response is already underway; all that is left is to log.
		s.log.Warn("Artifact streaming interrupted for %s: %v", filename, copyErr)
	}
}

func (s *Server) handleCleanup(w http.ResponseWriter, _ *http.Request) {
	removed, evictErr := s.artifacts.EvictOlderThan(defaultEvictionAge)
	if evictErr != nil {
		s.respondFailure(w, evictErr)

		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"removed": removed,
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil || !s.capabilities.STTAvailable {
		s.respondFailure(w, core.ErrSTTUnavailable)

		return
	}

	parseErr := r.ParseMultipartForm(maxUploadBytes)
	if parseErr != nil {
		s.respondFailure(w, fmt.Errorf("%w: invalid multipart upload", errBadRequest))

		return
	}

	file, header, formErr := r.FormFile("file")
	if formErr != nil {
		s.respondFailure(w, fmt.Errorf("%w: missing file field", errBadRequest))

		return
	}

	defer func() {
		_ = file.Close()
	}()

	data, readErr := io.ReadAll(file)
	if readErr != nil {
		s.respondFailure(w, fmt.Errorf("failed to read upload: %w", readErr))

		return
	}

	result, transcribeErr := s.transcriber.TranscribeUpload(
		r.Context(), data, filepath.Ext(header.Filename))
	if transcribeErr != nil {
		s.respondFailure(w, transcribeErr)

		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"text":     result.Text,
		"language": result.Language,
	})
}

// audioPath is the URL the front-end uses to fetch an artifact.
func (s *Server) audioPath(artifact core.AudioArtifact) string {
	return "/stream_audio/" + artifact.Filename()
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	default:
		return "audio/wav"
	}
}
