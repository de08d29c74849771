// Package server exposes the speech pipeline over HTTP.
//
// The orchestrator layer here is deliberately thin: it decodes requests,
// calls the core components, and serializes their tagged failure values
// into structured JSON responses. Policy decisions that the core leaves
// open, like serving an untranscoded artifact when conversion fails,
// live here.
package server

import (
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/book-expert/piper-web/internal/core"
	"github.com/book-expert/piper-web/internal/store"
)

// Rate limit for a single client IP.
const (
	rateLimitRequests = 60
	rateLimitWindow   = time.Minute
)

const defaultEvictionAge = time.Hour

// Server holds the collaborators the HTTP endpoints delegate to.
type Server struct {
	synthesizer  core.Synthesizer
	voices       core.VoiceResolver
	artifacts    *store.Store
	transcriber  core.Transcriber
	capabilities core.Capabilities
	engineProbe  func() bool
	log          *logger.Logger
}

// New creates a server. The transcriber may be nil when speech-to-text is
// unavailable; the capability descriptor must agree. The engine probe
// reports whether the synthesis binary is present, for health reporting.
func New(
	synthesizer core.Synthesizer,
	voices core.VoiceResolver,
	artifacts *store.Store,
	transcriber core.Transcriber,
	capabilities core.Capabilities,
	engineProbe func() bool,
	log *logger.Logger,
) *Server {
	return &Server{
		synthesizer:  synthesizer,
		voices:       voices,
		artifacts:    artifacts,
		transcriber:  transcriber,
		capabilities: capabilities,
		engineProbe:  engineProbe,
		log:          log,
	}
}

// Router builds the route table with the middleware stack.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))
	router.Use(httprate.LimitByIP(rateLimitRequests, rateLimitWindow))

	router.Get("/health", s.handleHealth)
	router.Get("/voices", s.handleVoices)
	router.Post("/setup", s.handleSetup)
	router.Post("/generate_speech", s.handleGenerateSpeech)
	router.Post("/preview_voice", s.handlePreviewVoice)
	router.Get("/generation_progress/{taskID}", s.handleGenerationProgress)
	router.Get("/download_audio/{filename}", s.handleDownloadAudio)
	router.Get("/stream_audio/{filename}", s.handleStreamAudio)
	router.Post("/cleanup", s.handleCleanup)
	router.Post("/transcribe", s.handleTranscribe)

	return router
}
