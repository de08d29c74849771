// Package synth drives the external synthesis engine as a subprocess.
//
// The engine receives normalized text on its input stream and a voice
// model plus timing parameters on its command line, and writes one audio
// artifact per invocation. Every process outcome is mapped to a tagged
// failure value at this boundary; nothing escapes as an uncaught fault.
package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/piper-web/internal/core"
	"github.com/book-expert/piper-web/internal/store"
	"github.com/book-expert/piper-web/internal/text"
)

// DefaultBaseAdjustment compensates for the engine's perceived default
// pace. The effective length scale is (1 / speed) * base adjustment;
// higher values produce slower speech.
const DefaultBaseAdjustment = 1.1

// Engine command-line flags.
const (
	flagModel       = "--model"
	flagOutputFile  = "--output_file"
	flagLengthScale = "--length-scale"
)

const textFilePattern = "speech-input-*.txt"

// Engine invokes the synthesis binary for one request at a time. Calls
// are independent and stateless aside from the voice resolution cache, so
// concurrent calls may run distinct subprocesses in parallel.
type Engine struct {
	binary         string
	baseAdjustment float64
	timeout        time.Duration
	normalizer     *text.Normalizer
	voices         core.VoiceResolver
	artifacts      *store.Store
	log            *logger.Logger
	runner         Runner
}

// Options configures an Engine.
type Options struct {
	// Binary is the path to the synthesis engine executable.
	Binary string

	// BaseAdjustment is the fixed tuning constant folded into the
	// length scale. Zero selects DefaultBaseAdjustment.
	BaseAdjustment float64

	// Timeout bounds one engine invocation. The subprocess is killed
	// on expiry and the call fails with core.ErrEngineTimeout.
	Timeout time.Duration
}

// New creates an engine using the real subprocess runner.
func New(
	opts Options,
	voices core.VoiceResolver,
	artifacts *store.Store,
	log *logger.Logger,
) *Engine {
	return NewWithRunner(opts, voices, artifacts, log, &execRunner{})
}

// NewWithRunner creates an engine with a custom subprocess runner. This
// constructor is primarily for testing, allowing injection of a double
// while keeping the engine behavior identical.
func NewWithRunner(
	opts Options,
	voices core.VoiceResolver,
	artifacts *store.Store,
	log *logger.Logger,
	run Runner,
) *Engine {
	adjustment := opts.BaseAdjustment
	if adjustment == 0 {
		adjustment = DefaultBaseAdjustment
	}

	return &Engine{
		binary:         opts.Binary,
		baseAdjustment: adjustment,
		timeout:        opts.Timeout,
		normalizer:     text.NewNormalizer(),
		voices:         voices,
		artifacts:      artifacts,
		log:            log,
		runner:         run,
	}
}

// Available reports whether the engine binary exists at its configured
// location.
func (e *Engine) Available() bool {
	_, statErr := os.Stat(e.binary)

	return statErr == nil
}

// Synthesize converts the request into one audio artifact on disk.
// Ownership of the artifact transfers to the output store on return.
func (e *Engine) Synthesize(ctx context.Context, req core.SynthesisRequest) (core.AudioArtifact, error) {
	normalized := e.normalizer.Normalize(req.Text)
	if normalized == "" || req.VoiceID == "" {
		return core.AudioArtifact{}, core.ErrEmptyInput
	}

	voicePath, resolveErr := e.voices.Resolve(req.VoiceID)
	if resolveErr != nil {
		return core.AudioArtifact{}, resolveErr
	}

	if !e.Available() {
		return core.AudioArtifact{}, fmt.Errorf("%w: %s", core.ErrEngineMissing, e.binary)
	}

	if req.Speed <= 0 {
		return core.AudioArtifact{}, fmt.Errorf("%w: got %v", core.ErrInvalidSpeed, req.Speed)
	}

	lengthScale := (1.0 / req.Speed) * e.baseAdjustment
	outputPath := e.artifacts.NewArtifactPath(core.FormatWAV)

	runErr := e.runEngine(ctx, normalized, voicePath, outputPath, lengthScale)
	if runErr != nil {
		return core.AudioArtifact{}, runErr
	}

	// The engine can exit zero without writing anything; never hand a
	// missing artifact to the caller as a success.
	_, statErr := os.Stat(outputPath)
	if statErr != nil {
		return core.AudioArtifact{}, core.ErrNoOutputProduced
	}

	e.log.Info("Generated audio artifact %s for voice %s", outputPath, req.VoiceID)

	return core.AudioArtifact{
		Path:      outputPath,
		Format:    core.FormatWAV,
		CreatedAt: time.Now(),
	}, nil
}

// runEngine writes the transient text artifact, feeds it to the engine
// subprocess, and maps the process outcome. The text artifact is removed
// on every exit path.
func (e *Engine) runEngine(
	ctx context.Context,
	normalized, voicePath, outputPath string,
	lengthScale float64,
) error {
	textFile, tempErr := os.CreateTemp("", textFilePattern)
	if tempErr != nil {
		return fmt.Errorf("failed to create transient text artifact: %w", tempErr)
	}

	defer func() {
		removeErr := os.Remove(textFile.Name())
		if removeErr != nil && !os.IsNotExist(removeErr) {
			e.log.Warn("Failed to remove transient text artifact %s: %v", textFile.Name(), removeErr)
		}
	}()

	_, writeErr := textFile.WriteString(normalized)
	closeErr := textFile.Close()

	if writeErr != nil {
		return fmt.Errorf("failed to write transient text artifact: %w", writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close transient text artifact: %w", closeErr)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := []string{
		flagModel, voicePath,
		flagOutputFile, outputPath,
		flagLengthScale, strconv.FormatFloat(lengthScale, 'f', -1, 64),
	}

	runErr := e.runner.Run(ctx, e.binary, args, textFile.Name())
	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", core.ErrEngineTimeout, e.timeout)
		}

		return runErr
	}

	return nil
}
