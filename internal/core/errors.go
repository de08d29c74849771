package core

import (
	"errors"
	"fmt"
)

// Tagged failure values for the speech pipeline. Every component converts
// engine, process, and file faults into one of these at its boundary;
// nothing propagates to the orchestrator as an uncaught fault.
var (
	// ErrEmptyInput indicates the normalized text or the voice ID was empty.
	ErrEmptyInput = errors.New("nothing to synthesize: empty text or missing voice")
	// ErrVoiceNotFound indicates the requested voice model does not exist on disk.
	ErrVoiceNotFound = errors.New("voice not found")
	// ErrEngineMissing indicates the synthesis executable is absent at its configured location.
	ErrEngineMissing = errors.New("synthesis engine executable not found")
	// ErrInvalidSpeed indicates a speed of zero or below, which would fault the length scale.
	ErrInvalidSpeed = errors.New("speed must be greater than zero")
	// ErrNoOutputProduced indicates the engine exited cleanly but produced no output file.
	ErrNoOutputProduced = errors.New("engine produced no output file")
	// ErrEngineTimeout indicates the engine subprocess exceeded its bounded wait.
	ErrEngineTimeout = errors.New("synthesis engine timed out")
	// ErrTranscodeFailed indicates format conversion failed; the original artifact is intact.
	ErrTranscodeFailed = errors.New("audio transcoding failed")
	// ErrArtifactNotFound indicates a requested artifact is no longer in the output store.
	ErrArtifactNotFound = errors.New("audio artifact not found")
	// ErrSTTUnavailable indicates the transcription collaborator was not configured at startup.
	ErrSTTUnavailable = errors.New("speech-to-text is not available")
)

// EngineError carries the exit code and error stream of a failed engine
// subprocess. It wraps no sentinel; callers detect it with errors.As.
type EngineError struct {
	ExitCode int
	Stderr   string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("synthesis engine failed with exit code %d: %s", e.ExitCode, e.Stderr)
}
