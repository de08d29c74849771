// Package store manages the directory of generated audio artifacts: the
// naming convention, optional transcoding, streaming, and age-based
// eviction.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/piper-web/internal/core"
)

// artifactPrefix is the fixed prefix of every generated artifact name.
// The remainder of the name is a random token, never user input, so
// concurrent writers need no locking and crafted names cannot collide
// with or overwrite existing artifacts.
const artifactPrefix = "speech_"

// StreamChunkSize is the size of each chunk produced when streaming an
// artifact, so playback never requires loading a whole file into memory.
const StreamChunkSize = 1024

const dirPermissions = 0o750

// Transcoder codec arguments per target format.
const (
	codecMP3 = "libmp3lame"
	codecOGG = "libvorbis"
)

// Store owns the output directory of generated audio artifacts. Artifacts
// belong to the store from creation until eviction or explicit
// consumption by a download.
type Store struct {
	dir    string
	ffmpeg string
	log    *logger.Logger
}

// New creates a store over the given output directory, creating it if
// needed. The ffmpeg path may point at a missing binary; transcoding is
// then reported unavailable and Transcode fails with ErrTranscodeFailed.
func New(dir, ffmpegPath string, log *logger.Logger) (*Store, error) {
	mkdirErr := os.MkdirAll(dir, dirPermissions)
	if mkdirErr != nil {
		return nil, fmt.Errorf("failed to create audio output directory %s: %w", dir, mkdirErr)
	}

	return &Store{
		dir:    dir,
		ffmpeg: ffmpegPath,
		log:    log,
	}, nil
}

// Dir returns the output directory the store owns.
func (s *Store) Dir() string {
	return s.dir
}

// TranscodeAvailable reports whether the transcoder binary exists. It is
// probed once at startup to build the capability descriptor.
func (s *Store) TranscodeAvailable() bool {
	if s.ffmpeg == "" {
		return false
	}

	_, statErr := os.Stat(s.ffmpeg)

	return statErr == nil
}

// NewArtifactPath returns a fresh collision-free path for an artifact of
// the given format, under the store's directory.
func (s *Store) NewArtifactPath(format core.Format) string {
	name := artifactPrefix + uuid.NewString() + format.Extension()

	return filepath.Join(s.dir, name)
}

// Resolve maps an artifact filename from an untrusted caller to its path
// inside the output directory. The name is reduced to its base component
// so traversal sequences cannot escape the directory. It returns
// core.ErrArtifactNotFound if the file is gone.
func (s *Store) Resolve(filename string) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(filename))

	_, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return "", fmt.Errorf("%w: %s", core.ErrArtifactNotFound, filename)
		}

		return "", fmt.Errorf("failed to check artifact %s: %w", filename, statErr)
	}

	return path, nil
}

// Stream opens an artifact for sequential reading in fixed-size chunks.
// Each call restarts from the beginning of the file. The caller owns the
// returned reader and must close it.
func (s *Store) Stream(filename string) (io.ReadCloser, error) {
	path, resolveErr := s.Resolve(filename)
	if resolveErr != nil {
		return nil, resolveErr
	}

	file, openErr := os.Open(path)
	if openErr != nil {
		if os.IsNotExist(openErr) {
			// Evicted between the existence check and the open.
			return nil, fmt.Errorf("%w: %s", core.ErrArtifactNotFound, filename)
		}

		return nil, fmt.Errorf("failed to open artifact %s: %w", filename, openErr)
	}

	return &chunkReader{file: file}, nil
}

// Transcode converts an artifact to the target format with the external
// transcoder. On success the original file is deleted and the new
// artifact takes over the logical identity. On failure the original is
// left intact and core.ErrTranscodeFailed is returned; the caller decides
// whether to serve the untranscoded artifact or surface the error.
func (s *Store) Transcode(
	ctx context.Context,
	artifact core.AudioArtifact,
	target core.Format,
) (core.AudioArtifact, error) {
	if target == artifact.Format {
		return artifact, nil
	}

	codec, codecErr := codecFor(target)
	if codecErr != nil {
		return core.AudioArtifact{}, codecErr
	}

	if !s.TranscodeAvailable() {
		return core.AudioArtifact{}, fmt.Errorf("%w: transcoder binary not found at %s",
			core.ErrTranscodeFailed, s.ffmpeg)
	}

	outputPath := replaceExtension(artifact.Path, target.Extension())

	args := []string{
		"-i", artifact.Path,
		"-codec:a", codec,
		"-qscale:a", "2",
		outputPath,
	}

	var stderr bytes.Buffer

	// #nosec G204 -- the binary path comes from configuration and both
	// file paths are store-generated, never user input.
	cmd := exec.CommandContext(ctx, s.ffmpeg, args...)
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		// Drop any partial output; the original stays untouched.
		s.removeQuietly(outputPath)

		return core.AudioArtifact{}, fmt.Errorf("%w: %s: %s",
			core.ErrTranscodeFailed, runErr, stderr.String())
	}

	// The original may already be gone if the janitor swept during the
	// conversion; that is a non-fatal outcome of both operations.
	s.removeQuietly(artifact.Path)

	return core.AudioArtifact{
		Path:      outputPath,
		Format:    target,
		CreatedAt: time.Now(),
	}, nil
}

// EvictOlderThan deletes every regular file in the output directory whose
// modification time precedes now minus maxAge, and returns the number
// deleted. Individual deletion failures are logged and skipped; they do
// not abort the sweep.
func (s *Store) EvictOlderThan(maxAge time.Duration) (int, error) {
	entries, readErr := os.ReadDir(s.dir)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to read audio output directory %s: %w", s.dir, readErr)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			// Already gone; another sweep or a transcode got there first.
			continue
		}

		if !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())

		removeErr := os.Remove(path)
		if removeErr != nil {
			if !os.IsNotExist(removeErr) {
				s.log.Warn("Could not remove old artifact %s: %v", path, removeErr)
			}

			continue
		}

		removed++
	}

	return removed, nil
}

// removeQuietly deletes a file, treating "already gone" as success and
// logging any other failure without escalating it.
func (s *Store) removeQuietly(path string) {
	removeErr := os.Remove(path)
	if removeErr != nil && !os.IsNotExist(removeErr) {
		s.log.Warn("Failed to remove artifact %s: %v", path, removeErr)
	}
}

func codecFor(target core.Format) (string, error) {
	switch target {
	case core.FormatMP3:
		return codecMP3, nil
	case core.FormatOGG:
		return codecOGG, nil
	case core.FormatWAV:
		return "", fmt.Errorf("%w: wav is the source format", core.ErrTranscodeFailed)
	default:
		return "", fmt.Errorf("%w: unsupported target format %q", core.ErrTranscodeFailed, target)
	}
}

func replaceExtension(path, newExt string) string {
	return path[:len(path)-len(filepath.Ext(path))] + newExt
}

// chunkReader reads an artifact file in fixed-size chunks regardless of
// the buffer the caller supplies.
type chunkReader struct {
	file *os.File
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(p) > StreamChunkSize {
		p = p[:StreamChunkSize]
	}

	n, err := r.file.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("failed to read artifact chunk: %w", err)
	}

	return n, err
}

func (r *chunkReader) Close() error {
	closeErr := r.file.Close()
	if closeErr != nil {
		return fmt.Errorf("failed to close artifact: %w", closeErr)
	}

	return nil
}
