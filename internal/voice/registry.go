// Package voice resolves voice identifiers to installed model resources.
//
// The registry is backed by nothing but a directory of model files; the
// directory listing is the voice catalog, there is no separate metadata
// store. Display metadata is inferred from filenames and is best-effort
// labeling, not authoritative.
package voice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/book-expert/piper-web/internal/core"
)

// ModelExtension is the file extension identifying a voice model resource.
const ModelExtension = ".onnx"

// resolutionCacheSize bounds the voice resolution cache. Entries are
// evicted by recency once the capacity is reached.
const resolutionCacheSize = 32

const defaultLanguage = "English"

// Registry enumerates installed voices and resolves voice IDs to absolute
// model paths. Successful resolutions are cached for the lifetime of the
// process; a voice file deleted and re-added under the same name can be
// served from a stale entry. That staleness window is accepted in
// exchange for skipping repeated existence checks on hot voices.
type Registry struct {
	dir   string
	cache *lru.Cache[string, string]
}

// NewRegistry creates a registry over the given voice directory.
func NewRegistry(dir string) (*Registry, error) {
	cache, err := lru.New[string, string](resolutionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice resolution cache: %w", err)
	}

	return &Registry{
		dir:   dir,
		cache: cache,
	}, nil
}

// List scans the voice directory and returns a descriptor for every model
// file found. A missing directory yields an empty catalog, not an error.
func (r *Registry) List() ([]core.VoiceDescriptor, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read voice directory %s: %w", r.dir, err)
	}

	var voices []core.VoiceDescriptor

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ModelExtension) {
			continue
		}

		voices = append(voices, describeVoice(entry.Name()))
	}

	return voices, nil
}

// Resolve looks up a voice ID as a literal filename under the voice
// directory and returns the absolute model path. It returns
// core.ErrVoiceNotFound if no such file exists at resolution time.
func (r *Registry) Resolve(voiceID string) (string, error) {
	if voiceID == "" {
		return "", core.ErrVoiceNotFound
	}

	// The ID is a bare filename; strip any path components so a crafted
	// ID cannot escape the voice directory.
	voiceID = filepath.Base(voiceID)

	if cached, found := r.cache.Get(voiceID); found {
		return cached, nil
	}

	modelPath := filepath.Join(r.dir, voiceID)

	_, statErr := os.Stat(modelPath)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return "", fmt.Errorf("%w: %s", core.ErrVoiceNotFound, voiceID)
		}

		return "", fmt.Errorf("failed to check voice path %s: %w", modelPath, statErr)
	}

	absPath, absErr := filepath.Abs(modelPath)
	if absErr != nil {
		return "", fmt.Errorf("could not resolve absolute path for %q: %w", modelPath, absErr)
	}

	r.cache.Add(voiceID, absPath)

	return absPath, nil
}

// describeVoice derives display metadata from a model filename.
func describeVoice(filename string) core.VoiceDescriptor {
	name := strings.TrimSuffix(filename, ModelExtension)
	name = strings.ReplaceAll(name, "_", " ")
	name = titleCase(name)

	gender := core.GenderUnknown

	lowered := strings.ToLower(name)
	if strings.Contains(lowered, "female") {
		gender = core.GenderFemale
	} else if strings.Contains(lowered, "male") {
		gender = core.GenderMale
	}

	return core.VoiceDescriptor{
		ID:          filename,
		DisplayName: name,
		Gender:      gender,
		Language:    defaultLanguage,
	}
}

// titleCase capitalizes the first letter of every space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}

	return strings.Join(words, " ")
}
