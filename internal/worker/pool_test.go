// Package worker_test tests the synthesis worker pool.
package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/piper-web/internal/core"
	"github.com/book-expert/piper-web/internal/worker"
)

var errMockSynthesis = errors.New("mock synthesis error")

// mockSynthesizer counts concurrent calls to verify the pool bound.
type mockSynthesizer struct {
	delay      time.Duration
	shouldFail bool
	inFlight   atomic.Int32
	maxSeen    atomic.Int32
}

func (m *mockSynthesizer) Synthesize(_ context.Context, req core.SynthesisRequest) (core.AudioArtifact, error) {
	current := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	for {
		seen := m.maxSeen.Load()
		if current <= seen || m.maxSeen.CompareAndSwap(seen, current) {
			break
		}
	}

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if m.shouldFail {
		return core.AudioArtifact{}, errMockSynthesis
	}

	return core.AudioArtifact{
		Path:   "/audio/speech_" + req.VoiceID + ".wav",
		Format: core.FormatWAV,
	}, nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "worker-test.log")
	require.NoError(t, err)

	return log
}

func startPool(t *testing.T, synthesizer core.Synthesizer, workers int) *worker.Pool {
	t.Helper()

	pool := worker.NewPool(synthesizer, workers, newTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go pool.Run(ctx)

	return pool
}

func TestPool_SynthesizeDelegates(t *testing.T) {
	t.Parallel()

	pool := startPool(t, &mockSynthesizer{}, 2)

	artifact, err := pool.Synthesize(context.Background(), core.SynthesisRequest{
		Text:    "hello",
		VoiceID: "voice.onnx",
		Speed:   1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "/audio/speech_voice.onnx.wav", artifact.Path)
}

func TestPool_PropagatesFailure(t *testing.T) {
	t.Parallel()

	pool := startPool(t, &mockSynthesizer{shouldFail: true}, 2)

	_, err := pool.Synthesize(context.Background(), core.SynthesisRequest{
		Text:    "hello",
		VoiceID: "voice.onnx",
		Speed:   1.0,
	})
	require.ErrorIs(t, err, errMockSynthesis)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	mock := &mockSynthesizer{delay: 50 * time.Millisecond}
	pool := startPool(t, mock, 2)

	var waitGroup sync.WaitGroup

	for range 8 {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			_, _ = pool.Synthesize(context.Background(), core.SynthesisRequest{
				Text:    "hello",
				VoiceID: "voice.onnx",
				Speed:   1.0,
			})
		}()
	}

	waitGroup.Wait()

	assert.LessOrEqual(t, mock.maxSeen.Load(), int32(2))
}

func TestPool_CallerCancellation(t *testing.T) {
	t.Parallel()

	// A single busy worker forces the second submission to wait in the
	// queue, where cancellation must release it.
	mock := &mockSynthesizer{delay: 200 * time.Millisecond}
	pool := startPool(t, mock, 1)

	go func() {
		_, _ = pool.Synthesize(context.Background(), core.SynthesisRequest{
			Text: "hello", VoiceID: "voice.onnx", Speed: 1.0,
		})
	}()

	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := pool.Synthesize(ctx, core.SynthesisRequest{
		Text: "hello", VoiceID: "voice.onnx", Speed: 1.0,
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
