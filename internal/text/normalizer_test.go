// Package text_test tests input normalization for speech synthesis.
package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/piper-web/internal/text"
)

func TestNormalize_MarkdownRemoval(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bold and italic keep inner content",
			input: "**Hello** *world*",
			want:  "Hello world.",
		},
		{
			name:  "inline code unwrapped",
			input: "run `piper` now",
			want:  "run piper now.",
		},
		{
			name:  "header marker stripped",
			input: "## Chapter One",
			want:  "Chapter One.",
		},
		{
			name:  "link keeps text",
			input: "see [the docs](https://example.com/docs) first",
			want:  "see the docs first.",
		},
		{
			name:  "raw url discarded",
			input: "visit https://example.com today",
			want:  "visit today.",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, normalizer.Normalize(testCase.input))
		})
	}
}

func TestNormalize_AbbreviationExpansion(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	got := normalizer.Normalize("Dr. Smith said **hello**")
	assert.Equal(t, "Doctor Smith said hello.", got)
}

func TestNormalize_DisallowedCharacters(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	got := normalizer.Normalize("great @ work & more #tags")
	assert.Equal(t, "great work more tags.", got)
}

func TestNormalize_WhitespaceCollapse(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	got := normalizer.Normalize("first line\nsecond\t  line")
	assert.Equal(t, "first line second line.", got)
}

func TestNormalize_TerminalPunctuation(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	assert.Equal(t, "no ending.", normalizer.Normalize("no ending"))
	assert.Equal(t, "already ended!", normalizer.Normalize("already ended!"))
	assert.Equal(t, "a question?", normalizer.Normalize("a question?"))
}

func TestNormalize_EmptyInput(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	assert.Empty(t, normalizer.Normalize(""))
	assert.Empty(t, normalizer.Normalize("   "))
	assert.Empty(t, normalizer.Normalize("\n\t\n"))
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	normalizer := text.NewNormalizer()

	inputs := []string{
		"**Hello** *world*",
		"Dr. Smith said **hello**",
		"plain sentence without ending",
		"spaced   out\ntext",
	}

	for _, input := range inputs {
		once := normalizer.Normalize(input)
		twice := normalizer.Normalize(once)
		assert.Equal(t, once, twice, "normalize must be idempotent for %q", input)
	}
}
