package contextapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTokenizer_ResolvesFallbackEncodingWhenModelUnknown(t *testing.T) {
	tok := NewTokenizer("not-a-real-model", "cl100k_base")
	assert.NotNil(t, tok.encoding, "expected the configured fallback encoding to resolve")
}

func TestNewTokenizer_DefaultsFallbackToCl100kBase(t *testing.T) {
	tok := NewTokenizer("not-a-real-model", "")
	assert.NotNil(t, tok.encoding)
}

func TestCost_UsesEncodingWhenAvailable(t *testing.T) {
	tok := NewTokenizer("gpt-4", "cl100k_base")
	cost := tok.Cost("hello world")
	assert.Greater(t, cost, 0)
}

func TestCost_FallsBackToWordEstimateWithNoEncoding(t *testing.T) {
	tok := &Tokenizer{model: "custom", encoding: nil}
	cost := tok.Cost("one two three four")
	assert.Equal(t, wordEstimate("one two three four"), cost)
}

func TestWordEstimate_EmptyContent(t *testing.T) {
	assert.Equal(t, 0, wordEstimate(""))
}

func TestWordEstimate_RoundsUp(t *testing.T) {
	// 3 words * 1.3 = 3.9 -> rounds up to 4
	assert.Equal(t, 4, wordEstimate("one two three"))
}
