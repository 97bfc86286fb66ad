package contextapi

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer computes the token cost of content for a target model,
// used uniformly for Memory Item token cost, budget accounting, and
// packing: cost(content) = tokens(content).
type Tokenizer struct {
	model    string
	encoding *tiktoken.Tiktoken
}

// NewTokenizer resolves model to a tiktoken encoding. If model isn't
// recognized, it falls back to the configured fallbackEncoding (the
// ContextConfig.TokenizerModel default, "cl100k_base"). If neither
// resolves to a real encoding, Cost falls back to the deterministic
// word-count estimator — the only path a genuinely custom/local model
// name should hit.
func NewTokenizer(model, fallbackEncoding string) *Tokenizer {
	t := &Tokenizer{model: model}

	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		t.encoding = enc
		return t
	}
	if fallbackEncoding == "" {
		fallbackEncoding = "cl100k_base"
	}
	if enc, err := tiktoken.GetEncoding(fallbackEncoding); err == nil {
		t.encoding = enc
	}
	return t
}

// Cost returns the token count for content: the tiktoken encoding's
// token count when available, otherwise word_count × 1.3 rounded up.
func (t *Tokenizer) Cost(content string) int {
	if t.encoding != nil {
		return len(t.encoding.Encode(content, nil, nil))
	}
	return wordEstimate(content)
}

func wordEstimate(content string) int {
	words := strings.Fields(content)
	if len(words) == 0 {
		return 0
	}
	estimate := float64(len(words)) * 1.3
	return int(estimate + 0.999999) // round up
}
