// Package config adapts internal/config.ContextConfig into the types
// pkg/contextapi's Catalog and budget ledger operate on.
package config

import (
	"github.com/ckoons/tekton-core/internal/config"
	"github.com/ckoons/tekton-core/pkg/contextapi"
)

// Thresholds converts a ContextConfig's fractional thresholds into a
// contextapi.Thresholds, falling back to spec defaults for any unset
// (zero) field.
func Thresholds(cfg config.ContextConfig) contextapi.Thresholds {
	defaults := contextapi.DefaultThresholds()
	t := contextapi.Thresholds{Soft: cfg.SoftThreshold, Sunset: cfg.SunsetThreshold, Hard: cfg.HardThreshold}
	if t.Soft == 0 {
		t.Soft = defaults.Soft
	}
	if t.Sunset == 0 {
		t.Sunset = defaults.Sunset
	}
	if t.Hard == 0 {
		t.Hard = defaults.Hard
	}
	return t
}

// NewTokenizer builds a contextapi.Tokenizer for model, falling back
// to the deployment's configured tokenizer encoding.
func NewTokenizer(cfg config.ContextConfig, model string) *contextapi.Tokenizer {
	fallback := cfg.TokenizerModel
	if fallback == "" {
		fallback = "cl100k_base"
	}
	if model == "" {
		model = fallback
	}
	return contextapi.NewTokenizer(model, fallback)
}

// NewCatalog builds a scoped Catalog wired to cfg's tokenizer.
func NewCatalog(cfg config.ContextConfig, scope, model string) *contextapi.Catalog {
	return contextapi.NewCatalog(scope, NewTokenizer(cfg, model))
}

// MaxInjectionTokens returns cfg's configured per-turn injection
// budget, falling back to the package default when unset.
func MaxInjectionTokens(cfg config.ContextConfig) int {
	if cfg.MaxInjectionTokens <= 0 {
		return contextapi.DefaultMaxInjectionTokens
	}
	return cfg.MaxInjectionTokens
}

// HardLimitTokens returns cfg's configured per-CI/model token ceiling,
// falling back to a generic 100k-token context window when unset.
func HardLimitTokens(cfg config.ContextConfig) int {
	if cfg.HardLimitTokens <= 0 {
		return 100000
	}
	return cfg.HardLimitTokens
}
