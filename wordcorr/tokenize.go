package wordcorr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Tokenizer splits raw text into tokens.
type Tokenizer interface {
	Tokens(text string) ([]string, error)
}

// RegexTokenizer extracts word-like runs without case folding, since
// pretrained word2vec vocabularies are case sensitive.
type RegexTokenizer struct {
	pattern *regexp.Regexp
}

// NewRegexTokenizer returns the built-in tokenizer.
func NewRegexTokenizer() *RegexTokenizer {
	return &RegexTokenizer{
		pattern: regexp.MustCompile(`\p{L}[\p{L}\p{N}_'’-]*|\p{N}+(?:[.,]\p{N}+)*`),
	}
}

// Tokens returns the word-like runs of text in order.
func (t *RegexTokenizer) Tokens(text string) ([]string, error) {
	return t.pattern.FindAllString(text, -1), nil
}

// HFTokenizer wraps a HuggingFace tokenizer.json definition.
type HFTokenizer struct {
	tk *tokenizer.Tokenizer
}

// NewHFTokenizer loads a tokenizer.json file.
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return &HFTokenizer{tk: tk}, nil
}

// Tokens encodes text without special tokens and returns the surface tokens.
func (t *HFTokenizer) Tokens(text string) ([]string, error) {
	en, err := t.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", text, err)
	}
	return en.Tokens, nil
}

// NewTokenizer returns the HuggingFace tokenizer at path, or the built-in
// regex tokenizer when path is empty.
func NewTokenizer(path string) (Tokenizer, error) {
	if strings.TrimSpace(path) == "" {
		return NewRegexTokenizer(), nil
	}
	return NewHFTokenizer(path)
}

// FirstToken normalizes text and returns its first token, the single
// representative form used for vocabulary lookup.
func FirstToken(t Tokenizer, text string) (string, bool, error) {
	normalized := NormalizeText(text)
	if normalized == "" {
		return "", false, nil
	}
	tokens, err := t.Tokens(normalized)
	if err != nil {
		return "", false, err
	}
	for _, tok := range tokens {
		if tok = strings.TrimSpace(tok); tok != "" {
			return tok, true, nil
		}
	}
	return "", false, nil
}
