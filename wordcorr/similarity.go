package wordcorr

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Similarity is either a cosine similarity score or unknown, when the
// candidate has no vector.
type Similarity struct {
	Value float64
	Known bool
}

// Score returns a known similarity.
func Score(v float64) Similarity { return Similarity{Value: v, Known: true} }

// Unknown returns the no-signal similarity.
func Unknown() Similarity { return Similarity{} }

// Imputed returns the value, or 0 for an unknown similarity.
func (s Similarity) Imputed() float64 {
	if !s.Known {
		return 0
	}
	return s.Value
}

func (s Similarity) String() string {
	if !s.Known {
		return "unknown"
	}
	return fmt.Sprintf("%.6f", s.Value)
}

// Scorer computes the similarity between a candidate and a query vector.
// The model is always passed in explicitly.
type Scorer struct {
	model     Lookup
	mode      ScoringMode
	tokenizer Tokenizer
}

// NewScorer builds a scorer. Text mode without a tokenizer uses the
// built-in regex tokenizer.
func NewScorer(model Lookup, mode ScoringMode, tok Tokenizer) (*Scorer, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	switch mode {
	case "", ModeWord:
		mode = ModeWord
	case ModeText:
		if tok == nil {
			tok = NewRegexTokenizer()
		}
	default:
		return nil, fmt.Errorf("unknown scoring mode %q", mode)
	}
	return &Scorer{model: model, mode: mode, tokenizer: tok}, nil
}

// Mode returns the scoring mode.
func (s *Scorer) Mode() ScoringMode { return s.mode }

// Resolve maps a candidate to the token used for lookup.
func (s *Scorer) Resolve(candidate string) (string, bool, error) {
	if s.mode == ModeText {
		return FirstToken(s.tokenizer, candidate)
	}
	word := strings.TrimSpace(candidate)
	return word, word != "", nil
}

// Vector resolves a candidate to its embedding vector.
func (s *Scorer) Vector(candidate string) ([]float32, bool, error) {
	token, ok, err := s.Resolve(candidate)
	if err != nil || !ok {
		return nil, false, err
	}
	vec, ok := s.model.Lookup(token)
	return vec, ok, nil
}

// Score returns the cosine similarity between the candidate's vector and
// query, or Unknown when the candidate does not resolve to a vocabulary word.
func (s *Scorer) Score(candidate string, query []float32) Similarity {
	if query == nil {
		return Unknown()
	}
	vec, ok, err := s.Vector(candidate)
	if err != nil || !ok {
		return Unknown()
	}
	return Score(Cosine(query, vec))
}

// Cosine returns 1 - cosine distance of a and b, clamped to [-1, 1].
// A zero vector has similarity 0 to everything.
func Cosine(a, b []float32) float64 {
	return cosineWithNorms(a, b, vectorNorm(a), vectorNorm(b))
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	return math.Sqrt(sum)
}

func cosineWithNorms(a, b []float32, na, nb float64) float64 {
	if len(a) == 0 || len(b) == 0 || na == 0 || nb == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return clampUnit(dot / (na * nb))
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
