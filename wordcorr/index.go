package wordcorr

import (
	"errors"
	"fmt"
)

// ReferenceIndex holds the reference rows resolved against the vocabulary
// once per run. It is read-only after construction and safe for concurrent use.
type ReferenceIndex struct {
	words   []string
	vectors [][]float32
	norms   []float64
	scores  map[ScoreColumn][]float64
	oov     []string
}

// NewReferenceIndex resolves every reference row through scorer. Rows that do
// not resolve to a vocabulary word stay in the index with an unknown vector.
func NewReferenceIndex(ref *Reference, scorer *Scorer) (*ReferenceIndex, error) {
	if ref == nil || scorer == nil {
		return nil, errors.New("reference and scorer are required")
	}
	n := ref.Len()
	idx := &ReferenceIndex{
		words:   ref.Words(),
		vectors: make([][]float32, n),
		norms:   make([]float64, n),
		scores:  make(map[ScoreColumn][]float64, len(ScoreColumns)),
	}
	for _, col := range ScoreColumns {
		idx.scores[col] = ref.Scores(col)
	}
	for i, row := range ref.Rows {
		vec, ok, err := scorer.Vector(row.Word)
		if err != nil {
			return nil, fmt.Errorf("resolve reference row %d (%q): %w", i+1, row.Word, err)
		}
		if !ok {
			idx.oov = append(idx.oov, row.Word)
			continue
		}
		idx.vectors[i] = vec
		idx.norms[i] = vectorNorm(vec)
	}
	return idx, nil
}

// Size returns the number of reference rows.
func (idx *ReferenceIndex) Size() int { return len(idx.words) }

// OOVCount returns how many reference rows have no vector.
func (idx *ReferenceIndex) OOVCount() int { return len(idx.oov) }

// OOVWords returns the reference words that have no vector, in row order.
func (idx *ReferenceIndex) OOVWords() []string { return cloneStrings(idx.oov) }

// Scores returns one score column in row order. The slice must not be modified.
func (idx *ReferenceIndex) Scores(c ScoreColumn) []float64 { return idx.scores[c] }

// Similarities fills dst with the similarity of query to every reference row,
// aligned by row order. A nil query yields all unknown.
func (idx *ReferenceIndex) Similarities(query []float32, dst []Similarity) []Similarity {
	if cap(dst) < len(idx.words) {
		dst = make([]Similarity, len(idx.words))
	}
	dst = dst[:len(idx.words)]
	if query == nil {
		for i := range dst {
			dst[i] = Unknown()
		}
		return dst
	}
	qn := vectorNorm(query)
	for i, vec := range idx.vectors {
		if vec == nil {
			dst[i] = Unknown()
			continue
		}
		dst[i] = Score(cosineWithNorms(query, vec, qn, idx.norms[i]))
	}
	return dst
}
