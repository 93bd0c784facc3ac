package wordcorr

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

type entry struct {
	word string
	vec  []float32
}

var fruitVocab = []entry{
	{"apple", []float32{1, 0}},
	{"banana", []float32{0.6, 0.8}},
	{"fruit", []float32{1, 0}},
	{"car", []float32{0, 1}},
}

func encodeBinary(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(entries), len(entries[0].vec))
	for _, e := range entries {
		buf.WriteString(e.word)
		buf.WriteByte(' ')
		for _, v := range e.vec {
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, math.Float32bits(v)))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func encodeText(entries []entry, header bool) []byte {
	var buf bytes.Buffer
	if header {
		fmt.Fprintf(&buf, "%d %d\n", len(entries), len(entries[0].vec))
	}
	for _, e := range entries {
		parts := []string{e.word}
		for _, v := range e.vec {
			parts = append(parts, fmt.Sprintf("%g", v))
		}
		buf.WriteString(strings.Join(parts, " "))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeGzip(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return writeFile(t, dir, name, buf.Bytes())
}

func modelOf(t *testing.T, entries []entry) *Model {
	t.Helper()
	m, err := ReadBinaryVectors(bufio.NewReader(bytes.NewReader(encodeBinary(t, entries))), 0)
	require.NoError(t, err)
	return m
}

func fruitReference(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, dir, "ref.csv", []byte("words,low,med,high\nfruit,1,2,3\ncar,4,5,6\n"))
}

func wordIndex(t *testing.T, model *Model, refPath string) *ReferenceIndex {
	t.Helper()
	ref, err := ReadReference(refPath, ReferenceOptions{})
	require.NoError(t, err)
	scorer, err := NewScorer(model, ModeWord, nil)
	require.NoError(t, err)
	idx, err := NewReferenceIndex(ref, scorer)
	require.NoError(t, err)
	return idx
}
