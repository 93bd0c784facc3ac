package wordcorr

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModelFormats(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		path string
		opts LoadOptions
	}{
		{"binary", writeFile(t, dir, "v.bin", encodeBinary(t, fruitVocab)), LoadOptions{}},
		{"binary gzip", writeGzip(t, dir, "v.bin.gz", encodeBinary(t, fruitVocab)), LoadOptions{}},
		{"text with header", writeFile(t, dir, "v.txt", encodeText(fruitVocab, true)), LoadOptions{}},
		{"glove text gzip", writeGzip(t, dir, "glove.txt.gz", encodeText(fruitVocab, false)), LoadOptions{}},
		{"forced binary", writeFile(t, dir, "vectors.dat", encodeBinary(t, fruitVocab)), LoadOptions{Format: FormatBinary}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := LoadModel(tc.path, tc.opts)
			require.NoError(t, err)
			require.Equal(t, len(fruitVocab), m.Len())
			assert.Equal(t, 2, m.Dim())
			for i, e := range fruitVocab {
				assert.Equal(t, e.word, m.Word(i))
				vec, ok := m.Lookup(e.word)
				require.True(t, ok)
				assert.InDeltaSlice(t, e.vec, vec, 1e-6)
			}
		})
	}
}

func TestLoadModelLimit(t *testing.T) {
	dir := t.TempDir()
	for _, path := range []string{
		writeFile(t, dir, "v.bin", encodeBinary(t, fruitVocab)),
		writeFile(t, dir, "v.txt", encodeText(fruitVocab, true)),
	} {
		m, err := LoadModel(path, LoadOptions{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, m.Len())
		_, ok := m.Lookup("fruit")
		assert.False(t, ok)
	}
}

func TestReadBinaryVectorsErrors(t *testing.T) {
	full := encodeBinary(t, fruitVocab)
	cases := map[string][]byte{
		"bad header": []byte("four two\n"),
		"truncated":  full[:len(full)-6],
		"no header":  nil,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadBinaryVectors(bufio.NewReader(bytes.NewReader(data)), 0)
			assert.ErrorIs(t, err, ErrMalformedVectors)
		})
	}
}

func TestReadBinaryVectorsInflatedHeader(t *testing.T) {
	cases := map[string]string{
		"huge count":     "4000000000000 300\nab",
		"huge dimension": "2 4000000000\nab",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadBinaryVectors(bufio.NewReader(strings.NewReader(data)), 0)
			assert.ErrorIs(t, err, ErrMalformedVectors)
		})
	}
}

func TestLoadModelRejectsCountBeyondFileSize(t *testing.T) {
	dir := t.TempDir()
	data := encodeBinary(t, fruitVocab)
	data = append([]byte("9000000 2"), data[bytes.IndexByte(data, '\n'):]...)
	path := writeFile(t, dir, "inflated.bin", data)

	_, err := LoadModel(path, LoadOptions{})
	require.ErrorIs(t, err, ErrMalformedVectors)
	assert.Contains(t, err.Error(), "header declares 9000000 vectors")

	m, err := LoadModel(path, LoadOptions{Limit: len(fruitVocab)})
	require.NoError(t, err)
	assert.Equal(t, len(fruitVocab), m.Len())
}

func TestReadTextVectorsErrors(t *testing.T) {
	_, err := ReadTextVectors(bytes.NewReader([]byte("apple 1 0\nbanana 1\n")), 0)
	assert.ErrorIs(t, err, ErrMalformedVectors)

	_, err = ReadTextVectors(bytes.NewReader([]byte("apple 1 x\n")), 0)
	assert.ErrorIs(t, err, ErrMalformedVectors)

	_, err = ReadTextVectors(bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, ErrMalformedVectors)
}

func TestModelAddKeepsFirstDuplicate(t *testing.T) {
	m := NewModel(2)
	added, err := m.Add("apple", []float32{1, 0})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = m.Add("apple", []float32{0, 1})
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, m.Len())
	vec, _ := m.Lookup("apple")
	assert.Equal(t, []float32{1, 0}, vec)

	_, err = m.Add("pear", []float32{1})
	assert.ErrorIs(t, err, ErrMalformedVectors)
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel("does-not-exist.bin", LoadOptions{})
	assert.Error(t, err)
}

func TestReadWordList(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "words.txt", []byte("\ufeffapple\n\n  banana \nzzzznotaword\n"))
	words, err := ReadWordList(path)
	require.NoError(t, err)
	assert.Equal(t, WordList{"apple", "banana", "zzzznotaword"}, words)
	assert.Equal(t, 3, words.Len())
	assert.Equal(t, "banana", words.Word(1))

	empty := writeFile(t, dir, "empty.txt", []byte("\n \n"))
	_, err = ReadWordList(empty)
	assert.ErrorIs(t, err, ErrEmptyFile)
}
