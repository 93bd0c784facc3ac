package wordcorr

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrMalformedVectors is returned when a vector file cannot be parsed.
var ErrMalformedVectors = errors.New("malformed vector file")

const (
	// maxVectorDim bounds the per-entry read buffer taken from the header.
	maxVectorDim = 1 << 16
	// maxPreallocValues bounds the matrix capacity reserved from an
	// unverified header count; larger vocabularies grow by append.
	maxPreallocValues = 1 << 24
)

// LoadOptions controls how a vector file is read.
type LoadOptions struct {
	Format VectorFormat
	// Limit > 0 keeps only the first Limit entries.
	Limit int
}

// Model is an ordered embedding vocabulary backed by a single flat matrix.
// Word order is the order of the source file.
type Model struct {
	dim   int
	words []string
	index map[string]int
	data  []float32
}

// NewModel returns an empty model for vectors of the given dimension.
func NewModel(dim int) *Model {
	return &Model{dim: dim, index: make(map[string]int)}
}

func newModelWithCapacity(dim, capacity int) *Model {
	m := NewModel(dim)
	m.words = make([]string, 0, capacity)
	m.index = make(map[string]int, capacity)
	m.data = make([]float32, 0, capacity*dim)
	return m
}

// Add appends a word. A word that is already present keeps its first vector
// and Add reports false.
func (m *Model) Add(word string, vec []float32) (bool, error) {
	if len(vec) != m.dim {
		return false, fmt.Errorf("%w: %q has %d values, want %d", ErrMalformedVectors, word, len(vec), m.dim)
	}
	if _, ok := m.index[word]; ok {
		return false, nil
	}
	m.index[word] = len(m.words)
	m.words = append(m.words, word)
	m.data = append(m.data, vec...)
	return true, nil
}

// Len returns the number of words.
func (m *Model) Len() int { return len(m.words) }

// Dim returns the vector dimension.
func (m *Model) Dim() int { return m.dim }

// Word returns the word at position i.
func (m *Model) Word(i int) string { return m.words[i] }

// Index returns the position of word.
func (m *Model) Index(word string) (int, bool) {
	i, ok := m.index[word]
	return i, ok
}

// Vector returns the vector at position i. The slice aliases model storage
// and must not be modified.
func (m *Model) Vector(i int) []float32 {
	return m.data[i*m.dim : (i+1)*m.dim : (i+1)*m.dim]
}

// Lookup returns the vector of word.
func (m *Model) Lookup(word string) ([]float32, bool) {
	i, ok := m.index[word]
	if !ok {
		return nil, false
	}
	return m.Vector(i), true
}

// LoadModel reads a word2vec binary or text vector file, optionally gzip
// compressed (.gz).
func LoadModel(path string, opts LoadOptions) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	size := int64(-1)
	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
		size = info.Size()
	}
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", filepath.Base(path), err)
		}
		defer gz.Close()
		r = gz
		size = -1
		name = strings.TrimSuffix(name, ".gz")
	}

	format := opts.Format
	if format == "" || format == FormatAuto {
		format = FormatText
		if strings.HasSuffix(name, ".bin") {
			format = FormatBinary
		}
	}
	br := bufio.NewReaderSize(r, 1<<20)
	var m *Model
	switch format {
	case FormatBinary:
		m, err = readBinaryVectors(br, opts.Limit, size)
	case FormatText:
		m, err = ReadTextVectors(br, opts.Limit)
	default:
		return nil, fmt.Errorf("unknown vector format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// ReadBinaryVectors parses the word2vec binary layout: a "<count> <dim>"
// header line followed by count entries of a space-terminated word and dim
// little-endian float32 values.
func ReadBinaryVectors(r *bufio.Reader, limit int) (*Model, error) {
	return readBinaryVectors(r, limit, -1)
}

// readBinaryVectors checks the header against size, the byte length of the
// whole file, when size >= 0.
func readBinaryVectors(r *bufio.Reader, limit int, size int64) (*Model, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedVectors, err)
	}
	count, dim, ok := parseHeader(header)
	if !ok {
		return nil, fmt.Errorf("%w: bad header %q", ErrMalformedVectors, strings.TrimSpace(header))
	}
	if dim > maxVectorDim {
		return nil, fmt.Errorf("%w: dimension %d exceeds %d", ErrMalformedVectors, dim, maxVectorDim)
	}
	if limit > 0 && limit < count {
		count = limit
	}
	// each entry holds at least a one-byte word, its space and the vector
	if size >= 0 {
		need := int64(count) * int64(4*dim+2)
		if avail := size - int64(len(header)); need/int64(4*dim+2) != int64(count) || need > avail {
			return nil, fmt.Errorf("%w: header declares %d vectors of dimension %d but only %d bytes follow",
				ErrMalformedVectors, count, dim, avail)
		}
	}
	m := newModelWithCapacity(dim, min(count, maxPreallocValues/dim))
	buf := make([]byte, 4*dim)
	vec := make([]float32, dim)
	for i := 0; i < count; i++ {
		word, err := r.ReadString(' ')
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedVectors, i, err)
		}
		word = strings.TrimLeft(strings.TrimSuffix(word, " "), "\n")
		if word == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty word", ErrMalformedVectors, i)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: entry %d (%q) truncated: %v", ErrMalformedVectors, i, word, err)
		}
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4 : (j+1)*4]))
		}
		if _, err := m.Add(word, vec); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ReadTextVectors parses whitespace separated "word v1 ... vN" lines with an
// optional "<count> <dim>" header, covering both word2vec text and GloVe files.
func ReadTextVectors(r io.Reader, limit int) (*Model, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var m *Model
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if line == 1 && len(fields) == 2 {
			if _, dim, ok := parseHeader(sc.Text()); ok {
				m = NewModel(dim)
				continue
			}
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d has no vector", ErrMalformedVectors, line)
		}
		if m == nil {
			m = NewModel(len(fields) - 1)
		}
		if limit > 0 && m.Len() >= limit {
			break
		}
		vec := make([]float32, len(fields)-1)
		for i, val := range fields[1:] {
			f, err := strconv.ParseFloat(val, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedVectors, line, err)
			}
			vec[i] = float32(f)
		}
		if _, err := m.Add(fields[0], vec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan vectors: %w", err)
	}
	if m == nil || m.Len() == 0 {
		return nil, fmt.Errorf("%w: no vectors found", ErrMalformedVectors)
	}
	return m, nil
}

func parseHeader(line string) (count, dim int, ok bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, false
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 {
		return 0, 0, false
	}
	dim, err = strconv.Atoi(fields[1])
	if err != nil || dim <= 0 {
		return 0, 0, false
	}
	return count, dim, true
}

// WordList is an explicit ordered candidate listing.
type WordList []string

// Len returns the number of words.
func (l WordList) Len() int { return len(l) }

// Word returns the word at position i.
func (l WordList) Word(i int) string { return l[i] }

// ReadWordList reads one candidate word per line, skipping blank lines.
func ReadWordList(path string) (WordList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	var out WordList
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		word := cleanCell(sc.Text())
		if word == "" {
			continue
		}
		out = append(out, word)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan word list: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, filepath.Base(path))
	}
	return out, nil
}
