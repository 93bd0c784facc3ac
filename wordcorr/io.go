package wordcorr

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrEmptyFile is returned when an input file has no usable content.
	ErrEmptyFile = errors.New("empty file")
	// ErrMissingColumn is returned when a required reference column cannot be resolved.
	ErrMissingColumn = errors.New("missing column")
)

// OutputHeader is the header row of every results file.
var OutputHeader = []string{"words", "low_cor", "med_cor", "high_cor"}

// ReferenceOptions allows callers to choose which columns map to reference fields.
// Each value is a header name or a 1-based "#n" index; empty means auto-detect.
type ReferenceOptions struct {
	WordColumn string
	LowColumn  string
	MedColumn  string
	HighColumn string
	Candidates *ColumnCandidates
}

func (o ReferenceOptions) explicit(col ScoreColumn) string {
	switch col {
	case Low:
		return o.LowColumn
	case Med:
		return o.MedColumn
	default:
		return o.HighColumn
	}
}

func (o ReferenceOptions) candidates() ColumnCandidates {
	if o.Candidates == nil {
		return defaultColumnCandidates()
	}
	return o.Candidates.withDefaults()
}

// ReferenceColumns records the header names the reader resolved.
type ReferenceColumns struct {
	Word string
	Low  string
	Med  string
	High string
}

// Reference is the read-only target dataset of one run.
type Reference struct {
	Path    string
	Columns ReferenceColumns
	Rows    []ReferenceRow
}

// Len returns the number of rows.
func (r *Reference) Len() int { return len(r.Rows) }

// Words returns the word column in row order.
func (r *Reference) Words() []string {
	out := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Word
	}
	return out
}

// Scores returns one score column in row order.
func (r *Reference) Scores(c ScoreColumn) []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Score(c)
	}
	return out
}

// ReferenceMetadata provides header information and automatic column suggestions.
type ReferenceMetadata struct {
	Columns   []string
	Suggested ReferenceOptions
}

// ReadReference reads a CSV or TSV reference dataset. The first row must be a header.
func ReadReference(path string, opts ReferenceOptions) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	reader := newDelimitedReader(f, path)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrEmptyFile, filepath.Base(path))
	}
	header := cleanHeader(rows[0])
	resolved, err := resolveReferenceColumns(header, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	ref := &Reference{
		Path: path,
		Columns: resolved.names(),
		Rows: make([]ReferenceRow, 0, len(rows)-1),
	}
	for i, row := range rows[1:] {
		line := i + 2
		rec := ReferenceRow{Word: cellAt(row, resolved.word.index)}
		for _, col := range ScoreColumns {
			c := resolved.scores[col]
			v, err := parseScore(cellAt(row, c.index))
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %q: %w", filepath.Base(path), line, c.name, err)
			}
			switch col {
			case Low:
				rec.Low = v
			case Med:
				rec.Med = v
			case High:
				rec.High = v
			}
		}
		ref.Rows = append(ref.Rows, rec)
	}
	return ref, nil
}

// ReadReferenceMetadata returns header information and automatic suggestions.
func ReadReferenceMetadata(path string) (ReferenceMetadata, error) {
	meta := ReferenceMetadata{}
	f, err := os.Open(path)
	if err != nil {
		return meta, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	reader := newDelimitedReader(f, path)
	row, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return meta, fmt.Errorf("%w: %s", ErrEmptyFile, filepath.Base(path))
		}
		return meta, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	header := cleanHeader(row)
	meta.Columns = header
	candidates := DefaultColumnCandidates()
	suggest := func(cands []string) string {
		if i := findColumn(header, cands); i >= 0 {
			return header[i]
		}
		return ""
	}
	meta.Suggested = ReferenceOptions{
		WordColumn: suggest(candidates.Word),
		LowColumn:  suggest(candidates.Low),
		MedColumn:  suggest(candidates.Med),
		HighColumn: suggest(candidates.High),
	}
	return meta, nil
}

// WriteOptions controls results serialization.
type WriteOptions struct {
	// NARep is written for undefined correlations.
	NARep string
}

// WriteResults writes the results table with exactly four columns and no
// index column. The file is written to a temporary name and renamed, so a
// failed write leaves no output behind.
func WriteResults(path string, rows []ResultRow, opts WriteOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	if err := writeResults(f, path, rows, opts); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close result file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename result file: %w", err)
	}
	return nil
}

func writeResults(w io.Writer, path string, rows []ResultRow, opts WriteOptions) error {
	writer := csv.NewWriter(w)
	writer.Comma = delimiterFor(path)
	if err := writer.Write(OutputHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(OutputHeader))
	for i, row := range rows {
		record[0] = row.Word
		record[1] = FormatFloat(row.LowCor, opts.NARep)
		record[2] = FormatFloat(row.MedCor, opts.NARep)
		record[3] = FormatFloat(row.HighCor, opts.NARep)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return nil
}

// FormatFloat renders v in its shortest round-trip form, or naRep for NaN.
func FormatFloat(v float64, naRep string) string {
	if math.IsNaN(v) {
		return naRep
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func newDelimitedReader(r io.Reader, path string) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = delimiterFor(path)
	reader.FieldsPerRecord = -1
	return reader
}

func delimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	default:
		return ','
	}
}

func parseScore(cell string) (float64, error) {
	if cell == "" {
		return 0, errors.New("missing value")
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", cell)
	}
	return v, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return cleanCell(row[idx])
}

func cleanHeader(row []string) []string {
	header := make([]string, len(row))
	for i, cell := range row {
		header[i] = cleanCell(cell)
	}
	return header
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func findColumn(header []string, candidates []string) int {
	for _, cand := range candidates {
		for i, col := range header {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}

// column is one resolved reference column. name is the header text, or the
// "#n" selector when the column was chosen by position.
type column struct {
	index int
	name  string
}

// columnSet is the layout of a reference header.
type columnSet struct {
	word   column
	scores [3]column
}

func (s columnSet) names() ReferenceColumns {
	return ReferenceColumns{
		Word: s.word.name,
		Low:  s.scores[Low].name,
		Med:  s.scores[Med].name,
		High: s.scores[High].name,
	}
}

// resolveReferenceColumns maps the word column and the three score columns
// onto header positions. Every role must land on a distinct column.
func resolveReferenceColumns(header []string, opts ReferenceOptions) (columnSet, error) {
	candidates := opts.candidates()
	var set columnSet
	word, err := locateColumn(header, "word", opts.WordColumn, candidates.Word)
	if err != nil {
		return set, err
	}
	set.word = word
	taken := map[int]string{word.index: "word"}
	for _, col := range ScoreColumns {
		c, err := locateColumn(header, col.String(), opts.explicit(col), candidates.forScore(col))
		if err != nil {
			return set, err
		}
		if other, dup := taken[c.index]; dup {
			return set, fmt.Errorf("%s column %q is also the %s column", col, c.name, other)
		}
		taken[c.index] = col.String()
		set.scores[col] = c
	}
	return set, nil
}

// locateColumn finds the column playing role. A selector is a header name
// (case-insensitive) or a 1-based "#n" position; without one the first
// candidate present in the header wins.
func locateColumn(header []string, role, selector string, candidates []string) (column, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		if i := findColumn(header, candidates); i >= 0 {
			return column{index: i, name: header[i]}, nil
		}
		return column{index: -1}, fmt.Errorf("%w: no %s column (tried %s) in header %v",
			ErrMissingColumn, role, strings.Join(candidates, ", "), header)
	}
	if i := findColumn(header, []string{selector}); i >= 0 {
		return column{index: i, name: header[i]}, nil
	}
	if !strings.HasPrefix(selector, "#") {
		return column{index: -1}, fmt.Errorf("%w: %s column %q not in header %v", ErrMissingColumn, role, selector, header)
	}
	pos, err := strconv.Atoi(strings.TrimSpace(selector[1:]))
	if err != nil || pos < 1 {
		return column{index: -1}, fmt.Errorf("%s column %q: positions are 1-based integers", role, selector)
	}
	if pos > len(header) {
		return column{index: -1}, fmt.Errorf("%s column %q is out of range: header has %d columns", role, selector, len(header))
	}
	return column{index: pos - 1, name: fmt.Sprintf("#%d", pos)}, nil
}
