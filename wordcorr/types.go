package wordcorr

import "math"

// ScoringMode selects how a reference row is resolved to a vocabulary token.
type ScoringMode string

const (
	// ModeWord looks the reference word up verbatim.
	ModeWord ScoringMode = "word"
	// ModeText tokenizes the reference text and uses its first token.
	ModeText ScoringMode = "text"
)

// OOVPolicy decides how unknown similarities enter the correlation.
type OOVPolicy string

const (
	// OOVZero imputes 0 for unknown similarities and keeps the sample size.
	OOVZero OOVPolicy = "zero"
	// OOVDrop removes rows with an unknown similarity from the correlation input.
	OOVDrop OOVPolicy = "drop"
)

// VectorFormat names the on-disk layout of a pretrained vector file.
type VectorFormat string

const (
	FormatAuto   VectorFormat = "auto"
	FormatBinary VectorFormat = "binary"
	FormatText   VectorFormat = "text"
)

// ScoreColumn identifies one of the three reference score columns.
type ScoreColumn int

const (
	Low ScoreColumn = iota
	Med
	High
)

func (c ScoreColumn) String() string {
	switch c {
	case Low:
		return "low"
	case Med:
		return "med"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// ScoreColumns lists the score columns in output order.
var ScoreColumns = []ScoreColumn{Low, Med, High}

// ReferenceRow is one target word with its three scores.
type ReferenceRow struct {
	Word string  `json:"word"`
	Low  float64 `json:"low"`
	Med  float64 `json:"med"`
	High float64 `json:"high"`
}

// Score returns the value of the given column.
func (r ReferenceRow) Score(c ScoreColumn) float64 {
	switch c {
	case Low:
		return r.Low
	case Med:
		return r.Med
	default:
		return r.High
	}
}

// ResultRow holds the correlations computed for one vocabulary word.
// NaN marks an undefined correlation.
type ResultRow struct {
	Word    string  `json:"words"`
	LowCor  float64 `json:"low_cor"`
	MedCor  float64 `json:"med_cor"`
	HighCor float64 `json:"high_cor"`
}

// Set stores the correlation for the given column.
func (r *ResultRow) Set(c ScoreColumn, v float64) {
	switch c {
	case Low:
		r.LowCor = v
	case Med:
		r.MedCor = v
	default:
		r.HighCor = v
	}
}

// Get returns the correlation for the given column.
func (r ResultRow) Get(c ScoreColumn) float64 {
	switch c {
	case Low:
		return r.LowCor
	case Med:
		return r.MedCor
	default:
		return r.HighCor
	}
}

// Results is the table produced by one run over [Start, Stop).
type Results struct {
	Start int
	Stop  int
	Rows  []ResultRow
}

// Undefined counts NaN cells across all rows and columns.
func (r *Results) Undefined() int {
	n := 0
	for _, row := range r.Rows {
		for _, c := range ScoreColumns {
			if math.IsNaN(row.Get(c)) {
				n++
			}
		}
	}
	return n
}

// Listing is an ordered sequence of candidate words.
type Listing interface {
	Len() int
	Word(i int) string
}

// Lookup resolves a word to its embedding vector.
type Lookup interface {
	Lookup(word string) ([]float32, bool)
}

// VocabularyConfig locates the pretrained vector file.
type VocabularyConfig struct {
	Path   string       `mapstructure:"path" yaml:"path"`
	Format VectorFormat `mapstructure:"format" yaml:"format"`
	Limit  int          `mapstructure:"limit" yaml:"limit"`
}

// CandidatesConfig optionally replaces the vocabulary ordering with an explicit word list.
type CandidatesConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ReferenceConfig locates the reference dataset and its columns.
type ReferenceConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	WordColumn string `mapstructure:"word_column" yaml:"word_column"`
	LowColumn  string `mapstructure:"low_column" yaml:"low_column"`
	MedColumn  string `mapstructure:"med_column" yaml:"med_column"`
	HighColumn string `mapstructure:"high_column" yaml:"high_column"`
}

// Options converts the config into reader options.
func (c ReferenceConfig) Options() ReferenceOptions {
	return ReferenceOptions{
		WordColumn: c.WordColumn,
		LowColumn:  c.LowColumn,
		MedColumn:  c.MedColumn,
		HighColumn: c.HighColumn,
	}
}

// ScoringConfig controls the similarity scorer.
type ScoringConfig struct {
	Mode          ScoringMode `mapstructure:"mode" yaml:"mode"`
	TokenizerPath string      `mapstructure:"tokenizer_path" yaml:"tokenizer_path"`
	OOVPolicy     OOVPolicy   `mapstructure:"oov_policy" yaml:"oov_policy"`
}

// RunConfig selects the vocabulary slice and the execution shape.
// Stop <= 0 means the end of the listing.
type RunConfig struct {
	Start         int `mapstructure:"start" yaml:"start"`
	Stop          int `mapstructure:"stop" yaml:"stop"`
	Workers       int `mapstructure:"workers" yaml:"workers"`
	ProgressEvery int `mapstructure:"progress_every" yaml:"progress_every"`
}

// OutputConfig controls the results file.
type OutputConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	NARep string `mapstructure:"na_rep" yaml:"na_rep"`
}

// MetricsConfig enables the prometheus textfile written after a run.
type MetricsConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config aggregates runtime settings.
type Config struct {
	Vocabulary VocabularyConfig `mapstructure:"vocabulary" yaml:"vocabulary"`
	Candidates CandidatesConfig `mapstructure:"candidates" yaml:"candidates"`
	Reference  ReferenceConfig  `mapstructure:"reference" yaml:"reference"`
	Scoring    ScoringConfig    `mapstructure:"scoring" yaml:"scoring"`
	Run        RunConfig        `mapstructure:"run" yaml:"run"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// DefaultProgressEvery matches the reporting interval of the batch scripts.
const DefaultProgressEvery = 30000

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Vocabulary.Format == "" {
		c.Vocabulary.Format = FormatAuto
	}
	if c.Reference.LowColumn == "" {
		c.Reference.LowColumn = "low"
	}
	if c.Reference.MedColumn == "" {
		c.Reference.MedColumn = "med"
	}
	if c.Reference.HighColumn == "" {
		c.Reference.HighColumn = "high"
	}
	if c.Scoring.Mode == "" {
		c.Scoring.Mode = ModeWord
	}
	if c.Scoring.OOVPolicy == "" {
		c.Scoring.OOVPolicy = OOVZero
	}
	if c.Run.ProgressEvery == 0 {
		c.Run.ProgressEvery = DefaultProgressEvery
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
