package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"yashubustudio/wordcorr/wordcorr"
)

type runOptions struct {
	stdout   bool
	progress bool
	top      int
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Correlate a vocabulary slice against the reference dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runBatch(cmd.Context(), globalConfig, globalLogger, runOpts, cmd.OutOrStdout())
		return err
	},
}

func init() {
	flags := runCmd.Flags()
	flags.String("vectors", "", "Pretrained word2vec vector file (.bin, .txt, optionally .gz)")
	flags.String("format", "", "Vector file format (auto, binary, text)")
	flags.Int("limit", 0, "Load only the first N vectors (0 = all)")
	flags.String("candidates", "", "Optional word list replacing the vocabulary ordering")
	flags.String("reference", "", "Reference dataset CSV/TSV with word, low, med, high columns")
	flags.String("word-column", "", "Column name or #index of the reference word column")
	flags.String("mode", "", "Scoring mode (word, text)")
	flags.String("tokenizer", "", "tokenizer.json used in text mode (default: built-in)")
	flags.String("oov-policy", "", "Unknown similarity handling (zero, drop)")
	flags.Int("start", 0, "First vocabulary index (inclusive)")
	flags.Int("stop", 0, "Last vocabulary index (exclusive, 0 = end)")
	flags.Int("workers", 0, "Parallel workers (0 = number of CPUs)")
	flags.Int("progress-every", 0, "Log progress every N words")
	flags.StringP("output", "o", "", "Results file (default: cor_<start>_<stop>.csv)")
	flags.String("na-rep", "", "Text written for undefined correlations")
	flags.String("metrics", "", "Write prometheus metrics to this textfile after the run")
	flags.BoolVar(&runOpts.stdout, "stdout", false, "Print the strongest correlations to STDOUT")
	flags.BoolVar(&runOpts.progress, "progress", false, "Show a progress bar on STDERR")
	flags.IntVar(&runOpts.top, "top", 10, "Rows per column in the --stdout preview")

	bindFlag(runCmd, "vocabulary.path", "vectors")
	bindFlag(runCmd, "vocabulary.format", "format")
	bindFlag(runCmd, "vocabulary.limit", "limit")
	bindFlag(runCmd, "candidates.path", "candidates")
	bindFlag(runCmd, "reference.path", "reference")
	bindFlag(runCmd, "reference.word_column", "word-column")
	bindFlag(runCmd, "scoring.mode", "mode")
	bindFlag(runCmd, "scoring.tokenizer_path", "tokenizer")
	bindFlag(runCmd, "scoring.oov_policy", "oov-policy")
	bindFlag(runCmd, "run.start", "start")
	bindFlag(runCmd, "run.stop", "stop")
	bindFlag(runCmd, "run.workers", "workers")
	bindFlag(runCmd, "run.progress_every", "progress-every")
	bindFlag(runCmd, "output.path", "output")
	bindFlag(runCmd, "output.na_rep", "na-rep")
	bindFlag(runCmd, "metrics.path", "metrics")

	rootCmd.AddCommand(runCmd)
}

// runBatch executes one full run and returns the path of the written results.
func runBatch(ctx context.Context, cfg wordcorr.Config, logger logrus.FieldLogger, opts runOptions, stdout io.Writer) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("run_id", uuid.NewString())
	began := time.Now()

	model, err := wordcorr.LoadModel(cfg.Vocabulary.Path, wordcorr.LoadOptions{
		Format: cfg.Vocabulary.Format,
		Limit:  cfg.Vocabulary.Limit,
	})
	if err != nil {
		return "", fmt.Errorf("load vocabulary: %w", err)
	}
	log.WithFields(logrus.Fields{"words": model.Len(), "dim": model.Dim()}).Info("vocabulary loaded")

	ref, err := wordcorr.ReadReference(cfg.Reference.Path, cfg.Reference.Options())
	if err != nil {
		return "", fmt.Errorf("read reference: %w", err)
	}
	log.WithFields(logrus.Fields{"rows": ref.Len(), "word_column": ref.Columns.Word}).Info("reference loaded")

	idx, err := buildIndex(cfg.Scoring, model, ref)
	if err != nil {
		return "", err
	}

	var listing wordcorr.Listing = model
	if cfg.Candidates.Path != "" {
		words, err := wordcorr.ReadWordList(cfg.Candidates.Path)
		if err != nil {
			return "", fmt.Errorf("read candidates: %w", err)
		}
		listing = words
	}
	start, stop, err := wordcorr.ResolveSlice(cfg.Run, listing.Len())
	if err != nil {
		return "", err
	}

	metrics := wordcorr.NewMetrics()
	svc := wordcorr.NewService(cfg, log, metrics)
	if opts.progress {
		bar := progressbar.NewOptions(stop-start, progressbar.OptionSetWriter(os.Stderr))
		svc.OnProgress(func(int, int) { _ = bar.Add(1) })
	}
	results, err := svc.Run(ctx, listing, model, idx, start, stop)
	if err != nil {
		return "", err
	}

	outputPath, err := resolveOutputPath(cfg.Output.Path, start, stop)
	if err != nil {
		return "", err
	}
	// results are renamed into place only after the metrics textfile is written
	metrics.ObserveDuration(time.Since(began))
	if cfg.Metrics.Path != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Path); err != nil {
			return "", fmt.Errorf("write metrics: %w", err)
		}
	}
	if err := wordcorr.WriteResults(outputPath, results.Rows, wordcorr.WriteOptions{NARep: cfg.Output.NARep}); err != nil {
		return "", err
	}
	log.WithFields(logrus.Fields{"path": outputPath, "rows": len(results.Rows)}).Info("results written")

	if opts.stdout {
		printSummary(stdout, results, opts.top)
	}
	return outputPath, nil
}

func buildIndex(scoring wordcorr.ScoringConfig, model *wordcorr.Model, ref *wordcorr.Reference) (*wordcorr.ReferenceIndex, error) {
	var tok wordcorr.Tokenizer
	if scoring.Mode == wordcorr.ModeText {
		t, err := wordcorr.NewTokenizer(scoring.TokenizerPath)
		if err != nil {
			return nil, fmt.Errorf("init tokenizer: %w", err)
		}
		tok = t
	}
	scorer, err := wordcorr.NewScorer(model, scoring.Mode, tok)
	if err != nil {
		return nil, fmt.Errorf("init scorer: %w", err)
	}
	idx, err := wordcorr.NewReferenceIndex(ref, scorer)
	if err != nil {
		return nil, fmt.Errorf("index reference: %w", err)
	}
	return idx, nil
}

func resolveOutputPath(path string, start, stop int) (string, error) {
	if path == "" {
		path = fmt.Sprintf("cor_%d_%d.csv", start, stop)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	return absPath, nil
}

func printSummary(w io.Writer, results *wordcorr.Results, top int) {
	if top <= 0 {
		top = 10
	}
	fmt.Fprintf(w, "==== correlations [%d, %d) ====\n", results.Start, results.Stop)
	for _, col := range wordcorr.ScoreColumns {
		order := make([]int, 0, len(results.Rows))
		for i, row := range results.Rows {
			if !math.IsNaN(row.Get(col)) {
				order = append(order, i)
			}
		}
		sort.SliceStable(order, func(a, b int) bool {
			return math.Abs(results.Rows[order[a]].Get(col)) > math.Abs(results.Rows[order[b]].Get(col))
		})
		if len(order) > top {
			order = order[:top]
		}
		fmt.Fprintf(w, "%s_cor:\n", col)
		if len(order) == 0 {
			fmt.Fprintln(w, "    (all undefined)")
			continue
		}
		for _, i := range order {
			row := results.Rows[i]
			fmt.Fprintf(w, "    %-24s %8.4f\n", row.Word, row.Get(col))
		}
	}
}
