package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"yashubustudio/wordcorr/wordcorr"
)

var scoreCmd = &cobra.Command{
	Use:   "score <word> <text>",
	Short: "Print the similarity of one reference text against one vocabulary word",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := globalConfig
		if cfg.Vocabulary.Path == "" {
			return fmt.Errorf("%w: vocabulary.path is required", wordcorr.ErrInvalidConfig)
		}
		model, err := wordcorr.LoadModel(cfg.Vocabulary.Path, wordcorr.LoadOptions{
			Format: cfg.Vocabulary.Format,
			Limit:  cfg.Vocabulary.Limit,
		})
		if err != nil {
			return fmt.Errorf("load vocabulary: %w", err)
		}
		return scorePair(cmd.OutOrStdout(), model, cfg.Scoring, args[0], args[1])
	},
}

func init() {
	scoreCmd.Flags().String("vectors", "", "Pretrained word2vec vector file")
	scoreCmd.Flags().String("mode", "", "Scoring mode (word, text)")
	scoreCmd.Flags().String("tokenizer", "", "tokenizer.json used in text mode")
	bindFlag(scoreCmd, "vocabulary.path", "vectors")
	bindFlag(scoreCmd, "scoring.mode", "mode")
	bindFlag(scoreCmd, "scoring.tokenizer_path", "tokenizer")
	rootCmd.AddCommand(scoreCmd)
}

func scorePair(w io.Writer, model *wordcorr.Model, scoring wordcorr.ScoringConfig, word, text string) error {
	var tok wordcorr.Tokenizer
	if scoring.Mode == wordcorr.ModeText {
		t, err := wordcorr.NewTokenizer(scoring.TokenizerPath)
		if err != nil {
			return fmt.Errorf("init tokenizer: %w", err)
		}
		tok = t
	}
	scorer, err := wordcorr.NewScorer(model, scoring.Mode, tok)
	if err != nil {
		return err
	}
	resolved, _, err := scorer.Resolve(text)
	if err != nil {
		return err
	}
	vec, ok := model.Lookup(word)
	if !ok {
		fmt.Fprintf(w, "%q is not in the vocabulary\n", word)
	}
	sim := scorer.Score(text, vec)
	fmt.Fprintf(w, "word=%s token=%s similarity=%s\n", word, orNone(resolved), sim)
	return nil
}
