package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"yashubustudio/wordcorr/wordcorr"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with every default filled in",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "wordcorr.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := writeConfigTemplate(path, initForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

func writeConfigTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}
	cfg := wordcorr.DefaultConfig()
	cfg.Vocabulary.Path = "GoogleNews-vectors-negative300.bin.gz"
	cfg.Reference.Path = "word_topic_deflections.csv"
	return wordcorr.SaveConfig(path, cfg)
}
