package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"yashubustudio/wordcorr/internal/logging"
	"yashubustudio/wordcorr/wordcorr"
)

var (
	cfgFile      string
	settings     = viper.New()
	globalConfig wordcorr.Config
	globalLogger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wordcorr",
	Short: "Correlate vocabulary similarity with reference word scores",
	Long: `wordcorr scores every word of a pretrained embedding vocabulary slice
against a reference dataset of target words and reports, per vocabulary word,
the Pearson correlation between those similarities and the dataset's
low, med and high score columns.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "init" {
			return nil
		}
		_ = godotenv.Load()
		if err := bindCommandFlags(cmd); err != nil {
			return err
		}

		cfg, err := wordcorr.LoadConfig(settings, cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		globalConfig = cfg
		globalLogger = logger
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to a YAML config file (default: ./wordcorr.yaml or ./config/wordcorr.yaml)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (text, json)")
	bindKey(flags, "log.level", "log-level")
	bindKey(flags, "log.format", "log-format")
}

const configKeyAnnotation = "wordcorr_config_key"

// bindKey tags a flag with the config key it overrides. Several commands may
// tag flags with the same key, so binding into viper is deferred until the
// executing command is known.
func bindKey(flags *pflag.FlagSet, key, name string) {
	if err := flags.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(fmt.Sprintf("annotate flag %s: %v", name, err))
	}
}

func bindFlag(cmd *cobra.Command, key, name string) {
	bindKey(cmd.Flags(), key, name)
}

func bindCommandFlags(cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || bindErr != nil {
			return
		}
		if err := settings.BindPFlag(keys[0], f); err != nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}
