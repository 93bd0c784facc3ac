package wordcorr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigName = "wordcorr"
	envPrefix         = "WORDCORR"
)

// ErrInvalidConfig is returned when a loaded configuration cannot drive a run.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfig reads configuration into v from the given path, or from
// wordcorr.yaml in the working directory or ./config when path is empty.
// A missing default file is not an error. Environment variables prefixed with
// WORDCORR_ and flags already bound to v take precedence over the file.
func LoadConfig(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("vocabulary.path", cfg.Vocabulary.Path)
	v.SetDefault("vocabulary.format", string(cfg.Vocabulary.Format))
	v.SetDefault("vocabulary.limit", cfg.Vocabulary.Limit)
	v.SetDefault("candidates.path", cfg.Candidates.Path)
	v.SetDefault("reference.path", cfg.Reference.Path)
	v.SetDefault("reference.word_column", cfg.Reference.WordColumn)
	v.SetDefault("reference.low_column", cfg.Reference.LowColumn)
	v.SetDefault("reference.med_column", cfg.Reference.MedColumn)
	v.SetDefault("reference.high_column", cfg.Reference.HighColumn)
	v.SetDefault("scoring.mode", string(cfg.Scoring.Mode))
	v.SetDefault("scoring.tokenizer_path", cfg.Scoring.TokenizerPath)
	v.SetDefault("scoring.oov_policy", string(cfg.Scoring.OOVPolicy))
	v.SetDefault("run.start", cfg.Run.Start)
	v.SetDefault("run.stop", cfg.Run.Stop)
	v.SetDefault("run.workers", cfg.Run.Workers)
	v.SetDefault("run.progress_every", cfg.Run.ProgressEvery)
	v.SetDefault("output.path", cfg.Output.Path)
	v.SetDefault("output.na_rep", cfg.Output.NARep)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

// Validate reports the first setting that prevents a run.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Vocabulary.Path) == "" {
		return fmt.Errorf("%w: vocabulary.path is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Reference.Path) == "" {
		return fmt.Errorf("%w: reference.path is required", ErrInvalidConfig)
	}
	switch c.Vocabulary.Format {
	case FormatAuto, FormatBinary, FormatText:
	default:
		return fmt.Errorf("%w: unknown vocabulary.format %q", ErrInvalidConfig, c.Vocabulary.Format)
	}
	switch c.Scoring.Mode {
	case ModeWord, ModeText:
	default:
		return fmt.Errorf("%w: unknown scoring.mode %q", ErrInvalidConfig, c.Scoring.Mode)
	}
	switch c.Scoring.OOVPolicy {
	case OOVZero, OOVDrop:
	default:
		return fmt.Errorf("%w: unknown scoring.oov_policy %q", ErrInvalidConfig, c.Scoring.OOVPolicy)
	}
	if c.Vocabulary.Limit < 0 {
		return fmt.Errorf("%w: vocabulary.limit must not be negative", ErrInvalidConfig)
	}
	if c.Run.Start < 0 {
		return fmt.Errorf("%w: run.start must not be negative", ErrInvalidConfig)
	}
	if c.Run.Stop > 0 && c.Run.Stop < c.Run.Start {
		return fmt.Errorf("%w: run.stop %d is before run.start %d", ErrInvalidConfig, c.Run.Stop, c.Run.Start)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("%w: run.workers must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SaveConfig writes cfg as YAML, replacing path atomically.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigName + ".yaml"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
