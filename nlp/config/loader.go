package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "arnlp.yaml"

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Paths      PathsConfig      `yaml:"paths"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Train      TrainConfig      `yaml:"train"`
	Inference  InferenceConfig  `yaml:"inference"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // optional rotating JSON log
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// PathsConfig holds the directories the train stage uses for its file
// naming convention.
type PathsConfig struct {
	DataDir  string `yaml:"data_dir"`
	ModelDir string `yaml:"model_dir"`
}

type LedgerConfig struct {
	Path string `yaml:"path"` // empty disables the run ledger
}

type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

type PreprocessConfig struct {
	Tokenizer           string `yaml:"tokenizer"` // "uax29" or "regex"
	StripDiacritics     bool   `yaml:"strip_diacritics"`
	StripTatweel        bool   `yaml:"strip_tatweel"`
	NormalizeAlef       bool   `yaml:"normalize_alef"`
	NormalizeYeh        bool   `yaml:"normalize_yeh"`
	NormalizeTehMarbuta bool   `yaml:"normalize_teh_marbuta"`
	Lowercase           bool   `yaml:"lowercase"`
	SplitClitics        bool   `yaml:"split_clitics"`
	KeepPunctuation     bool   `yaml:"keep_punctuation"`
	MaxLineBytes        int    `yaml:"max_line_bytes"`
	CacheSize           int    `yaml:"cache_size"`
}

type TrainConfig struct {
	MaxIterations  int                  `yaml:"max_iterations"`
	Seed           int64                `yaml:"seed"`
	Classification ClassificationConfig `yaml:"classification"`
	NER            NERConfig            `yaml:"ner"`
	Summarization  SummarizationConfig  `yaml:"summarization"`
}

type ClassificationConfig struct {
	NgramMax      int  `yaml:"ngram_max"`
	Stem          bool `yaml:"stem"`
	DropStopwords bool `yaml:"drop_stopwords"`
}

type NERConfig struct {
	AffixLength int `yaml:"affix_length"`
}

type SummarizationConfig struct {
	OverlapThreshold float64 `yaml:"overlap_threshold"`
	MaxSentences     int     `yaml:"max_sentences"`
}

type InferenceConfig struct {
	OutputFormat string `yaml:"output_format"` // "text" or "jsonl"
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Paths: PathsConfig{
			DataDir:  "data",
			ModelDir: "models",
		},
		Ledger: LedgerConfig{
			Path: filepath.Join(".arnlp", "runs.db"),
		},
		Preprocess: PreprocessConfig{
			Tokenizer:       "uax29",
			StripDiacritics: true,
			StripTatweel:    true,
			NormalizeAlef:   true,
			Lowercase:       true,
			SplitClitics:    true,
			KeepPunctuation: true,
			MaxLineBytes:    1 << 20,
			CacheSize:       4096,
		},
		Train: TrainConfig{
			MaxIterations: 20,
			Seed:          1,
			Classification: ClassificationConfig{
				NgramMax: 2,
				Stem:     true,
			},
			NER: NERConfig{
				AffixLength: 3,
			},
			Summarization: SummarizationConfig{
				OverlapThreshold: 0.5,
				MaxSentences:     3,
			},
		},
		Inference: InferenceConfig{
			OutputFormat: "text",
		},
	}
}

// Load reads a YAML config file on top of the defaults, then applies .env and
// ARNLP_* environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Resolve picks the config the commands run with: the explicit path if given,
// then DefaultFile in the working directory, then the built-in defaults.
func Resolve(path string) (*Config, string, error) {
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		cfg, err := Load(DefaultFile)
		if err != nil {
			return nil, "", fmt.Errorf("loading %s: %w", DefaultFile, err)
		}
		return cfg, DefaultFile, nil
	}
	cfg := Default()
	cfg.ApplyEnv()
	return cfg, "", nil
}

// ApplyEnv loads a .env file if present and applies ARNLP_* overrides.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	c.Log.Level = getEnv("ARNLP_LOG_LEVEL", c.Log.Level)
	c.Log.File = expandTilde(getEnv("ARNLP_LOG_FILE", c.Log.File))
	c.Paths.DataDir = expandTilde(getEnv("ARNLP_DATA_DIR", c.Paths.DataDir))
	c.Paths.ModelDir = expandTilde(getEnv("ARNLP_MODEL_DIR", c.Paths.ModelDir))
	c.Ledger.Path = expandTilde(getEnvAllowEmpty("ARNLP_LEDGER_PATH", c.Ledger.Path))
	c.Metrics.TextfilePath = expandTilde(getEnv("ARNLP_METRICS_TEXTFILE", c.Metrics.TextfilePath))
	c.Train.MaxIterations = getEnvInt("ARNLP_MAX_ITERATIONS", c.Train.MaxIterations)
	c.Train.Seed = int64(getEnvInt("ARNLP_SEED", int(c.Train.Seed)))
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	switch c.Preprocess.Tokenizer {
	case "uax29", "regex":
	default:
		return fmt.Errorf("preprocess.tokenizer must be \"uax29\" or \"regex\", got %q", c.Preprocess.Tokenizer)
	}
	if c.Preprocess.MaxLineBytes <= 0 {
		return fmt.Errorf("preprocess.max_line_bytes must be > 0")
	}
	if c.Preprocess.CacheSize < 0 {
		return fmt.Errorf("preprocess.cache_size must be >= 0")
	}
	if c.Train.MaxIterations <= 0 {
		return fmt.Errorf("train.max_iterations must be > 0")
	}
	if c.Train.Classification.NgramMax < 1 {
		return fmt.Errorf("train.classification.ngram_max must be >= 1")
	}
	if c.Train.NER.AffixLength < 1 {
		return fmt.Errorf("train.ner.affix_length must be >= 1")
	}
	if t := c.Train.Summarization.OverlapThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("train.summarization.overlap_threshold must be in (0, 1], got %v", t)
	}
	if c.Train.Summarization.MaxSentences < 1 {
		return fmt.Errorf("train.summarization.max_sentences must be >= 1")
	}
	switch c.Inference.OutputFormat {
	case "text", "jsonl":
	default:
		return fmt.Errorf("inference.output_format must be \"text\" or \"jsonl\", got %q", c.Inference.OutputFormat)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty lets a variable that is set but empty clear a setting.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
