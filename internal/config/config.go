package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	SegmenterEmbedding = "embedding"
	SegmenterLexical   = "lexical"

	EmbedProviderOllama = "ollama"
	EmbedProviderOpenAI = "openai"

	defaultThreshold     = 0.55
	defaultChunkWords    = 20
	defaultWorkers       = 4
	defaultStateDirLinux = ".local/state/podseg"
	defaultConfigDir     = ".config/podseg"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Grouping struct {
		PauseThresholdSec float64 `toml:"pause_threshold_sec"`
		MaxSpanSec        float64 `toml:"max_span_sec"`
	} `toml:"grouping"`

	Segmenter struct {
		Mode                string  `toml:"mode"` // embedding, lexical
		SimilarityThreshold float64 `toml:"similarity_threshold"`
		ChunkWords          int     `toml:"chunk_words"`
	} `toml:"segmenter"`

	Lexical struct {
		PseudoSentenceSize int `toml:"pseudo_sentence_size"`
		BlockSize          int `toml:"block_size"`
		SmoothingWidth     int `toml:"smoothing_width"`
		MinParagraphChars  int `toml:"min_paragraph_chars"`
	} `toml:"lexical"`

	Align struct {
		ExcerptChars int `toml:"excerpt_chars"`
	} `toml:"align"`

	Embedding struct {
		Provider   string  `toml:"provider"` // ollama, openai
		Model      string  `toml:"model"`
		BaseURL    string  `toml:"base_url"`
		APIKey     string  `toml:"api_key"`
		TimeoutSec float64 `toml:"timeout_sec"`
	} `toml:"embedding"`

	Batch struct {
		Workers int `toml:"workers"`
	} `toml:"batch"`

	ASR struct {
		ModelPath string `toml:"model_path"`
		Language  string `toml:"language"`
	} `toml:"asr"`

	Hook struct {
		Command    string            `toml:"command"`
		Args       string            `toml:"args"` // shell-style, split with shlex
		TimeoutSec float64           `toml:"timeout_sec"`
		Env        map[string]string `toml:"env"`
	} `toml:"hook"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir      string `toml:"state_dir"`
		LogPath       string `toml:"log_path"`
		ModelDir      string `toml:"model_dir"`
		TranscriptDir string `toml:"transcript_dir"`
		SegmentDir    string `toml:"segment_dir"`
		ConfigPath    string `toml:"-"`
	} `toml:"paths"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "podseg")
	}

	cfg := &Config{}

	cfg.Grouping.PauseThresholdSec = 0.8
	cfg.Grouping.MaxSpanSec = 10.0

	cfg.Segmenter.Mode = SegmenterEmbedding
	cfg.Segmenter.SimilarityThreshold = defaultThreshold
	cfg.Segmenter.ChunkWords = defaultChunkWords

	cfg.Lexical.PseudoSentenceSize = 20
	cfg.Lexical.BlockSize = 10
	cfg.Lexical.SmoothingWidth = 2
	cfg.Lexical.MinParagraphChars = 100

	cfg.Align.ExcerptChars = 20

	cfg.Embedding.Provider = EmbedProviderOllama
	cfg.Embedding.Model = "all-minilm"
	cfg.Embedding.TimeoutSec = 60

	cfg.Batch.Workers = defaultWorkers

	cfg.ASR.ModelPath = filepath.Join(stateDir, "models", "ggml-base.en.bin")
	cfg.ASR.Language = "en"

	cfg.Hook.TimeoutSec = 30
	cfg.Hook.Env = map[string]string{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.Stdout = true

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "podseg.log")
	cfg.Paths.ModelDir = filepath.Join(stateDir, "models")
	cfg.Paths.TranscriptDir = filepath.Join("data", "transcripts")
	cfg.Paths.SegmentDir = filepath.Join("data", "segments")

	return cfg, nil
}

// Load loads config from file, applying defaults, .env files and env overrides.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// first run: write the template so users have something to edit
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.Paths.ConfigPath = path

	loadDotEnv()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg *Config) error {
	switch cfg.Segmenter.Mode {
	case SegmenterEmbedding, SegmenterLexical:
	default:
		return fmt.Errorf("segmenter.mode must be %q or %q (got %q)", SegmenterEmbedding, SegmenterLexical, cfg.Segmenter.Mode)
	}
	if t := cfg.Segmenter.SimilarityThreshold; t < -1 || t > 1 {
		return fmt.Errorf("segmenter.similarity_threshold must be within [-1, 1] (got %v)", t)
	}
	switch cfg.Embedding.Provider {
	case EmbedProviderOllama, EmbedProviderOpenAI:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q (got %q)", EmbedProviderOllama, EmbedProviderOpenAI, cfg.Embedding.Provider)
	}
	positive := map[string]float64{
		"grouping.pause_threshold_sec": cfg.Grouping.PauseThresholdSec,
		"grouping.max_span_sec":        cfg.Grouping.MaxSpanSec,
		"segmenter.chunk_words":        float64(cfg.Segmenter.ChunkWords),
		"lexical.pseudo_sentence_size": float64(cfg.Lexical.PseudoSentenceSize),
		"lexical.block_size":           float64(cfg.Lexical.BlockSize),
		"lexical.min_paragraph_chars":  float64(cfg.Lexical.MinParagraphChars),
		"align.excerpt_chars":          float64(cfg.Align.ExcerptChars),
		"batch.workers":                float64(cfg.Batch.Workers),
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive (got %v)", name, v)
		}
	}
	if cfg.Lexical.SmoothingWidth < 0 {
		return fmt.Errorf("lexical.smoothing_width must not be negative (got %d)", cfg.Lexical.SmoothingWidth)
	}
	return nil
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// loadDotEnv reads PODSEG_ENV, ~/.podseg.env and ./.env when present.
// Variables already set in the environment win.
func loadDotEnv() {
	var files []string
	if p := strings.TrimSpace(os.Getenv("PODSEG_ENV")); p != "" {
		files = append(files, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".podseg.env"))
	}
	files = append(files, ".env")
	for _, f := range files {
		if fi, err := os.Stat(f); err != nil || fi.IsDir() {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PODSEG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PODSEG_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("PODSEG_SEGMENTER"); v != "" {
		cfg.Segmenter.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("PODSEG_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PODSEG_THRESHOLD: %w", err)
		}
		cfg.Segmenter.SimilarityThreshold = f
	}
	if v := os.Getenv("PODSEG_TRANSCRIPT_DIR"); v != "" {
		cfg.Paths.TranscriptDir = v
	}
	if v := os.Getenv("PODSEG_SEGMENT_DIR"); v != "" {
		cfg.Paths.SegmentDir = v
	}
	if v := os.Getenv("PODSEG_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PODSEG_WORKERS: %w", err)
		}
		cfg.Batch.Workers = n
	}
	if v := os.Getenv("PODSEG_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("PODSEG_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("PODSEG_EMBED_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = v
	}
	return nil
}
