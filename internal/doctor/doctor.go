package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"podseg/internal/config"
	"podseg/internal/embed"
)

// Result represents a diagnostic check. Optional checks cover features that
// are not needed for segmentation, so a failure there is only a warning.
type Result struct {
	Name     string
	Pass     bool
	Optional bool
	Detail   string
}

// Run executes doctor checks.
func Run(ctx context.Context, cfg *config.Config) []Result {
	return []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkDir("transcripts", cfg.Paths.TranscriptDir),
		checkWritableDir("segments", cfg.Paths.SegmentDir),
		checkEmbedding(ctx, cfg),
		optional(checkFile("asr model", cfg.ASR.ModelPath)),
		checkHookExecutable(cfg.Hook.Command),
	}
}

func optional(r Result) Result {
	r.Optional = true
	return r
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkDir(label, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if !info.IsDir() {
		return Result{Name: label, Pass: false, Detail: path + " is not a directory"}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkWritableDir(label, path string) Result {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	f, err := os.CreateTemp(path, ".doctor-*")
	if err != nil {
		return Result{Name: label, Pass: false, Detail: "not writable: " + err.Error()}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	abs, _ := filepath.Abs(path)
	return Result{Name: label, Pass: true, Detail: abs}
}

func checkEmbedding(ctx context.Context, cfg *config.Config) Result {
	label := "embeddings"
	if cfg.Segmenter.Mode != config.SegmenterEmbedding {
		return Result{Name: label, Pass: true, Detail: "not used by segmenter " + cfg.Segmenter.Mode}
	}
	switch cfg.Embedding.Provider {
	case config.EmbedProviderOpenAI:
		if cfg.Embedding.APIKey == "" {
			return Result{Name: label, Pass: false, Detail: "openai provider needs OPENAI_API_KEY or embedding.api_key"}
		}
		return Result{Name: label, Pass: true, Detail: "openai key set"}
	case config.EmbedProviderOllama:
		o, err := embed.NewOllama(cfg.Embedding.BaseURL, cfg.Embedding.Model, 5*time.Second)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if err := o.Ping(ctx); err != nil {
			return Result{Name: label, Pass: false, Detail: fmt.Sprintf("ollama unreachable: %v", err)}
		}
		return Result{Name: label, Pass: true, Detail: "ollama " + o.ModelID()}
	default:
		return Result{Name: label, Pass: false, Detail: "unknown provider " + cfg.Embedding.Provider}
	}
}

func checkHookExecutable(cmd string) Result {
	label := "hook.command"
	if cmd == "" {
		return Result{Name: label, Pass: true, Optional: true, Detail: "not set (no downstream hook)"}
	}
	path := os.ExpandEnv(cmd)
	// If contains a path separator, treat as explicit path.
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; set hook.command to an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}
