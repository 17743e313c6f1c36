package control

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"podseg/internal/config"

	"github.com/spf13/cobra"
)

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// knownModels are whisper.cpp ggml files that produce usable word timestamps.
var knownModels = []string{
	"ggml-base.en.bin",
	"ggml-small.en.bin",
	"ggml-small-q5_1.bin",
	"ggml-medium-q5_1.bin",
	"ggml-large-v3-turbo-q8_0.bin",
}

func isKnownModel(name string) bool {
	for _, m := range knownModels {
		if m == name {
			return true
		}
	}
	return false
}

// NewModelsCmd groups the whisper model subcommands used by transcribe.
func NewModelsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List/download/set whisper models for transcribe",
	}
	cmd.AddCommand(newModelsListCmd(cfgPath))
	cmd.AddCommand(newModelsDownloadCmd(cfgPath))
	cmd.AddCommand(newModelsSetCmd(cfgPath))
	return cmd
}

func newModelsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known models and mark local and active ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			sizes := localModels(cfg.Paths.ModelDir)
			names := append([]string{}, knownModels...)
			for n := range sizes {
				if !isKnownModel(n) {
					names = append(names, n)
				}
			}
			sort.Strings(names)
			for _, n := range names {
				var tags []string
				if size, ok := sizes[n]; ok {
					tags = append(tags, fmt.Sprintf("(downloaded, %d MB)", size>>20))
				}
				if filepath.Join(cfg.Paths.ModelDir, n) == cfg.ASR.ModelPath {
					tags = append(tags, "(active)")
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace("- "+n+" "+strings.Join(tags, " ")))
			}
			return nil
		},
	}
}

// localModels maps *.bin files in dir to their size.
func localModels(dir string) map[string]int64 {
	out := map[string]int64{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bin") {
			continue
		}
		if info, err := e.Info(); err == nil {
			out[e.Name()] = info.Size()
		}
	}
	return out
}

func newModelsDownloadCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "download <model>",
		Short: "Download a known model into paths.model_dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			name := args[0]
			if !isKnownModel(name) {
				return fmt.Errorf("unknown model %q; run models list", name)
			}
			dest := filepath.Join(cfg.Paths.ModelDir, name)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "downloading %s -> %s\n", name, dest)
			n, err := download(cmd.Context(), modelBaseURL+name, dest)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "done (%d MB)\n", n>>20)
			return nil
		},
	}
}

// download streams url into dest via a .part file so an interrupted
// transfer never leaves a truncated model behind.
func download(ctx context.Context, url, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s: %s", url, resp.Status)
	}

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && resp.ContentLength > 0 && n != resp.ContentLength {
		err = fmt.Errorf("download %s: got %d of %d bytes", url, n, resp.ContentLength)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return n, os.Rename(tmp, dest)
}

func newModelsSetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model-name-or-path>",
		Short: "Point asr.model_path at a local model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			val := args[0]
			// bare names live in the model dir
			if filepath.Base(val) == val {
				val = filepath.Join(cfg.Paths.ModelDir, val)
			}
			if _, err := os.Stat(val); err != nil {
				return fmt.Errorf("model not found: %w (try models download)", err)
			}
			cfg.ASR.ModelPath = val
			if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "model set to %s\n", val)
			return nil
		},
	}
}
