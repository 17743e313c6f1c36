package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"podseg/internal/control"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "podseg",
		Short: "Podseg: split podcast transcripts into time-coded topic segments",
		Long: `Podseg reads recognizer-output transcripts, splits their text into topical segments
(embedding similarity or TextTiling), maps each segment back to start/end times and
writes one JSON result per transcript. An optional hook runs after every result.

Key commands:
  segment [file]            Segment one transcript or the whole transcript dir
  transcribe <wav|dir>      Transcribe audio with whisper.cpp (build tag: whisper)
  models list|download|set  Manage whisper.cpp models
  doctor                    Check config, dirs, embedding backend, hook
  tail-log|test-hook        Log tail, manual hook run

Notable env:
  PODSEG_SEGMENTER, PODSEG_THRESHOLD, PODSEG_WORKERS,
  PODSEG_TRANSCRIPT_DIR, PODSEG_SEGMENT_DIR, PODSEG_EMBED_PROVIDER,
  PODSEG_EMBED_MODEL, PODSEG_EMBED_URL, PODSEG_LOG_LEVEL/FORMAT, OPENAI_API_KEY`,
		Example: `  podseg segment
  podseg segment data/transcripts/episode1.json --segmenter lexical
  podseg segment --threshold 0.6 --workers 8 --metrics
  podseg transcribe episode1.wav --segment
  podseg models download ggml-base.en.bin
  podseg test-hook data/segments/episode1.json`,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}

	root.Version = version
	root.SetVersionTemplate("Podseg v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/podseg/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(control.NewSegmentCmd(cfgPath))
	root.AddCommand(control.NewTranscribeCmd(cfgPath))
	root.AddCommand(control.NewModelsCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))
	root.AddCommand(control.NewTestHookCmd(cfgPath))

	applyColorHelp(root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if cmd != root {
			// subcommands: description plus cobra's usage block so flags show up
			desc := cmd.Long
			if desc == "" {
				desc = cmd.Short
			}
			_, _ = fmt.Fprintf(out, "%s\n\n%s", desc, cmd.UsageString())
			return
		}
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sPodseg%s: transcript topic segmentation %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sSegments transcripts, aligns segments to timestamps, and runs your hook.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  podseg [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  segment [file]              one transcript, or every *.json in transcript_dir")
		writeln("  transcribe <wav|dir>        whisper.cpp transcription (build with -tags whisper)")
		writeln("  models list|download|set    manage whisper.cpp models")
		writeln("  doctor                      check config/dirs/embeddings/hook")
		writeln("  tail-log                    show last log lines")
		writeln("  test-hook <result.json>     invoke hook manually")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  --segmenter embedding|lexical   segmentation strategy")
		writeln("  --threshold <tau>               split when similarity drops below tau")
		writeln("  -c, --config <path>             config file (default ~/.config/podseg/config.toml)")
		writeln("  Env: PODSEG_SEGMENTER=lexical, PODSEG_THRESHOLD=0.6,")
		writeln("       PODSEG_LOG_LEVEL=debug, PODSEG_LOG_FORMAT=json, OPENAI_API_KEY=...")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  podseg segment")
		writeln("  podseg segment data/transcripts/episode1.json --segmenter lexical")
		writeln("  podseg transcribe episode1.wav --segment")
		writeln("  podseg models download ggml-base.en.bin")
		writeln("  podseg test-hook data/segments/episode1.json")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
