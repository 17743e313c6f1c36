package control

import (
	"fmt"
	"os"

	"podseg/internal/asr"
	"podseg/internal/config"
	"podseg/internal/logging"
	"podseg/internal/pipeline"

	"github.com/spf13/cobra"
)

// NewTranscribeCmd transcribes a WAV file (or a directory of them) into
// recognizer-output artifacts in paths.transcript_dir.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <wav-file-or-dir>",
		Short: "Transcribe WAV audio with whisper.cpp (build with -tags whisper)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			rec, err := asr.NewRecognizer(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = rec.Close() }()

			tr := &asr.Transcriber{
				Rec:    rec,
				Group:  pipeline.OptionsFromConfig(cfg).Group,
				OutDir: cfg.Paths.TranscriptDir,
				Logger: logger,
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			var written []string
			var failed map[string]error
			if info.IsDir() {
				written, failed, err = tr.TranscribeDir(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for f, ferr := range failed {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", f, ferr)
				}
			} else {
				out, err := tr.TranscribeFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				written = append(written, out)
			}
			for _, w := range written {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), w)
			}

			if chain, _ := cmd.Flags().GetBool("segment"); chain && len(written) > 0 {
				p, err := buildPipeline(cfg, logger)
				if err != nil {
					return err
				}
				for _, w := range written {
					out, err := p.ProcessFile(cmd.Context(), w)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d file(s) failed to transcribe", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().Bool("segment", false, "run the segmentation pipeline on the new transcripts")
	return cmd
}
