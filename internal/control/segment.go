package control

import (
	"fmt"

	"podseg/internal/align"
	"podseg/internal/config"
	"podseg/internal/embed"
	"podseg/internal/hook"
	"podseg/internal/logging"
	"podseg/internal/pipeline"
	"podseg/internal/segment"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewSegmentCmd segments one transcript, or every transcript in the input dir.
func NewSegmentCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment [transcript.json]",
		Short: "Split transcripts into time-coded topic segments",
		Long: `Without an argument every *.json file in paths.transcript_dir is processed and
failures are reported after the batch. With a path only that file is processed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := applySegmentFlags(cmd, cfg); err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			p, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			showMetrics, _ := cmd.Flags().GetBool("metrics")
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				path, err := p.ProcessFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, path)
				if showMetrics {
					p.Stats().WriteMetrics(out)
				}
				return nil
			}

			report, err := p.ProcessDir(cmd.Context(), cfg.Paths.TranscriptDir)
			if err != nil {
				return err
			}
			for _, w := range report.Written {
				_, _ = fmt.Fprintln(out, w)
			}
			for _, f := range report.Failed {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "failed: %v\n", f)
			}
			if showMetrics {
				p.Stats().WriteMetrics(out)
			}
			return report.Err()
		},
	}
	cmd.Flags().String("segmenter", "", "segmenter to use: embedding or lexical")
	cmd.Flags().Float64("threshold", 0, "cosine similarity threshold for the embedding segmenter")
	cmd.Flags().Int("workers", 0, "files processed in parallel in batch mode")
	cmd.Flags().String("in", "", "input directory (overrides paths.transcript_dir)")
	cmd.Flags().String("out", "", "output directory (overrides paths.segment_dir)")
	cmd.Flags().Bool("metrics", false, "print counters in Prometheus text format when done")
	return cmd
}

func applySegmentFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("segmenter") {
		cfg.Segmenter.Mode, _ = flags.GetString("segmenter")
	}
	if flags.Changed("threshold") {
		cfg.Segmenter.SimilarityThreshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("workers") {
		cfg.Batch.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("in") {
		cfg.Paths.TranscriptDir, _ = flags.GetString("in")
	}
	if flags.Changed("out") {
		cfg.Paths.SegmentDir, _ = flags.GetString("out")
	}
	return config.Validate(cfg)
}

// buildPipeline constructs every collaborator once for the process.
func buildPipeline(cfg *config.Config, logger *logrus.Logger) (*pipeline.Pipeline, error) {
	var provider embed.Provider
	if cfg.Segmenter.Mode == config.SegmenterEmbedding {
		var err error
		if provider, err = embed.New(cfg); err != nil {
			return nil, err
		}
	}
	seg, err := segment.New(cfg, provider)
	if err != nil {
		return nil, err
	}
	runner, err := hook.NewRunner(cfg, logger)
	if err != nil {
		return nil, err
	}
	return pipeline.New(seg, align.New(cfg.Align.ExcerptChars), runner, logger, pipeline.OptionsFromConfig(cfg)), nil
}
