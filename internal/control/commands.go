package control

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"podseg/internal/config"
	"podseg/internal/doctor"
	"podseg/internal/hook"
	"podseg/internal/logging"
	"podseg/internal/transcript"

	"github.com/spf13/cobra"
)

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail-log",
		Short: "Show the last log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")
			return tailFile(cmd.OutOrStdout(), cfg.Paths.LogPath, n)
		},
	}
	cmd.Flags().IntP("lines", "n", 50, "number of lines")
	return cmd
}

func tailFile(w io.Writer, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			_, _ = fmt.Fprintln(w, l)
		}
	}
	return nil
}

// NewTestHookCmd runs the hook against an existing result file.
func NewTestHookCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-hook <segments.json>",
		Short: "Run the downstream hook for an existing result",
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
			r, err := hook.NewRunner(cfg, logger)
			if err != nil {
				return err
			}
			if !r.Enabled() {
				return fmt.Errorf("hook.command is not set in %s", cfg.Paths.ConfigPath)
			}
			job := hook.Job{SourceID: transcript.SourceID(args[0]), ResultPath: args[0]}
			job.Segments, err = countSegments(args[0])
			if err != nil {
				return err
			}
			return r.Run(cmd.Context(), job)
		},
	}
}

// countSegments reads the num_* field of a result artifact.
func countSegments(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var counts struct {
		Bert       *int `json:"num_bert"`
		TextTiling *int `json:"num_texttiling"`
	}
	if err := json.Unmarshal(data, &counts); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	switch {
	case counts.Bert != nil:
		return *counts.Bert, nil
	case counts.TextTiling != nil:
		return *counts.TextTiling, nil
	}
	return 0, fmt.Errorf("%s: not a segmentation result", path)
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, directories, embedding backend and hook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cmd.Context(), cfg)
			exitCode := 0
			for _, r := range results {
				status := "ok"
				switch {
				case !r.Pass && r.Optional:
					status = "warn"
				case !r.Pass:
					status = "fail"
					exitCode = 1
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-4s %s\n", r.Name, status, r.Detail)
			}
			if exitCode != 0 {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}
