// Package pipeline sequences loading, segmentation and alignment for each
// recognizer-output file and persists one SegmentationResult per source.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"podseg/internal/align"
	"podseg/internal/atomicfile"
	"podseg/internal/config"
	"podseg/internal/hook"
	"podseg/internal/segment"
	"podseg/internal/transcript"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Trigger is the downstream stage notified after each result is written.
type Trigger interface {
	Enabled() bool
	Run(ctx context.Context, job hook.Job) error
}

// Options are the per-run settings that are not collaborators.
type Options struct {
	Group   transcript.GroupOptions
	OutDir  string
	Workers int
}

// OptionsFromConfig maps the relevant config sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Group: transcript.GroupOptions{
			PauseThreshold: cfg.Grouping.PauseThresholdSec,
			MaxSpan:        cfg.Grouping.MaxSpanSec,
		},
		OutDir:  cfg.Paths.SegmentDir,
		Workers: cfg.Batch.Workers,
	}
}

// Pipeline holds the shared, read-only collaborators. Runs for different
// files share nothing mutable apart from the atomic counters.
type Pipeline struct {
	seg     segment.Segmenter
	aligner *align.Aligner
	trigger Trigger
	logger  *logrus.Logger
	opts    Options
	metrics metrics
}

// New builds a Pipeline. trigger may be nil.
func New(seg segment.Segmenter, aligner *align.Aligner, trigger Trigger, logger *logrus.Logger, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if aligner == nil {
		aligner = align.New(align.DefaultExcerptChars)
	}
	return &Pipeline{
		seg:     seg,
		aligner: aligner,
		trigger: trigger,
		logger:  logger,
		opts:    opts,
	}
}

// Process segments and aligns one document without touching disk.
func (p *Pipeline) Process(ctx context.Context, doc *transcript.Document) (*Result, error) {
	outcome, err := p.seg.Segment(ctx, doc.FullText())
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", doc.SourceID, err)
	}
	segs := make([]align.Segment, len(outcome.Segments))
	for i, text := range outcome.Segments {
		segs[i] = align.Segment{ID: i + 1, Text: text}
	}
	p.aligner.Align(segs, doc.Spans)
	return &Result{
		SourceID:  doc.SourceID,
		Segmenter: p.seg.Name(),
		Segments:  segs,
		Fallback:  outcome.Fallback,
	}, nil
}

// ProcessFile runs the full pipeline for one recognizer-output file and
// returns the path of the written artifact.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (string, error) {
	return p.processFile(ctx, path, logrus.NewEntry(p.logger))
}

func (p *Pipeline) processFile(ctx context.Context, path string, log *logrus.Entry) (string, error) {
	log = log.WithFields(logrus.Fields{"source": transcript.SourceID(path), "segmenter": p.seg.Name()})
	out, err := p.run(ctx, path, log)
	if err != nil {
		p.metrics.incFailed()
		return "", err
	}
	p.metrics.incProcessed()
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, path string, log *logrus.Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := transcript.LoadFile(path, p.opts.Group)
	if err != nil {
		return "", err
	}
	res, err := p.Process(ctx, doc)
	if err != nil {
		return "", err
	}
	data, err := res.Marshal()
	if err != nil {
		return "", err
	}
	out := filepath.Join(p.opts.OutDir, res.FileName())
	if err := atomicfile.Write(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}

	log = log.WithField("segments", len(res.Segments))
	if res.Fallback != "" {
		p.metrics.incDegraded()
		log.WithField("fallback", res.Fallback).Warn("segmenter degraded")
	}
	log.Infof("saved segments to %s", out)

	p.notify(ctx, res, out, log)
	return out, nil
}

func (p *Pipeline) notify(ctx context.Context, res *Result, out string, log *logrus.Entry) {
	if p.trigger == nil || !p.trigger.Enabled() {
		return
	}
	job := hook.Job{SourceID: res.SourceID, ResultPath: out, Segments: len(res.Segments)}
	if err := p.trigger.Run(ctx, job); err != nil {
		p.metrics.incHooksFailed()
		log.Errorf("hook: %v", err)
		return
	}
	p.metrics.incHooksSent()
}

// FileError records one file that failed in a batch.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// BatchReport summarises a directory run.
type BatchReport struct {
	RunID   string
	Total   int
	Written []string
	Failed  []FileError
}

// Err is nil when every file succeeded.
func (r *BatchReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d files failed (run %s)", len(r.Failed), r.Total, r.RunID)
}

// ProcessDir runs every recognizer-output file in dir, at most
// Options.Workers at a time. A failing file is recorded in the report and
// does not stop the others; the returned error is only for listing dir.
func (p *Pipeline) ProcessDir(ctx context.Context, dir string) (*BatchReport, error) {
	files, err := ListInputs(dir)
	if err != nil {
		return nil, err
	}
	report := &BatchReport{RunID: uuid.NewString(), Total: len(files)}
	log := p.logger.WithField("run_id", report.RunID)
	if len(files) == 0 {
		log.Warnf("no transcripts found in %s", dir)
		return report, nil
	}
	log.Infof("segmenting %d transcript(s) from %s with %d worker(s)", len(files), dir, p.opts.Workers)

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.Workers)
	for _, f := range files {
		eg.Go(func() error {
			out, err := p.processFile(egCtx, f, log)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WithField("source", transcript.SourceID(f)).Errorf("skipped: %v", err)
				report.Failed = append(report.Failed, FileError{Path: f, Err: err})
				return nil
			}
			report.Written = append(report.Written, out)
			return nil
		})
	}
	_ = eg.Wait()

	sort.Strings(report.Written)
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Path < report.Failed[j].Path })
	log.WithFields(logrus.Fields{"written": len(report.Written), "failed": len(report.Failed)}).Info("batch finished")
	return report, nil
}

// ListInputs returns the .json files directly inside dir, sorted.
func ListInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
