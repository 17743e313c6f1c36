//go:build whisper

package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"podseg/internal/config"
	"podseg/internal/transcript"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/sirupsen/logrus"
)

// whisperRecognizer emits one token per word by capping segment length at a
// single token and splitting on word boundaries.
type whisperRecognizer struct {
	model    whisper.Model
	name     string
	language string
	logger   *logrus.Logger
}

func newWhisperRecognizer(cfg *config.Config, logger *logrus.Logger) (Recognizer, error) {
	model, err := whisper.New(cfg.ASR.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cfg.ASR.ModelPath, err)
	}
	return &whisperRecognizer{
		model:    model,
		name:     strings.TrimSuffix(filepath.Base(cfg.ASR.ModelPath), filepath.Ext(cfg.ASR.ModelPath)),
		language: strings.TrimSpace(cfg.ASR.Language),
		logger:   logger,
	}, nil
}

func (r *whisperRecognizer) ModelName() string { return r.name }

func (r *whisperRecognizer) Close() error { return r.model.Close() }

func (r *whisperRecognizer) Recognize(ctx context.Context, samples []float32) ([]transcript.WordToken, error) {
	wctx, err := r.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper context: %w", err)
	}
	if r.language != "" {
		if err := wctx.SetLanguage(r.language); err != nil {
			r.logger.Warnf("whisper: language %q rejected, using auto: %v", r.language, err)
		}
	}
	wctx.SetTokenTimestamps(true)
	wctx.SetMaxSegmentLength(1)
	wctx.SetSplitOnWord(true)

	// whisper.cpp cannot be interrupted mid-decode; ctx is only checked
	// before and after.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper process: %w", err)
	}

	var words []transcript.WordToken
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		start, end := seg.Start.Seconds(), seg.End.Seconds()
		if end < start {
			end = start
		}
		// token timestamps can overlap; grouped spans must not
		if n := len(words); n > 0 && start < words[n-1].End {
			start = words[n-1].End
			end = max(end, start)
		}
		words = append(words, transcript.WordToken{Text: text, Start: start, End: end})
	}
	return words, ctx.Err()
}
