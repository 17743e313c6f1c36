// Package asr runs the speech recognizer over recorded audio and writes the
// recognizer-output artifact the segmentation pipeline reads.
package asr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"podseg/internal/atomicfile"
	"podseg/internal/config"
	"podseg/internal/transcript"

	"github.com/sirupsen/logrus"
)

// SampleRate is the rate recognizers expect samples at.
const SampleRate = 16000

// ErrUnavailable is returned when the binary was built without a recognizer.
var ErrUnavailable = errors.New("speech recognition unavailable: build with '-tags whisper'")

// Recognizer turns 16 kHz mono samples into timed words.
type Recognizer interface {
	Recognize(ctx context.Context, samples []float32) ([]transcript.WordToken, error)
	ModelName() string
	Close() error
}

// NewRecognizer returns the whisper.cpp recognizer configured by cfg.ASR.
func NewRecognizer(cfg *config.Config, logger *logrus.Logger) (Recognizer, error) {
	return newWhisperRecognizer(cfg, logger)
}

// Transcriber writes one artifact per audio file into OutDir.
type Transcriber struct {
	Rec    Recognizer
	Group  transcript.GroupOptions
	OutDir string
	Logger *logrus.Logger
}

// BuildArtifact groups words into spans and assembles the artifact.
func BuildArtifact(audioFile, model string, words []transcript.WordToken, opts transcript.GroupOptions) *transcript.Artifact {
	spans := transcript.GroupWords(words, opts)
	texts := make([]string, 0, len(words))
	for _, w := range words {
		texts = append(texts, w.Text)
	}
	if spans == nil {
		spans = []transcript.TimedSpan{}
	}
	return &transcript.Artifact{
		AudioFile: audioFile,
		Model:     model,
		Text:      strings.Join(texts, " "),
		Segments:  spans,
		Words:     words,
	}
}

// TranscribeFile recognizes one WAV file and returns the artifact path.
func (t *Transcriber) TranscribeFile(ctx context.Context, wavPath string) (string, error) {
	samples, err := ReadWAV(wavPath)
	if err != nil {
		return "", err
	}
	words, err := t.Rec.Recognize(ctx, samples)
	if err != nil {
		return "", fmt.Errorf("recognize %s: %w", wavPath, err)
	}
	art := BuildArtifact(wavPath, t.Rec.ModelName(), words, t.Group)
	if err := art.Validate(); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return "", err
	}
	out := filepath.Join(t.OutDir, transcript.SourceID(wavPath)+".json")
	if err := atomicfile.Write(out, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	t.Logger.WithFields(logrus.Fields{
		"source": transcript.SourceID(wavPath),
		"words":  len(words),
		"spans":  len(art.Segments),
	}).Infof("saved transcript to %s", out)
	return out, nil
}

// TranscribeDir recognizes every .wav file in dir in order. The recognizer
// is not safe for concurrent use, so files are processed one at a time.
// Failed files are logged and returned; the rest still run.
func (t *Transcriber) TranscribeDir(ctx context.Context, dir string) ([]string, map[string]error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var written []string
	failed := map[string]error{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return written, failed, err
		}
		out, err := t.TranscribeFile(ctx, f)
		if err != nil {
			t.Logger.WithField("source", transcript.SourceID(f)).Errorf("skipped: %v", err)
			failed[f] = err
			continue
		}
		written = append(written, out)
	}
	return written, failed, nil
}
