package segment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"podseg/internal/config"
)

type lineSplitter struct{}

func (lineSplitter) Split(text string) []string {
	var out []string
	for _, s := range strings.Split(text, "\n") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type fakeProvider struct {
	vecs  map[string][]float32
	err   error
	calls int
	last  []string
}

func (f *fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.last = texts
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.vecs[t]
		if !ok {
			v = []float32{1, 0}
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeProvider) ModelID() string { return "fake" }

func TestEmbeddingSplitsOnSimilarityDrop(t *testing.T) {
	p := &fakeProvider{vecs: map[string][]float32{
		"Cats purr.":      {1, 0},
		"Kittens nap.":    {1, 0.1},
		"Rockets launch.": {0, 1},
		"Orbits decay.":   {0.1, 1},
	}}
	seg := NewEmbedding(p, lineSplitter{}, EmbeddingOptions{Threshold: 0.55})
	out, err := seg.Segment(context.Background(), "Cats purr.\nKittens nap.\nRockets launch.\nOrbits decay.")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	want := []string{"Cats purr. Kittens nap.", "Rockets launch. Orbits decay."}
	if fmt.Sprint(out.Segments) != fmt.Sprint(want) {
		t.Fatalf("segments = %q want %q", out.Segments, want)
	}
	if out.Degraded() {
		t.Fatalf("unexpected fallback %q", out.Fallback)
	}
	if p.calls != 1 || len(p.last) != 4 {
		t.Fatalf("expected one batch of 4, got %d calls last=%v", p.calls, p.last)
	}
}

func TestEmbeddingSimilarityEqualToThresholdDoesNotSplit(t *testing.T) {
	a, b := []float32{3, 4}, []float32{4, 3}
	tau := CosineSimilarity(a, b)
	if tau != 0.96 {
		t.Fatalf("cosine = %v", tau)
	}
	p := &fakeProvider{vecs: map[string][]float32{"One.": a, "Two.": b}}

	out, err := NewEmbedding(p, lineSplitter{}, EmbeddingOptions{Threshold: tau}).Segment(context.Background(), "One.\nTwo.")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if len(out.Segments) != 1 || out.Segments[0] != "One. Two." {
		t.Fatalf("equal similarity must not split: %q", out.Segments)
	}

	out, _ = NewEmbedding(p, lineSplitter{}, EmbeddingOptions{Threshold: 0.97}).Segment(context.Background(), "One.\nTwo.")
	if len(out.Segments) != 2 {
		t.Fatalf("similarity below threshold must split: %q", out.Segments)
	}
}

func TestEmbeddingReconstructsSentenceSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(12)
		p := &fakeProvider{vecs: map[string][]float32{}}
		sents := make([]string, n)
		for i := range sents {
			sents[i] = fmt.Sprintf("Sentence %d of trial %d.", i, trial)
			p.vecs[sents[i]] = []float32{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()}
		}
		seg := NewEmbedding(p, lineSplitter{}, EmbeddingOptions{Threshold: rng.Float64()*2 - 1})
		out, err := seg.Segment(context.Background(), strings.Join(sents, "\n"))
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if len(out.Segments) > n {
			t.Fatalf("trial %d: %d segments for %d sentences", trial, len(out.Segments), n)
		}
		if got, want := strings.Join(out.Segments, " "), strings.Join(sents, " "); got != want {
			t.Fatalf("trial %d: reconstruction mismatch\n got %q\nwant %q", trial, got, want)
		}
		for _, s := range out.Segments {
			if s == "" {
				t.Fatalf("trial %d: empty segment", trial)
			}
		}
	}
}

func TestEmbeddingSingleSentenceSkipsModel(t *testing.T) {
	p := &fakeProvider{err: errors.New("should not be called")}
	out, err := NewEmbedding(p, lineSplitter{}, EmbeddingOptions{Threshold: 0.55}).Segment(context.Background(), "Just one sentence here.")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if len(out.Segments) != 1 || p.calls != 0 {
		t.Fatalf("segments=%q calls=%d", out.Segments, p.calls)
	}
}

func TestEmbeddingEmptyText(t *testing.T) {
	p := &fakeProvider{}
	out, err := NewEmbedding(p, lineSplitter{}, EmbeddingOptions{}).Segment(context.Background(), "   ")
	if err != nil || len(out.Segments) != 0 || p.calls != 0 {
		t.Fatalf("out=%+v err=%v calls=%d", out, err, p.calls)
	}
}

func TestEmbeddingChunksUnpunctuatedText(t *testing.T) {
	words := make([]string, 45)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	p := &fakeProvider{}
	seg := NewEmbedding(p, lineSplitter{}, EmbeddingOptions{Threshold: 0.55, ChunkWords: 20})
	out, err := seg.Segment(context.Background(), strings.Join(words, " "))
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if !out.Degraded() {
		t.Fatalf("chunking should be reported as a fallback")
	}
	if len(p.last) != 3 || len(strings.Fields(p.last[2])) != 5 {
		t.Fatalf("chunks = %q", p.last)
	}
	// identical default vectors keep everything in one segment
	if len(out.Segments) != 1 || out.Segments[0] != strings.Join(words, " ") {
		t.Fatalf("segments = %q", out.Segments)
	}
}

func TestEmbeddingShortUnpunctuatedTextIsNotChunked(t *testing.T) {
	p := &fakeProvider{}
	out, err := NewEmbedding(p, lineSplitter{}, EmbeddingOptions{ChunkWords: 20}).Segment(context.Background(), "only a handful of words")
	if err != nil || out.Degraded() || len(out.Segments) != 1 || p.calls != 0 {
		t.Fatalf("out=%+v err=%v calls=%d", out, err, p.calls)
	}
}

func TestEmbeddingPropagatesProviderError(t *testing.T) {
	boom := errors.New("connection refused")
	p := &fakeProvider{err: boom}
	_, err := NewEmbedding(p, lineSplitter{}, EmbeddingOptions{}).Segment(context.Background(), "A.\nB.")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestEmbeddingRejectsMismatchedDimensions(t *testing.T) {
	for name, vecs := range map[string]map[string][]float32{
		"mismatch": {"A b.": {1, 0}, "C d.": {1, 0, 0}},
		"empty":    {"A b.": {}, "C d.": {}},
	} {
		p := &fakeProvider{vecs: vecs}
		out, err := NewEmbedding(p, lineSplitter{}, EmbeddingOptions{}).Segment(context.Background(), "A b.\nC d.")
		if err == nil {
			t.Fatalf("%s: expected dimension error, got %+v", name, out)
		}
	}
}

func TestCosineSimilarityEdgeCases(t *testing.T) {
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Fatalf("zero vector: %v", got)
	}
	if got := CosineSimilarity([]float32{1}, []float32{1, 2}); got != 0 {
		t.Fatalf("length mismatch: %v", got)
	}
	if got := CosineSimilarity([]float32{2, 0}, []float32{-5, 0}); got != -1 {
		t.Fatalf("opposite: %v", got)
	}
}

func TestPunktSplitter(t *testing.T) {
	sp, err := NewPunktSplitter()
	if err != nil {
		t.Fatalf("punkt: %v", err)
	}
	got := sp.Split("Hello world. This is a test.")
	if len(got) != 2 || got[0] != "Hello world." || got[1] != "This is a test." {
		t.Fatalf("sentences = %q", got)
	}
	if got := sp.Split("   "); len(got) != 0 {
		t.Fatalf("blank input: %q", got)
	}
}

const (
	catSentence    = "whiskers purring kitten feline tabby litter catnip scratching paws mice tuna yarn meowing claws fur siamese pounce nap windowsill collar."
	rocketSentence = "rockets orbit launch fuel engines satellite booster payload thrust capsule astronaut countdown gravity lunar module trajectory telemetry hangar nozzle apogee."
)

func TestLexicalSplitsAtTopicShift(t *testing.T) {
	var parts []string
	for i := 0; i < 12; i++ {
		parts = append(parts, catSentence)
	}
	for i := 0; i < 12; i++ {
		parts = append(parts, rocketSentence)
	}
	text := strings.Join(parts, " ")

	out, err := NewLexical(LexicalOptions{}).Segment(context.Background(), text)
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if out.Degraded() {
		t.Fatalf("unexpected fallback: %s", out.Fallback)
	}
	if len(out.Segments) < 2 {
		t.Fatalf("expected a topic split, got %d segment(s)", len(out.Segments))
	}
	for i, s := range out.Segments {
		cat, rocket := strings.Contains(s, "whiskers"), strings.Contains(s, "rockets")
		if cat == rocket {
			t.Fatalf("segment %d mixes or lacks topics: %q", i, s)
		}
	}
	if got := strings.Join(out.Segments, " "); got != text {
		t.Fatalf("segments do not cover the input")
	}
}

func TestLexicalMidLengthText(t *testing.T) {
	var parts []string
	for i := 0; i < 7; i++ {
		parts = append(parts, catSentence)
	}
	for i := 0; i < 7; i++ {
		parts = append(parts, rocketSentence)
	}
	text := strings.Join(parts, " ")

	out, err := NewLexical(LexicalOptions{}).Segment(context.Background(), text)
	if err != nil || out.Degraded() {
		t.Fatalf("out=%+v err=%v", out, err)
	}
	if len(out.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(out.Segments))
	}
	if strings.Contains(out.Segments[0], "rockets") || strings.Contains(out.Segments[1], "whiskers") {
		t.Fatalf("segments mix topics: %q", out.Segments)
	}
	if strings.Join(out.Segments, " ") != text {
		t.Fatalf("segments do not cover the input")
	}
}

func TestLexicalCoversInputAtAnyLength(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seg := NewLexical(LexicalOptions{})
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(30)
		parts := make([]string, n)
		for i := range parts {
			parts[i] = catSentence
			if rng.Intn(2) == 0 {
				parts[i] = rocketSentence
			}
		}
		text := strings.Join(parts, " ")
		out, err := seg.Segment(context.Background(), text)
		if err != nil {
			t.Fatalf("%d sentences: %v", n, err)
		}
		if got := strings.Join(out.Segments, " "); got != collapse(text) {
			t.Fatalf("%d sentences: segments do not cover the input", n)
		}
	}
}

func TestBlockScoresShortSequences(t *testing.T) {
	for n := 2; n <= 25; n++ {
		seqs := make([]map[string]int, n)
		for i := range seqs {
			seqs[i] = map[string]int{"w": 1}
		}
		if got := blockScores(seqs, 10); len(got) != n-1 {
			t.Fatalf("n=%d: %d scores", n, len(got))
		}
	}
}

func TestLexicalFallsBackOnShortText(t *testing.T) {
	out, err := NewLexical(LexicalOptions{}).Segment(context.Background(), "Hello world.  This is a test.")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if !out.Degraded() || len(out.Segments) != 1 || out.Segments[0] != "Hello world. This is a test." {
		t.Fatalf("out = %+v", out)
	}
}

func TestLexicalFallsBackWithFewPseudoSentences(t *testing.T) {
	text := strings.Join([]string{catSentence, catSentence, rocketSentence}, " ")
	out, _ := NewLexical(LexicalOptions{}).Segment(context.Background(), text)
	if !out.Degraded() || len(out.Segments) != 1 || out.Segments[0] != text {
		t.Fatalf("out = %+v", out)
	}
}

func TestLexicalEmptyText(t *testing.T) {
	out, err := NewLexical(LexicalOptions{}).Segment(context.Background(), "")
	if err != nil || len(out.Segments) != 0 || out.Degraded() {
		t.Fatalf("out=%+v err=%v", out, err)
	}
}

func TestDepthAndBoundaries(t *testing.T) {
	scores := []float64{1, 1, 1, 0.9, 0.2, 0.9, 1, 1, 1, 1, 1, 1}
	depth := depthScores(scores)
	if depth[4] < 1.5 {
		t.Fatalf("valley depth = %v", depth[4])
	}
	b := pickBoundaries(depth)
	if !b[4] {
		t.Fatalf("valley not picked: %v", b)
	}
	for i := range b {
		if i != 4 && b[i] && abs(i-4) < 4 {
			t.Fatalf("boundary %d too close to 4", i)
		}
	}
}

func TestNewSelectsMode(t *testing.T) {
	cfg, _ := config.Default()
	cfg.Segmenter.Mode = config.SegmenterLexical
	s, err := New(cfg, nil)
	if err != nil || s.Name() != "lexical" {
		t.Fatalf("lexical: %v %v", s, err)
	}

	cfg.Segmenter.Mode = config.SegmenterEmbedding
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("embedding without provider should fail")
	}
	s, err = New(cfg, &fakeProvider{})
	if err != nil || s.Name() != "embedding" {
		t.Fatalf("embedding: %v %v", s, err)
	}

	cfg.Segmenter.Mode = "bogus"
	if _, err := New(cfg, &fakeProvider{}); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}
