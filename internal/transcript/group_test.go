package transcript

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func words(ws ...WordToken) []WordToken { return ws }

func TestGroupWordsEmpty(t *testing.T) {
	if got := GroupWords(nil, DefaultGroupOptions()); len(got) != 0 {
		t.Fatalf("expected no spans, got %v", got)
	}
}

func TestGroupWordsSplitsOnPause(t *testing.T) {
	in := words(
		WordToken{Text: "hello", Start: 0.0, End: 0.5},
		WordToken{Text: "there", Start: 0.6, End: 1.0},
		WordToken{Text: "general", Start: 2.0, End: 2.5}, // 1.0s gap
		WordToken{Text: "kenobi", Start: 2.6, End: 3.0},
	)
	got := GroupWords(in, DefaultGroupOptions())
	want := []TimedSpan{
		{Start: 0.0, End: 1.0, Text: "hello there"},
		{Start: 2.0, End: 3.0, Text: "general kenobi"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d spans %v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("span %d = %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestGroupWordsGapAtThresholdDoesNotSplit(t *testing.T) {
	in := words(
		WordToken{Text: "a", Start: 0.0, End: 1.0},
		WordToken{Text: "b", Start: 1.5, End: 2.0},
	)
	got := GroupWords(in, GroupOptions{PauseThreshold: 0.5, MaxSpan: 10})
	if len(got) != 1 {
		t.Fatalf("gap equal to threshold should not split: %v", got)
	}
}

func TestGroupWordsSplitsOnDurationWithoutGap(t *testing.T) {
	in := words(
		WordToken{Text: "long", Start: 0.0, End: 5.0},
		WordToken{Text: "talk", Start: 5.0, End: 11.0},
	)
	got := GroupWords(in, DefaultGroupOptions())
	if len(got) != 2 {
		t.Fatalf("expected duration split, got %v", got)
	}
	if got[0].End != 5.0 || got[1].Start != 5.0 || got[1].End != 11.0 {
		t.Fatalf("unexpected boundaries: %v", got)
	}
}

func TestGroupWordsSingleToken(t *testing.T) {
	got := GroupWords(words(WordToken{Text: "solo", Start: 1, End: 2}), DefaultGroupOptions())
	if len(got) != 1 || got[0] != (TimedSpan{Start: 1, End: 2, Text: "solo"}) {
		t.Fatalf("got %v", got)
	}
}

func TestGroupWordsPreservesEveryWordInOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(200)
		in := make([]WordToken, n)
		at := 0.0
		for i := range in {
			at += rng.Float64() * 1.5
			dur := 0.05 + rng.Float64()*0.6
			in[i] = WordToken{Text: fmt.Sprintf("w%d", i), Start: at, End: at + dur}
			at += dur
		}
		spans := GroupWords(in, DefaultGroupOptions())

		var joined []string
		for i, s := range spans {
			if s.Start > s.End {
				t.Fatalf("trial %d: span %d start after end: %+v", trial, i, s)
			}
			if i > 0 && s.Start < spans[i-1].End {
				t.Fatalf("trial %d: span %d overlaps previous", trial, i)
			}
			if s.Text == "" {
				t.Fatalf("trial %d: empty span %d", trial, i)
			}
			joined = append(joined, s.Text)
		}
		var want []string
		for _, w := range in {
			want = append(want, w.Text)
		}
		if strings.Join(joined, " ") != strings.Join(want, " ") {
			t.Fatalf("trial %d: words lost or reordered", trial)
		}
	}
}
