package segment

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// SentenceSplitter is the sentence-boundary detector collaborator.
type SentenceSplitter interface {
	Split(text string) []string
}

// PunktSplitter wraps the punkt tokenizer trained on English. The tokenizer is
// built once and only read afterwards, so one value can serve every worker.
type PunktSplitter struct {
	tok *sentences.DefaultSentenceTokenizer
}

// NewPunktSplitter loads the bundled English punkt model.
func NewPunktSplitter() (*PunktSplitter, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("segment: load punkt model: %w", err)
	}
	return &PunktSplitter{tok: tok}, nil
}

// Split returns trimmed, non-empty sentences in order.
func (p *PunktSplitter) Split(text string) []string {
	var out []string
	for _, s := range p.tok.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// chunkWords groups words into pieces of n words.
func chunkWords(words []string, n int) []string {
	if n <= 0 {
		n = 20
	}
	out := make([]string, 0, (len(words)+n-1)/n)
	for i := 0; i < len(words); i += n {
		end := min(i+n, len(words))
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}
