package pipeline

import (
	"encoding/json"
	"fmt"

	"podseg/internal/align"
	"podseg/internal/config"
)

// Result is one source's segmentation, ready to persist.
type Result struct {
	SourceID  string
	Segmenter string
	Segments  []align.Segment
	Fallback  string
}

type embeddingArtifact struct {
	File      string          `json:"file"`
	Segmenter string          `json:"segmenter"`
	Segments  []align.Segment `json:"bert_segments"`
	Count     int             `json:"num_bert"`
	Fallback  string          `json:"fallback,omitempty"`
}

type lexicalArtifact struct {
	File      string          `json:"file"`
	Segmenter string          `json:"segmenter"`
	Segments  []align.Segment `json:"texttiling_segments"`
	Count     int             `json:"num_texttiling"`
	Fallback  string          `json:"fallback,omitempty"`
}

// FileName is the artifact's base name, also written as its "file" field.
func (r *Result) FileName() string { return r.SourceID + ".json" }

// Marshal renders the artifact. The segment field names depend on the
// segmenter so consumers of either strategy find the keys they expect.
func (r *Result) Marshal() ([]byte, error) {
	segs := r.Segments
	if segs == nil {
		segs = []align.Segment{}
	}
	var v any
	switch r.Segmenter {
	case config.SegmenterEmbedding:
		v = embeddingArtifact{File: r.FileName(), Segmenter: r.Segmenter, Segments: segs, Count: len(segs), Fallback: r.Fallback}
	case config.SegmenterLexical:
		v = lexicalArtifact{File: r.FileName(), Segmenter: r.Segmenter, Segments: segs, Count: len(segs), Fallback: r.Fallback}
	default:
		return nil, fmt.Errorf("unknown segmenter %q", r.Segmenter)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
