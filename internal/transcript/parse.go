package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Artifact is the recognizer-output file: coarse segments, and optionally
// the raw word tokens they were built from.
type Artifact struct {
	AudioFile string      `json:"audio_file"`
	Model     string      `json:"model"`
	Text      string      `json:"text"`
	Segments  []TimedSpan `json:"segments" validate:"required_without=Words,dive"`
	Words     []WordToken `json:"words,omitempty" validate:"omitempty,dive"`
}

// FieldIssue names one invalid field of an artifact.
type FieldIssue struct {
	Field   string
	Problem string
}

// ParseError reports a recognizer-output file that is not valid JSON or
// breaks the artifact contract.
type ParseError struct {
	Path   string
	Issues []FieldIssue
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse transcript %s", e.Path)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for i, is := range e.Issues {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s %s", is.Field, is.Problem)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// LoadFile reads and validates a recognizer-output file and builds its
// Document. The source id is the file name without extension.
func LoadFile(path string, opts GroupOptions) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	art, err := Parse(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return art.Document(SourceID(path), opts), nil
}

// SourceID derives the source id from a file path.
func SourceID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Parse decodes and validates an artifact.
func Parse(data []byte) (*Artifact, error) {
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, &ParseError{Err: err}
	}
	if err := art.Validate(); err != nil {
		return nil, err
	}
	return &art, nil
}

// Validate checks field constraints and chronological ordering.
func (a *Artifact) Validate() error {
	var issues []FieldIssue
	if err := getValidator().Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ParseError{Err: err}
		}
		for _, fe := range verrs {
			issues = append(issues, FieldIssue{Field: fieldPath(fe), Problem: describe(fe)})
		}
	}
	for i := 1; i < len(a.Segments); i++ {
		prev, cur := a.Segments[i-1], a.Segments[i]
		switch {
		case cur.Start < prev.Start:
			issues = append(issues, FieldIssue{
				Field:   fmt.Sprintf("segments[%d].start", i),
				Problem: "is earlier than the previous segment",
			})
		case cur.Start < prev.End:
			issues = append(issues, FieldIssue{
				Field:   fmt.Sprintf("segments[%d].start", i),
				Problem: fmt.Sprintf("overlaps the previous segment (ends at %v)", prev.End),
			})
		}
	}
	for i := 1; i < len(a.Words); i++ {
		if a.Words[i].Start < a.Words[i-1].Start {
			issues = append(issues, FieldIssue{
				Field:   fmt.Sprintf("words[%d].start", i),
				Problem: "is earlier than the previous word",
			})
		}
	}
	if len(issues) > 0 {
		return &ParseError{Issues: issues}
	}
	return nil
}

// Document builds the span view, grouping raw words when the artifact has
// no coarse segments.
func (a *Artifact) Document(sourceID string, opts GroupOptions) *Document {
	spans := a.Segments
	if len(spans) == 0 && len(a.Words) > 0 {
		spans = GroupWords(a.Words, opts)
	}
	out := make([]TimedSpan, len(spans))
	copy(out, spans)
	return &Document{SourceID: sourceID, Spans: out}
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when words are absent"
	case "gte":
		return "must be >= " + fe.Param()
	case "gtefield":
		return "must not be earlier than start"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
