package index

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hack-pad/hackpadfs"

	"CorpusSearch/internal/sensitivity"
	"CorpusSearch/internal/storage"
)

// Analyzer constants.
const (
	AnalyzerStandard   = "standard"
	AnalyzerWhitespace = "whitespace"
)

// Annotator constants.
const (
	AnnotatorWord      = "word"
	AnnotatorLowercase = "lowercase"
	AnnotatorLemma     = "lemma"
	AnnotatorPunct     = "punct"
)

// Schema limits.
const (
	MaxAnnotationsPerSchema = 64
	MaxAnnotationNameLength = 255
)

const SchemaVersion uint32 = 1

var (
	ErrSchemaCorrupt              = errors.New("schema checksum verification failed")
	ErrSchemaNoAnnotations        = errors.New("schema needs at least one annotation")
	ErrSchemaAnnotationLimit      = errors.New("schema exceeds maximum annotation count")
	ErrSchemaDuplicateAnnotation  = errors.New("duplicate annotation name")
	ErrSchemaInvalidAnnotationName = errors.New("invalid annotation name")
	ErrSchemaInvalidAnalyzer      = errors.New("invalid analyzer")
	ErrSchemaInvalidAnnotator     = errors.New("invalid annotator")
)

// Schema describes the single annotated field of a corpus: how text is
// tokenized and which annotations are derived per token. The first
// annotation is the main one.
type Schema struct {
	Version     uint32          `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	Analyzer    string          `json:"analyzer"`
	Annotations []AnnotationDef `json:"annotations"`
}

// AnnotationDef defines one annotation. Sensitivity is the default used
// by patterns that do not name one.
type AnnotationDef struct {
	Name        string                  `json:"name"`
	Annotator   string                  `json:"annotator"`
	Sensitivity sensitivity.Sensitivity `json:"sensitivity"`
}

// DefaultSchema indexes word, lemma and punct with the standard analyzer.
func DefaultSchema() *Schema {
	return &Schema{
		Version:   SchemaVersion,
		CreatedAt: time.Now().UTC(),
		Analyzer:  AnalyzerStandard,
		Annotations: []AnnotationDef{
			{Name: "word", Annotator: AnnotatorWord, Sensitivity: sensitivity.Insensitive},
			{Name: "lemma", Annotator: AnnotatorLemma, Sensitivity: sensitivity.Insensitive},
			{Name: "punct", Annotator: AnnotatorPunct, Sensitivity: sensitivity.Sensitive},
		},
	}
}

// MainAnnotation returns the name of the main annotation.
func (s *Schema) MainAnnotation() string {
	if len(s.Annotations) == 0 {
		return ""
	}
	return s.Annotations[0].Name
}

// AnnotationNames returns the annotation names in schema order.
func (s *Schema) AnnotationNames() []string {
	names := make([]string, len(s.Annotations))
	for i, a := range s.Annotations {
		names[i] = a.Name
	}
	return names
}

// Annotation returns the definition of a named annotation.
func (s *Schema) Annotation(name string) (AnnotationDef, bool) {
	for _, a := range s.Annotations {
		if a.Name == name {
			return a, true
		}
	}
	return AnnotationDef{}, false
}

// Validate checks the schema for correctness.
func (s *Schema) Validate() error {
	if len(s.Annotations) == 0 {
		return ErrSchemaNoAnnotations
	}
	if len(s.Annotations) > MaxAnnotationsPerSchema {
		return fmt.Errorf("%w: %d annotations (max %d)", ErrSchemaAnnotationLimit, len(s.Annotations), MaxAnnotationsPerSchema)
	}
	if err := validateAnalyzer(s.Analyzer); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Annotations))
	for _, a := range s.Annotations {
		if err := validateAnnotationName(a.Name); err != nil {
			return err
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: %q", ErrSchemaDuplicateAnnotation, a.Name)
		}
		seen[a.Name] = true
		if err := validateAnnotator(a.Annotator); err != nil {
			return fmt.Errorf("annotation %q: %w", a.Name, err)
		}
	}
	return nil
}

// MarshalSchema serializes a schema to indented JSON.
func MarshalSchema(s *Schema) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// UnmarshalSchema deserializes and validates a schema.
func UnmarshalSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteSchema atomically writes a checksummed schema file to the corpus
// directory. The schema is immutable after creation.
func WriteSchema(fsys hackpadfs.FS, dir *CorpusDir, s *Schema) error {
	data, err := MarshalSchema(s)
	if err != nil {
		return err
	}
	if err := storage.WriteChecked(fsys, dir.SchemaPath(), data); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}

// LoadSchema reads and verifies a schema file from the corpus directory.
func LoadSchema(fsys hackpadfs.FS, dir *CorpusDir) (*Schema, error) {
	data, err := storage.ReadChecked(fsys, dir.SchemaPath())
	if err != nil {
		if errors.Is(err, storage.ErrChecksumMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrSchemaCorrupt, err)
		}
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return UnmarshalSchema(data)
}

func validateAnnotationName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrSchemaInvalidAnnotationName)
	case len(name) > MaxAnnotationNameLength:
		return fmt.Errorf("%w: %q (%d bytes, max %d)", ErrSchemaInvalidAnnotationName, name, len(name), MaxAnnotationNameLength)
	case strings.ContainsAny(name, ". \t\n/"):
		return fmt.Errorf("%w: %q", ErrSchemaInvalidAnnotationName, name)
	}
	return nil
}

func validateAnalyzer(a string) error {
	switch a {
	case AnalyzerStandard, AnalyzerWhitespace:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrSchemaInvalidAnalyzer, a)
	}
}

func validateAnnotator(a string) error {
	switch a {
	case AnnotatorWord, AnnotatorLowercase, AnnotatorLemma, AnnotatorPunct:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrSchemaInvalidAnnotator, a)
	}
}
