package analysis

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages analyzers and annotators by name.
type Registry struct {
	analyzers  map[string]Analyzer
	annotators map[string]Annotator
	mu         sync.RWMutex
}

// NewRegistry creates a Registry with the built-in analyzers and
// annotators registered.
func NewRegistry() *Registry {
	return &Registry{
		analyzers: map[string]Analyzer{
			"standard":   NewStandardAnalyzer(),
			"whitespace": NewWhitespaceAnalyzer(),
		},
		annotators: map[string]Annotator{
			"word":      WordAnnotator(),
			"lowercase": LowercaseAnnotator(),
			"lemma":     LemmaAnnotator(),
			"punct":     PunctAnnotator(),
		},
	}
}

// Get returns the analyzer registered under the given name.
func (r *Registry) Get(name string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[name]
	if !ok {
		return nil, fmt.Errorf("unknown analyzer: %q", name)
	}
	return a, nil
}

// Register adds a custom analyzer to the registry.
func (r *Registry) Register(name string, a Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.analyzers[name]; exists {
		return fmt.Errorf("analyzer already registered: %q", name)
	}
	r.analyzers[name] = a
	return nil
}

// Annotator returns the annotator registered under the given name.
func (r *Registry) Annotator(name string) (Annotator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.annotators[name]
	if !ok {
		return nil, fmt.Errorf("unknown annotator: %q", name)
	}
	return a, nil
}

// RegisterAnnotator adds a custom annotator to the registry.
func (r *Registry) RegisterAnnotator(name string, a Annotator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.annotators[name]; exists {
		return fmt.Errorf("annotator already registered: %q", name)
	}
	r.annotators[name] = a
	return nil
}

// Names returns the sorted names of all registered analyzers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.analyzers)
}

// AnnotatorNames returns the sorted names of all registered annotators.
func (r *Registry) AnnotatorNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.annotators)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
