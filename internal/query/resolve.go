package query

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"CorpusSearch/internal/automaton"
	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/sensitivity"
)

// TermExpander is a forward-index accessor that can also enumerate the
// vocabulary of an annotation.
type TermExpander interface {
	fimatch.ForwardIndexAccessor
	// ExpandTerms returns the ids of the terms whose comparison key under s
	// satisfies match.
	ExpandTerms(annot int, match func(key string) bool, s sensitivity.Sensitivity) *roaring.Bitmap
}

// TermSet is a resolved single-token clause.
type TermSet struct {
	Annotation int
	Terms      *roaring.Bitmap
	Label      string
}

// Resolver turns single-token clauses into term id sets. Results are cached
// per node, so a Resolver belongs to one compilation and is not safe for
// concurrent use.
type Resolver struct {
	Accessor       TermExpander
	MainAnnotation string
	// Defaults holds the sensitivity used when a clause names none.
	// Annotations missing from the map are matched insensitively.
	Defaults map[string]sensitivity.Sensitivity

	cache map[Pattern]TermSet
}

// NewResolver creates a resolver over acc.
func NewResolver(acc TermExpander, mainAnnotation string, defaults map[string]sensitivity.Sensitivity) *Resolver {
	return &Resolver{Accessor: acc, MainAnnotation: mainAnnotation, Defaults: defaults}
}

// TokenSet resolves p if it matches exactly one token through a term set:
// a term, prefix, wildcard or fuzzy clause, or an or of such clauses on a
// single annotation. ok is false for any other pattern.
func (r *Resolver) TokenSet(p Pattern) (ts TermSet, ok bool, err error) {
	if cached, hit := r.cache[p]; hit {
		return cached, true, nil
	}
	switch v := p.(type) {
	case tokenClause:
		ts, err = r.resolve(v)
		if err != nil {
			return TermSet{}, false, err
		}
	case *Or:
		ts, ok, err = r.union(v)
		if !ok || err != nil {
			return TermSet{}, false, err
		}
	default:
		return TermSet{}, false, nil
	}
	if r.cache == nil {
		r.cache = make(map[Pattern]TermSet)
	}
	r.cache[p] = ts
	return ts, true, nil
}

// annotationNumber returns the number and name of the annotation m reads.
func (r *Resolver) annotationNumber(m *TokenMatch) (int, string, error) {
	name := m.Annotation
	if name == "" {
		name = r.MainAnnotation
	}
	n, err := r.Accessor.AnnotationNumber(name)
	if err != nil {
		return -1, name, err
	}
	return n, name, nil
}

func (r *Resolver) sensitivityOf(m *TokenMatch, annotation string) sensitivity.Sensitivity {
	if m.Sensitivity != nil {
		return *m.Sensitivity
	}
	if s, ok := r.Defaults[annotation]; ok {
		return s
	}
	return sensitivity.Insensitive
}

func (r *Resolver) resolve(p tokenClause) (TermSet, error) {
	m := p.token()
	annot, name, err := r.annotationNumber(m)
	if err != nil {
		return TermSet{}, err
	}
	s := r.sensitivityOf(m, name)

	var terms *roaring.Bitmap
	var label string
	switch v := p.(type) {
	case *Term:
		terms = r.Accessor.TermNumbers(annot, v.Value, s)
		label = v.Value
	case *Prefix:
		a := automaton.NewPrefixAutomaton(sensitivity.Key(v.Prefix, s))
		terms = r.Accessor.ExpandTerms(annot, automaton.Matcher(a), s)
		label = v.Prefix + "*"
	case *Wildcard:
		a, err := automaton.NewWildcardAutomaton(sensitivity.Key(v.Pattern, s))
		if err != nil {
			return TermSet{}, fmt.Errorf("wildcard %q: %w", v.Pattern, err)
		}
		terms = r.Accessor.ExpandTerms(annot, automaton.Matcher(a), s)
		label = v.Pattern
	case *Fuzzy:
		a, err := automaton.NewLevenshteinAutomaton(sensitivity.Key(v.Value, s), v.MaxDistance)
		if err != nil {
			return TermSet{}, fmt.Errorf("%w: %v", ErrInvalidDistance, err)
		}
		terms = r.Accessor.ExpandTerms(annot, automaton.Matcher(a), s)
		label = fmt.Sprintf("%s~%d", v.Value, v.MaxDistance)
	default:
		return TermSet{}, fmt.Errorf("%w: %T", ErrUnsupportedPattern, p)
	}
	if terms.GetCardinality() > MaxTermsExpanded {
		return TermSet{}, fmt.Errorf("%w: %s matches %d terms (max %d)", ErrTooManyTerms, p, terms.GetCardinality(), MaxTermsExpanded)
	}
	if m.Annotation != "" {
		label = m.Annotation + ":" + label
	}
	return TermSet{Annotation: annot, Terms: terms, Label: label}, nil
}

func (r *Resolver) union(p *Or) (TermSet, bool, error) {
	if len(p.Clauses) == 0 {
		return TermSet{}, false, nil
	}
	for _, c := range p.Clauses {
		if _, ok := c.(tokenClause); !ok {
			return TermSet{}, false, nil
		}
	}
	out := TermSet{Annotation: -1, Terms: roaring.New()}
	labels := make([]string, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		ts, _, err := r.TokenSet(c)
		if err != nil {
			return TermSet{}, false, err
		}
		if out.Annotation >= 0 && ts.Annotation != out.Annotation {
			return TermSet{}, false, nil
		}
		out.Annotation = ts.Annotation
		out.Terms.Or(ts.Terms)
		labels = append(labels, ts.Label)
	}
	out.Label = strings.Join(labels, "|")
	return out, true, nil
}
