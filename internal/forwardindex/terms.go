package forwardindex

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/sensitivity"
)

// Terms is the vocabulary of one annotation. Ids are assigned in insertion
// order and never change. After Freeze, every term also has a sort
// position per sensitivity: terms that compare equal under a sensitivity
// share a sort position.
type Terms struct {
	strings []string
	ids     map[string]fimatch.TermID

	frozen  bool
	sortPos [4][]int32
	keys    [4][]string
	byKey   [4]map[string]*roaring.Bitmap
}

func NewTerms() *Terms {
	return &Terms{ids: make(map[string]fimatch.TermID)}
}

// Add returns the id of term, assigning a new one if needed.
func (t *Terms) Add(term string) fimatch.TermID {
	if id, ok := t.ids[term]; ok {
		return id
	}
	if t.frozen {
		panic(ErrFrozen)
	}
	id := fimatch.TermID(len(t.strings))
	t.ids[term] = id
	t.strings = append(t.strings, term)
	return id
}

// Freeze computes the sort positions. The vocabulary is read-only
// afterwards.
func (t *Terms) Freeze() {
	if t.frozen {
		return
	}
	for _, s := range sensitivity.All {
		m := int(s)
		byKey := make(map[string]*roaring.Bitmap)
		termKeys := make([]string, len(t.strings))
		for id, term := range t.strings {
			k := sensitivity.Key(term, s)
			termKeys[id] = k
			bm, ok := byKey[k]
			if !ok {
				bm = roaring.New()
				byKey[k] = bm
			}
			bm.Add(uint32(id))
		}
		keys := make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rank := make(map[string]int32, len(keys))
		for i, k := range keys {
			rank[k] = int32(i)
		}
		pos := make([]int32, len(t.strings))
		for id, k := range termKeys {
			pos[id] = rank[k]
		}
		t.sortPos[m] = pos
		t.keys[m] = keys
		t.byKey[m] = byKey
	}
	t.frozen = true
}

func (t *Terms) mustBeFrozen() {
	if !t.frozen {
		panic(ErrNotFrozen)
	}
}

// IndexOf returns the id of term, or NoTerm.
func (t *Terms) IndexOf(term string) fimatch.TermID {
	if id, ok := t.ids[term]; ok {
		return id
	}
	return fimatch.NoTerm
}

// Get returns the string for id, or "" for an unknown id.
func (t *Terms) Get(id fimatch.TermID) string {
	if id < 0 || int(id) >= len(t.strings) {
		return ""
	}
	return t.strings[id]
}

func (t *Terms) NumberOfTerms() int { return len(t.strings) }

// SortPosition returns the sort position of id under s, or -1.
func (t *Terms) SortPosition(id fimatch.TermID, s sensitivity.Sensitivity) int32 {
	t.mustBeFrozen()
	if id < 0 || int(id) >= len(t.strings) {
		return -1
	}
	return t.sortPos[int(s)][id]
}

// TermsEqual compares two ids by sort position.
func (t *Terms) TermsEqual(a, b fimatch.TermID, s sensitivity.Sensitivity) bool {
	if a == b {
		return a != fimatch.NoTerm
	}
	if s == sensitivity.Sensitive {
		return false
	}
	pa, pb := t.SortPosition(a, s), t.SortPosition(b, s)
	return pa >= 0 && pa == pb
}

// TermNumbers returns the ids of all terms equal to literal under s. The
// result is a fresh bitmap owned by the caller.
func (t *Terms) TermNumbers(literal string, s sensitivity.Sensitivity) *roaring.Bitmap {
	t.mustBeFrozen()
	if bm, ok := t.byKey[int(s)][sensitivity.Key(literal, s)]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// Expand returns the ids of all terms whose comparison key under s is
// accepted by match. Keys are visited in sort order.
func (t *Terms) Expand(match func(key string) bool, s sensitivity.Sensitivity) *roaring.Bitmap {
	t.mustBeFrozen()
	out := roaring.New()
	m := int(s)
	for _, k := range t.keys[m] {
		if match(k) {
			out.Or(t.byKey[m][k])
		}
	}
	return out
}

// Strings returns the vocabulary in id order.
func (t *Terms) Strings() []string { return t.strings }
