package taxonomy

import (
	"strings"

	"github.com/lysyi3m/complaint-comb/app/locale"
)

const ReasonCount = 10

// Taxonomy is the closed set of categories and reasons an assignment may carry.
// It is immutable after construction and safe for concurrent use.
type Taxonomy struct {
	categories      []string
	reasons         []string
	defaultCategory string
	defaultReason   string

	foldedCategories []string
	foldedReasons    []string
}

// Fold is the normalization used for every taxonomy comparison.
func Fold(s string) string {
	return locale.Lower(s)
}

func New(categories, reasons []string, defaultCategory, defaultReason string) *Taxonomy {
	t := &Taxonomy{
		categories:      append([]string(nil), categories...),
		reasons:         append([]string(nil), reasons...),
		defaultCategory: defaultCategory,
		defaultReason:   defaultReason,
	}

	t.foldedCategories = foldAll(t.categories)
	t.foldedReasons = foldAll(t.reasons)

	return t
}

func (t *Taxonomy) Categories() []string {
	return append([]string(nil), t.categories...)
}

func (t *Taxonomy) Reasons() []string {
	return append([]string(nil), t.reasons...)
}

func (t *Taxonomy) DefaultCategory() string {
	return t.defaultCategory
}

func (t *Taxonomy) DefaultReason() string {
	return t.defaultReason
}

// ResolveCategory maps free text onto a known category, falling back to the default.
func (t *Taxonomy) ResolveCategory(raw string) string {
	return resolve(raw, t.categories, t.foldedCategories, t.defaultCategory)
}

// ResolveReason maps free text onto a known reason, falling back to the default.
func (t *Taxonomy) ResolveReason(raw string) string {
	return resolve(raw, t.reasons, t.foldedReasons, t.defaultReason)
}

func (t *Taxonomy) IsCategory(value string) bool {
	return indexOf(Fold(value), t.foldedCategories) >= 0
}

func (t *Taxonomy) IsReason(value string) bool {
	return indexOf(Fold(value), t.foldedReasons) >= 0
}

// resolve checks an exact match first so that canonical values always map to
// themselves, then falls back to substring containment in either direction.
// List order breaks ties.
func resolve(raw string, entries, folded []string, fallback string) string {
	needle := Fold(raw)
	if needle == "" {
		return fallback
	}

	if i := indexOf(needle, folded); i >= 0 {
		return entries[i]
	}

	for i, candidate := range folded {
		if strings.Contains(needle, candidate) || strings.Contains(candidate, needle) {
			return entries[i]
		}
	}

	return fallback
}

func indexOf(needle string, folded []string) int {
	for i, candidate := range folded {
		if candidate == needle {
			return i
		}
	}
	return -1
}

func foldAll(values []string) []string {
	folded := make([]string, len(values))
	for i, v := range values {
		folded[i] = Fold(v)
	}
	return folded
}
