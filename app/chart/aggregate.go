package chart

import (
	"cmp"
	"slices"

	"github.com/lysyi3m/complaint-comb/app/locale"
)

const (
	// MaxSlices caps the slices of one pie chart, the "Diğer" slice included.
	MaxSlices  = 8
	OtherLabel = "Diğer"
)

var otherVariants = map[string]bool{
	"diğer": true,
	"diger": true,
	"other": true,
}

type Slice struct {
	Label string
	Count int
}

// IsOther reports whether label is one of the "other" spellings.
func IsOther(label string) bool {
	return otherVariants[locale.Lower(label)]
}

// Aggregate turns counts into at most MaxSlices slices, largest first. Every
// spelling of "other" is merged into one OtherLabel slice, and when too many
// labels remain the smallest ones beyond the top MaxSlices-1 join it too.
// Zero and negative counts are dropped.
func Aggregate(counts map[string]int) []Slice {
	var result []Slice
	other := 0

	for label, n := range counts {
		if n <= 0 {
			continue
		}
		if IsOther(label) {
			other += n
			continue
		}
		result = append(result, Slice{Label: label, Count: n})
	}

	slices.SortFunc(result, func(a, b Slice) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})

	limit := MaxSlices
	if other > 0 {
		limit--
	}
	if len(result) > limit {
		keep := MaxSlices - 1
		for _, s := range result[keep:] {
			other += s.Count
		}
		result = result[:keep]
	}

	if other > 0 {
		result = append(result, Slice{Label: OtherLabel, Count: other})
	}

	return result
}
