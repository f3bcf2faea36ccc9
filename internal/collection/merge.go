// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collection

import (
	"cmp"
	"slices"

	"github.com/pdiddy/persona-digest/pkg/types"
)

// Merge concatenates the per-document results in order, ranks the sections
// and truncates both lists to topK entries. Excerpts keep concatenation
// order. The returned slices are never nil.
func Merge(results []DocumentResult, topK int) ([]types.DocumentSection, []types.SubsectionAnalysis) {
	sections := make([]types.DocumentSection, 0)
	excerpts := make([]types.SubsectionAnalysis, 0)
	for _, r := range results {
		sections = append(sections, r.Sections...)
		excerpts = append(excerpts, r.Excerpts...)
	}

	RankSections(sections)
	return Truncate(sections, topK), Truncate(excerpts, topK)
}

// RankSections sorts sections by ascending importance rank. Sections with
// equal rank keep their relative order.
func RankSections(sections []types.DocumentSection) {
	slices.SortStableFunc(sections, func(a, b types.DocumentSection) int {
		return cmp.Compare(a.ImportanceRank, b.ImportanceRank)
	})
}

// Truncate returns the first k elements of s, or all of s when it is
// shorter. A negative k yields an empty slice.
func Truncate[T any](s []T, k int) []T {
	if k < 0 {
		k = 0
	}
	if len(s) > k {
		return s[:k]
	}
	return s
}
