// Package rangeset implements merge, invert and split over inclusive,
// 1-based line ranges. The segmenter composes these to cover every line of a
// file exactly once.
package rangeset

import "sort"

// Range is an inclusive line range.
type Range struct {
	Start int
	End   int
}

// Len returns the number of lines in the range, or 0 if it is empty.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Merge sorts ranges by start and merges those that overlap or touch
// (next.Start <= cur.End+1). The input slice is not modified.
func Merge(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Len() > 0 {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// Invert returns the maximal sub-ranges of [1, total] not covered by any
// range in covered. Covered ranges may be unsorted and overlapping.
func Invert(total int, covered []Range) []Range {
	if total <= 0 {
		return nil
	}
	merged := Merge(covered)
	if len(merged) == 0 {
		return []Range{{Start: 1, End: total}}
	}

	var gaps []Range
	cur := 1
	for _, r := range merged {
		if r.Start > total {
			break
		}
		if cur < r.Start {
			gaps = append(gaps, Range{Start: cur, End: r.Start - 1})
		}
		if r.End+1 > cur {
			cur = r.End + 1
		}
	}
	if cur <= total {
		gaps = append(gaps, Range{Start: cur, End: total})
	}
	return gaps
}

// Split partitions [start, end] into consecutive windows of at most maxSize
// lines. The last window may be shorter. A maxSize below 1 is treated as 1.
func Split(start, end, maxSize int) []Range {
	if end < start {
		return nil
	}
	if maxSize < 1 {
		maxSize = 1
	}
	out := make([]Range, 0, (end-start)/maxSize+1)
	for i := start; i <= end; i += maxSize {
		j := i + maxSize - 1
		if j > end {
			j = end
		}
		out = append(out, Range{Start: i, End: j})
	}
	return out
}
