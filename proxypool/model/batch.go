package model

import "sort"

// CandidateBatch 是单个来源解析出的有序候选列表。
type CandidateBatch struct {
	Source     string
	Priority   int // 越小越优先
	Candidates []string
}

// Interleave merges batches so that the first head entries of every batch,
// in priority order, come before any batch's remainder. Batches with equal
// priority keep their input order.
func Interleave(batches []CandidateBatch, head int) []string {
	ordered := make([]CandidateBatch, len(batches))
	copy(ordered, batches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	total := 0
	for _, b := range ordered {
		total += len(b.Candidates)
	}

	merged := make([]string, 0, total)
	for _, b := range ordered {
		merged = append(merged, b.Candidates[:min(head, len(b.Candidates))]...)
	}
	for _, b := range ordered {
		if len(b.Candidates) > head {
			merged = append(merged, b.Candidates[head:]...)
		}
	}
	return merged
}
