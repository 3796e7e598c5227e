package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-vision/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap above which a lower-confidence box is
	// suppressed as a duplicate of an already-selected one.
	IoUThreshold float32 `json:"iou_threshold"`
	// MaxResults caps the number of detections returned. Zero or negative
	// yields an empty result.
	MaxResults int `json:"max_results"`
}

// DefaultNMSConfig returns the standard suppression parameters: a 0.3 IoU
// threshold and three results per frame.
func DefaultNMSConfig() *NMSConfig {
	return &NMSConfig{
		IoUThreshold: 0.3,
		MaxResults:   3,
	}
}

// ApplyGreedyNMS filters overlapping detections using greedy Non-Maximum
// Suppression and truncates the survivors to the configured result cap.
//
// Candidates are ordered by descending confidence with a stable sort, so
// equal-confidence candidates keep their original relative order. Walking
// that order, a candidate is kept only if its IoU with every already-kept
// detection is at or below the threshold; otherwise it is considered a
// duplicate of a higher-confidence box and discarded. Zero-area boxes have
// IoU 0 against everything and are never suppressed by this rule.
//
// The input slice is not modified; O(n^2) in the candidate count, which is
// small after confidence filtering.
//
// Arguments:
//   - detections: Candidate detections in any order.
//   - config: Suppression threshold and result cap.
//
// Returns:
//   - []Result: Kept detections sorted by non-increasing confidence, at most
//     MaxResults long. Nil when no candidates are provided.
func ApplyGreedyNMS(detections []Result, config *NMSConfig) []Result {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sorted := make([]Result, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	filtered := make([]Result, 0, n)
	for _, candidate := range sorted {
		overlaps := false
		for i := range filtered {
			if images.CalculateIoU(candidate.Box, filtered[i].Box) > config.IoUThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			filtered = append(filtered, candidate)
		}
	}

	limit := config.MaxResults
	if limit < 0 {
		limit = 0
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	return filtered
}
