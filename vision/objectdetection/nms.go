package objectdetection

import "sort"

// NonMaxSuppression removes redundant overlapping candidates per class: the
// highest-probability box of a class suppresses any remaining box of that
// class whose IoU with it reaches iouThresh. The surviving detections of all
// classes are merged and sorted by descending probability.
//
// Sorting is stable throughout, with candidate order (the decode order) as
// the tie-break, so identical inputs always produce identical output.
func NonMaxSuppression(candidates []Detection, iouThresh float64) []Detection {
	byClass := make(map[int][]Detection)
	classes := []int{}
	for _, d := range candidates {
		if _, seen := byClass[d.Class]; !seen {
			classes = append(classes, d.Class)
		}
		byClass[d.Class] = append(byClass[d.Class], d)
	}
	sort.Ints(classes)

	final := make([]Detection, 0, len(candidates))
	for _, class := range classes {
		final = append(final, suppressClass(byClass[class], iouThresh)...)
	}
	sort.SliceStable(final, func(i, j int) bool {
		return final[i].Probability > final[j].Probability
	})
	return final
}

func suppressClass(dets []Detection, iouThresh float64) []Detection {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Probability > dets[j].Probability
	})
	kept := make([]Detection, 0, len(dets))
	for len(dets) > 0 {
		best := dets[0]
		kept = append(kept, best)
		remaining := dets[:0]
		for _, d := range dets[1:] {
			if best.Box.IoU(d.Box) < iouThresh {
				remaining = append(remaining, d)
			}
		}
		dets = remaining
	}
	return kept
}
