package voting

import "fmt"

// rankedPoints maps position to points for ranked categories.
var rankedPoints = map[int]int{1: 5, 2: 4, 3: 3, 4: 2, 5: 1}

// SinglePoints is the flat score every single-choice selection earns.
const SinglePoints = 5

// Points maps a rank within a category to its point value. Out-of-range
// ranks are an error, never silently zero; admin edits and ballot
// submission both go through this function.
func Points(rank int, ranked bool) (int, error) {
	if ranked {
		pts, ok := rankedPoints[rank]
		if !ok {
			return 0, fmt.Errorf("rank %d is out of range for a ranked category (want 1-5)", rank)
		}
		return pts, nil
	}
	if rank != 1 {
		return 0, fmt.Errorf("rank %d is out of range for a single-choice category (want 1)", rank)
	}
	return SinglePoints, nil
}
