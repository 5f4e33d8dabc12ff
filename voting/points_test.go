package voting

import "testing"

func TestPointsRanked(t *testing.T) {
	want := map[int]int{1: 5, 2: 4, 3: 3, 4: 2, 5: 1}
	for rank, expected := range want {
		got, err := Points(rank, true)
		if err != nil {
			t.Fatalf("Points(%d, true) returned error: %v", rank, err)
		}
		if got != expected {
			t.Fatalf("Points(%d, true) = %d, want %d", rank, got, expected)
		}
	}
}

func TestPointsRankedOutOfRange(t *testing.T) {
	for _, rank := range []int{0, -1, 6, 10} {
		if _, err := Points(rank, true); err == nil {
			t.Fatalf("Points(%d, true) should reject out-of-range rank", rank)
		}
	}
}

func TestPointsSingleChoice(t *testing.T) {
	got, err := Points(1, false)
	if err != nil {
		t.Fatalf("Points(1, false) returned error: %v", err)
	}
	if got != SinglePoints {
		t.Fatalf("Points(1, false) = %d, want %d", got, SinglePoints)
	}

	for _, rank := range []int{0, 2, 5} {
		if _, err := Points(rank, false); err == nil {
			t.Fatalf("Points(%d, false) should reject rank other than 1", rank)
		}
	}
}
