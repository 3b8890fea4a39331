package embedding

import "math"

// Vector is one embedding.
type Vector []float32

// Similarity returns the cosine similarity of a and b in [-1,1]. Empty,
// mismatched or zero vectors have similarity 0.
func Similarity(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// rounding can push |sim| past 1 for near-parallel vectors
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}
