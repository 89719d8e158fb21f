package core

import "math"

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	magnitude := Norm(v)
	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b in [-1,1].
// Returns 0 when either vector is empty, zero, or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Rounding can push identical vectors slightly past 1.
	return math.Max(-1, math.Min(1, cos))
}

// MeanVector returns the element-wise mean of vectors, which must share a dimension.
func MeanVector(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyVectorSet
	}
	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, ErrDimensionMismatch
		}
		for i, val := range v {
			sums[i] += float64(val)
		}
	}
	mean := make([]float32, dim)
	n := float64(len(vectors))
	for i, s := range sums {
		mean[i] = float32(s / n)
	}
	return mean, nil
}
