// Package ml holds the shared vector math used by the embedding store,
// the profile builder and the deep-match scorer.
package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cosine returns the cosine similarity of a and b in [-1, 1]. A dimension
// mismatch or a zero-magnitude vector yields 0 rather than an error so that
// a single bad candidate never fails a whole query.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}

	return floats.Dot(a, b) / (na * nb)
}

// Dot returns the dot product of a and b, or 0 on dimension mismatch.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return floats.Dot(a, b)
}

// MeanElementwiseProduct is the mean of a[i]*b[i], or 0 on mismatch.
func MeanElementwiseProduct(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum / float64(len(a))
}

func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// WeightedMean accumulates weight*vec into sum, growing sum on first use.
// Vectors whose dimension differs from the accumulator are ignored and the
// caller is expected to log the skip. It returns false when vec was skipped.
func WeightedMean(sum []float64, vec []float64, weight float64) bool {
	if len(sum) != len(vec) {
		return false
	}
	floats.AddScaled(sum, weight, vec)
	return true
}

// Scale divides v in place by the given divisor.
func Scale(v []float64, divisor float64) {
	if divisor == 0 {
		return
	}
	floats.Scale(1/divisor, v)
}
