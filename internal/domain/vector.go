package domain

import (
	"math"
	"strconv"
	"strings"
)

// CosineSimilarity returns a bounded similarity score in [0,1] between two
// vectors: 1 = identical direction, 0 = no meaningful comparison. Empty
// vectors, dimension mismatches and zero magnitudes all yield 0 rather than
// an error. The raw cosine range [-1,1] is rescaled via (cos+1)/2 so
// downstream thresholds operate on a single unsigned scale.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	// Guard against float drift pushing cos outside [-1,1].
	cos = math.Max(-1, math.Min(1, cos))

	return (cos + 1) / 2
}

// ParseVector parses a text-encoded embedding as some storage layers return
// it: "[0.1, 0.2, 0.3]" or a bare comma-delimited list. Unparsable input
// yields nil ("no embedding"), never an error.
func ParseVector(s string) []float32 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}

	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil
		}
		vec = append(vec, float32(f))
	}
	if len(vec) == 0 {
		return nil
	}
	return vec
}
