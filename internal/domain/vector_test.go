package domain

import (
	"math"
	"testing"
)

func TestCosineSimilarity_IdenticalVectors(t *testing.T) {
	v := []float32{0.1, 0.2, 0.3}
	if sim := CosineSimilarity(v, v); math.Abs(sim-1) > 1e-9 {
		t.Errorf("identical vectors: got %v, want 1", sim)
	}
}

func TestCosineSimilarity_OppositeVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	if sim := CosineSimilarity(a, b); math.Abs(sim) > 1e-9 {
		t.Errorf("opposite vectors: got %v, want 0", sim)
	}
}

func TestCosineSimilarity_OrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if sim := CosineSimilarity(a, b); math.Abs(sim-0.5) > 1e-9 {
		t.Errorf("orthogonal vectors: got %v, want 0.5", sim)
	}
}

func TestCosineSimilarity_DegenerateInputs(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
	}{
		{"both empty", nil, nil},
		{"one empty", []float32{1, 2}, nil},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}},
		{"zero magnitude", []float32{0, 0}, []float32{1, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if sim := CosineSimilarity(tc.a, tc.b); sim != 0 {
				t.Errorf("got %v, want 0", sim)
			}
		})
	}
}

func TestCosineSimilarity_AlwaysInUnitRange(t *testing.T) {
	a := []float32{0.3, -0.7, 0.12, 0.9}
	b := []float32{-0.5, 0.2, 0.8, -0.1}
	sim := CosineSimilarity(a, b)
	if sim < 0 || sim > 1 {
		t.Errorf("similarity out of [0,1]: %v", sim)
	}
}

func TestParseVector_Bracketed(t *testing.T) {
	vec := ParseVector("[0.1, 0.2, 0.3]")
	if len(vec) != 3 || vec[0] != 0.1 || vec[2] != 0.3 {
		t.Errorf("unexpected vector: %v", vec)
	}
}

func TestParseVector_BareList(t *testing.T) {
	vec := ParseVector("1.5,-2.5,3")
	if len(vec) != 3 || vec[1] != -2.5 {
		t.Errorf("unexpected vector: %v", vec)
	}
}

func TestParseVector_Unparsable(t *testing.T) {
	for _, s := range []string{"", "   ", "[]", "[abc]", "not a vector"} {
		if vec := ParseVector(s); vec != nil {
			t.Errorf("ParseVector(%q): got %v, want nil", s, vec)
		}
	}
}
