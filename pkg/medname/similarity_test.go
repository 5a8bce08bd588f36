package medname

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"Identical", "Parkinson Disease", "parkinson disease", 1.0, 1.0},
		{"Possessive variant", "Parkinson's Disease", "Parkinson Disease", 0.9, 1.0},
		{"Partial name", "Parkinson", "Parkinson Disease", 0.6, 0.9},
		{"Minor typo", "Parkinsn Disease", "Parkinson Disease", 0.9, 1.0},
		{"Colloquial plural stays below match threshold", "Parkinsons", "Parkinson Disease", 0.5, 0.6},
		{"Unrelated", "ZZZ_NOT_A_DISEASE", "Parkinson Disease", 0.0, 0.55},
		{"Repeated token counts once", "Stage Stage", "Stage", 0.0, 1.0},
		{"Empty input", "", "Parkinson Disease", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q) = %.3f, want within [%.2f, %.2f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "Huntington", "Huntington Disease"
	if Similarity(a, b) != Similarity(b, a) {
		t.Errorf("Similarity is not symmetric for %q / %q", a, b)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"gaucher", "gaucher", 0},
		{"wilson", "wilsons", 1},
	}

	for _, tt := range tests {
		if got := levenshtein([]rune(tt.a), []rune(tt.b)); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
