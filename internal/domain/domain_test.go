package domain

import "testing"

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		name      string
		composite float64
		want      Confidence
	}{
		{"Well above high", 0.95, ConfidenceHigh},
		{"Exactly high boundary", 0.7, ConfidenceHigh},
		{"Just below high", 0.6999, ConfidenceMedium},
		{"Exactly medium boundary", 0.5, ConfidenceMedium},
		{"Just below medium", 0.4999, ConfidenceLow},
		{"Zero", 0, ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConfidenceFor(tt.composite); got != tt.want {
				t.Errorf("ConfidenceFor(%v) = %q, want %q", tt.composite, got, tt.want)
			}
		})
	}
}

func TestAnalysisRequestNormalized(t *testing.T) {
	r := AnalysisRequest{DiseaseName: "Parkinson Disease"}.Normalized()
	if r.MinScore != DefaultMinScore {
		t.Errorf("MinScore default = %v, want %v", r.MinScore, DefaultMinScore)
	}
	if r.MaxResults != DefaultMaxResults {
		t.Errorf("MaxResults default = %v, want %v", r.MaxResults, DefaultMaxResults)
	}

	explicit := AnalysisRequest{DiseaseName: "x", MinScore: 0.5, MaxResults: 3}.Normalized()
	if explicit.MinScore != 0.5 || explicit.MaxResults != 3 {
		t.Error("Normalized overwrote explicit values")
	}
}

func TestAnalysisRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     AnalysisRequest
		wantErr bool
	}{
		{"Valid", AnalysisRequest{DiseaseName: "Gaucher Disease", MinScore: 0.2, MaxResults: 10}, false},
		{"Missing name", AnalysisRequest{MinScore: 0.2, MaxResults: 10}, true},
		{"Negative min score", AnalysisRequest{DiseaseName: "x", MinScore: -0.1, MaxResults: 10}, true},
		{"Min score above one", AnalysisRequest{DiseaseName: "x", MinScore: 1.5, MaxResults: 10}, true},
		{"Negative max results", AnalysisRequest{DiseaseName: "x", MinScore: 0.1, MaxResults: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsCode(err, ErrCodeInvalidInput) {
				t.Errorf("Validate() code = %v, want %s", err, ErrCodeInvalidInput)
			}
		})
	}
}

func TestDiseaseTopGenes(t *testing.T) {
	d := &Disease{Genes: []string{"SNCA", "LRRK2", "PRKN"}}
	if got := d.TopGenes(2); len(got) != 2 || got[0] != "SNCA" {
		t.Errorf("TopGenes(2) = %v", got)
	}
	if got := d.TopGenes(10); len(got) != 3 {
		t.Errorf("TopGenes(10) = %v, want all 3", got)
	}
	// Returned slice must be a copy.
	d.TopGenes(3)[0] = "MUTATED"
	if d.Genes[0] != "SNCA" {
		t.Error("TopGenes leaked the backing array")
	}
}

func TestGeneWeightDefaults(t *testing.T) {
	unweighted := &Disease{Genes: []string{"GBA"}}
	if w := unweighted.GeneWeight("GBA"); w != 1 {
		t.Errorf("GeneWeight without scores = %v, want 1", w)
	}

	weighted := &Disease{
		Genes:      []string{"GBA", "SNCA"},
		GeneScores: map[string]float64{"GBA": 0.8},
	}
	if w := weighted.GeneWeight("GBA"); w != 0.8 {
		t.Errorf("GeneWeight(GBA) = %v, want 0.8", w)
	}
	if w := weighted.GeneWeight("SNCA"); w != 1 {
		t.Errorf("GeneWeight(SNCA) missing entry = %v, want 1", w)
	}
}

func TestEvidenceBlockCount(t *testing.T) {
	v := &ClinicalValidation{}
	if v.EvidenceBlockCount() != 0 {
		t.Error("empty validation should have zero blocks")
	}
	v.LiteratureEvidence = &LiteratureEvidence{ArticleCount: 3}
	v.MechanismAnalysis = &MechanismEvidence{Plausibility: MechanismSupportive}
	if v.EvidenceBlockCount() != 2 {
		t.Errorf("EvidenceBlockCount() = %d, want 2", v.EvidenceBlockCount())
	}
}
