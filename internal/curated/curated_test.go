package curated

import (
	"reflect"
	"testing"

	"github.com/drug-repurposing-engine/internal/domain"
)

func loadLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return lib
}

func TestLoadValidatesEmbeddedData(t *testing.T) {
	lib := loadLibrary(t)

	if len(lib.Contraindications()) == 0 {
		t.Fatal("no contraindication records loaded")
	}
	for _, d := range lib.Contraindications() {
		if d.Keyword == "" {
			t.Error("contraindication entry without keyword")
		}
		for _, r := range d.Rules {
			sev := domain.Severity(r.Severity)
			if sev != domain.SeverityAbsolute && sev != domain.SeverityRelative {
				t.Errorf("keyword %q: invalid severity %q", d.Keyword, r.Severity)
			}
		}
	}
}

func TestPathwaysFor(t *testing.T) {
	lib := loadLibrary(t)

	tests := []struct {
		name  string
		genes []string
		want  []string
	}{
		{
			"Parkinson core genes",
			[]string{"SNCA", "MAOB"},
			[]string{"Alpha-synuclein aggregation", "Autophagy", "Dopamine metabolism", "Monoamine oxidase"},
		},
		{
			"Case insensitive",
			[]string{"snca"},
			[]string{"Alpha-synuclein aggregation", "Autophagy", "Dopamine metabolism"},
		},
		{
			"Unknown gene falls back",
			[]string{"NOT_A_GENE"},
			[]string{"General cellular signaling"},
		},
		{
			"Empty input falls back",
			nil,
			[]string{"General cellular signaling"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lib.PathwaysFor(tt.genes)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PathwaysFor(%v) = %v, want %v", tt.genes, got, tt.want)
			}
		})
	}
}

func TestPathwaysForIsSorted(t *testing.T) {
	lib := loadLibrary(t)
	got := lib.PathwaysFor([]string{"LRRK2", "GBA", "PRKN"})
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("pathways not sorted: %v", got)
		}
	}
}

func TestGenePathwaysNoFallback(t *testing.T) {
	lib := loadLibrary(t)

	if got := lib.GenePathways([]string{"NOT_A_GENE"}); got != nil {
		t.Errorf("GenePathways(unknown) = %v, want nil", got)
	}
	if got := lib.GenePathways(nil); got != nil {
		t.Errorf("GenePathways(nil) = %v, want nil", got)
	}
	got := lib.GenePathways([]string{"maob"})
	want := []string{"Dopamine metabolism", "Monoamine oxidase"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenePathways(maob) = %v, want %v", got, want)
	}
}

func TestFallbackTargets(t *testing.T) {
	lib := loadLibrary(t)

	tests := []struct {
		name string
		drug string
		want []string
	}{
		{"Exact", "NILOTINIB", []string{"ABL1", "KIT", "PDGFRA", "LRRK2", "DDR1"}},
		{"Lower case", "ambroxol", []string{"GBA", "GBA1", "LAMP1", "LAMP2"}},
		{"Salt variant contains name", "METFORMIN HYDROCHLORIDE", []string{"PRKAA1", "PRKAA2", "GPD1"}},
		{"Unknown", "OBSCURUMAB", nil},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lib.FallbackTargets(tt.drug)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FallbackTargets(%q) = %v, want %v", tt.drug, got, tt.want)
			}
		})
	}
}

func TestFallbackTargetsReturnsCopy(t *testing.T) {
	lib := loadLibrary(t)
	first := lib.FallbackTargets("RASAGILINE")
	first[0] = "MUTATED"
	if second := lib.FallbackTargets("RASAGILINE"); second[0] != "MAOB" {
		t.Error("FallbackTargets exposed internal slice")
	}
}

func TestIsRare(t *testing.T) {
	lib := loadLibrary(t)

	tests := []struct {
		name        string
		disease     string
		description string
		want        bool
	}{
		{"Orphan keyword in description", "Gaucher Disease", "A rare lysosomal storage disorder", true},
		{"Dystrophy in name", "Duchenne Muscular Dystrophy", "", true},
		{"Common disease", "Hypertension", "Elevated blood pressure", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lib.IsRare(tt.disease, tt.description); got != tt.want {
				t.Errorf("IsRare(%q) = %v, want %v", tt.disease, got, tt.want)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	lib := loadLibrary(t)

	parkinson := lib.Suggest("parkinson", 10)
	if len(parkinson) != 1 || parkinson[0] != "Parkinson Disease" {
		t.Errorf("Suggest(parkinson) = %v", parkinson)
	}

	// No match returns leading defaults, capped at limit.
	fallback := lib.Suggest("zzz", 10)
	if len(fallback) != 10 {
		t.Errorf("Suggest fallback returned %d entries, want 10", len(fallback))
	}

	all := lib.Suggest("", 0)
	if len(all) == 0 {
		t.Error("Suggest with empty query returned nothing")
	}
}
