package domain

// RiskLevel grades the clinical risk of repurposing a drug for a disease.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ValidationState tracks one clinical validation request.
// Transitions: Idle -> Validating -> {Validated | Failed}. Failed is
// terminal; there are no automatic retries.
type ValidationState string

const (
	ValidationIdle       ValidationState = "idle"
	ValidationValidating ValidationState = "validating"
	ValidationValidated  ValidationState = "validated"
	ValidationFailed     ValidationState = "failed"
)

// ValidationRequest identifies the (drug, disease) pair to validate,
// with optional context carried over from the analysis response.
type ValidationRequest struct {
	DrugName    string `json:"drug_name"`
	DiseaseName string `json:"disease_name"`
	Mechanism   string `json:"mechanism,omitempty"`
	Indication  string `json:"indication,omitempty"`
	Description string `json:"description,omitempty"` // disease description
}

// Validate rejects pairs the validator cannot look up.
func (r ValidationRequest) Validate() error {
	if r.DrugName == "" {
		return NewInvalidInput("drug_name", "drug name is required")
	}
	if r.DiseaseName == "" {
		return NewInvalidInput("disease_name", "disease name is required")
	}
	return nil
}

// TrialEvidence summarizes registered clinical trials for the pair.
type TrialEvidence struct {
	TotalStudies int    `json:"total_studies"`
	Recruiting   int    `json:"recruiting"`
	LatePhase    int    `json:"late_phase"` // phase 3 and 4 studies
	Summary      string `json:"summary"`
}

// ArticleRef points at one supporting publication.
type ArticleRef struct {
	PMID  string `json:"pmid"`
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// LiteratureEvidence summarizes published literature for the pair.
type LiteratureEvidence struct {
	ArticleCount int          `json:"article_count"`
	Articles     []ArticleRef `json:"articles,omitempty"`
	Summary      string       `json:"summary"`
}

// SafetyEvidence summarizes adverse-event signals for the drug.
type SafetyEvidence struct {
	ReportCount  int      `json:"report_count"`
	TopReactions []string `json:"top_reactions,omitempty"`
	BoxedWarning bool     `json:"boxed_warning"`
	Summary      string   `json:"summary"`
}

// MechanismEvidence grades mechanistic plausibility of the pairing.
type MechanismEvidence struct {
	Plausibility  string   `json:"plausibility"` // supportive | uncertain | weak
	SharedTargets []string `json:"shared_targets,omitempty"`
	Summary       string   `json:"summary"`
}

// Mechanism plausibility labels.
const (
	MechanismSupportive = "supportive"
	MechanismUncertain  = "uncertain"
	MechanismWeak       = "weak"
)

// ClinicalValidation aggregates the four evidence lookups into a risk
// level and recommendation. A nil block means that lookup produced
// nothing (failure or timeout) and is omitted from the response; risk is
// computed from whichever blocks are present and defaults conservatively
// to MEDIUM when none are.
type ClinicalValidation struct {
	RiskLevel       RiskLevel `json:"risk_level"`
	Recommendation  string    `json:"recommendation"`
	EvidenceSummary []string  `json:"evidence_summary"`

	ClinicalTrials     *TrialEvidence      `json:"clinical_trials,omitempty"`
	LiteratureEvidence *LiteratureEvidence `json:"literature_evidence,omitempty"`
	SafetySignals      *SafetyEvidence     `json:"safety_signals,omitempty"`
	MechanismAnalysis  *MechanismEvidence  `json:"mechanism_analysis,omitempty"`
}

// EvidenceBlockCount reports how many evidence blocks are present.
func (v *ClinicalValidation) EvidenceBlockCount() int {
	n := 0
	if v.ClinicalTrials != nil {
		n++
	}
	if v.LiteratureEvidence != nil {
		n++
	}
	if v.SafetySignals != nil {
		n++
	}
	if v.MechanismAnalysis != nil {
		n++
	}
	return n
}
