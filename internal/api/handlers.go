package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/history"
)

type analyzeRequest struct {
	DiseaseName string  `json:"disease_name"`
	MinScore    float64 `json:"min_score"`
	MaxResults  int     `json:"max_results"`
}

// handleAnalyze runs the full scoring pipeline. The endpoint always
// answers 200; failures are reported in the response envelope so the
// UI renders them inline.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, failedAnalysis("", domain.NewInvalidInput("request", "request body must be valid JSON")))
		return
	}

	outcome, err := s.deps.Analysis.Analyze(c.Request.Context(), domain.AnalysisRequest{
		DiseaseName: req.DiseaseName,
		MinScore:    req.MinScore,
		MaxResults:  req.MaxResults,
	})
	if err != nil {
		c.JSON(http.StatusOK, failedAnalysis(req.DiseaseName, err))
		return
	}

	c.JSON(http.StatusOK, successAnalysis(req.DiseaseName, outcome))
}

type validateRequest struct {
	DrugName    string `json:"drug_name"`
	DiseaseName string `json:"disease_name"`
	DrugData    struct {
		Mechanism  string `json:"mechanism"`
		Indication string `json:"indication"`
	} `json:"drug_data"`
	DiseaseData struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"disease_data"`
}

func (s *Server) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error":      "Invalid request: request body must be valid JSON.",
			"suggestion": "Adjust the request and try again.",
		})
		return
	}

	diseaseName := req.DiseaseName
	if diseaseName == "" {
		diseaseName = req.DiseaseData.Name
	}

	validation, err := s.deps.Analysis.ValidateCandidate(c.Request.Context(), domain.ValidationRequest{
		DrugName:    req.DrugName,
		DiseaseName: diseaseName,
		Mechanism:   req.DrugData.Mechanism,
		Indication:  req.DrugData.Indication,
		Description: req.DiseaseData.Description,
	})
	if err != nil {
		status := http.StatusInternalServerError
		message := "An unexpected error occurred during validation."
		suggestion := ""
		if engineErr, ok := domain.AsEngineError(err); ok {
			status = statusFor(engineErr.Code)
			message = engineErr.Message
			suggestion = engineErr.Suggestion
		}
		c.JSON(status, gin.H{
			"success":    false,
			"error":      message,
			"suggestion": suggestion,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"validation": validation,
	})
}

func statusFor(code string) int {
	switch code {
	case domain.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUpstreamUnavailable, domain.ErrCodeValidationFailed, domain.ErrCodeTransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth reports engine liveness and per-source breaker state.
// The endpoint answers 200 even when degraded; load balancers read the
// status field, not the code.
func (s *Server) handleHealth(c *gin.Context) {
	sources := map[string]string{}
	degraded := false
	if s.deps.Health != nil {
		for name, state := range s.deps.Health.BreakerStates() {
			sources[name] = state.String()
			if state == gobreaker.StateOpen {
				degraded = true
			}
		}
	}

	status := "healthy"
	message := "Drug repurposing engine operational"
	if degraded {
		status = "degraded"
		message = "One or more evidence sources are unavailable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"message": message,
		"sources": sources,
	})
}

// handleDiseaseSearch serves autocomplete from the curated library;
// the full upstream search lives behind the MCP tool instead.
func (s *Server) handleDiseaseSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))

	var suggestions []string
	if s.deps.Library != nil {
		suggestions = s.deps.Library.Suggest(query, 10)
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"query":       query,
		"suggestions": suggestions,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.deps.History == nil {
		c.JSON(http.StatusOK, gin.H{
			"analyses": []*history.AnalysisRecord{},
			"total":    0,
			"limit":    0,
			"offset":   0,
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	records, err := s.deps.History.RecentAnalyses(c.Request.Context(), limit, offset)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load analysis history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load analysis history."})
		return
	}
	if records == nil {
		records = []*history.AnalysisRecord{}
	}

	total, err := s.deps.History.CountAnalyses(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to count analysis history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load analysis history."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analyses": records,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}
