package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/config"
)

const openaiRequestTimeout = 15 * time.Second

// OpenAIProvider generates explanations through the OpenAI chat API.
// Any API failure falls back to the heuristic template so the analyze
// path never fails on explanation generation.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	fallback    *HeuristicProvider
	logger      *logrus.Logger
}

// NewOpenAIProvider builds the provider from configuration.
func NewOpenAIProvider(cfg config.LLMConfig, logger *logrus.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai explanation provider requires an API key")
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}

	return &OpenAIProvider{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
		fallback:    NewHeuristicProvider(),
		logger:      logger,
	}, nil
}

// Name identifies the provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// IsAvailable checks the API with a lightweight model listing call.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.ListModels(ctx); err != nil {
		p.logger.WithError(err).Debug("OpenAI availability check failed")
		return false
	}
	return true
}

// Explain asks the model for a short clinical rationale. On any error
// the heuristic template text is returned instead.
func (p *OpenAIProvider) Explain(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, openaiRequestTimeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You write one-sentence rationales for drug repurposing candidates. " +
					"Mention only the genes and pathways provided. Do not give medical advice.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: p.prompt(req),
			},
		},
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		p.logger.WithError(err).WithField("drug", req.DrugName).
			Warn("OpenAI explanation failed, using heuristic template")
		return p.fallback.Explain(ctx, req)
	}
	if len(resp.Choices) == 0 {
		return p.fallback.Explain(ctx, req)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return p.fallback.Explain(ctx, req)
	}
	return text, nil
}

func (p *OpenAIProvider) prompt(req Request) string {
	return fmt.Sprintf(
		"Drug: %s\nDisease: %s\nMechanism: %s\nShared genes: %s\nShared pathways: %s\nConfidence: %s\n\n"+
			"Write one sentence explaining why this drug is a repurposing candidate for this disease.",
		req.DrugName, req.DiseaseName, req.Mechanism,
		strings.Join(req.SharedGenes, ", "), strings.Join(req.SharedPathways, ", "),
		req.Confidence)
}
