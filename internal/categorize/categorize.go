// Package categorize assigns an expense category to an extracted receipt.
// The classifier is a best-effort hint: any failure, and any answer outside
// the configured category list, falls back to the default category.
package categorize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/receiptwise/backend/pkg/config"
	"github.com/receiptwise/backend/pkg/logger"
	"github.com/receiptwise/backend/pkg/metrics"
)

// Classifier proposes a category for a receipt. Implementations may return
// free-form text; the Service is responsible for constraining it.
type Classifier interface {
	Classify(ctx context.Context, vendor string, textLines []string, categories []string) (string, error)
}

// Service wraps a Classifier with the configured category list and the
// fallback rule.
type Service struct {
	classifier Classifier
	opts       config.OptionsConfig
	metrics    *metrics.PipelineMetrics
	logg       *logger.Logger
}

func NewService(classifier Classifier, opts config.OptionsConfig, pm *metrics.PipelineMetrics, logg *logger.Logger) (*Service, error) {
	if classifier == nil {
		return nil, errors.New("categorize: classifier is required")
	}
	if logg == nil {
		return nil, errors.New("categorize: logger is required")
	}
	return &Service{
		classifier: classifier,
		opts:       opts,
		metrics:    pm,
		logg:       logg,
	}, nil
}

// Categorize returns a category from the configured list. It never fails:
// classifier errors and out-of-list answers both resolve to the fallback.
func (s *Service) Categorize(ctx context.Context, vendor string, textLines []string) string {
	proposed, err := s.classifier.Classify(ctx, vendor, textLines, s.opts.ExpenseCategories)
	if err != nil {
		s.logg.Error(ctx, "categorization failed, using fallback", err)
		s.metrics.IncCategoryFallback()
		return config.FallbackCategory
	}

	if category, ok := s.opts.MatchCategory(strings.TrimSpace(proposed)); ok {
		return category
	}

	ctx = s.logg.WithField(ctx, "proposed", proposed)
	s.logg.Warn(ctx, "classifier returned a category outside the configured list")
	s.metrics.IncCategoryFallback()
	return config.FallbackCategory
}

// OpenAIClassifier asks a chat model to pick the category.
type OpenAIClassifier struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAIClassifier(cfg config.OpenAIConfig) (*OpenAIClassifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("categorize: OpenAI API key is required")
	}
	return &OpenAIClassifier{
		client:    openai.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: 50,
	}, nil
}

func (c *OpenAIClassifier) Classify(ctx context.Context, vendor string, textLines []string, categories []string) (string, error) {
	prompt := fmt.Sprintf(`Analyze this receipt and categorize it into one of these IRS Schedule C expense categories:
%s

Receipt details:
Vendor: %s
Items/Description: %s

Return only the category name, nothing else.`,
		strings.Join(categories, ", "), vendor, strings.Join(textLines, "; "))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("category completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("category completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
