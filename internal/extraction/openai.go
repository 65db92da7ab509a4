package extraction

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/receiptwise/backend/pkg/config"
)

const extractionPrompt = `Extract the text from this image and format the output as a JSON object with two parts:
1. The main fields at the root level (use exactly these field names):
   - Vendor
   - Amount
   - Date
   - Payment_Method

2. A 'text' array containing all lines of text from the receipt in order, preserving the original formatting and content.

Example format:
{
    "Vendor": "store name",
    "Amount": "total amount",
    "Date": "receipt date",
    "Payment_Method": "payment type",
    "text": [
        "line 1 of receipt",
        "line 2 of receipt",
        ...
    ]
}

Capture every line of text, including store details, items, prices, subtotals, taxes, and any additional information.`

// ModelClient is the vision model behind extraction. The production
// implementation is OpenAIClient; tests substitute fakes.
type ModelClient interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string) (string, error)
}

// OpenAIClient reads receipts with an OpenAI vision-capable chat model.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAIClient(cfg config.OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("extraction: OpenAI API key is required")
	}
	return &OpenAIClient{
		client:    openai.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (c *OpenAIClient) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: extractionPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: dataURL,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("vision completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
