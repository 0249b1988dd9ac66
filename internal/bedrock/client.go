// Package bedrock wraps the Bedrock Runtime generation backend: model
// routing, request payloads, and response-text extraction for the two
// payload families this system uses (chat messages and plain text).
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// InvokeAPI is the Bedrock Runtime surface this package needs.
type InvokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client invokes Bedrock models. One blocking round trip per call, no
// retries.
type Client struct {
	api InvokeAPI
}

// NewClient creates a Client on top of a Bedrock Runtime API.
func NewClient(api InvokeAPI) *Client {
	return &Client{api: api}
}

// ChatConfig is the inference configuration for chat-style generation.
type ChatConfig struct {
	MaxTokens   int
	Temperature float64
}

// TextConfig is the generation configuration for plain-text generation.
type TextConfig struct {
	MaxTokenCount int
	Temperature   float64
	TopP          float64
}

type chatContent struct {
	Text string `json:"text"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatPayload struct {
	Messages        []chatMessage    `json:"messages"`
	InferenceConfig *inferenceConfig `json:"inferenceConfig,omitempty"`
}

type inferenceConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type textPayload struct {
	InputText            string               `json:"inputText"`
	TextGenerationConfig textGenerationConfig `json:"textGenerationConfig"`
}

type textGenerationConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

// GenerateChat sends the prompt as a single-turn chat message list and
// returns the extracted response text. An empty extraction result is not an
// error; the empty string is passed through.
func (c *Client) GenerateChat(ctx context.Context, route Route, prompt string, cfg ChatConfig) (string, error) {
	payload := chatPayload{
		Messages: []chatMessage{
			{Role: "user", Content: []chatContent{{Text: prompt}}},
		},
		InferenceConfig: &inferenceConfig{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat payload: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(route.Identifier()),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock InvokeModel: %w", err)
	}

	return ExtractChatText(out.Body)
}

// GenerateText sends the prompt as a plain text-generation request and
// returns the generated text.
func (c *Client) GenerateText(ctx context.Context, route Route, prompt string, cfg TextConfig) (string, error) {
	payload := textPayload{
		InputText: prompt,
		TextGenerationConfig: textGenerationConfig{
			MaxTokenCount: cfg.MaxTokenCount,
			Temperature:   cfg.Temperature,
			TopP:          cfg.TopP,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal text payload: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(route.Identifier()),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock InvokeModel: %w", err)
	}

	var resp struct {
		OutputText string `json:"outputText"`
	}
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock response unmarshal: %w", err)
	}

	return strings.TrimSpace(resp.OutputText), nil
}
