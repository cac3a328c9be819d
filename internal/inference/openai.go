package inference

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// OpenAI talks to any server implementing the OpenAI chat completions API,
// including llama.cpp, vLLM and LM Studio.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAI creates a client. An empty baseURL targets api.openai.com.
func NewOpenAI(baseURL, apiKey, model string, temperature float32) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}
}

func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) request(prompt string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: o.temperature,
		Stream:      stream,
	}
}

// Generate implements Client.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(prompt, false))
	if err != nil {
		return "", fmt.Errorf("inference: openai call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("inference: openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream implements Client.
func (o *OpenAI) Stream(ctx context.Context, prompt string, onToken TokenFunc) error {
	stream, err := o.client.CreateChatCompletionStream(ctx, o.request(prompt, true))
	if err != nil {
		return fmt.Errorf("inference: openai stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("inference: openai recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if tok := resp.Choices[0].Delta.Content; tok != "" {
			tokens.WithLabelValues(o.model).Inc()
			if err := onToken(tok); err != nil {
				return err
			}
		}
	}
}
