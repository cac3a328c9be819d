package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama is a client for Ollama's /api/generate endpoint.
type Ollama struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float32
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllama creates an Ollama client. The HTTP client has no overall timeout;
// callers bound each call through ctx.
func NewOllama(baseURL, model string, temperature float32) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		httpClient:  &http.Client{},
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       model,
		temperature: temperature,
	}
}

func (o *Ollama) Model() string { return o.model }

// Generate implements Client.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.post(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("inference: decode ollama response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("inference: ollama: %s", out.Error)
	}
	return out.Response, nil
}

// Stream implements Client. The response is NDJSON, one fragment per line,
// ending with a line where done is true.
func (o *Ollama) Stream(ctx context.Context, prompt string, onToken TokenFunc) error {
	resp, err := o.post(ctx, prompt, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaGenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("inference: malformed stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return fmt.Errorf("inference: ollama: %s", chunk.Error)
		}
		if chunk.Response != "" {
			tokens.WithLabelValues(o.model).Inc()
			if err := onToken(chunk.Response); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("inference: read stream: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("inference: stream ended before done")
}

func (o *Ollama) post(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	payload := ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  stream,
		Options: map[string]any{"temperature": o.temperature},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("inference: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("inference: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "application/x-ndjson")
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference: ollama call: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}
