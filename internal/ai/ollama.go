package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider talks to a local Ollama daemon.
type OllamaProvider struct {
	BaseURL string
	Model   string
	// Temperature is sent only when positive.
	Temperature float64
	Client      *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	return &OllamaProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		// no global timeout; streams are bounded by ctx
		Client: &http.Client{},
	}
}

type ollamaMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaChatReq struct {
	Model    string         `json:"model"`
	Messages []ollamaMsg    `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

// Non-streaming responses and each NDJSON line of a stream share this shape.
type ollamaChatResp struct {
	Message ollamaMsg `json:"message"`
	Done    bool      `json:"done"`
	Error   string    `json:"error,omitempty"`
}

func (p *OllamaProvider) request(messages []Message, stream bool) ollamaChatReq {
	req := ollamaChatReq{Model: p.Model, Stream: stream, Messages: make([]ollamaMsg, 0, len(messages))}
	for _, m := range messages {
		req.Messages = append(req.Messages, ollamaMsg{Role: m.Role, Content: m.Content})
	}
	if p.Temperature > 0 {
		req.Options = &ollamaOptions{Temperature: p.Temperature}
	}
	return req
}

func (p *OllamaProvider) open(ctx context.Context, messages []Message, stream bool) (*http.Response, error) {
	if p.Client == nil {
		return nil, errors.New("ollama: http client is nil")
	}
	return postJSON(ctx, p.Client, "ollama", p.BaseURL+"/api/chat", nil, p.request(messages, stream))
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	resp, err := p.open(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != "" {
		return "", errors.New(decoded.Error)
	}
	return decoded.Message.Content, nil
}

// StreamChat reads Ollama's NDJSON stream, one JSON object per line.
func (p *OllamaProvider) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	return pump(ctx,
		func() (*http.Response, error) { return p.open(ctx, messages, true) },
		func(line []byte) (string, bool, error) {
			var decoded ollamaChatResp
			if err := json.Unmarshal(line, &decoded); err != nil {
				return "", false, err
			}
			if decoded.Error != "" {
				return "", false, errors.New(decoded.Error)
			}
			return decoded.Message.Content, decoded.Done, nil
		})
}
