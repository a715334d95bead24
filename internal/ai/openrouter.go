package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// OpenRouterProvider talks to any OpenAI-compatible /chat/completions
// endpoint; OpenRouter is the default base URL.
type OpenRouterProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	SiteURL string
	AppName string
	// MaxTokens caps the completion length when positive.
	MaxTokens int
	Client    *http.Client
}

type openRouterMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterChatReq struct {
	Model     string          `json:"model"`
	Messages  []openRouterMsg `json:"messages"`
	Stream    bool            `json:"stream"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openRouterErr struct {
	Message string `json:"message"`
}

// openRouterResp covers both the full reply (message) and stream deltas.
type openRouterResp struct {
	Choices []struct {
		Message openRouterMsg `json:"message"`
		Delta   openRouterMsg `json:"delta"`
	} `json:"choices"`
	Error *openRouterErr `json:"error,omitempty"`
}

func (r openRouterResp) err() error {
	if r.Error != nil && r.Error.Message != "" {
		return errors.New(r.Error.Message)
	}
	return nil
}

var sseDone = []byte("[DONE]")

func NewOpenRouterProvider(baseURL, apiKey, model, siteURL, appName string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		SiteURL: siteURL,
		AppName: appName,
		Client:  &http.Client{},
	}
}

func (p *OpenRouterProvider) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+p.APIKey)
	if p.SiteURL != "" {
		h.Set("HTTP-Referer", p.SiteURL)
	}
	if p.AppName != "" {
		h.Set("X-Title", p.AppName)
	}
	return h
}

func (p *OpenRouterProvider) open(ctx context.Context, messages []Message, stream bool) (*http.Response, error) {
	if p.Client == nil {
		return nil, errors.New("openrouter: http client is nil")
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, errors.New("openrouter: api key is required")
	}
	model := strings.TrimSpace(p.Model)
	if model == "" {
		return nil, errors.New("openrouter: model is required")
	}

	req := openRouterChatReq{Model: model, Stream: stream, MaxTokens: p.MaxTokens}
	for _, m := range messages {
		req.Messages = append(req.Messages, openRouterMsg{Role: m.Role, Content: m.Content})
	}
	return postJSON(ctx, p.Client, "openrouter", p.BaseURL+"/chat/completions", p.header(), req)
}

func (p *OpenRouterProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	resp, err := p.open(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded openRouterResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if err := decoded.err(); err != nil {
		return "", err
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openrouter: empty response")
	}
	return decoded.Choices[0].Message.Content, nil
}

// StreamChat reads the SSE stream. Comment lines and other fields are
// ignored; only data lines carry deltas.
func (p *OpenRouterProvider) StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	return pump(ctx,
		func() (*http.Response, error) { return p.open(ctx, messages, true) },
		func(line []byte) (string, bool, error) {
			data, ok := bytes.CutPrefix(line, []byte("data:"))
			if !ok {
				return "", false, nil
			}
			data = bytes.TrimSpace(data)
			if bytes.Equal(data, sseDone) {
				return "", true, nil
			}
			var decoded openRouterResp
			if err := json.Unmarshal(data, &decoded); err != nil {
				return "", false, err
			}
			if err := decoded.err(); err != nil {
				return "", false, err
			}
			if len(decoded.Choices) == 0 {
				return "", false, nil
			}
			return decoded.Choices[0].Delta.Content, false, nil
		})
}
