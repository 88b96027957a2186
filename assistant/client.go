package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
)

const (
	systemPrompt = `You are a helpful and professional AI health assistant for TeleHealth.
Your role is to provide general health information, wellness tips, and guidance based on user questions.
Always emphasize that you are not a replacement for professional medical advice.
When users ask about specific symptoms or conditions, recommend they consult with a healthcare professional.
Be empathetic, clear, and provide actionable advice when appropriate.
Format your responses in a clear, readable way with proper spacing and structure.`

	emptyCompletion = "I'm sorry, I couldn't generate a response. Please try again."

	temperature = 0.7
	maxTokens   = 1000
)

// ErrNotConfigured is returned when no provider API key is set.
var ErrNotConfigured = errors.New("OpenAI API key is not configured")

// ProviderError is a non-2xx answer from the completion API.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
}

// IsQuotaOrBilling reports whether the provider refused for quota or billing reasons.
func (e *ProviderError) IsQuotaOrBilling() bool {
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "billing")
}

// Provider produces a completion for a single user message.
type Provider interface {
	Complete(ctx context.Context, message string) (string, error)
}

// HTTPClient is the subset of *fasthttp.Client used by OpenAIClient.
type HTTPClient interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

// ClientConfig configures an OpenAIClient.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionReq struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	cfg        ClientConfig
	httpClient HTTPClient
}

// NewOpenAIClient creates a client using a default fasthttp client.
func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &OpenAIClient{cfg: cfg, httpClient: new(fasthttp.Client)}
}

// WithHTTPClient swaps the transport, typically for tests.
func (c *OpenAIClient) WithHTTPClient(h HTTPClient) *OpenAIClient {
	c.httpClient = h
	return c
}

// Complete implements Provider.
func (c *OpenAIClient) Complete(ctx context.Context, message string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	b, err := json.Marshal(completionReq{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	body, err := c.sendRequest(ctx, c.cfg.BaseURL+"/chat/completions", b)
	if err != nil {
		return "", err
	}

	content := gjson.GetBytes(body, "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return emptyCompletion, nil
	}
	return content, nil
}

func (c *OpenAIClient) sendRequest(ctx context.Context, url string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.Header.SetContentType("application/json")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.SetRequestURI(url)
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout == 0 || remaining < timeout {
			timeout = remaining
		}
	}

	var err error
	if timeout > 0 {
		err = c.httpClient.DoTimeout(req, resp, timeout)
	} else {
		err = c.httpClient.Do(req, resp)
	}
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}

	respStatus := resp.StatusCode()
	respBody := append([]byte(nil), resp.Body()...)

	if !(respStatus >= 200 && respStatus < 300) {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = http.StatusText(respStatus)
		}
		return nil, &ProviderError{Status: respStatus, Message: msg}
	}
	return respBody, nil
}
