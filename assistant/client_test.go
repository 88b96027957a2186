package assistant_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"telehealth/assistant"

	"github.com/stretchr/testify/suite"
	"github.com/valyala/fasthttp"
)

type clientTestSuite struct {
	suite.Suite
	client     *assistant.OpenAIClient
	httpClient mockClient
}

type mockClient struct {
	DoFunc      func(req *fasthttp.Request, resp *fasthttp.Response) error
	lastTimeout time.Duration
}

func (m *mockClient) Do(req *fasthttp.Request, resp *fasthttp.Response) error {
	return m.DoFunc(req, resp)
}

func (m *mockClient) DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	m.lastTimeout = timeout
	return m.DoFunc(req, resp)
}

func TestOpenAIClientTestSuite(t *testing.T) {
	suite.Run(t, new(clientTestSuite))
}

func (s *clientTestSuite) SetupTest() {
	s.httpClient = mockClient{}
	s.client = assistant.NewOpenAIClient(assistant.ClientConfig{
		APIKey:  "sk-test",
		BaseURL: "http://llm:8080/v1/",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}).WithHTTPClient(&s.httpClient)
}

func (s *clientTestSuite) respond(status int, body interface{}) func(*fasthttp.Request, *fasthttp.Response) error {
	return func(req *fasthttp.Request, resp *fasthttp.Response) error {
		resp.SetStatusCode(status)
		b, _ := json.Marshal(body)
		_, _ = resp.BodyWriter().Write(b)
		return nil
	}
}

func (s *clientTestSuite) TestComplete() {
	s.httpClient.DoFunc = func(req *fasthttp.Request, resp *fasthttp.Response) error {
		s.Equal("http://llm:8080/v1/chat/completions", string(req.RequestURI()))
		s.Equal(http.MethodPost, string(req.Header.Method()))
		s.Equal("Bearer sk-test", string(req.Header.Peek("Authorization")))
		s.Equal("application/json", string(req.Header.ContentType()))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Temperature float64 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
		}
		s.NoError(json.Unmarshal(req.Body(), &body))
		s.Equal("gpt-4o-mini", body.Model)
		s.Equal(0.7, body.Temperature)
		s.Equal(1000, body.MaxTokens)
		s.Require().Len(body.Messages, 2)
		s.Equal("system", body.Messages[0].Role)
		s.Contains(body.Messages[0].Content, "AI health assistant for TeleHealth")
		s.Equal("user", body.Messages[1].Role)
		s.Equal("Is 97 bpm normal?", body.Messages[1].Content)

		return s.respond(http.StatusOK, map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{"message": map[string]string{"role": "assistant", "content": "Yes, it is within range."}},
			},
		})(req, resp)
	}

	text, err := s.client.Complete(context.Background(), "Is 97 bpm normal?")
	s.NoError(err)
	s.Equal("Yes, it is within range.", text)
	s.Equal(5*time.Second, s.httpClient.lastTimeout)
}

func (s *clientTestSuite) TestComplete_EmptyChoice() {
	s.httpClient.DoFunc = s.respond(http.StatusOK, map[string]interface{}{"choices": []interface{}{}})

	text, err := s.client.Complete(context.Background(), "hello")
	s.NoError(err)
	s.Equal("I'm sorry, I couldn't generate a response. Please try again.", text)
}

func (s *clientTestSuite) TestComplete_ProviderError() {
	s.httpClient.DoFunc = s.respond(http.StatusTooManyRequests, map[string]interface{}{
		"error": map[string]string{"message": "You exceeded your current quota, please check your plan and billing details."},
	})

	_, err := s.client.Complete(context.Background(), "hello")

	var perr *assistant.ProviderError
	s.Require().True(errors.As(err, &perr))
	s.Equal(http.StatusTooManyRequests, perr.Status)
	s.True(perr.IsQuotaOrBilling())
}

func (s *clientTestSuite) TestComplete_ProviderErrorWithoutBody() {
	s.httpClient.DoFunc = func(req *fasthttp.Request, resp *fasthttp.Response) error {
		resp.SetStatusCode(http.StatusBadGateway)
		return nil
	}

	_, err := s.client.Complete(context.Background(), "hello")

	var perr *assistant.ProviderError
	s.Require().True(errors.As(err, &perr))
	s.Equal("Bad Gateway", perr.Message)
	s.False(perr.IsQuotaOrBilling())
}

func (s *clientTestSuite) TestComplete_TransportError() {
	s.httpClient.DoFunc = func(*fasthttp.Request, *fasthttp.Response) error {
		return fasthttp.ErrTimeout
	}

	_, err := s.client.Complete(context.Background(), "hello")
	s.ErrorIs(err, fasthttp.ErrTimeout)
}

func (s *clientTestSuite) TestComplete_ContextDeadlineShortensTimeout() {
	s.httpClient.DoFunc = s.respond(http.StatusOK, map[string]interface{}{
		"choices": []interface{}{map[string]interface{}{"message": map[string]string{"content": "ok"}}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.client.Complete(ctx, "hello")
	s.NoError(err)
	s.LessOrEqual(s.httpClient.lastTimeout, time.Second)
}

func (s *clientTestSuite) TestComplete_CancelledContext() {
	s.httpClient.DoFunc = func(*fasthttp.Request, *fasthttp.Response) error {
		s.Fail("request must not be sent")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.client.Complete(ctx, "hello")
	s.ErrorIs(err, context.Canceled)
}

func (s *clientTestSuite) TestComplete_NotConfigured() {
	client := assistant.NewOpenAIClient(assistant.ClientConfig{}).WithHTTPClient(&s.httpClient)

	_, err := client.Complete(context.Background(), "hello")
	s.ErrorIs(err, assistant.ErrNotConfigured)
}
