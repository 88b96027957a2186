package assistant

import (
	"context"
	"errors"
	"log"
	"strings"
)

// ErrEmptyMessage is returned for a blank chat message.
var ErrEmptyMessage = errors.New("message is required")

// QuotaNotice is shown alongside a fallback reply when the provider refused for quota or billing.
const QuotaNotice = "I'm currently using a fallback response system. For the best experience, please configure your OpenAI API key. However, I can still provide general health information based on your questions."

// Source identifies where a reply came from.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Reply is the answer to one chat message.
type Reply struct {
	Text   string `json:"response"`
	Source Source `json:"source"`
	Notice string `json:"notice,omitempty"`
}

// Service answers chat messages, preferring the provider and falling back to canned replies.
type Service struct {
	provider Provider
}

// NewService creates a service over provider. A nil provider always falls back.
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// Reply answers message. Only a blank message is an error; provider failures
// degrade to the keyword fallback.
func (s *Service) Reply(ctx context.Context, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	if s.provider != nil {
		text, err := s.provider.Complete(ctx, message)
		if err == nil {
			return Reply{Text: text, Source: SourceAI}, nil
		}

		reply := Reply{Text: FallbackResponse(message), Source: SourceFallback}
		var perr *ProviderError
		switch {
		case errors.Is(err, ErrNotConfigured):
			log.Printf("DEBUG: Chat provider not configured, using fallback response")
		case errors.As(err, &perr) && perr.IsQuotaOrBilling():
			log.Printf("WARN: Chat provider quota or billing failure: %v", err)
			reply.Notice = QuotaNotice
		default:
			log.Printf("ERROR: Chat provider failed, using fallback response: %v", err)
		}
		return reply, nil
	}

	return Reply{Text: FallbackResponse(message), Source: SourceFallback}, nil
}
