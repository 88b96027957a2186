package mail

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"telehealth/db"
	"telehealth/models"
	"telehealth/utils"
)

// defaultLinkLifetime is the lifetime quoted in mail when expiry is disabled.
const defaultLinkLifetime = 24 * time.Hour

// Options configures a Service. Zero values select the defaults.
type Options struct {
	PublicOrigin string        // Base of the verification link
	Lifetime     time.Duration // 0 disables expiry
	Generate     CodeGenerator
	Publisher    Publisher
	Now          func() time.Time
}

// Service is the mock messaging service. It "sends" mail by appending it to
// the recipient's stored mailbox and records the verification code.
type Service struct {
	messages  *db.MessageRepository
	origin    string
	lifetime  time.Duration
	generate  CodeGenerator
	publisher Publisher
	now       func() time.Time
}

// NewService creates a messaging service over messages.
func NewService(messages *db.MessageRepository, opts Options) *Service {
	s := &Service{
		messages:  messages,
		origin:    strings.TrimSuffix(opts.PublicOrigin, "/"),
		lifetime:  opts.Lifetime,
		generate:  opts.Generate,
		publisher: opts.Publisher,
		now:       opts.Now,
	}
	if s.origin == "" {
		s.origin = "http://localhost:3000"
	}
	if s.generate == nil {
		s.generate = GenerateCode
	}
	if s.publisher == nil {
		s.publisher = NopPublisher{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// VerificationLink builds the link a recipient follows to verify email with code.
func (s *Service) VerificationLink(email, code string) string {
	return fmt.Sprintf("%s/verify-email?email=%s&code=%s", s.origin, url.QueryEscape(email), code)
}

// SendVerificationEmail composes a verification message for to, stores it in
// the mailbox and makes its code the current one for that address.
// A blank userName greets the recipient as "there".
func (s *Service) SendVerificationEmail(ctx context.Context, to, userName string) (models.EmailMessage, error) {
	to = utils.NormalizeEmail(to)
	if to == "" {
		return models.EmailMessage{}, fmt.Errorf("recipient address is required")
	}

	code := s.generate()
	link := s.VerificationLink(to, code)
	name := strings.TrimSpace(userName)
	if name == "" {
		name = "there"
	}

	quoted := defaultLinkLifetime
	if s.lifetime > 0 {
		quoted = s.lifetime
	}
	text, html, err := renderVerification(verificationData{Name: name, Link: link, Code: code, Expiry: expiryPhrase(quoted)})
	if err != nil {
		return models.EmailMessage{}, err
	}

	sentAt := s.now().UTC()
	msg := models.EmailMessage{
		ID:               fmt.Sprintf("email_%d_%s", sentAt.UnixMilli(), utils.GenerateDashlessUUID()[:8]),
		From:             SenderAddress,
		To:               to,
		Subject:          verificationSubject,
		Body:             text,
		HTML:             html,
		SentAt:           sentAt,
		VerificationCode: code,
		VerificationLink: link,
	}

	if err := s.messages.AppendEmail(ctx, msg); err != nil {
		return models.EmailMessage{}, fmt.Errorf("store message for %s: %w", to, err)
	}

	var expiresAt time.Time
	if s.lifetime > 0 {
		expiresAt = sentAt.Add(s.lifetime)
	}
	if err := s.messages.SetVerification(ctx, to, code, expiresAt); err != nil {
		return models.EmailMessage{}, fmt.Errorf("store verification for %s: %w", to, err)
	}

	log.Printf("INFO: [Mock Email Service] Email sent from %s to %s", SenderAddress, to)
	log.Printf("INFO: [Mock Email Service] Verification code: %s", code)
	log.Printf("INFO: [Mock Email Service] Verification link: %s", link)

	if err := s.publisher.Publish(ctx, msg); err != nil {
		log.Printf("WARN: Failed to publish email event for %s: %v", to, err)
	}
	return msg, nil
}

// GetEmailsForAddress returns every message sent to email in send order.
func (s *Service) GetEmailsForAddress(ctx context.Context, email string) ([]models.EmailMessage, error) {
	return s.messages.EmailsFor(ctx, email)
}

// VerifyEmailWithCode reports whether code is the current code for email and
// has not expired. Checking does not consume the code.
func (s *Service) VerifyEmailWithCode(ctx context.Context, email, code string) (bool, error) {
	if strings.TrimSpace(email) == "" || code == "" {
		return false, nil
	}

	stored, expiresAt, found, err := s.messages.Verification(ctx, email)
	if err != nil {
		return false, err
	}
	if !found || stored != code {
		return false, nil
	}
	if !expiresAt.IsZero() && s.now().After(expiresAt) {
		log.Printf("INFO: Verification code for %s expired at %s", utils.NormalizeEmail(email), expiresAt.Format(time.RFC3339))
		return false, nil
	}
	return true, nil
}

// ExpiresAt returns the expiry of the current code for email, zero when unbounded or unknown.
func (s *Service) ExpiresAt(ctx context.Context, email string) (time.Time, error) {
	_, expiresAt, _, err := s.messages.Verification(ctx, email)
	return expiresAt, err
}
