package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"telehealth/models"
	"telehealth/utils"

	"github.com/tidwall/gjson"
)

const (
	emailsKeyPrefix             = "emails:"
	verificationKeyPrefix       = "verification:"
	verificationExpiryKeyPrefix = "verification-expiry:"
)

// MessageRepository stores mock mailboxes and pending verification codes.
type MessageRepository struct {
	store Store
	mu    sync.Mutex // Serializes mailbox appends
}

// NewMessageRepository creates a repository over store.
func NewMessageRepository(store Store) *MessageRepository {
	return &MessageRepository{store: store}
}

// AppendEmail adds msg to the recipient's mailbox. Stored messages are never changed.
func (r *MessageRepository) AppendEmail(ctx context.Context, msg models.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailsKeyPrefix + utils.NormalizeEmail(msg.To)
	existing, err := r.emails(ctx, key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(append(existing, msg))
	if err != nil {
		return fmt.Errorf("marshal mailbox %s: %w", key, err)
	}
	return r.store.Set(ctx, key, string(data))
}

// EmailsFor returns every message sent to email, oldest first.
// An address that never received mail has an empty mailbox.
func (r *MessageRepository) EmailsFor(ctx context.Context, email string) ([]models.EmailMessage, error) {
	return r.emails(ctx, emailsKeyPrefix+utils.NormalizeEmail(email))
}

func (r *MessageRepository) emails(ctx context.Context, key string) ([]models.EmailMessage, error) {
	raw, found, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return []models.EmailMessage{}, nil
	}
	return decodeEmails(raw)
}

// SetVerification records code as the current code for email, plus the reverse
// mapping and the expiry. A zero expiresAt means the code never expires.
func (r *MessageRepository) SetVerification(ctx context.Context, email, code string, expiresAt time.Time) error {
	email = utils.NormalizeEmail(email)
	if err := r.store.Set(ctx, verificationKeyPrefix+email, code); err != nil {
		return err
	}
	if err := r.store.Set(ctx, verificationKeyPrefix+code, email); err != nil {
		return err
	}

	expiry := ""
	if !expiresAt.IsZero() {
		expiry = expiresAt.UTC().Format(time.RFC3339)
	}
	return r.store.Set(ctx, verificationExpiryKeyPrefix+email, expiry)
}

// Verification returns the current code for email and its expiry (zero when unbounded).
func (r *MessageRepository) Verification(ctx context.Context, email string) (string, time.Time, bool, error) {
	email = utils.NormalizeEmail(email)
	code, found, err := r.store.Get(ctx, verificationKeyPrefix+email)
	if err != nil || !found {
		return "", time.Time{}, false, err
	}

	raw, found, err := r.store.Get(ctx, verificationExpiryKeyPrefix+email)
	if err != nil {
		return "", time.Time{}, false, err
	}
	var expiresAt time.Time
	if found && raw != "" {
		expiresAt, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return "", time.Time{}, false, fmt.Errorf("%w: expiry for %s: %v", ErrSchemaMismatch, email, err)
		}
	}
	return code, expiresAt, true, nil
}

// EmailForCode returns the address a code was issued to.
func (r *MessageRepository) EmailForCode(ctx context.Context, code string) (string, bool, error) {
	if code == "" {
		return "", false, nil
	}
	return r.store.Get(ctx, verificationKeyPrefix+code)
}

func decodeEmails(raw string) ([]models.EmailMessage, error) {
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		return nil, fmt.Errorf("%w: mailbox is not a JSON array", ErrSchemaMismatch)
	}

	var invalid error
	gjson.Parse(raw).ForEach(func(i, item gjson.Result) bool {
		for _, path := range []string{"id", "to", "subject", "sentAt"} {
			if !item.Get(path).Exists() {
				invalid = fmt.Errorf("%w: message %d missing field %q", ErrSchemaMismatch, i.Int(), path)
				return false
			}
		}
		return true
	})
	if invalid != nil {
		return nil, invalid
	}

	msgs := make([]models.EmailMessage, 0)
	if err := decodeStrict(raw, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
