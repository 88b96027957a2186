package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"telehealth/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmail(to string, n int) models.EmailMessage {
	return models.EmailMessage{
		ID:      fmt.Sprintf("email_%d", n),
		From:    "noreply@telehealth.com",
		To:      to,
		Subject: "Verify Your TeleHealth Account",
		Body:    "body",
		SentAt:  time.Date(2025, 7, 29, 10, n, 0, 0, time.UTC),
	}
}

func TestMessageRepository_AppendAndList(t *testing.T) {
	_, messages, _ := newTestRepos(t)
	ctx := context.Background()

	empty, err := messages.EmailsFor(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for i := 0; i < 3; i++ {
		require.NoError(t, messages.AppendEmail(ctx, testEmail("Jane@Example.com", i)))
	}
	require.NoError(t, messages.AppendEmail(ctx, testEmail("other@example.com", 9)))

	got, err := messages.EmailsFor(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("email_%d", i), msg.ID, "Mailbox keeps send order")
		assert.True(t, msg.SentAt.Equal(testEmail("", i).SentAt), "SentAt round-trips as a time")
	}
}

func TestMessageRepository_CorruptMailbox(t *testing.T) {
	_, messages, store := newTestRepos(t)
	ctx := context.Background()

	for name, raw := range map[string]string{
		"Object":       `{"id":"x"}`,
		"MissingField": `[{"id":"x","to":"a@x.com","sentAt":"2025-07-29T10:00:00Z"}]`,
		"UnknownField": `[{"id":"x","to":"a@x.com","subject":"s","sentAt":"2025-07-29T10:00:00Z","extra":1}]`,
	} {
		require.NoError(t, store.Set(ctx, "emails:a@x.com", raw))
		_, err := messages.EmailsFor(ctx, "a@x.com")
		assert.ErrorIs(t, err, ErrSchemaMismatch, name)
	}
}

func TestMessageRepository_Verification(t *testing.T) {
	_, messages, store := newTestRepos(t)
	ctx := context.Background()

	_, _, found, err := messages.Verification(ctx, "v@example.com")
	require.NoError(t, err)
	assert.False(t, found)

	expires := time.Date(2025, 7, 30, 10, 0, 0, 0, time.UTC)
	require.NoError(t, messages.SetVerification(ctx, "V@example.com", "code1", expires))

	code, gotExpiry, found, err := messages.Verification(ctx, "v@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "code1", code)
	assert.True(t, expires.Equal(gotExpiry))

	email, found, _ := messages.EmailForCode(ctx, "code1")
	assert.True(t, found)
	assert.Equal(t, "v@example.com", email)

	// A resend overwrites the association
	require.NoError(t, messages.SetVerification(ctx, "v@example.com", "code2", time.Time{}))
	code, gotExpiry, _, _ = messages.Verification(ctx, "v@example.com")
	assert.Equal(t, "code2", code)
	assert.True(t, gotExpiry.IsZero(), "Zero expiry means unbounded")

	_, found, _ = messages.EmailForCode(ctx, "")
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "verification-expiry:v@example.com", "tomorrow"))
	_, _, _, err = messages.Verification(ctx, "v@example.com")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}
