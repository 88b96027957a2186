package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"telehealth/config"
	"telehealth/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore wraps a MemoryStore and lets tests inject failures.
type fakeStore struct {
	*MemoryStore
	GetFunc func(ctx context.Context, key string) (string, bool, error)
	SetFunc func(ctx context.Context, key, value string) error
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, key)
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *fakeStore) Set(ctx context.Context, key, value string) error {
	if f.SetFunc != nil {
		return f.SetFunc(ctx, key, value)
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func newTestRepos(t *testing.T) (*UserRepository, *MessageRepository, *MemoryStore) {
	t.Helper()
	s, err := NewMemoryStore(&config.Config{})
	require.NoError(t, err)
	return NewUserRepository(s, 4), NewMessageRepository(s), s
}

func testPatient(email string) models.UserRecord {
	return models.UserRecord{
		FullName:    "Test Patient",
		NationalID:  "1111111111111",
		Email:       email,
		PhoneNumber: "+250700000000",
		Role:        models.RolePatient,
	}
}

func TestUserRepository_Create(t *testing.T) {
	users, _, store := newTestRepos(t)
	ctx := context.Background()

	created, err := users.Create(ctx, testPatient("  New@Example.com "), "password123")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", created.Email, "Email is normalized")
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.EmailVerified)

	hash, found, _ := store.Get(ctx, "auth:new@example.com")
	require.True(t, found)
	assert.NotEqual(t, "password123", hash, "Passwords are never stored in plaintext")

	_, err = users.Create(ctx, testPatient("new@example.com"), "otherpassword")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	users, _, store := newTestRepos(t)
	ctx := context.Background()

	_, err := users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = users.Create(ctx, testPatient("p@example.com"), "password123")
	require.NoError(t, err)

	got, err := users.GetByEmail(ctx, "P@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "Test Patient", got.FullName)

	t.Run("SchemaMismatch", func(t *testing.T) {
		for name, raw := range map[string]string{
			"NotJSON":      `not json`,
			"MissingRole":  `{"fullName":"X","email":"bad@example.com"}`,
			"UnknownField": `{"fullName":"X","email":"bad@example.com","role":"patient","password":"secret"}`,
			"UnknownRole":  `{"fullName":"X","email":"bad@example.com","role":"nurse"}`,
		} {
			require.NoError(t, store.Set(ctx, "user:bad@example.com", raw))
			_, err := users.GetByEmail(ctx, "bad@example.com")
			assert.ErrorIs(t, err, ErrSchemaMismatch, name)
		}
	})
}

func TestUserRepository_Authenticate(t *testing.T) {
	users, _, _ := newTestRepos(t)
	ctx := context.Background()
	_, err := users.Create(ctx, testPatient("login@example.com"), "password123")
	require.NoError(t, err)

	got, err := users.Authenticate(ctx, "Login@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "login@example.com", got.Email)

	_, err = users.Authenticate(ctx, "login@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Authenticate(ctx, "unknown@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserRepository_SetPassword(t *testing.T) {
	users, _, _ := newTestRepos(t)
	ctx := context.Background()
	_, err := users.Create(ctx, testPatient("reset@example.com"), "password123")
	require.NoError(t, err)

	require.NoError(t, users.SetPassword(ctx, "reset@example.com", "brandnewpass"))
	_, err = users.Authenticate(ctx, "reset@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = users.Authenticate(ctx, "reset@example.com", "brandnewpass")
	assert.NoError(t, err)

	assert.ErrorIs(t, users.SetPassword(ctx, "ghost@example.com", "whatever123"), ErrUserNotFound)
}

func TestUserRepository_SetPasswordDuringCreate(t *testing.T) {
	base, err := NewMemoryStore(&config.Config{})
	require.NoError(t, err)
	store := &fakeStore{MemoryStore: base}
	users := NewUserRepository(store, 4)
	ctx := context.Background()

	const email = "racing@example.com"
	var once sync.Once
	resetErr := make(chan error, 1)
	store.SetFunc = func(ctx context.Context, key, value string) error {
		if err := base.Set(ctx, key, value); err != nil {
			return err
		}
		if key == userKey(email) {
			// The record is visible but the credential is not written yet
			once.Do(func() {
				go func() { resetErr <- users.SetPassword(ctx, email, "replaced123") }()
				time.Sleep(20 * time.Millisecond)
			})
		}
		return nil
	}

	_, err = users.Create(ctx, testPatient(email), "original123")
	require.NoError(t, err)
	require.NoError(t, <-resetErr)

	_, err = users.Authenticate(ctx, email, "replaced123")
	assert.NoError(t, err, "A reset that succeeded is never overwritten by the signup it raced")
	_, err = users.Authenticate(ctx, email, "original123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserRepository_UpdateAndMarkVerified(t *testing.T) {
	users, _, _ := newTestRepos(t)
	ctx := context.Background()
	created, err := users.Create(ctx, testPatient("upd@example.com"), "password123")
	require.NoError(t, err)

	updated, err := users.Update(ctx, "upd@example.com", func(u *models.UserRecord) {
		u.FullName = "Renamed"
		u.Email = "hijack@example.com"
		u.CreatedAt = time.Time{}
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FullName)
	assert.Equal(t, "upd@example.com", updated.Email, "Email is immutable")
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt), "CreatedAt is immutable")

	require.NoError(t, users.MarkVerified(ctx, "upd@example.com"))
	require.NoError(t, users.MarkVerified(ctx, "upd@example.com"), "Idempotent")
	got, _ := users.GetByEmail(ctx, "upd@example.com")
	assert.True(t, got.EmailVerified)

	_, err = users.Update(ctx, "ghost@example.com", func(*models.UserRecord) {})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_ProfileImage(t *testing.T) {
	users, _, _ := newTestRepos(t)
	ctx := context.Background()
	_, err := users.Create(ctx, testPatient("img@example.com"), "password123")
	require.NoError(t, err)

	_, found, err := users.ProfileImage(ctx, "img@example.com")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, users.SetProfileImage(ctx, "img@example.com", "data:image/png;base64,AAAA"))
	image, found, _ := users.ProfileImage(ctx, "IMG@example.com")
	assert.True(t, found)
	assert.Equal(t, "data:image/png;base64,AAAA", image)

	assert.ErrorIs(t, users.SetProfileImage(ctx, "ghost@example.com", "x"), ErrUserNotFound)
}

func TestUserRepository_StoreFailures(t *testing.T) {
	mem, _ := NewMemoryStore(&config.Config{})
	boom := errors.New("store offline")
	store := &fakeStore{
		MemoryStore: mem,
		GetFunc:     func(context.Context, string) (string, bool, error) { return "", false, boom },
	}
	users := NewUserRepository(store, 4)
	ctx := context.Background()

	_, err := users.Create(ctx, testPatient("x@example.com"), "password123")
	assert.ErrorIs(t, err, boom)
	_, err = users.Authenticate(ctx, "x@example.com", "password123")
	assert.ErrorIs(t, err, boom, "Store errors are not disguised as bad credentials")
}

func TestUserRepository_List(t *testing.T) {
	users, _, store := newTestRepos(t)
	ctx := context.Background()
	require.NoError(t, SeedFixtures(ctx, users))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Alice Uwase", "Bob Mugisha", "Carol Uwase"} {
		u := testPatient(name[:3] + "@example.com")
		u.FullName = name
		u.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := users.Create(ctx, u, "password123")
		require.NoError(t, err)
	}
	// Corrupt records are skipped, not fatal
	require.NoError(t, store.Set(ctx, "user:broken@example.com", "{"))

	all, total, err := users.List(ctx, UserQuery{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, all, 5)

	doctors, total, err := users.List(ctx, UserQuery{Role: models.RoleDoctor})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "jolieprincesseishimwe@gmail.com", doctors[0].Email)

	named, total, err := users.List(ctx, UserQuery{Name: "uwase", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Carol Uwase", named[0].FullName)
	assert.Equal(t, "Alice Uwase", named[1].FullName)

	byEmail, _, err := users.List(ctx, UserQuery{Email: "BOB@"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "Bob Mugisha", byEmail[0].FullName)

	page, total, err := users.List(ctx, UserQuery{Role: models.RolePatient, Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, page, 1)

	empty, _, err := users.List(ctx, UserQuery{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, _, err = users.List(ctx, UserQuery{Role: "nurse"})
	assert.Error(t, err)
	_, _, err = users.List(ctx, UserQuery{Order: "sideways"})
	assert.Error(t, err)
}

func TestPaginateUsers_LimitCapped(t *testing.T) {
	users := make([]models.UserRecord, 150)
	assert.Len(t, paginateUsers(users, 1, 500), maxLimit)
	assert.Len(t, paginateUsers(users, 0, 0), defaultLimit)
}

func TestSeedFixtures(t *testing.T) {
	users, _, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, SeedFixtures(ctx, users))
	require.NoError(t, SeedFixtures(ctx, users), "Seeding twice is harmless")

	doctor, err := users.Authenticate(ctx, "jolieprincesseishimwe@gmail.com", "Jolie1234")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, doctor.Role)
	assert.Equal(t, "DOC001", doctor.MedicalCode)

	patient, err := users.Authenticate(ctx, "hopendindabahizi@gmail.com", "Hope12345")
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, patient.Role)
	assert.Equal(t, "+250788654321", patient.PhoneNumber)
}
