package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"telehealth/models"
	"telehealth/utils"
)

const (
	userKeyPrefix         = "user:"
	authKeyPrefix         = "auth:"
	profileImageKeyPrefix = "profile-image:"
)

// UserRepository maps user accounts and their credentials onto a Store.
type UserRepository struct {
	store      Store
	bcryptCost int
	mu         sync.Mutex // Serializes read-modify-write sequences
}

// NewUserRepository creates a repository hashing passwords at bcryptCost.
func NewUserRepository(store Store, bcryptCost int) *UserRepository {
	return &UserRepository{store: store, bcryptCost: bcryptCost}
}

func userKey(email string) string { return userKeyPrefix + utils.NormalizeEmail(email) }
func authKey(email string) string { return authKeyPrefix + utils.NormalizeEmail(email) }

// Create stores a new account and its password hash.
// The email is normalized; an existing email yields ErrEmailExists.
func (r *UserRepository) Create(ctx context.Context, user models.UserRecord, password string) (models.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = utils.NormalizeEmail(user.Email)
	_, found, err := r.store.Get(ctx, userKey(user.Email))
	if err != nil {
		return models.UserRecord{}, err
	}
	if found {
		return models.UserRecord{}, fmt.Errorf("create %s: %w", user.Email, ErrEmailExists)
	}

	hash, err := utils.HashPassword(password, r.bcryptCost)
	if err != nil {
		return models.UserRecord{}, err
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if err := r.put(ctx, user); err != nil {
		return models.UserRecord{}, err
	}
	if err := r.store.Set(ctx, authKey(user.Email), hash); err != nil {
		return models.UserRecord{}, err
	}

	log.Printf("INFO: Created user %s (role %s)", user.Email, user.Role)
	return user, nil
}

// GetByEmail returns the account for email or ErrUserNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (models.UserRecord, error) {
	raw, found, err := r.store.Get(ctx, userKey(email))
	if err != nil {
		return models.UserRecord{}, err
	}
	if !found {
		return models.UserRecord{}, fmt.Errorf("%s: %w", utils.NormalizeEmail(email), ErrUserNotFound)
	}
	return decodeUser(raw)
}

// Authenticate checks password against the stored hash.
// Unknown emails and mismatches both yield ErrInvalidCredentials.
func (r *UserRepository) Authenticate(ctx context.Context, email, password string) (models.UserRecord, error) {
	hash, found, err := r.store.Get(ctx, authKey(email))
	if err != nil {
		return models.UserRecord{}, err
	}
	if !found || !utils.CheckPasswordHash(password, hash) {
		return models.UserRecord{}, ErrInvalidCredentials
	}

	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		log.Printf("ERROR: Credential present but user record unreadable for %s: %v", utils.NormalizeEmail(email), err)
		return models.UserRecord{}, ErrInvalidCredentials
	}
	return user, nil
}

// SetPassword replaces the stored password hash of an existing account.
func (r *UserRepository) SetPassword(ctx context.Context, email, password string) error {
	hash, err := utils.HashPassword(password, r.bcryptCost)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.GetByEmail(ctx, email); err != nil {
		return err
	}
	return r.store.Set(ctx, authKey(email), hash)
}

// Update applies fn to the stored record and writes it back.
// The email and creation time cannot be changed through fn.
func (r *UserRepository) Update(ctx context.Context, email string, fn func(*models.UserRecord)) (models.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		return models.UserRecord{}, err
	}
	originalEmail, createdAt := user.Email, user.CreatedAt
	fn(&user)
	user.Email, user.CreatedAt = originalEmail, createdAt

	if err := r.put(ctx, user); err != nil {
		return models.UserRecord{}, err
	}
	return user, nil
}

// MarkVerified sets EmailVerified on the account. It is idempotent.
func (r *UserRepository) MarkVerified(ctx context.Context, email string) error {
	_, err := r.Update(ctx, email, func(u *models.UserRecord) { u.EmailVerified = true })
	return err
}

// SetProfileImage stores an image (a data URL or remote URL) for the account.
func (r *UserRepository) SetProfileImage(ctx context.Context, email, image string) error {
	if _, err := r.GetByEmail(ctx, email); err != nil {
		return err
	}
	return r.store.Set(ctx, profileImageKeyPrefix+utils.NormalizeEmail(email), image)
}

// ProfileImage returns the stored image for the account, if any.
func (r *UserRepository) ProfileImage(ctx context.Context, email string) (string, bool, error) {
	return r.store.Get(ctx, profileImageKeyPrefix+utils.NormalizeEmail(email))
}

// all returns every decodable user record. Corrupt entries are logged and skipped.
func (r *UserRepository) all(ctx context.Context) ([]models.UserRecord, error) {
	keys, err := r.store.Keys(ctx, userKeyPrefix)
	if err != nil {
		return nil, err
	}

	users := make([]models.UserRecord, 0, len(keys))
	for _, key := range keys {
		raw, found, err := r.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		user, err := decodeUser(raw)
		if err != nil {
			log.Printf("WARN: Skipping unreadable record %s: %v", key, err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *UserRepository) put(ctx context.Context, user models.UserRecord) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user %s: %w", user.Email, err)
	}
	return r.store.Set(ctx, userKey(user.Email), string(data))
}

func decodeUser(raw string) (models.UserRecord, error) {
	var user models.UserRecord
	if err := decodeStrict(raw, &user, "email", "role", "fullName"); err != nil {
		return models.UserRecord{}, err
	}
	if !user.Role.Valid() {
		return models.UserRecord{}, fmt.Errorf("%w: unknown role %q", ErrSchemaMismatch, user.Role)
	}
	return user, nil
}

// normalizedContains reports whether s contains sub ignoring case.
func normalizedContains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}
