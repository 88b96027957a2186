package db

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	// ErrSchemaMismatch is returned when a stored value does not decode into its record type.
	ErrSchemaMismatch = errors.New("stored value does not match schema")
	// ErrEmailExists is returned when creating a user whose email is taken.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound is returned when no user record exists for an email.
	ErrUserNotFound = errors.New("user not found")
)

// decodeStrict unmarshals raw into out after checking it is valid JSON that
// contains every path in required. Unknown fields are rejected.
func decodeStrict(raw string, out interface{}, required ...string) error {
	if !gjson.Valid(raw) {
		return fmt.Errorf("%w: invalid JSON", ErrSchemaMismatch)
	}
	for _, path := range required {
		if !gjson.Get(raw, path).Exists() {
			return fmt.Errorf("%w: missing field %q", ErrSchemaMismatch, path)
		}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}
