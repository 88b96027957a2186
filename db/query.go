package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"telehealth/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// UserQuery holds the filters, sorting and pagination of a directory listing.
type UserQuery struct {
	Role  models.Role // Empty matches both roles
	Name  string      // Case-insensitive substring of FullName
	Email string      // Case-insensitive substring of Email
	Order string      // "asc" (default) or "desc" by creation time
	Page  int         // 1-based
	Limit int         // Max 100
}

// List returns one page of the users matching q and the total number of matches.
func (r *UserRepository) List(ctx context.Context, q UserQuery) ([]models.UserRecord, int, error) {
	if q.Role != "" && !q.Role.Valid() {
		return nil, 0, fmt.Errorf("invalid role value: '%s', expected 'patient' or 'doctor'", q.Role)
	}

	users, err := r.all(ctx)
	if err != nil {
		return nil, 0, err
	}

	filtered := make([]models.UserRecord, 0, len(users))
	for _, u := range users {
		if q.Role != "" && u.Role != q.Role {
			continue
		}
		if q.Name != "" && !normalizedContains(u.FullName, q.Name) {
			continue
		}
		if q.Email != "" && !normalizedContains(u.Email, q.Email) {
			continue
		}
		filtered = append(filtered, u)
	}
	total := len(filtered)

	if err := sortUsers(filtered, q.Order); err != nil {
		return nil, 0, err
	}
	return paginateUsers(filtered, q.Page, q.Limit), total, nil
}

func sortUsers(users []models.UserRecord, order string) error {
	var desc bool
	switch strings.ToLower(order) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return fmt.Errorf("invalid order value: '%s', expected 'asc' or 'desc'", order)
	}

	sort.SliceStable(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Email < users[j].Email
		}
		if desc {
			return users[j].CreatedAt.Before(users[i].CreatedAt)
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return nil
}

func paginateUsers(users []models.UserRecord, page, limit int) []models.UserRecord {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	startIndex := (page - 1) * limit
	if startIndex >= len(users) {
		return []models.UserRecord{}
	}
	endIndex := startIndex + limit
	if endIndex > len(users) {
		endIndex = len(users)
	}
	return users[startIndex:endIndex]
}
