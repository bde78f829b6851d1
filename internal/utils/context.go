package utils

import (
	"context"
	"strings"
)

type contextKey string

const ContextAdminIDKey contextKey = "adminID"

// UserData is the slice of a portal user the admin gate needs.
type UserData struct {
	UserID string
	Phone  string
	Role   string
}

func GetAdminIDFromContext(ctx context.Context) (string, bool) {
	adminID := ctx.Value(ContextAdminIDKey)
	adminIDStr, ok := adminID.(string)
	return adminIDStr, ok
}

// CleanPhone keeps digits and '+'.
func CleanPhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, phone)
}
