package domain

import (
	"fmt"
	"strings"
	"time"
)

// User is one message sender the observer has seen.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
	FirstSeen time.Time
}

// DisplayName returns the best human label for the user.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("user %d", u.ID)
}

// NotificationTarget is one recipient of live forwards and digests. The
// owner row is seeded at startup and cannot be removed.
type NotificationTarget struct {
	UserID   int64
	Username string
	Name     string
	IsOwner  bool
	AddedAt  time.Time
}

// DisplayName returns the best human label for the target.
func (t *NotificationTarget) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Username != "" {
		return "@" + t.Username
	}
	return fmt.Sprintf("user %d", t.UserID)
}
