package domain

import "strings"

// User is a registered chat member. The lowercase username is its permanent key.
type User struct {
	Username string
	PhotoURL string
	JoinedAt int64 // unix milliseconds
	UID      string
}

// UserKey returns the record key for a username.
func UserKey(username string) string {
	return strings.ToLower(username)
}

// SameUser compares two usernames the way the directory does.
func SameUser(a, b string) bool {
	return UserKey(a) == UserKey(b)
}
