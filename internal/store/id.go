package store

import (
	"github.com/oklog/ulid/v2"
)

// NewID returns a unique, lexically time-ordered game id
func NewID() string {
	return ulid.Make().String()
}

// IsValidID reports whether s is a 26-character ULID with a timestamp
func IsValidID(s string) bool {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return false
	}
	return id.Time() > 0
}
