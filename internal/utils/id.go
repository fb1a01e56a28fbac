package utils

import "github.com/google/uuid"

// Prefixes used for domain identifiers.
const (
	PrefixUser      = "user"
	PrefixAnonymous = "anon"
	PrefixRoom      = "room"
	PrefixMessage   = "msg"
	PrefixSession   = "sess"
	PrefixDevice    = "dev"
)

// NewID returns a unique identifier of the form "<prefix>-<uuid>".
func NewID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}
