package core

import (
	"crypto/subtle"
	"time"
)

// RoomKind tells public rooms from private ones. A private kind always carries
// a non-empty access code; the zero value is a public room.
type RoomKind struct {
	private    bool
	accessCode string
}

// PublicRoom returns the kind of a room anyone can join.
func PublicRoom() RoomKind {
	return RoomKind{}
}

// PrivateRoom returns the kind of a room gated by accessCode.
func PrivateRoom(accessCode string) (RoomKind, error) {
	if accessCode == "" {
		return RoomKind{}, ErrAccessCodeRequired
	}
	return RoomKind{private: true, accessCode: accessCode}, nil
}

// NewRoomKind builds a kind from the flag/code pair used by callers at the edge.
// The access code is ignored for public rooms.
func NewRoomKind(isPrivate bool, accessCode string) (RoomKind, error) {
	if !isPrivate {
		return PublicRoom(), nil
	}
	return PrivateRoom(accessCode)
}

// IsPrivate reports whether joining requires an access code.
func (k RoomKind) IsPrivate() bool {
	return k.private
}

// AccessCode returns the shared secret of a private room.
func (k RoomKind) AccessCode() (string, bool) {
	return k.accessCode, k.private
}

// Admits reports whether code opens a room of this kind.
// Codes are compared byte for byte with no normalization.
func (k RoomKind) Admits(code string) bool {
	if !k.private {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(k.accessCode), []byte(code)) == 1
}

// ChatRoom is a room in the catalog.
type ChatRoom struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
	UsersCount  int
	Kind        RoomKind
}

// IsPrivate is a shorthand for r.Kind.IsPrivate().
func (r ChatRoom) IsPrivate() bool {
	return r.Kind.IsPrivate()
}
