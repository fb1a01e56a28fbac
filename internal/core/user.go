package core

// User is a chat participant, registered or anonymous.
type User struct {
	ID          string
	Username    string
	IsAnonymous bool
	IsOnline    bool
}

// Presence summarizes who is currently online.
type Presence struct {
	Users            []User
	TotalOnline      int
	RegisteredOnline int
}
