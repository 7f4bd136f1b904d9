package models

// User is the signed-in reader of a session.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarRef string `json:"avatar"`
}
