package domain

// Identity is a verified user identity resolved from a bearer credential.
type Identity struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}
