package models

// User is the item owner as known to the auth subsystem. The item domain only
// stores the ID and keeps the rest for display.
type User struct {
	ID    string
	Name  string // optional
	Email string
}

// DisplayName returns the name, falling back to the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "Unknown"
}
