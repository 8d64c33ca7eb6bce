package services

import "fmt"

// DuplicateUserError is returned when registration collides with an existing
// username or email. The message is safe to show to the client.
type DuplicateUserError struct {
	Field string // "username" or "email"
	Value string
}

func (e *DuplicateUserError) Error() string {
	if e.Field == "email" {
		return fmt.Sprintf("email '%s' already registered", e.Value)
	}
	return fmt.Sprintf("username '%s' already taken", e.Value)
}
