package identity

import "fmt"

// UserDoesNotExistError is returned when a username or user id cannot be
// resolved on the platform
type UserDoesNotExistError struct {
	Name string
}

func (e *UserDoesNotExistError) Error() string {
	return fmt.Sprintf("user %s does not exist", e.Name)
}

// RoomDoesNotExistError is returned when a channel name or id cannot be
// resolved on the platform
type RoomDoesNotExistError struct {
	Room   string
	Reason string
}

func (e *RoomDoesNotExistError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("room %s does not exist: %s", e.Room, e.Reason)
	}
	return fmt.Sprintf("room %s does not exist", e.Room)
}

// RoomError wraps a platform failure of a room operation (create, join,
// leave, invite)
type RoomError struct {
	Op   string
	Room string
	Err  error
}

func (e *RoomError) Error() string {
	return fmt.Sprintf("room %s: %s failed: %v", e.Room, e.Op, e.Err)
}

func (e *RoomError) Unwrap() error {
	return e.Err
}

// UnsupportedIdentifierError is returned when a textual identifier matches
// none of the supported forms
type UnsupportedIdentifierError struct {
	Text string
}

func (e *UnsupportedIdentifierError) Error() string {
	return fmt.Sprintf("invalid or unsupported kchat identifier: %s", e.Text)
}
