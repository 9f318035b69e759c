package identity

// RoomOccupant is a Person seen inside a Room. The room reference is
// injected at construction and shared, never built by the occupant itself;
// its lifetime is bound to the enclosing message or event.
type RoomOccupant struct {
	*Person
	room *Room
}

// NewRoomOccupant composes a person with the room it occupies
func NewRoomOccupant(person *Person, room *Room) *RoomOccupant {
	return &RoomOccupant{
		Person: person,
		room:   room,
	}
}

// Room returns the occupied room
func (o *RoomOccupant) Room() *Room {
	return o.room
}

// String renders the occupant as ~room/@username
func (o *RoomOccupant) String() string {
	return "~" + o.room.Name() + "/@" + o.Username()
}

// Equal reports whether both occupants are the same user in the same
// channel
func (o *RoomOccupant) Equal(other *RoomOccupant) bool {
	if other == nil {
		return false
	}
	if o.UserID() != other.UserID() {
		return false
	}
	// Rooms carried on occupants always have a resolved channel id
	return o.room.id == other.room.id
}
