package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerson_LazyAttributesAreCached(t *testing.T) {
	session := newStubSession()
	person := NewPerson(session.d.users, "u1", "dm1", "team1")

	assert.Equal(t, "alice", person.Username())
	assert.Equal(t, "alice", person.Nick())
	assert.Equal(t, "Alice Doe", person.FullName())
	assert.Equal(t, "alice@example.com", person.Email())

	before := session.d.users.calls
	person.Username()
	person.FullName()
	person.Email()
	assert.Equal(t, before, session.d.users.calls)
}

func TestPerson_String(t *testing.T) {
	session := newStubSession()
	person := NewPerson(session.d.users, "u1", "", "team1")
	assert.Equal(t, "@alice", person.String())
}

func TestPerson_UnknownUserRendersPlaceholder(t *testing.T) {
	session := newStubSession()
	person := NewPerson(session.d.users, "ghost", "", "team1")
	assert.Equal(t, "<ghost>", person.Username())
	assert.Equal(t, "@<ghost>", person.String())
}

func TestPerson_Equal(t *testing.T) {
	session := newStubSession()

	a := NewPerson(session.d.users, "u1", "dm1", "team1")
	b := NewPerson(session.d.users, "u1", "dm-other", "team1")
	c := NewPerson(session.d.users, "u2", "dm1", "team1")
	otherTeam := NewPerson(session.d.users, "u1", "dm1", "team2")
	noTeam := NewPerson(session.d.users, "u1", "dm1", "")

	assert.True(t, a.Equal(b), "channel id must not affect identity")
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(otherTeam))
	assert.True(t, a.Equal(noTeam), "missing team id on one side is not a mismatch")
	assert.False(t, a.Equal(nil))
}

func TestRoomOccupant(t *testing.T) {
	session := newStubSession()

	person := NewPerson(session.d.users, "u1", "chan1", "team1")
	room := NewRoomFromID(session, "chan1", "team1")
	occupant := NewRoomOccupant(person, room)

	assert.Equal(t, room, occupant.Room())
	assert.Equal(t, "~general/@alice", occupant.String())
}

func TestRoomOccupant_Equal(t *testing.T) {
	session := newStubSession()
	room := NewRoomFromID(session, "chan1", "team1")
	otherRoom := NewRoomFromID(session, "chan2", "team1")

	a := NewRoomOccupant(NewPerson(session.d.users, "u1", "chan1", "team1"), room)
	b := NewRoomOccupant(NewPerson(session.d.users, "u1", "chan1", "team1"), room)
	c := NewRoomOccupant(NewPerson(session.d.users, "u2", "chan1", "team1"), room)
	d := NewRoomOccupant(NewPerson(session.d.users, "u1", "chan2", "team1"), otherRoom)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c), "different user")
	assert.False(t, a.Equal(d), "different room")
	assert.False(t, a.Equal(nil))
}
