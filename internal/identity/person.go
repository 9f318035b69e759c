// Package identity holds the value types of the adapter: a platform user,
// a room, and a user seen inside a room. All three are transient, scoped
// to one event or one send operation, and resolve display attributes
// lazily through the platform client.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/Infomaniak/err-backend-kchat/internal/driver"
	"github.com/Infomaniak/err-backend-kchat/internal/logger"
)

// Identifier is any addressable destination: a Person, a Room or a
// RoomOccupant
type Identifier interface {
	fmt.Stringer
}

// Person is a platform user. Immutable after construction; username,
// full name and email are fetched on first access and cached so repeated
// reads cost no extra requests.
type Person struct {
	users     driver.UserService
	userid    string
	channelid string
	teamid    string

	username string
	fullname string
	email    string
}

// NewPerson builds a Person. channelid is the direct message channel
// shared with the bot when known, otherwise empty.
func NewPerson(users driver.UserService, userid, channelid, teamid string) *Person {
	return &Person{
		users:     users,
		userid:    userid,
		channelid: channelid,
		teamid:    teamid,
	}
}

// UserID returns the platform user id
func (p *Person) UserID() string {
	return p.userid
}

// ChannelID returns the direct message channel id, when known
func (p *Person) ChannelID() string {
	return p.channelid
}

// TeamID returns the owning team id
func (p *Person) TeamID() string {
	return p.teamid
}

// Username resolves the username, fetching it on first call. A failed
// lookup logs and yields "<userid>" so display paths never block on a
// platform fault.
func (p *Person) Username() string {
	if p.username != "" {
		return p.username
	}
	user, err := p.users.GetUser(context.Background(), p.userid)
	if err != nil || user.Username == "" {
		logger.WithField("user_id", p.userid).Error("cannot-find-username-for-user")
		return "<" + p.userid + ">"
	}
	p.username = user.Username
	return p.username
}

// Nick is an alias of Username
func (p *Person) Nick() string {
	return p.Username()
}

// FullName resolves the user's first and last name, fetched on first call
func (p *Person) FullName() string {
	if p.fullname != "" {
		return p.fullname
	}
	user, err := p.users.GetUser(context.Background(), p.userid)
	if err != nil {
		logger.WithField("user_id", p.userid).WithError(err).Error("cannot-find-fullname-for-user")
		return ""
	}
	p.fullname = strings.TrimSpace(user.FirstName + " " + user.LastName)
	return p.fullname
}

// Email resolves the user's email address, fetched on first call
func (p *Person) Email() string {
	if p.email != "" {
		return p.email
	}
	user, err := p.users.GetUser(context.Background(), p.userid)
	if err != nil {
		return ""
	}
	p.email = user.Email
	return p.email
}

// String renders the person as @username
func (p *Person) String() string {
	return "@" + p.Username()
}

// Equal reports identity equality: same userid, and same team when both
// sides carry one
func (p *Person) Equal(other *Person) bool {
	if other == nil {
		return false
	}
	if p.teamid != "" && other.teamid != "" && p.teamid != other.teamid {
		return false
	}
	return p.userid == other.userid
}
