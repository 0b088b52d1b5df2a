package machine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/warp/machine-storage/generic"
)

// AccessLevel controls who may interact with a machine.
type AccessLevel uint8

const (
	AccessPublic AccessLevel = iota
	AccessTeam
	AccessPrivate
)

var accessLevelNames = [...]string{"public", "team", "private"}

func (a AccessLevel) String() string {
	if int(a) < len(accessLevelNames) {
		return accessLevelNames[a]
	}
	return "public"
}

// ParseAccessLevel parses a persisted level. Unknown names fall back to
// public so old saves stay loadable.
func ParseAccessLevel(s string) AccessLevel {
	for i, name := range accessLevelNames {
		if strings.EqualFold(s, name) {
			return AccessLevel(i)
		}
	}
	return AccessPublic
}

// Security is a machine's ownership and access settings.
type Security struct {
	owner    uuid.UUID
	username string
	team     string
	teamName string
	level    AccessLevel
}

func (s *Security) Owner() uuid.UUID         { return s.owner }
func (s *Security) Username() string         { return s.username }
func (s *Security) Team() string             { return s.team }
func (s *Security) TeamName() string         { return s.teamName }
func (s *Security) AccessLevel() AccessLevel { return s.level }
func (s *Security) HasOwner() bool           { return s.owner != uuid.Nil }

func (s *Security) SetAccessLevel(level AccessLevel) { s.level = level }

// SetOwner claims the machine. Only the first claim sticks; it reports
// whether this call set the owner.
func (s *Security) SetOwner(player uuid.UUID, username string) bool {
	if s.HasOwner() || player == uuid.Nil {
		return false
	}
	s.owner = player
	s.username = username
	return true
}

// SetTeam links the machine to a team. A team name without a team id is
// rejected.
func (s *Security) SetTeam(team, name string) error {
	if team == "" && name != "" {
		return &generic.ArgumentError{Field: "team", Reason: "team name without team id"}
	}
	s.team, s.teamName = team, name
	return nil
}

func (s *Security) IsOwner(player uuid.UUID) bool {
	return s.HasOwner() && s.owner == player
}

// HasAccess reports whether player may use the machine. Team membership is
// not tracked, so team access behaves like private access.
func (s *Security) HasAccess(player uuid.UUID) bool {
	switch s.level {
	case AccessTeam, AccessPrivate:
		return s.IsOwner(player)
	default:
		return true
	}
}

func (s *Security) Save() generic.Compound {
	c := generic.Compound{"AccessLevel": s.level.String()}
	if s.HasOwner() {
		c["Owner"] = s.owner.String()
		if s.username != "" {
			c["Username"] = s.username
		}
	}
	if s.team != "" {
		c["Team"] = s.team
		if s.teamName != "" {
			c["TeamName"] = s.teamName
		}
	}
	return c
}

// Load replaces the settings. A malformed owner id leaves the machine
// unowned.
func (s *Security) Load(c generic.Compound) {
	*s = Security{level: ParseAccessLevel(c.String("AccessLevel"))}
	if id, err := uuid.Parse(c.String("Owner")); err == nil {
		s.owner = id
		s.username = c.String("Username")
	}
	if team := c.String("Team"); team != "" {
		s.team = team
		s.teamName = c.String("TeamName")
	}
}

const (
	securityHasOwner    = 0b0001
	securityHasUsername = 0b0010
	securityHasTeam     = 0b0100
	securityHasTeamName = 0b1000
)

func (s *Security) writePacket(buf *generic.Buffer) {
	buf.WriteUint8(uint8(s.level))
	if !s.HasOwner() {
		buf.WriteUint8(0)
		return
	}
	bits := uint8(securityHasOwner)
	if s.username != "" {
		bits |= securityHasUsername
	}
	if s.team != "" {
		bits |= securityHasTeam
	}
	if s.teamName != "" {
		bits |= securityHasTeamName
	}
	buf.WriteUint8(bits)
	buf.WriteBytes(s.owner[:])
	if s.username != "" {
		buf.WriteString(s.username)
	}
	if s.team != "" {
		buf.WriteString(s.team)
	}
	if s.teamName != "" {
		buf.WriteString(s.teamName)
	}
}

func (s *Security) readPacket(buf *generic.Buffer) error {
	level := AccessLevel(buf.ReadUint8())
	if int(level) >= len(accessLevelNames) {
		return fmt.Errorf("failed to read security: unknown access level %d", level)
	}
	next := Security{level: level}
	bits := buf.ReadUint8()
	if bits != 0 {
		owner, err := uuid.FromBytes(buf.ReadBytes())
		if err != nil {
			return fmt.Errorf("failed to read security owner: %w", err)
		}
		next.owner = owner
		if bits&securityHasUsername != 0 {
			next.username = buf.ReadString()
		}
		if bits&securityHasTeam != 0 {
			next.team = buf.ReadString()
		}
		if bits&securityHasTeamName != 0 {
			next.teamName = buf.ReadString()
		}
	}
	if err := buf.Err(); err != nil {
		return err
	}
	*s = next
	return nil
}
