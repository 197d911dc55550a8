// Package domain contains entities without logic, just meta-data.
package domain

// Role is the participant's function in the call.
type Role string

const (
	RoleCaller         Role = "caller"
	RoleAgentPrimary   Role = "agentA"
	RoleAgentSecondary Role = "agentB"
)

// ParseRole maps an entry-parameter string onto a Role. Anything absent
// or unrecognized becomes RoleCaller on purpose: an unknown role must
// degrade to the least privileged participant, not silently disable
// the agent controls with no documented rule.
func ParseRole(s string) Role {
	switch s {
	case string(RoleAgentPrimary):
		return RoleAgentPrimary
	case string(RoleAgentSecondary):
		return RoleAgentSecondary
	default:
		return RoleCaller
	}
}

// SessionIdentity is the resolved identity of the current participant.
// Immutable for the life of the session except for Rebind, which is the
// one mutation a MoveInstruction is allowed to make.
type SessionIdentity struct {
	Identity string
	Role     Role
	Room     RoomName
	// OriginRoom is set only for AgentPrimary after initiating a
	// transfer; it names the room they came from.
	OriginRoom RoomName
}

// ResolveIdentity builds a SessionIdentity from entry parameters.
// identity and room are required; role defaults per ParseRole.
func ResolveIdentity(room, identity, role, fromRoom string) (*SessionIdentity, error) {
	if identity == "" {
		return nil, &MissingParameterError{Name: "identity"}
	}
	if room == "" {
		return nil, &MissingParameterError{Name: "room"}
	}
	r := ParseRole(role)
	id := &SessionIdentity{
		Identity: identity,
		Role:     r,
		Room:     RoomName(room),
	}
	if fromRoom != "" && r == RoleAgentPrimary {
		id.OriginRoom = RoomName(fromRoom)
	}
	return id, nil
}

// Rebind moves the identity to a new room. Role and name are preserved.
func (s *SessionIdentity) Rebind(room RoomName) {
	s.Room = room
}

// IsInitiator reports whether this participant drives transfers.
func (s *SessionIdentity) IsInitiator() bool {
	return s.Role == RoleAgentPrimary
}
