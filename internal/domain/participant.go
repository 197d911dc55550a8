package domain

import "errors"

const MaxIdentityLen = 64

var (
	ErrIdentityEmpty   = errors.New("identity empty")
	ErrIdentityTooLong = errors.New("identity too long")
)

// Participant is a room occupant as the signaling service sees it.
// No transport or lifecycle logic here.
type Participant struct {
	Identity string `json:"identity"`
	Role     Role   `json:"role"`
}

// NewParticipant avoids raw literals in adapters and keeps validation
// in one place.
func NewParticipant(identity string, role Role) (*Participant, error) {
	if identity == "" {
		return nil, ErrIdentityEmpty
	}
	if len(identity) > MaxIdentityLen {
		return nil, ErrIdentityTooLong
	}
	return &Participant{Identity: identity, Role: role}, nil
}
