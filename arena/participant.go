package arena

import (
	"github.com/google/uuid"
	"github.com/lefinal/bedwars-server/host"
)

// ParticipantID identifies a human or bot participant.
type ParticipantID string

// NewParticipantID generates a random ParticipantID.
func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.New().String())
}

// Kind tells humans and bots apart.
type Kind string

const (
	KindHuman Kind = "human"
	KindBot   Kind = "bot"
)

// Participant is a roster entry. Bot specific state lives in the bot registry
// and is referenced by the id.
type Participant struct {
	// ID of the participant.
	ID ParticipantID
	// Kind of the participant.
	Kind Kind
	// Name is the display name.
	Name string
	// Team is the assigned team. Empty until assigned.
	Team Color
	// Visual is the in-world representation of a human. It is handed over by
	// the host on join. Bots have their visual in the bot registry.
	Visual host.VisualHandle
	// Spectating is set when the participant was permanently eliminated from
	// the running match.
	Spectating bool
}

// Info returns the host.ParticipantInfo for the participant.
func (p *Participant) Info() host.ParticipantInfo {
	return host.ParticipantInfo{
		ID:    string(p.ID),
		Name:  p.Name,
		IsBot: p.Kind == KindBot,
		Team:  string(p.Team),
	}
}
