package director

import (
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/host"
)

// NotificationType describes the payload of a Notification.
type NotificationType string

const (
	// NotifyStateChanged with payload StateChanged.
	NotifyStateChanged NotificationType = "state-changed"
	// NotifyCountdown with payload Countdown.
	NotifyCountdown NotificationType = "countdown"
	// NotifyParticipantJoined with payload ParticipantJoined.
	NotifyParticipantJoined NotificationType = "participant-joined"
	// NotifyParticipantLeft with payload ParticipantLeft.
	NotifyParticipantLeft NotificationType = "participant-left"
	// NotifyProvisionFailed with payload ProvisionFailed.
	NotifyProvisionFailed NotificationType = "provision-failed"
	// NotifyBedDestroyed with payload BedDestroyed.
	NotifyBedDestroyed NotificationType = "bed-destroyed"
	// NotifyParticipantDied with payload ParticipantDied.
	NotifyParticipantDied NotificationType = "participant-died"
	// NotifyRespawnCountdown with payload RespawnCountdown.
	NotifyRespawnCountdown NotificationType = "respawn-countdown"
	// NotifyParticipantRespawned with payload ParticipantRespawned.
	NotifyParticipantRespawned NotificationType = "participant-respawned"
	// NotifyParticipantEliminated with payload ParticipantEliminated.
	NotifyParticipantEliminated NotificationType = "participant-eliminated"
	// NotifyTeamEliminated with payload TeamEliminated.
	NotifyTeamEliminated NotificationType = "team-eliminated"
	// NotifyMatchEnded with payload MatchEnded.
	NotifyMatchEnded NotificationType = "match-ended"
)

// Notification is something that happened in an arena.
type Notification struct {
	// Arena is the name of the arena.
	Arena string
	// Type describes the payload type.
	Type NotificationType
	// Payload is the type-specific content.
	Payload interface{}
}

// Notifier receives notifications. Notify is called from arena actors and must
// not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc is a func implementing Notifier.
type NotifierFunc func(n Notification)

// Notify calls the func.
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

type nopNotifier struct{}

func (nopNotifier) Notify(_ Notification) {}

// StateChanged is the payload for NotifyStateChanged.
type StateChanged struct {
	From arena.State
	To   arena.State
}

// Countdown is the payload for NotifyCountdown.
type Countdown struct {
	// Seconds until the match starts.
	Seconds int
}

// ParticipantJoined is the payload for NotifyParticipantJoined.
type ParticipantJoined struct {
	Participant arena.ParticipantID
	Name        string
	Kind        arena.Kind
	Team        arena.Color
}

// ParticipantLeft is the payload for NotifyParticipantLeft.
type ParticipantLeft struct {
	Participant arena.ParticipantID
	Name        string
	Team        arena.Color
}

// ProvisionFailed is the payload for NotifyProvisionFailed.
type ProvisionFailed struct {
	// Reason is a user-facing description.
	Reason string
}

// BedDestroyed is the payload for NotifyBedDestroyed.
type BedDestroyed struct {
	Team      arena.Color
	Destroyer arena.ParticipantID
}

// ParticipantDied is the payload for NotifyParticipantDied.
type ParticipantDied struct {
	Victim arena.ParticipantID
	// Killer is the optional killer.
	Killer *arena.ParticipantID
	// Final is set if the victim's bed was already destroyed.
	Final bool
}

// RespawnCountdown is the payload for NotifyRespawnCountdown. It is addressed
// to the dead participant.
type RespawnCountdown struct {
	Participant arena.ParticipantID
	Seconds     int
}

// ParticipantRespawned is the payload for NotifyParticipantRespawned.
type ParticipantRespawned struct {
	Participant arena.ParticipantID
}

// ParticipantEliminated is the payload for NotifyParticipantEliminated.
type ParticipantEliminated struct {
	Participant arena.ParticipantID
}

// TeamEliminated is the payload for NotifyTeamEliminated.
type TeamEliminated struct {
	Team arena.Color
}

// MatchEnded is the payload for NotifyMatchEnded.
type MatchEnded struct {
	// Winner is the winning team. It is nil for forced or void ends.
	Winner *arena.Color
	// Results holds the results of all participants.
	Results []host.MatchResult
}
