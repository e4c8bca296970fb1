// Package host describes everything the arena engine consumes from the game
// host: match worlds, in-world participant visuals and persistent statistics.
// The engine only triggers these operations. The host executes them.
package host

import (
	"context"
)

// LethalDamage is the damage amount that always kills a participant.
const LethalDamage = 1e6

// WorldHandle identifies a provisioned match world. It is exclusively owned by
// one arena while its match is running.
type WorldHandle string

// VisualHandle identifies the in-world representation of a participant. For
// humans it is handed over by the host when joining. For bots it is created
// via Presentation.SpawnParticipantVisual.
type VisualHandle string

// ParticipantInfo is what the host needs to know about a participant for
// creating a visual.
type ParticipantInfo struct {
	// ID of the participant.
	ID string
	// Name is the display name.
	Name string
	// IsBot describes whether the participant is a bot.
	IsBot bool
	// Team is the color of the team the participant belongs to.
	Team string
}

// WorldProvider creates and destroys match world copies.
type WorldProvider interface {
	// ProvisionMatchWorld creates a fresh world copy for the map with the given
	// id.
	ProvisionMatchWorld(ctx context.Context, mapID string) (WorldHandle, error)
	// TeardownWorld removes the given world copy.
	TeardownWorld(ctx context.Context, world WorldHandle) error
}

// Presentation is the entity layer of the host.
type Presentation interface {
	// SpawnParticipantVisual creates a visual for the participant at the given
	// location.
	SpawnParticipantVisual(participant ParticipantInfo, location Location) (VisualHandle, error)
	// DestroyVisual removes the visual. Destroying an unknown or already
	// destroyed visual is a no-op.
	DestroyVisual(visual VisualHandle)
	// IsVisualValid checks whether the visual exists and was not destroyed.
	IsVisualValid(visual VisualHandle) bool
	// IsConnected checks whether the human owning the visual is still
	// connected.
	IsConnected(visual VisualHandle) bool
	// VisualLocation returns the current location of the visual.
	VisualLocation(visual VisualHandle) (Location, bool)
	// ApplyDamage damages the visual. Use LethalDamage for killing.
	ApplyDamage(visual VisualHandle, amount float64)
	// Teleport moves the visual to the given location.
	Teleport(visual VisualHandle, location Location)
	// SetSpectator switches the human owning the visual to spectator mode at
	// the given observation point.
	SetSpectator(visual VisualHandle, observation Location)
	// ClearItems clears all held items.
	ClearItems(visual VisualHandle)
	// Restore brings a dead participant back alive at the given location.
	Restore(visual VisualHandle, location Location)
	// PlaceItem drops the given items at the location.
	PlaceItem(items ItemStack, location Location)
	// NearestItem returns the location of the nearest dropped item within the
	// radius.
	NearestItem(from Location, radius float64) (Location, bool)
	// CollectItems picks up all dropped items within the radius around the
	// visual and returns them.
	CollectItems(visual VisualHandle, radius float64) []ItemStack
}

// Counters are the per-participant session counters of a match.
type Counters struct {
	Kills         int `json:"kills"`
	Deaths        int `json:"deaths"`
	FinalKills    int `json:"final_kills"`
	BedsDestroyed int `json:"beds_destroyed"`
}

// MatchResult is the result of one participant in a finished match.
type MatchResult struct {
	// ParticipantID identifies the participant.
	ParticipantID string
	// Name is the display name.
	Name string
	// Counters are the final session counters.
	Counters Counters
	// Won describes whether the participant's team won.
	Won bool
}

// StatsRecorder persists match results.
type StatsRecorder interface {
	// PersistMatchResult stores the result of one participant.
	PersistMatchResult(ctx context.Context, result MatchResult) error
}

// Host bundles all collaborators.
type Host struct {
	Worlds       WorldProvider
	Presentation Presentation
	Stats        StatsRecorder
}
