package event

import (
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/bedwars-server/arena"
)

// Commands are published by the host and handled by the arena service. Each
// command names the arena it targets. The optional request id is echoed in the
// CommandResultEvent.

// JoinCommand requests a human to join an arena.
type JoinCommand struct {
	RequestID nulls.String `json:"request_id"`
	Arena     string       `json:"arena"`
	// Participant is the id assigned by the host.
	Participant string `json:"participant"`
	// Name is the display name.
	Name string `json:"name"`
	// Visual is the handle of the in-world representation.
	Visual string `json:"visual"`
}

// LeaveCommand requests a participant to leave an arena.
type LeaveCommand struct {
	RequestID   nulls.String `json:"request_id"`
	Arena       string       `json:"arena"`
	Participant string       `json:"participant"`
}

// ArenaCommand is used for commands that only need the arena, like force start
// and force end.
type ArenaCommand struct {
	RequestID nulls.String `json:"request_id"`
	Arena     string       `json:"arena"`
}

// BedDestroyedCommand reports a destroyed bed.
type BedDestroyedCommand struct {
	RequestID nulls.String `json:"request_id"`
	Arena     string       `json:"arena"`
	// Team is the color of the team that owned the bed.
	Team string `json:"team"`
	// Actor is the participant that destroyed the bed.
	Actor string `json:"actor"`
}

// DeathCommand reports the death of a participant.
type DeathCommand struct {
	RequestID nulls.String `json:"request_id"`
	Arena     string       `json:"arena"`
	Victim    string       `json:"victim"`
	// Killer is the optional participant that killed the victim.
	Killer nulls.String `json:"killer"`
}

// BotKilledCommand reports a killed bot.
type BotKilledCommand struct {
	RequestID nulls.String `json:"request_id"`
	Arena     string       `json:"arena"`
	Bot       string       `json:"bot"`
	Actor     nulls.String `json:"actor"`
}

// BlockCommand reports a placed or broken block.
type BlockCommand struct {
	RequestID nulls.String   `json:"request_id"`
	Arena     string         `json:"arena"`
	Actor     string         `json:"actor"`
	Pos       arena.BlockPos `json:"pos"`
}

// AddBotsCommand requests adding bots.
type AddBotsCommand struct {
	RequestID nulls.String `json:"request_id"`
	Arena     string       `json:"arena"`
	Count     int          `json:"count"`
}

// CommandResultEvent is published after handling a command.
type CommandResultEvent struct {
	RequestID nulls.String `json:"request_id"`
	Command   string       `json:"command"`
	Arena     string       `json:"arena"`
	// OK describes whether the command succeeded. If not, Error is set.
	OK    bool               `json:"ok"`
	Error *ErrorEventPayload `json:"error,omitempty"`
	// Team is set for successful joins.
	Team nulls.String `json:"team"`
	// Added is set for add-bots commands.
	Added nulls.Int `json:"added"`
}

// ArenaSnapshotsEvent holds the current state of all arenas.
type ArenaSnapshotsEvent struct {
	Arenas []arena.Snapshot `json:"arenas"`
}

// StateChangedEvent is published when an arena changes its state.
type StateChangedEvent struct {
	Arena string `json:"arena"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// CountdownEvent is published for each announced countdown second.
type CountdownEvent struct {
	Arena   string `json:"arena"`
	Seconds int    `json:"seconds"`
}

// ParticipantJoinedEvent is published when a participant joined.
type ParticipantJoinedEvent struct {
	Arena       string `json:"arena"`
	Participant string `json:"participant"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Team        string `json:"team"`
}

// ParticipantLeftEvent is published when a participant left.
type ParticipantLeftEvent struct {
	Arena       string `json:"arena"`
	Participant string `json:"participant"`
	Name        string `json:"name"`
	Team        string `json:"team"`
}

// ProvisionFailedEvent is published when no match world was available.
type ProvisionFailedEvent struct {
	Arena  string `json:"arena"`
	Reason string `json:"reason"`
}

// BedDestroyedEvent is published when a bed was destroyed.
type BedDestroyedEvent struct {
	Arena     string `json:"arena"`
	Team      string `json:"team"`
	Destroyer string `json:"destroyer"`
}

// ParticipantDiedEvent is published when a participant died.
type ParticipantDiedEvent struct {
	Arena  string       `json:"arena"`
	Victim string       `json:"victim"`
	Killer nulls.String `json:"killer"`
	// Final is set when the victim does not respawn.
	Final bool `json:"final"`
}

// RespawnCountdownEvent is published every second while respawning.
type RespawnCountdownEvent struct {
	Arena       string `json:"arena"`
	Participant string `json:"participant"`
	Seconds     int    `json:"seconds"`
}

// ParticipantEvent is used for events that only concern one participant like
// respawning and elimination.
type ParticipantEvent struct {
	Arena       string `json:"arena"`
	Participant string `json:"participant"`
}

// TeamEliminatedEvent is published when a team was eliminated.
type TeamEliminatedEvent struct {
	Arena string `json:"arena"`
	Team  string `json:"team"`
}

// MatchResultEntry is the result of one participant.
type MatchResultEntry struct {
	Participant   string `json:"participant"`
	Name          string `json:"name"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	FinalKills    int    `json:"final_kills"`
	BedsDestroyed int    `json:"beds_destroyed"`
	Won           bool   `json:"won"`
}

// MatchEndedEvent is published when a match ended. Winner is not set for
// draws and forced ends.
type MatchEndedEvent struct {
	Arena   string             `json:"arena"`
	Winner  nulls.String       `json:"winner"`
	Results []MatchResultEntry `json:"results"`
}
