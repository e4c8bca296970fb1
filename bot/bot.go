package bot

import (
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/host"
	"github.com/lefinal/bedwars-server/schedule"
)

// Phase is the lifecycle phase of a bot.
type Phase string

const (
	// PhaseRegistered bots are part of the roster but have no visual yet.
	PhaseRegistered Phase = "registered"
	// PhaseMaterialized bots have a visual in the match world.
	PhaseMaterialized Phase = "materialized"
)

// Presence is the typed lifecycle state of a bot. It is either Registered or
// Materialized.
type Presence interface {
	Phase() Phase
}

// Registered is the Presence of a bot without visual.
type Registered struct{}

func (Registered) Phase() Phase {
	return PhaseRegistered
}

// Materialized is the Presence of a bot with visual.
type Materialized struct {
	Visual host.VisualHandle
}

func (Materialized) Phase() Phase {
	return PhaseMaterialized
}

// Bot is a simulated participant.
type Bot struct {
	// ID is the participant id of the bot.
	ID arena.ParticipantID
	// Name is the unique display name.
	Name string
	// Team is the team the bot was assigned to.
	Team       arena.Color
	Difficulty Difficulty
	Skills     Skills
	Mode       Mode
	// InCombat is set while an enemy is engaged.
	InCombat bool
	// Target is the current movement target.
	Target *host.Location
	// Weapon is the held weapon.
	Weapon WeaponTier
	// Resources are the collected resources.
	Resources map[host.ResourceType]int
	presence  Presence

	aiTask         schedule.TaskID
	hasDecided     bool
	lastDecision   uint64
	hasAttacked    bool
	lastAttack     uint64
	lastModeSwitch uint64
	gatherStart    uint64
	patrolTarget   *host.Location
	// decisions counts all decisions made.
	decisions int
	// pickups counts all collected item stacks.
	pickups int
}

func newBot(id arena.ParticipantID, name string, difficulty Difficulty, skills Skills) *Bot {
	return &Bot{
		ID:         id,
		Name:       name,
		Difficulty: difficulty,
		Skills:     skills.Clamped(),
		Mode:       ModePassive,
		Weapon:     WeaponWood,
		Resources:  make(map[host.ResourceType]int),
		presence:   Registered{},
	}
}

// Presence returns the lifecycle state.
func (b *Bot) Presence() Presence {
	return b.presence
}

// Phase returns the lifecycle phase.
func (b *Bot) Phase() Phase {
	return b.presence.Phase()
}

// Visual returns the visual handle if the bot is materialized.
func (b *Bot) Visual() (host.VisualHandle, bool) {
	m, ok := b.presence.(Materialized)
	if !ok {
		return "", false
	}
	return m.Visual, true
}

// Decisions returns the number of decisions made.
func (b *Bot) Decisions() int {
	return b.decisions
}

// Pickups returns the number of collected item stacks.
func (b *Bot) Pickups() int {
	return b.pickups
}

// Participant returns the roster entry for the bot.
func (b *Bot) Participant() *arena.Participant {
	return &arena.Participant{
		ID:   b.ID,
		Kind: arena.KindBot,
		Name: b.Name,
		Team: b.Team,
	}
}
