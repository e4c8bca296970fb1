package arena

import (
	"fmt"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/host"
)

// State is the lifecycle state of an Arena.
type State string

const (
	// StateWaiting accepts joins and leaves.
	StateWaiting State = "WAITING"
	// StateStarting counts down to the match start.
	StateStarting State = "STARTING"
	// StateRunning is an in-progress match.
	StateRunning State = "RUNNING"
	// StateEnding shows the outcome before resetting.
	StateEnding State = "ENDING"
)

// BlockPos is the position of a block in the match world.
type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Arena is the state and roster of one configured game instance. It is not
// safe for concurrent use and is owned by exactly one arena actor.
type Arena struct {
	// Name is the unique arena id.
	Name string
	// Map is the map that is played.
	Map Map
	// Mode is the game mode.
	Mode Mode
	// maxPlayers is the roster limit from map and mode.
	maxPlayers int
	state      State
	// countdown is only meaningful in StateStarting.
	countdown int
	// elapsed seconds, only meaningful in StateRunning.
	elapsed int
	teams   []*Team
	// roster holds all participants by their id.
	roster map[ParticipantID]*Participant
	// joinOrder holds the roster ids in join order.
	joinOrder    []ParticipantID
	placedBlocks map[BlockPos]struct{}
	world        host.WorldHandle
}

// New creates an Arena in StateWaiting with teams according to the given mode
// settings. Team colors are taken in order from the given ones.
func New(name string, m Map, mode Mode, settings ModeSettings, colors []Color) (*Arena, error) {
	if settings.Teams < 1 || settings.TeamSize < 1 {
		return nil, errors.NewBadRequestError(errors.KindInvalidConfig, "invalid mode settings",
			errors.Details{"mode": mode, "teams": settings.Teams, "team_size": settings.TeamSize})
	}
	if settings.Teams > len(colors) {
		return nil, errors.NewBadRequestError(errors.KindInvalidConfig,
			fmt.Sprintf("mode needs %d team colors but only %d are available", settings.Teams, len(colors)),
			errors.Details{"mode": mode})
	}
	a := &Arena{
		Name:         name,
		Map:          m,
		Mode:         mode,
		maxPlayers:   settings.MaxPlayers(),
		state:        StateWaiting,
		roster:       make(map[ParticipantID]*Participant),
		placedBlocks: make(map[BlockPos]struct{}),
	}
	if m.MaxPlayers > 0 && m.MaxPlayers < a.maxPlayers {
		a.maxPlayers = m.MaxPlayers
	}
	for i := 0; i < settings.Teams; i++ {
		a.teams = append(a.teams, NewTeam(colors[i], settings.TeamSize))
	}
	return a, nil
}

// State returns the current state.
func (a *Arena) State() State {
	return a.state
}

// Countdown returns the remaining countdown seconds in StateStarting.
func (a *Arena) Countdown() int {
	return a.countdown
}

// Elapsed returns the elapsed match seconds in StateRunning.
func (a *Arena) Elapsed() int {
	return a.elapsed
}

// MaxPlayers returns the roster limit.
func (a *Arena) MaxPlayers() int {
	return a.maxPlayers
}

// World returns the attached match world.
func (a *Arena) World() (host.WorldHandle, bool) {
	return a.world, a.world != ""
}

// BeginCountdown transitions from StateWaiting to StateStarting.
func (a *Arena) BeginCountdown(seconds int) error {
	if a.state != StateWaiting {
		return errors.NewInvalidTransitionError("begin countdown", string(a.state))
	}
	a.state = StateStarting
	a.countdown = seconds
	a.elapsed = 0
	return nil
}

// DecrementCountdown decrements the countdown and returns the new value.
func (a *Arena) DecrementCountdown() int {
	if a.countdown > 0 {
		a.countdown--
	}
	return a.countdown
}

// Start transitions from StateStarting to StateRunning with the given match
// world attached.
func (a *Arena) Start(world host.WorldHandle) error {
	if a.state != StateStarting {
		return errors.NewInvalidTransitionError("start", string(a.state))
	}
	a.state = StateRunning
	a.countdown = 0
	a.elapsed = 0
	a.world = world
	return nil
}

// IncrementElapsed counts one second of match time.
func (a *Arena) IncrementElapsed() {
	if a.state == StateRunning {
		a.elapsed++
	}
}

// End transitions from StateRunning to StateEnding.
func (a *Arena) End() error {
	if a.state != StateRunning {
		return errors.NewInvalidTransitionError("end", string(a.state))
	}
	a.state = StateEnding
	a.countdown = 0
	a.elapsed = 0
	return nil
}

// EnterWaiting resets everything match related and transitions to
// StateWaiting. The roster is kept. It returns the world that was detached,
// if any.
func (a *Arena) EnterWaiting() (host.WorldHandle, bool) {
	world, hadWorld := a.World()
	a.state = StateWaiting
	a.countdown = 0
	a.elapsed = 0
	a.placedBlocks = make(map[BlockPos]struct{})
	for _, team := range a.teams {
		team.resetFlags()
	}
	a.world = ""
	for _, p := range a.roster {
		p.Spectating = false
	}
	return world, hadWorld
}

// Teams returns all teams in color order.
func (a *Arena) Teams() []*Team {
	teams := make([]*Team, len(a.teams))
	copy(teams, a.teams)
	return teams
}

// Team returns the team with the given color.
func (a *Arena) Team(color Color) (*Team, bool) {
	for _, team := range a.teams {
		if team.Color == color {
			return team, true
		}
	}
	return nil, false
}

// Size returns the roster size.
func (a *Arena) Size() int {
	return len(a.roster)
}

// IsFull checks whether the roster reached its limit.
func (a *Arena) IsFull() bool {
	return len(a.roster) >= a.maxPlayers
}

// Participant returns the participant with the given id.
func (a *Arena) Participant(id ParticipantID) (*Participant, bool) {
	p, ok := a.roster[id]
	return p, ok
}

// Participants returns all participants in join order.
func (a *Arena) Participants() []*Participant {
	participants := make([]*Participant, 0, len(a.joinOrder))
	for _, id := range a.joinOrder {
		participants = append(participants, a.roster[id])
	}
	return participants
}

// ParticipantsOfKind returns all participants of the kind in join order.
func (a *Arena) ParticipantsOfKind(kind Kind) []*Participant {
	participants := make([]*Participant, 0)
	for _, id := range a.joinOrder {
		if p := a.roster[id]; p.Kind == kind {
			participants = append(participants, p)
		}
	}
	return participants
}

// TeamOf returns the team of the participant.
func (a *Arena) TeamOf(id ParticipantID) (*Team, bool) {
	p, ok := a.roster[id]
	if !ok || p.Team == "" {
		return nil, false
	}
	return a.Team(p.Team)
}

// Join adds the participant to the roster and assigns it to the smallest
// non-full team that is accepted by the eligible-function. If eligible is nil,
// all teams are eligible.
func (a *Arena) Join(p *Participant, eligible func(team *Team) bool) error {
	if _, ok := a.roster[p.ID]; ok {
		return errors.NewBadRequestError(errors.KindAlreadyJoined, "already joined",
			errors.Details{"participant": p.ID})
	}
	if a.IsFull() {
		return errors.NewBadRequestError(errors.KindArenaFull, "arena full", errors.Details{"arena": a.Name})
	}
	var smallest *Team
	for _, team := range a.teams {
		if team.IsFull() || (eligible != nil && !eligible(team)) {
			continue
		}
		if smallest == nil || team.Size() < smallest.Size() {
			smallest = team
		}
	}
	if smallest == nil {
		return errors.NewBadRequestError(errors.KindArenaFull, "no team with capacity left",
			errors.Details{"arena": a.Name})
	}
	smallest.add(p.ID)
	p.Team = smallest.Color
	a.roster[p.ID] = p
	a.joinOrder = append(a.joinOrder, p.ID)
	return nil
}

// Leave removes the participant from the roster and its team.
func (a *Arena) Leave(id ParticipantID) (*Participant, error) {
	p, ok := a.roster[id]
	if !ok {
		return nil, errors.NewNotFoundError(errors.KindUnknownParticipant, "unknown participant",
			errors.Details{"participant": id})
	}
	if team, ok := a.Team(p.Team); ok {
		team.remove(id)
	}
	delete(a.roster, id)
	for i, joined := range a.joinOrder {
		if joined == id {
			a.joinOrder = append(a.joinOrder[:i], a.joinOrder[i+1:]...)
			break
		}
	}
	return p, nil
}

// PlaceBlock records a block placed by a participant.
func (a *Arena) PlaceBlock(pos BlockPos) {
	a.placedBlocks[pos] = struct{}{}
}

// BreakBlock removes a block placed by a participant. It returns false for
// blocks that are part of the map.
func (a *Arena) BreakBlock(pos BlockPos) bool {
	if _, ok := a.placedBlocks[pos]; !ok {
		return false
	}
	delete(a.placedBlocks, pos)
	return true
}

// PlacedBlocks returns the number of tracked blocks.
func (a *Arena) PlacedBlocks() int {
	return len(a.placedBlocks)
}
