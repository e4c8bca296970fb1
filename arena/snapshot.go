package arena

import "github.com/lefinal/bedwars-server/host"

// ParticipantSnapshot is a read-only copy of a Participant.
type ParticipantSnapshot struct {
	ID         ParticipantID `json:"id"`
	Kind       Kind          `json:"kind"`
	Name       string        `json:"name"`
	Team       Color         `json:"team"`
	Spectating bool          `json:"spectating"`
	// Counters are the session counters while a match is running.
	Counters *host.Counters `json:"counters,omitempty"`
}

// TeamSnapshot is a read-only copy of a Team.
type TeamSnapshot struct {
	Color      Color           `json:"color"`
	Capacity   int             `json:"capacity"`
	Members    []ParticipantID `json:"members"`
	BedAlive   bool            `json:"bed_alive"`
	Eliminated bool            `json:"eliminated"`
}

// Snapshot is a read-only copy of an Arena for administration and rendering.
type Snapshot struct {
	Name         string                `json:"name"`
	Map          string                `json:"map"`
	Mode         Mode                  `json:"mode"`
	State        State                 `json:"state"`
	Countdown    int                   `json:"countdown"`
	Elapsed      int                   `json:"elapsed"`
	MaxPlayers   int                   `json:"max_players"`
	Teams        []TeamSnapshot        `json:"teams"`
	Participants []ParticipantSnapshot `json:"participants"`
	// ScheduledTasks is the number of active timers of the arena.
	ScheduledTasks int `json:"scheduled_tasks"`
}

// Snapshot creates a Snapshot of the current state.
func (a *Arena) Snapshot() Snapshot {
	s := Snapshot{
		Name:       a.Name,
		Map:        a.Map.Name,
		Mode:       a.Mode,
		State:      a.state,
		Countdown:  a.countdown,
		Elapsed:    a.elapsed,
		MaxPlayers: a.maxPlayers,
	}
	for _, team := range a.teams {
		s.Teams = append(s.Teams, TeamSnapshot{
			Color:      team.Color,
			Capacity:   team.Capacity,
			Members:    team.Members(),
			BedAlive:   team.bedAlive,
			Eliminated: team.eliminated,
		})
	}
	for _, p := range a.Participants() {
		s.Participants = append(s.Participants, ParticipantSnapshot{
			ID:         p.ID,
			Kind:       p.Kind,
			Name:       p.Name,
			Team:       p.Team,
			Spectating: p.Spectating,
		})
	}
	return s
}

// Team returns the snapshot of the team with the given color.
func (s Snapshot) Team(color Color) (TeamSnapshot, bool) {
	for _, team := range s.Teams {
		if team.Color == color {
			return team, true
		}
	}
	return TeamSnapshot{}, false
}

// Participant returns the snapshot of the participant with the given id.
func (s Snapshot) Participant(id ParticipantID) (ParticipantSnapshot, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return ParticipantSnapshot{}, false
}
