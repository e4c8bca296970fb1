package match

import (
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/host"
)

// Match is one play-through of an arena. It holds the session counters and
// reads teams live from the arena it references.
type Match struct {
	arena    *arena.Arena
	counters map[arena.ParticipantID]*host.Counters
	// participating holds the teams that had members at the start.
	participating map[arena.Color]struct{}
	// ended is set once an evaluation produced an end.
	ended bool
}

// New creates a Match for the arena's current roster.
func New(a *arena.Arena) *Match {
	m := &Match{
		arena:         a,
		counters:      make(map[arena.ParticipantID]*host.Counters),
		participating: make(map[arena.Color]struct{}),
	}
	for _, team := range a.Teams() {
		if team.Size() > 0 {
			m.participating[team.Color] = struct{}{}
		}
	}
	for _, p := range a.Participants() {
		m.counters[p.ID] = &host.Counters{}
	}
	return m
}

// Participated reports whether the team had members when the match started.
func (m *Match) Participated(color arena.Color) bool {
	_, ok := m.participating[color]
	return ok
}

func (m *Match) countersOf(id arena.ParticipantID) *host.Counters {
	c, ok := m.counters[id]
	if !ok {
		c = &host.Counters{}
		m.counters[id] = c
	}
	return c
}

// Counters returns the counters of the participant.
func (m *Match) Counters(id arena.ParticipantID) host.Counters {
	if c, ok := m.counters[id]; ok {
		return *c
	}
	return host.Counters{}
}

// AllCounters returns a copy of all counters.
func (m *Match) AllCounters() map[arena.ParticipantID]host.Counters {
	all := make(map[arena.ParticipantID]host.Counters, len(m.counters))
	for id, c := range m.counters {
		all[id] = *c
	}
	return all
}

// RecordBedDestroyed credits the destroyer.
func (m *Match) RecordBedDestroyed(destroyer arena.ParticipantID) {
	m.countersOf(destroyer).BedsDestroyed++
}

// RecordDeath counts the death of the victim and credits the optional
// killer. A final kill counts as kill and final kill.
func (m *Match) RecordDeath(victim arena.ParticipantID, killer *arena.ParticipantID, final bool) {
	m.countersOf(victim).Deaths++
	if killer == nil || *killer == victim {
		return
	}
	c := m.countersOf(*killer)
	c.Kills++
	if final {
		c.FinalKills++
	}
}

// Evaluate runs the win-condition evaluation on the live arena teams. Once an
// evaluation ended the match, following ones never report an end again.
func (m *Match) Evaluate(alive AliveFunc) Outcome {
	outcome := Evaluate(m.arena.Teams(), alive)
	if m.ended {
		outcome.Ended = false
		outcome.Winner = nil
		return outcome
	}
	if outcome.Ended {
		m.ended = true
	}
	return outcome
}

// Ended reports whether an evaluation ended the match or End was called.
func (m *Match) Ended() bool {
	return m.ended
}

// End marks the match as ended, for example when force-ended.
func (m *Match) End() {
	m.ended = true
}
