package match

import "github.com/lefinal/bedwars-server/arena"

// AliveFunc reports whether a participant currently counts as alive.
type AliveFunc func(id arena.ParticipantID) bool

// Outcome is the result of an evaluation.
type Outcome struct {
	// Ended is set when at most one team is left.
	Ended bool
	// Winner is the last remaining team. It is nil for a void end.
	Winner *arena.Team
	// Eliminated holds the teams that were eliminated by this evaluation.
	Eliminated []*arena.Team
}

// TeamAlive reports whether any member of the team is alive.
func TeamAlive(team *arena.Team, alive AliveFunc) bool {
	for _, member := range team.Members() {
		if alive(member) {
			return true
		}
	}
	return false
}

// CheckTeam eliminates the team if none of its members is alive. It reports
// whether the team was newly eliminated.
func CheckTeam(team *arena.Team, alive AliveFunc) bool {
	if team.Eliminated() || TeamAlive(team, alive) {
		return false
	}
	return team.Eliminate()
}

// Evaluate eliminates every team without alive members and decides whether
// the match is over. Besides elimination flags, nothing is modified.
func Evaluate(teams []*arena.Team, alive AliveFunc) Outcome {
	var outcome Outcome
	for _, team := range teams {
		if CheckTeam(team, alive) {
			outcome.Eliminated = append(outcome.Eliminated, team)
		}
	}
	remaining := make([]*arena.Team, 0, len(teams))
	for _, team := range teams {
		if !team.Eliminated() {
			remaining = append(remaining, team)
		}
	}
	switch len(remaining) {
	case 0:
		outcome.Ended = true
	case 1:
		outcome.Ended = true
		outcome.Winner = remaining[0]
	}
	return outcome
}
