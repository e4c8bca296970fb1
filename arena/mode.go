package arena

import "strings"

// Mode is the game mode of an arena. It fixes the team count and capacity.
type Mode string

const (
	ModeSolo    Mode = "SOLO"
	ModeDoubles Mode = "DOUBLES"
	ModeTrio    Mode = "TRIO"
	ModeQuad    Mode = "QUAD"
	ModeDuel    Mode = "DUEL"
	ModeCustom  Mode = "CUSTOM"
)

// ModeSettings is the team layout for a Mode.
type ModeSettings struct {
	// Teams is the number of teams.
	Teams int `json:"teams"`
	// TeamSize is the capacity of each team.
	TeamSize int `json:"team_size"`
}

// MaxPlayers is the number of participants the layout can hold.
func (s ModeSettings) MaxPlayers() int {
	return s.Teams * s.TeamSize
}

// DefaultModes returns the team layouts of all game modes.
func DefaultModes() map[Mode]ModeSettings {
	return map[Mode]ModeSettings{
		ModeSolo:    {Teams: 8, TeamSize: 1},
		ModeDoubles: {Teams: 8, TeamSize: 2},
		ModeTrio:    {Teams: 4, TeamSize: 3},
		ModeQuad:    {Teams: 4, TeamSize: 4},
		ModeDuel:    {Teams: 2, TeamSize: 1},
		ModeCustom:  {Teams: 4, TeamSize: 1},
	}
}

// ParseMode parses the case-insensitive mode name.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := DefaultModes()[m]; !ok {
		return "", false
	}
	return m, true
}

// Color identifies a team within an arena.
type Color string

// DefaultColors are the team colors in assignment order.
var DefaultColors = []Color{"RED", "BLUE", "GREEN", "YELLOW", "AQUA", "WHITE", "PINK", "GRAY"}
