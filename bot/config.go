package bot

import (
	"github.com/lefinal/bedwars-server/host"
	"strings"
)

// Difficulty is the skill tier of a bot.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
	DifficultyExpert Difficulty = "EXPERT"
)

// ParseDifficulty parses the case-insensitive difficulty name. Unknown names
// result in DifficultyMedium.
func ParseDifficulty(s string) Difficulty {
	switch d := Difficulty(strings.ToUpper(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return d
	}
	return DifficultyMedium
}

// Skills describe how well a bot plays. Every value is within [0, 1].
type Skills struct {
	Accuracy          float64 `json:"accuracy"`
	BlockPlacingSpeed float64 `json:"block_placing_speed"`
	PvPSkill          float64 `json:"pvp_skill"`
	DecisionSpeed     float64 `json:"decision_speed"`
	Teamwork          float64 `json:"teamwork"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamped returns the skills with every value clamped to [0, 1].
func (s Skills) Clamped() Skills {
	return Skills{
		Accuracy:          clamp01(s.Accuracy),
		BlockPlacingSpeed: clamp01(s.BlockPlacingSpeed),
		PvPSkill:          clamp01(s.PvPSkill),
		DecisionSpeed:     clamp01(s.DecisionSpeed),
		Teamwork:          clamp01(s.Teamwork),
	}
}

// DifficultySettings are the per-difficulty parameters.
type DifficultySettings struct {
	Skills Skills `json:"skills"`
	// AttackCooldown is the minimum number of ticks between two attacks.
	AttackCooldown int `json:"attack_cooldown"`
}

// Config holds all bot tuning.
type Config struct {
	// Enabled allows auto-filling arenas with bots.
	Enabled bool `json:"enabled"`
	// Difficulty is used for auto-filled bots.
	Difficulty Difficulty `json:"difficulty"`
	// Difficulties holds the settings per difficulty.
	Difficulties map[Difficulty]DifficultySettings `json:"difficulties"`
	// UpdateRate is the number of ticks between two AI steps.
	UpdateRate int `json:"update_rate"`
	// ReactionTime is the minimum number of ticks between two decisions.
	ReactionTime int `json:"reaction_time"`
	// ModeSwitchInterval is the number of seconds between two mode switch
	// draws.
	ModeSwitchInterval int `json:"mode_switch_interval"`
	// ModeSwitchChance is the probability of switching on a draw.
	ModeSwitchChance float64 `json:"mode_switch_chance"`
	// GatherDuration is the number of seconds of the passive gather phase.
	GatherDuration int `json:"gather_duration"`
	// CombatRange is the distance in which enemies are engaged.
	CombatRange float64 `json:"combat_range"`
	// BedBreakPriority is the probability of aggressive bots going for beds
	// instead of hunting.
	BedBreakPriority float64 `json:"bed_break_priority"`
	// AutoFillDelay is the number of seconds to wait after the first human
	// joined before filling with bots.
	AutoFillDelay int `json:"auto_fill_delay"`
	// MaxBotsPerGame caps the number of auto-filled bots per arena.
	MaxBotsPerGame int `json:"max_bots_per_game"`
}

// DefaultConfig returns the default bot tuning.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		Difficulty: DifficultyMedium,
		Difficulties: map[Difficulty]DifficultySettings{
			DifficultyEasy: {
				Skills:         Skills{Accuracy: 0.4, BlockPlacingSpeed: 0.3, PvPSkill: 0.3, DecisionSpeed: 0.4, Teamwork: 0.3},
				AttackCooldown: 20,
			},
			DifficultyMedium: {
				Skills:         Skills{Accuracy: 0.6, BlockPlacingSpeed: 0.5, PvPSkill: 0.55, DecisionSpeed: 0.6, Teamwork: 0.5},
				AttackCooldown: 15,
			},
			DifficultyHard: {
				Skills:         Skills{Accuracy: 0.8, BlockPlacingSpeed: 0.7, PvPSkill: 0.75, DecisionSpeed: 0.8, Teamwork: 0.7},
				AttackCooldown: 10,
			},
			DifficultyExpert: {
				Skills:         Skills{Accuracy: 0.95, BlockPlacingSpeed: 0.9, PvPSkill: 0.9, DecisionSpeed: 0.95, Teamwork: 0.9},
				AttackCooldown: 15,
			},
		},
		UpdateRate:         1,
		ReactionTime:       4,
		ModeSwitchInterval: 15,
		ModeSwitchChance:   0.3,
		GatherDuration:     30,
		CombatRange:        16,
		BedBreakPriority:   0.6,
		AutoFillDelay:      30,
		MaxBotsPerGame:     7,
	}
}

// settingsFor returns the settings for the difficulty, falling back to
// DifficultyMedium.
func (c Config) settingsFor(d Difficulty) DifficultySettings {
	if s, ok := c.Difficulties[d]; ok {
		return s
	}
	return DefaultConfig().Difficulties[DifficultyMedium]
}

// Mode is the behavior mode of a bot.
type Mode string

const (
	ModePassive    Mode = "PASSIVE"
	ModeAggressive Mode = "AGGRESSIVE"
	ModeDefensive  Mode = "DEFENSIVE"
)

// WeaponTier is the weapon a bot holds.
type WeaponTier int

const (
	WeaponNone WeaponTier = iota
	WeaponWood
	WeaponStone
	WeaponIron
	WeaponDiamond
)

// Damage returns the base damage of the weapon.
func (w WeaponTier) Damage() float64 {
	switch w {
	case WeaponWood:
		return 4
	case WeaponStone:
		return 5
	case WeaponIron:
		return 6
	case WeaponDiamond:
		return 7
	}
	return 2
}

// weaponUpgrade is the price of a weapon tier.
type weaponUpgrade struct {
	tier     WeaponTier
	resource host.ResourceType
	amount   int
}

// weaponUpgrades are the weapon prices in ascending order.
var weaponUpgrades = []weaponUpgrade{
	{tier: WeaponStone, resource: host.ResourceIron, amount: 10},
	{tier: WeaponIron, resource: host.ResourceGold, amount: 7},
	{tier: WeaponDiamond, resource: host.ResourceEmerald, amount: 4},
}
