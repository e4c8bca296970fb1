package director

import (
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/bot"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/generator"
	"github.com/lefinal/bedwars-server/host"
	"time"
)

// Config is the game tuning for all arenas.
type Config struct {
	// CountdownSeconds is the countdown length in StateStarting.
	CountdownSeconds int `json:"countdown_seconds"`
	// RespawnSeconds is the delay before participants of teams with living
	// beds respawn.
	RespawnSeconds int `json:"respawn_seconds"`
	// VoidProtectionSeconds is the damage immunity after spawning at match start
	// and after respawning.
	VoidProtectionSeconds int `json:"void_protection_seconds"`
	// EndingGraceTicks is the time the outcome is shown before resetting.
	EndingGraceTicks int `json:"ending_grace_ticks"`
	// EvaluateInterval is the number of ticks between win-condition
	// evaluations.
	EvaluateInterval int `json:"evaluate_interval"`
	// VoidCheckInterval is the number of ticks between void checks.
	VoidCheckInterval int `json:"void_check_interval"`
	// AutoFillInterval is the number of ticks between bot auto-fill checks.
	AutoFillInterval int `json:"auto_fill_interval"`
	// ProvisionTimeoutSeconds bounds provisioning a match world.
	ProvisionTimeoutSeconds int `json:"provision_timeout_seconds"`
	// TeardownTimeoutSeconds bounds tearing down a match world.
	TeardownTimeoutSeconds int `json:"teardown_timeout_seconds"`
	// StatsTimeoutSeconds bounds persisting one match result.
	StatsTimeoutSeconds int `json:"stats_timeout_seconds"`
	// Lobby is where humans are sent after a match.
	Lobby host.Location `json:"lobby"`
	// Seed seeds the random source of each arena. Zero uses the current
	// time.
	Seed int64 `json:"seed"`
	// Bots is the bot tuning.
	Bots bot.Config `json:"bots"`
	// Generators holds the default generator intervals.
	Generators generator.Config `json:"generators"`
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		CountdownSeconds:        30,
		RespawnSeconds:          5,
		VoidProtectionSeconds:   3,
		EndingGraceTicks:        100,
		EvaluateInterval:        20,
		VoidCheckInterval:       5,
		AutoFillInterval:        60,
		ProvisionTimeoutSeconds: 30,
		TeardownTimeoutSeconds:  30,
		StatsTimeoutSeconds:     10,
		Lobby:                   host.Location{World: "lobby", Y: 64},
		Bots:                    bot.DefaultConfig(),
		Generators:              generator.DefaultConfig(),
	}
}

func seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// ArenaConfig describes one arena.
type ArenaConfig struct {
	// Name is the unique arena name.
	Name string
	// Map is the played map.
	Map arena.Map
	// Mode is the game mode.
	Mode arena.Mode
	// Settings are the team settings of the mode.
	Settings arena.ModeSettings
	// Colors are the available team colors in order.
	Colors []arena.Color
}

// validateArenaConfigs assures unique and non-empty arena names.
func validateArenaConfigs(configs []ArenaConfig) error {
	names := make(map[string]struct{}, len(configs))
	for _, c := range configs {
		if c.Name == "" {
			return errors.NewBadRequestError(errors.KindInvalidConfig, "arena without name", nil)
		}
		if _, ok := names[c.Name]; ok {
			return errors.NewBadRequestError(errors.KindInvalidConfig, "duplicate arena name",
				errors.Details{"arena": c.Name})
		}
		names[c.Name] = struct{}{}
	}
	return nil
}
