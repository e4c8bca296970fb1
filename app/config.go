package app

import (
	"encoding/json"
	"fmt"
	"github.com/gobuffalo/nulls"
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/director"
	"github.com/lefinal/bedwars-server/errors"
	"go.uber.org/zap/zapcore"
	"os"
	"strings"
)

// defaultMaxDBConnections is the maximum number of database connections that
// is used when no other one is provided in the Config.
const defaultMaxDBConnections = 16

// Config is the configuration needed in order to boot an App.
type Config struct {
	// Log is the logging configuration.
	Log LogConfig `json:"log"`
	// MQTTAddr is the address of the MQTT server used for commands and events.
	MQTTAddr string `json:"mqtt_addr"`
	// DBConn is the connection string for the PostgreSQL database. If not set,
	// match results are only logged.
	DBConn nulls.String `json:"db_conn"`
	// MaxDBConnections limits the database connection pool.
	MaxDBConnections nulls.Int `json:"max_db_connections"`
	// StatusAddr is the address to serve the status feed on. If not set, no
	// status feed is served.
	StatusAddr nulls.String `json:"status_addr"`
	// MapsDir is the directory holding the map files.
	MapsDir string `json:"maps_dir"`
	// Arenas are the arenas to run.
	Arenas []ArenaConfig `json:"arenas"`
	// Game is the game tuning. Missing values keep their defaults.
	Game director.Config `json:"game"`
}

// LogConfig is the logging part of Config.
type LogConfig struct {
	// StdoutLogLevel is the minimum level for logging to stdout.
	StdoutLogLevel zapcore.Level `json:"stdout_log_level"`
	// PublishLogLevel is the minimum level for log entries published via MQTT.
	PublishLogLevel zapcore.Level `json:"publish_log_level"`
	// HighPriorityOutput is an optional file to write warnings and errors to.
	HighPriorityOutput nulls.String `json:"high_priority_output"`
	// DebugOutput is an optional file to write all log entries to.
	DebugOutput nulls.String `json:"debug_output"`
	// MaxSize is the maximum size in megabytes of log files before rotation.
	MaxSize int `json:"max_size"`
	// KeepDays is the number of days to keep rotated log files.
	KeepDays int `json:"keep_days"`
	// SystemDebugStatsInterval is the interval in seconds in which to log
	// system and arena stats. Disabled if not set.
	SystemDebugStatsInterval nulls.Int `json:"system_debug_stats_interval"`
}

// ArenaConfig describes one arena in Config.
type ArenaConfig struct {
	Name string `json:"name"`
	// Map is the name of the map as found in MapsDir.
	Map string `json:"map"`
	// Mode is the game mode name like "solo" or "custom".
	Mode string `json:"mode"`
	// Teams overrides the team count of the mode.
	Teams nulls.Int `json:"teams"`
	// TeamSize overrides the team capacity of the mode.
	TeamSize nulls.Int `json:"team_size"`
	// Colors overrides the team colors in assignment order.
	Colors []string `json:"colors"`
}

// defaultConfig is the Config that values from the config file are applied
// to.
func defaultConfig() Config {
	return Config{
		Log: LogConfig{
			StdoutLogLevel:  zapcore.InfoLevel,
			PublishLogLevel: zapcore.InfoLevel,
			MaxSize:         100,
			KeepDays:        7,
		},
		MapsDir: "maps",
		Game:    director.DefaultConfig(),
	}
}

// LoadConfig reads the JSON config file at the given path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "read config file",
			Details: errors.Details{"path": path},
		}
	}
	return parseConfig(raw)
}

func parseConfig(raw []byte) (Config, error) {
	config := defaultConfig()
	err := json.Unmarshal(raw, &config)
	if err != nil {
		return Config{}, errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindInvalidConfig,
			Err:     err,
			Message: "parse config",
		}
	}
	return config, nil
}

// ValidateConfig assures that all required values are set.
func ValidateConfig(config Config) error {
	if config.MQTTAddr == "" {
		return invalidConfig("missing mqtt addr", nil)
	}
	if config.DBConn.Valid && config.DBConn.String == "" {
		return invalidConfig("empty db conn", nil)
	}
	if config.MaxDBConnections.Valid && config.MaxDBConnections.Int < 1 {
		return invalidConfig("max db connections must be positive",
			errors.Details{"was": config.MaxDBConnections.Int})
	}
	if config.MapsDir == "" {
		return invalidConfig("missing maps dir", nil)
	}
	if len(config.Arenas) == 0 {
		return invalidConfig("no arenas", nil)
	}
	for i, a := range config.Arenas {
		details := errors.Details{"arena_index": i, "arena": a.Name}
		if a.Name == "" {
			return invalidConfig("missing arena name", details)
		}
		if a.Map == "" {
			return invalidConfig("missing arena map", details)
		}
		if _, ok := arena.ParseMode(a.Mode); !ok {
			details["mode"] = a.Mode
			return invalidConfig("unknown mode", details)
		}
		if a.Teams.Valid && a.Teams.Int < 1 {
			return invalidConfig("teams must be positive", details)
		}
		if a.TeamSize.Valid && a.TeamSize.Int < 1 {
			return invalidConfig("team size must be positive", details)
		}
	}
	return nil
}

func invalidConfig(message string, details errors.Details) error {
	return errors.Error{
		Code:    errors.ErrFatal,
		Kind:    errors.KindInvalidConfig,
		Message: message,
		Details: details,
	}
}

// arenaConfigs builds the director.ArenaConfig list from the configured arenas
// and the loaded maps.
func arenaConfigs(configs []ArenaConfig, maps map[string]arena.Map) ([]director.ArenaConfig, error) {
	modes := arena.DefaultModes()
	out := make([]director.ArenaConfig, 0, len(configs))
	for _, c := range configs {
		m, ok := maps[c.Map]
		if !ok {
			return nil, errors.NewResourceNotFoundError(fmt.Sprintf("map %q for arena %q not found", c.Map, c.Name),
				errors.Details{"arena": c.Name, "map": c.Map})
		}
		mode, ok := arena.ParseMode(c.Mode)
		if !ok {
			return nil, invalidConfig("unknown mode", errors.Details{"arena": c.Name, "mode": c.Mode})
		}
		settings := modes[mode]
		if c.Teams.Valid {
			settings.Teams = c.Teams.Int
		}
		if c.TeamSize.Valid {
			settings.TeamSize = c.TeamSize.Int
		}
		colors := arena.DefaultColors
		if len(c.Colors) > 0 {
			colors = make([]arena.Color, 0, len(c.Colors))
			for _, color := range c.Colors {
				colors = append(colors, arena.Color(strings.ToUpper(strings.TrimSpace(color))))
			}
		}
		out = append(out, director.ArenaConfig{
			Name:     c.Name,
			Map:      m,
			Mode:     mode,
			Settings: settings,
			Colors:   colors,
		})
	}
	return out, nil
}
