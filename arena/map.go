package arena

import (
	"fmt"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/host"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	defaultMinPlayers = 2
	defaultMaxPlayers = 8
)

// GeneratorPoint is a map location that periodically produces a resource.
type GeneratorPoint struct {
	// ID is the generator id like "iron-1". If Type is not set, it is derived
	// from the id prefix.
	ID string `yaml:"id"`
	// Type is the produced resource.
	Type host.ResourceType `yaml:"type"`
	// Location where resources are placed.
	Location host.Location `yaml:"location"`
}

// Map is the immutable definition of an arena map.
type Map struct {
	// Name is the unique map id, also used for provisioning worlds.
	Name string `yaml:"name"`
	// DisplayName is a human-readable name.
	DisplayName string `yaml:"display-name"`
	// MinPlayers is the roster size that triggers the countdown.
	MinPlayers int `yaml:"min-players"`
	// MaxPlayers caps the roster size.
	MaxPlayers int `yaml:"max-players"`
	// Center is the observation point for eliminated participants and where
	// bots wander when there is nothing to hunt.
	Center host.Location `yaml:"center"`
	// VoidY is the height below which participants die.
	VoidY float64 `yaml:"void-y"`
	// Spawns holds the spawn per team.
	Spawns map[Color]host.Location `yaml:"spawns"`
	// Beds holds the bed location per team.
	Beds map[Color]host.Location `yaml:"beds"`
	// Generators are all generator points.
	Generators []GeneratorPoint `yaml:"generators"`
	// Shops are the shop locations.
	Shops []host.Location `yaml:"shops"`
	// GeneratorIntervals optionally overrides the configured interval in ticks
	// per resource type.
	GeneratorIntervals map[host.ResourceType]int `yaml:"generator-intervals"`
}

// resourceTypeOf returns the resource type of the generator point.
func (p GeneratorPoint) resourceTypeOf() (host.ResourceType, bool) {
	if p.Type != "" {
		return host.ParseResourceType(string(p.Type))
	}
	prefix := p.ID
	if i := strings.Index(p.ID, "-"); i >= 0 {
		prefix = p.ID[:i]
	}
	return host.ParseResourceType(prefix)
}

// GeneratorsByType groups all generator locations by their resource type.
// Generators with unknown type are returned separately.
func (m Map) GeneratorsByType() (map[host.ResourceType][]host.Location, []GeneratorPoint) {
	byType := make(map[host.ResourceType][]host.Location)
	var unknown []GeneratorPoint
	for _, point := range m.Generators {
		t, ok := point.resourceTypeOf()
		if !ok {
			unknown = append(unknown, point)
			continue
		}
		byType[t] = append(byType[t], point.Location)
	}
	return byType, unknown
}

// Spawn returns the spawn of the team.
func (m Map) Spawn(color Color) (host.Location, bool) {
	l, ok := m.Spawns[color]
	return l, ok
}

// applyDefaults fills unset player limits.
func (m *Map) applyDefaults() {
	if m.MinPlayers == 0 {
		m.MinPlayers = defaultMinPlayers
	}
	if m.MaxPlayers == 0 {
		m.MaxPlayers = defaultMaxPlayers
	}
	// Normalize resource type names.
	if len(m.GeneratorIntervals) > 0 {
		normalized := make(map[host.ResourceType]int, len(m.GeneratorIntervals))
		for t, interval := range m.GeneratorIntervals {
			if parsed, ok := host.ParseResourceType(string(t)); ok {
				t = parsed
			}
			normalized[t] = interval
		}
		m.GeneratorIntervals = normalized
	}
}

// Validate checks the map for consistency.
func (m Map) Validate() error {
	if m.Name == "" {
		return errors.NewBadRequestError(errors.KindInvalidConfig, "missing map name", nil)
	}
	if m.MinPlayers < 1 {
		return errors.NewBadRequestError(errors.KindInvalidConfig, "min players must be at least 1",
			errors.Details{"map": m.Name, "min_players": m.MinPlayers})
	}
	if m.MaxPlayers < m.MinPlayers {
		return errors.NewBadRequestError(errors.KindInvalidConfig, "max players must not be less than min players",
			errors.Details{"map": m.Name, "min_players": m.MinPlayers, "max_players": m.MaxPlayers})
	}
	for t, interval := range m.GeneratorIntervals {
		if _, ok := host.ParseResourceType(string(t)); !ok {
			return errors.NewBadRequestError(errors.KindInvalidConfig, fmt.Sprintf("unknown resource type %s", t),
				errors.Details{"map": m.Name, "interval": interval})
		}
	}
	return nil
}

// LoadMap reads a YAML map definition.
func LoadMap(r io.Reader) (Map, error) {
	var m Map
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Map{}, errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindDecodeYAML,
			Err:     err,
			Message: "decode map",
		}
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return Map{}, errors.Wrap(err, "validate map", nil)
	}
	return m, nil
}

// LoadMaps reads all .yml and .yaml files in the directory as maps, keyed by
// map name.
func LoadMaps(dir string) (map[string]Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewInternalErrorFromErr(err, "read maps dir", errors.Details{"dir": dir})
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yml" && ext != ".yaml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	maps := make(map[string]Map, len(names))
	for _, name := range names {
		m, err := loadMapFile(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.Wrap(err, "load map file", errors.Details{"file": name})
		}
		if _, ok := maps[m.Name]; ok {
			return nil, errors.NewBadRequestError(errors.KindInvalidConfig, "duplicate map name",
				errors.Details{"map": m.Name, "file": name})
		}
		maps[m.Name] = m
	}
	return maps, nil
}

func loadMapFile(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return Map{}, errors.NewInternalErrorFromErr(err, "open map file", nil)
	}
	defer func() { _ = f.Close() }()
	return LoadMap(f)
}
