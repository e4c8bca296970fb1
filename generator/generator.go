package generator

import (
	"github.com/lefinal/bedwars-server/arena"
	"github.com/lefinal/bedwars-server/errors"
	"github.com/lefinal/bedwars-server/host"
	"github.com/lefinal/bedwars-server/schedule"
	"go.uber.org/zap"
)

// fallbackInterval is used for resource types without configured interval.
const fallbackInterval = 20

// Config holds the spawn intervals.
type Config struct {
	// Intervals are the spawn intervals in ticks per resource type. Values
	// below one are clamped to one.
	Intervals map[host.ResourceType]int `json:"intervals"`
}

// DefaultConfig returns the default intervals.
func DefaultConfig() Config {
	return Config{
		Intervals: map[host.ResourceType]int{
			host.ResourceIron:    schedule.Seconds(1),
			host.ResourceGold:    schedule.Seconds(8),
			host.ResourceDiamond: schedule.Seconds(30),
			host.ResourceEmerald: schedule.Seconds(60),
		},
	}
}

// Placer places resources in the world.
type Placer interface {
	PlaceItem(items host.ItemStack, location host.Location)
}

// Scheduler spawns resources at all generator points of one arena. All
// locations of the same resource type share one timer.
type Scheduler struct {
	logger *zap.Logger
	sched  *schedule.Scheduler
	placer Placer
	config Config
	// tasks holds the timers while running.
	tasks   []schedule.TaskID
	running bool
}

// NewScheduler creates a Scheduler that uses the arena's schedule.Scheduler.
func NewScheduler(logger *zap.Logger, sched *schedule.Scheduler, placer Placer, config Config) *Scheduler {
	return &Scheduler{
		logger: logger,
		sched:  sched,
		placer: placer,
		config: config,
	}
}

// Interval returns the spawn interval in ticks for the resource type on the
// given map.
func (s *Scheduler) Interval(resource host.ResourceType, m arena.Map) int {
	interval, ok := m.GeneratorIntervals[resource]
	if !ok {
		interval, ok = s.config.Intervals[resource]
	}
	if !ok {
		interval = fallbackInterval
	}
	if interval < 1 {
		interval = 1
	}
	return interval
}

// Start spawning for the map's generators in the given world. Starting while
// already running would double-spawn, so it is logged and rejected.
func (s *Scheduler) Start(world host.WorldHandle, m arena.Map) error {
	if s.running {
		err := errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindGeneratorsRunning,
			Message: "generators already running",
			Details: errors.Details{"map": m.Name, "world": world},
		}
		errors.Log(s.logger, err)
		return err
	}
	byType, unknown := m.GeneratorsByType()
	for _, point := range unknown {
		s.logger.Warn("skipping generator with unknown resource type",
			zap.String("map", m.Name), zap.String("generator", point.ID), zap.String("type", string(point.Type)))
	}
	s.running = true
	for _, resource := range host.ResourceTypes {
		templates := byType[resource]
		if len(templates) == 0 {
			continue
		}
		locations := make([]host.Location, 0, len(templates))
		for _, l := range templates {
			locations = append(locations, l.In(world))
		}
		resource := resource
		interval := s.Interval(resource, m)
		s.tasks = append(s.tasks, s.sched.Every(interval, interval, func() {
			for _, l := range locations {
				s.placer.PlaceItem(host.ItemStack{Resource: resource, Amount: 1}, l)
			}
		}))
		s.logger.Debug("generators started", zap.String("resource", string(resource)),
			zap.Int("locations", len(locations)), zap.Int("interval", interval))
	}
	return nil
}

// Stop cancels all timers. No resource is placed afterwards.
func (s *Scheduler) Stop() {
	for _, task := range s.tasks {
		s.sched.Cancel(task)
	}
	s.tasks = nil
	s.running = false
}

// Running reports whether generators are active.
func (s *Scheduler) Running() bool {
	return s.running
}
